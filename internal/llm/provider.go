package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/unearth/internal/model"
)

// Provider is a hosted or local language model
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one prompt, optionally with attached media
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is configured and reachable
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one model invocation
type CompletionRequest struct {
	// System sets the assistant's role
	System string

	// Prompt is the user message
	Prompt string

	// Media is attached to the user message. Providers attach what they can
	// view (images) and describe the rest in the prompt.
	Media []model.InlinePayload

	// JSON asks for a single JSON object as the whole reply
	JSON bool

	// Model overrides the configured model
	Model string

	// MaxTokens overrides the configured limit
	MaxTokens int
}

// CompletionResponse is the model's reply
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
	// Omitted lists media types the provider could not attach
	Omitted []string
}

// Config holds provider settings
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout per request in seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int

	// Audio models (OpenAI only)
	TranscribeModel string
	SpeechModel     string
	Voice           string

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns the built-in provider settings
func DefaultConfig() Config {
	return Config{
		Provider:        "openai",
		Timeout:         60,
		MaxTokens:       1500,
		TranscribeModel: "whisper-1",
		SpeechModel:     "tts-1",
		Voice:           "onyx",
	}
}

const jsonInstruction = "Respond with a single JSON object and nothing else. Do not wrap it in markdown."

// ExtractJSON returns the outermost JSON object in a model reply, tolerating
// code fences and surrounding prose
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in model reply")
	}
	return text[start : end+1], nil
}

// describeOmitted renders a note for media the model cannot view
func describeOmitted(media []model.InlinePayload) string {
	if len(media) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nAttached media that could not be shown to you:")
	for _, m := range media {
		fmt.Fprintf(&b, "\n- %s (%d bytes)", m.MediaType, m.Size())
	}
	return b.String()
}

func isImage(m model.InlinePayload) bool {
	return strings.HasPrefix(m.MediaType, "image/")
}

func partitionMedia(media []model.InlinePayload, accept func(model.InlinePayload) bool) (ok, omitted []model.InlinePayload) {
	for _, m := range media {
		if accept(m) {
			ok = append(ok, m)
		} else {
			omitted = append(omitted, m)
		}
	}
	return ok, omitted
}

func mediaTypes(media []model.InlinePayload) []string {
	out := make([]string, 0, len(media))
	for _, m := range media {
		out = append(out, m.MediaType)
	}
	return out
}

func pick[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
