package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/unearth/internal/model"
)

func chatHandler(t *testing.T, reply string, inspect func(map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if inspect != nil {
			inspect(body)
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-123",
			Object: "chat.completion",
			Model:  "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: reply},
				FinishReason: "stop",
			}},
			Usage: openai.Usage{TotalTokens: 42},
		})
	}
}

func TestOpenAIProvider_Complete_TextJSON(t *testing.T) {
	server := httptest.NewServer(chatHandler(t, `{"summary":"ok"}`, func(body map[string]any) {
		rf, ok := body["response_format"].(map[string]any)
		if !ok || rf["type"] != "json_object" {
			t.Errorf("expected json_object response format, got %v", body["response_format"])
		}
		msgs := body["messages"].([]any)
		user := msgs[1].(map[string]any)
		if user["content"] != "Analyze this" {
			t.Errorf("unexpected user content: %v", user["content"])
		}
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		System: "You are a fact checker.",
		Prompt: "Analyze this",
		JSON:   true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"summary":"ok"}` {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 42 {
		t.Errorf("Expected 42 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Complete_AttachesImages(t *testing.T) {
	server := httptest.NewServer(chatHandler(t, "ok", func(body map[string]any) {
		user := body["messages"].([]any)[1].(map[string]any)
		parts, ok := user["content"].([]any)
		if !ok {
			t.Fatalf("expected multi-part content, got %T", user["content"])
		}
		if len(parts) != 2 {
			t.Fatalf("expected text + image parts, got %d", len(parts))
		}
		text := parts[0].(map[string]any)["text"].(string)
		if !strings.Contains(text, "video/mp4") {
			t.Errorf("expected omitted video to be described, got %q", text)
		}
		img := parts[1].(map[string]any)["image_url"].(map[string]any)
		if img["url"] != "data:image/png;base64,AAAA" {
			t.Errorf("unexpected image url: %v", img["url"])
		}
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Prompt: "Describe",
		Media: []model.InlinePayload{
			{MediaType: "image/png", Data: "AAAA"},
			{MediaType: "video/mp4", Data: "AAAA"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if len(resp.Omitted) != 1 || resp.Omitted[0] != "video/mp4" {
		t.Errorf("expected video/mp4 omitted, got %v", resp.Omitted)
	}
}

func TestOpenAIProvider_Complete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestOpenAIAudio_TranscribeAndSpeak(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio/transcriptions":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parse multipart: %v", err)
			}
			if r.FormValue("model") != "whisper-1" {
				t.Errorf("expected whisper-1, got %s", r.FormValue("model"))
			}
			_, header, err := r.FormFile("file")
			if err != nil {
				t.Fatalf("missing file: %v", err)
			}
			if header.Filename != "media.mp4" {
				t.Errorf("expected media.mp4, got %s", header.Filename)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"text": " hello world "})

		case "/audio/speech":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["voice"] != "onyx" {
				t.Errorf("expected onyx voice, got %v", body["voice"])
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			_, _ = w.Write([]byte("ID3fake"))

		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL
	audio, err := NewOpenAIAudio(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIAudio: %v", err)
	}

	text, err := audio.Transcribe(context.Background(), model.NewInlinePayload("video/mp4", []byte("ftyp")))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("unexpected transcript %q", text)
	}

	speech, err := audio.Speak(context.Background(), text)
	if err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if speech.MediaType != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", speech.MediaType)
	}
	if b, _ := speech.Bytes(); string(b) != "ID3fake" {
		t.Errorf("unexpected audio bytes %q", b)
	}

	if _, err := audio.Speak(context.Background(), "  "); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{`{"a":1}`, `{"a":1}`, false},
		{"```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"Here you go: {\"a\":{\"b\":2}} thanks", `{"a":{"b":2}}`, false},
		{"no json", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractJSON(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractJSON(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
