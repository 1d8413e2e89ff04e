package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/unearth/internal/model"
)

// NewProvider creates the provider named in config
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the runtime configuration
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:        llmCfg.Provider,
		Model:           llmCfg.Model,
		APIKey:          llmCfg.APIKey,
		BaseURL:         llmCfg.BaseURL,
		Timeout:         llmCfg.Timeout,
		MaxTokens:       llmCfg.MaxTokens,
		TranscribeModel: llmCfg.TranscribeModel,
		SpeechModel:     llmCfg.SpeechModel,
		Voice:           llmCfg.AnonymizingVoice,
		HTTPProxy:       httpCfg.HTTPProxy,
		HTTPSProxy:      httpCfg.HTTPSProxy,
		NoProxy:         httpCfg.NoProxy,
	}
}
