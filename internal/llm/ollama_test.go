package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ppiankov/unearth/internal/model"
)

func TestOllamaProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Format != "json" {
			t.Errorf("expected json format, got %q", req.Format)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		user := req.Messages[1]
		if len(user.Images) != 1 || user.Images[0] != "AAAA" {
			t.Errorf("expected raw base64 image, got %v", user.Images)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:   "llava",
			Message: ollamaMessage{Role: "assistant", Content: ` {"aiProbability": 12} `},
			Done:    true,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llava", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Prompt: "Is this AI generated?",
		JSON:   true,
		Media:  []model.InlinePayload{{MediaType: "image/png", Data: "AAAA"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"aiProbability": 12}` {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.TokensUsed == 0 {
		t.Error("expected estimated token count")
	}
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{})
	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Error("expected error without model")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("expected provider to be available")
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}

	p, err := NewProvider(Config{Provider: "Ollama", Model: "llava"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("expected ollama, got %s", p.Name())
	}

	p, err = NewProvider(Config{Provider: "claude", APIKey: "k"})
	if err != nil || p.Name() != "anthropic" {
		t.Errorf("expected anthropic for claude alias, got %v %v", p, err)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.DefaultConfig().LLM, model.HTTPConfig{HTTPProxy: "http://proxy:3128"})
	if cfg.Provider != "openai" || cfg.Voice != "onyx" || cfg.TranscribeModel != "whisper-1" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.HTTPProxy != "http://proxy:3128" {
		t.Errorf("expected proxy to carry over, got %q", cfg.HTTPProxy)
	}
}
