package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllama_Review(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		// Verify no Authorization header when no API key is set
		if r.Header.Get("Authorization") != "" {
			t.Error("Expected no Authorization header for keyless Ollama")
		}

		resp := openaiResponse{
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "[]"}},
			},
			Usage: openaiUsage{TotalTokens: 100},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o, _ := NewOllama(Options{BaseURL: server.URL})
	resp, err := o.Review(context.Background(), Request{
		SystemPrompt: "test",
		UserPrompt:   "test",
		MaxTokens:    10,
	})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if resp.Content != "[]" {
		t.Errorf("Content = %q, want %q", resp.Content, "[]")
	}
	if resp.TokensUsed != 100 {
		t.Errorf("TokensUsed = %d, want 100", resp.TokensUsed)
	}
}

func TestOllama_ReviewWithAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-ollama-key" {
			t.Error("Missing or wrong Authorization header")
		}
		resp := openaiResponse{
			Choices: []openaiChoice{
				{Message: openaiMessage{Role: "assistant", Content: "[]"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	o, _ := NewOllama(Options{APIKey: "test-ollama-key", BaseURL: server.URL + "/v1/"})
	if _, err := o.Review(context.Background(), Request{UserPrompt: "test"}); err != nil {
		t.Fatalf("Review error: %v", err)
	}
}

func TestOllama_URLNormalization(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "http://localhost:11434/v1/chat/completions"},
		{"http://localhost:11434", "http://localhost:11434/v1/chat/completions"},
		{"http://localhost:11434/", "http://localhost:11434/v1/chat/completions"},
		{"http://localhost:1234/v1", "http://localhost:1234/v1/chat/completions"},
		{"http://localhost:1234/v1/chat/completions", "http://localhost:1234/v1/chat/completions"},
	}
	for _, tt := range tests {
		o, err := NewOllama(Options{BaseURL: tt.input})
		if err != nil {
			t.Fatalf("NewOllama(%q): %v", tt.input, err)
		}
		if o.url != tt.want {
			t.Errorf("NewOllama(%q).url = %q, want %q", tt.input, o.url, tt.want)
		}
	}
}
