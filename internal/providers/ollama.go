package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3"
)

// Ollama implements the Reviewer interface for Ollama and LM Studio (OpenAI-compatible API).
type Ollama struct {
	opts   Options
	url    string
	client *http.Client
}

// NewOllama creates a new Ollama provider. No API key is required by default.
func NewOllama(opts Options) (*Ollama, error) {
	if opts.Model == "" {
		opts.Model = defaultOllamaModel
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	// Normalize URL: strip trailing /, /v1, /v1/chat/completions
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	return &Ollama{
		opts:   opts,
		url:    baseURL + "/v1/chat/completions",
		client: httpClient(opts, 300*time.Second),
	}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Review(ctx context.Context, req Request) (Response, error) {
	var headers map[string]string
	// Optional API key for servers that require it (e.g., LM Studio)
	if o.opts.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + o.opts.APIKey}
	}
	return chatCompletion(ctx, o.client, o.Name(), o.url, headers, o.opts.Model, req)
}
