package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Request contains the data sent to an analysis backend.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
	// Agent selects a hosted agent on backends that route by agent id
	// (Lyzr). Other backends ignore it.
	Agent string
	// Session groups related calls on backends that keep sessions.
	Session string
}

// Response contains the raw text returned by a backend.
type Response struct {
	Content    string
	TokensUsed int
}

// Reviewer is the analysis capability a specialist calls. Implementations
// make exactly one outbound call per Review and never retry.
type Reviewer interface {
	Review(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Options configures a provider. Zero values fall back to provider defaults.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	// UserID is sent by backends that attribute calls to a user.
	UserID     string
	HTTPClient *http.Client
}

const defaultMaxTokens = 4096

// Names lists the provider names accepted by New.
var Names = []string{"anthropic", "openai", "gemini", "ollama", "lyzr"}

// New creates a provider by name.
func New(provider string, opts Options) (Reviewer, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(opts)
	case "openai":
		return NewOpenAI(opts)
	case "gemini", "google":
		return NewGemini(opts)
	case "ollama", "lmstudio":
		return NewOllama(opts)
	case "lyzr":
		return NewLyzr(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

func httpClient(opts Options, timeout time.Duration) *http.Client {
	if opts.HTTPClient != nil {
		return opts.HTTPClient
	}
	return &http.Client{Timeout: timeout}
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
