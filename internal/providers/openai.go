package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAI implements the Reviewer interface for OpenAI's chat completions API.
type OpenAI struct {
	opts   Options
	url    string
	client *http.Client
}

// NewOpenAI creates a new OpenAI provider.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is not configured (OPENAI_API_KEY)")
	}
	if opts.Model == "" {
		opts.Model = defaultOpenAIModel
	}
	url := opts.BaseURL
	if url == "" {
		url = defaultOpenAIURL
	}
	return &OpenAI{opts: opts, url: url, client: httpClient(opts, 120*time.Second)}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Review(ctx context.Context, req Request) (Response, error) {
	headers := map[string]string{"Authorization": "Bearer " + o.opts.APIKey}
	return chatCompletion(ctx, o.client, o.Name(), o.url, headers, o.opts.Model, req)
}

// chatCompletion performs one OpenAI-compatible chat completion call.
func chatCompletion(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, model string, req Request) (Response, error) {
	body := openaiRequest{
		Model: model,
		Messages: []openaiMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens: maxTokens(req),
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	var result openaiResponse
	if err := postJSON(ctx, client, provider, url, headers, body, &result); err != nil {
		return Response{}, err
	}

	if len(result.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in response")
	}
	if result.Choices[0].Message.Content == "" {
		return Response{}, ErrEmptyContent
	}

	return Response{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}
