package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLyzrURL    = "https://agent-prod.studio.lyzr.ai/v3/inference/chat/"
	defaultLyzrUserID = "panel@localhost"
)

// Lyzr implements the Reviewer interface for Lyzr Agent Studio. Each
// specialist is a hosted agent selected by Request.Agent; the agent owns
// its own instructions, so SystemPrompt is prepended to the message.
type Lyzr struct {
	opts   Options
	url    string
	client *http.Client
}

// NewLyzr creates a new Lyzr agent provider.
func NewLyzr(opts Options) (*Lyzr, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("lyzr: API key is not configured (LYZR_API_KEY)")
	}
	if opts.UserID == "" {
		opts.UserID = defaultLyzrUserID
	}
	url := opts.BaseURL
	if url == "" {
		url = defaultLyzrURL
	}
	return &Lyzr{opts: opts, url: url, client: httpClient(opts, 120*time.Second)}, nil
}

func (l *Lyzr) Name() string { return "lyzr" }

func (l *Lyzr) Review(ctx context.Context, req Request) (Response, error) {
	agent := req.Agent
	if agent == "" {
		agent = l.opts.Model
	}
	if agent == "" {
		return Response{}, fmt.Errorf("lyzr: no agent id for request")
	}
	session := req.Session
	if session == "" {
		session = agent + "-" + uuid.NewString()
	}

	message := req.UserPrompt
	if req.SystemPrompt != "" {
		message = req.SystemPrompt + "\n\n" + req.UserPrompt
	}

	body := lyzrRequest{
		UserID:    l.opts.UserID,
		AgentID:   agent,
		SessionID: session,
		Message:   message,
	}
	headers := map[string]string{"x-api-key": l.opts.APIKey}

	var result lyzrResponse
	if err := postJSON(ctx, l.client, l.Name(), l.url, headers, body, &result); err != nil {
		return Response{}, err
	}
	if result.Error != "" {
		return Response{}, fmt.Errorf("lyzr agent error: %s", result.Error)
	}
	if strings.TrimSpace(result.Response) == "" {
		return Response{}, ErrEmptyContent
	}
	return Response{Content: result.Response}, nil
}

type lyzrRequest struct {
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type lyzrResponse struct {
	Response  string         `json:"response"`
	AgentID   string         `json:"agent_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Error     string         `json:"error,omitempty"`
}
