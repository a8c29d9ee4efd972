package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLyzr_Review(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "lyzr-key" {
			t.Error("Missing x-api-key header")
		}
		var req lyzrRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.AgentID != "agent-perf" {
			t.Errorf("agent_id = %q", req.AgentID)
		}
		if !strings.HasPrefix(req.SessionID, "agent-perf-") {
			t.Errorf("session_id = %q", req.SessionID)
		}
		if req.UserID != defaultLyzrUserID {
			t.Errorf("user_id = %q", req.UserID)
		}
		if !strings.HasPrefix(req.Message, "focus\n\n") {
			t.Errorf("message = %q", req.Message)
		}
		json.NewEncoder(w).Encode(lyzrResponse{Response: `[{"file":"a.ts"}]`})
	}))
	defer server.Close()

	l, err := NewLyzr(Options{APIKey: "lyzr-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewLyzr: %v", err)
	}
	resp, err := l.Review(context.Background(), Request{
		SystemPrompt: "focus",
		UserPrompt:   "diff",
		Agent:        "agent-perf",
	})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if resp.Content != `[{"file":"a.ts"}]` {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestLyzr_AgentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lyzrResponse{Error: "agent offline"})
	}))
	defer server.Close()

	l, _ := NewLyzr(Options{APIKey: "k", BaseURL: server.URL, Model: "fallback-agent"})
	_, err := l.Review(context.Background(), Request{UserPrompt: "diff"})
	if err == nil || !strings.Contains(err.Error(), "agent offline") {
		t.Errorf("err = %v, want agent error", err)
	}
}

func TestLyzr_MissingAgent(t *testing.T) {
	l, _ := NewLyzr(Options{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	if _, err := l.Review(context.Background(), Request{UserPrompt: "diff"}); err == nil {
		t.Error("expected error without agent id")
	}
}
