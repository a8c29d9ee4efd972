package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropic_Review(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Missing API key header")
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Error("Missing anthropic-version header")
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.System != "system" || req.MaxTokens != 10 {
			t.Errorf("request = %+v", req)
		}

		resp := anthropicResponse{
			Content: []anthropicBlock{
				{Type: "text", Text: "["},
				{Type: "tool_use", Text: "ignored"},
				{Type: "text", Text: "]"},
			},
			Usage: anthropicUsage{InputTokens: 100, OutputTokens: 10},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	a, err := NewAnthropic(Options{APIKey: "test-key", BaseURL: server.URL, HTTPClient: server.Client()})
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}

	resp, err := a.Review(context.Background(), Request{
		SystemPrompt: "system",
		UserPrompt:   "user",
		MaxTokens:    10,
	})
	if err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if resp.Content != "[]" {
		t.Errorf("Content = %q, want %q", resp.Content, "[]")
	}
	if resp.TokensUsed != 110 {
		t.Errorf("TokensUsed = %d, want 110", resp.TokensUsed)
	}
}

func TestAnthropic_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer server.Close()

	a, _ := NewAnthropic(Options{APIKey: "bad-key", BaseURL: server.URL})
	_, err := a.Review(context.Background(), Request{SystemPrompt: "test", UserPrompt: "test"})
	if err == nil {
		t.Fatal("Expected auth error")
	}
	if !IsAuthError(err) {
		t.Errorf("Expected auth error, got: %v", err)
	}
	if IsRetryable(err) {
		t.Error("auth errors are not retryable")
	}
}

func TestAnthropic_ServerErrorSingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(503)
		w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer server.Close()

	a, _ := NewAnthropic(Options{APIKey: "k", BaseURL: server.URL})
	_, err := a.Review(context.Background(), Request{UserPrompt: "x"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != 503 || se.Provider != "anthropic" {
		t.Errorf("StatusError = %+v", se)
	}
	if !IsRetryable(err) {
		t.Error("503 should be retryable")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly one outbound call", attempts)
	}
}

func TestAnthropic_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicResponse{})
	}))
	defer server.Close()

	a, _ := NewAnthropic(Options{APIKey: "k", BaseURL: server.URL})
	_, err := a.Review(context.Background(), Request{UserPrompt: "x"})
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestNewAnthropic_MissingKey(t *testing.T) {
	if _, err := NewAnthropic(Options{}); err == nil {
		t.Error("expected error without API key")
	}
}
