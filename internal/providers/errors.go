package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when a backend answers with a non-success HTTP
// status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, truncateBody(e.Body))
}

// Retryable reports whether the status indicates a transient failure
// (rate limiting or a server-side error).
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden
}

// IsRetryable reports whether err wraps a retryable StatusError.
func IsRetryable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Retryable()
}

// ErrEmptyContent is returned when a backend answers 200 with no text.
var ErrEmptyContent = errors.New("empty text content in API response")

func truncateBody(s string) string {
	const max = 512
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
