package specialist

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dshills/panel/internal/review"
)

var (
	// ErrEmptyDiff is returned when Analyze is given a diff with no files.
	ErrEmptyDiff = errors.New("diff context is empty")
	// ErrInvalidTimeout is returned for a zero or negative timeout.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// ErrorKind classifies an AnalysisError.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindUpstreamFailure   ErrorKind = "upstream_failure"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// AnalysisError reports why a specialist produced no findings.
type AnalysisError struct {
	Category review.Category
	Kind     ErrorKind
	// Status and Body are set for upstream failures. Status is zero when
	// the request never got an HTTP answer.
	Status int
	Body   string
	Err    error
}

func (e *AnalysisError) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("%s specialist: timed out: %v", e.Category, e.Err)
	case KindUpstreamFailure:
		if e.Status != 0 {
			return fmt.Sprintf("%s specialist: upstream failure (status %d): %v", e.Category, e.Status, e.Err)
		}
		return fmt.Sprintf("%s specialist: upstream failure: %v", e.Category, e.Err)
	case KindMalformedResponse:
		return fmt.Sprintf("%s specialist: malformed response: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("%s specialist: %v", e.Category, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed: rate limiting,
// server errors, and transport failures that never reached the server.
func (e *AnalysisError) Retryable() bool {
	if e.Kind != KindUpstreamFailure {
		return false
	}
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsRetryable reports whether err is a retryable AnalysisError.
func IsRetryable(err error) bool {
	var ae *AnalysisError
	return errors.As(err, &ae) && ae.Retryable()
}
