package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/panel/internal/review"
)

// ErrAllSpecialistsFailed is matched with errors.Is against an
// *OrchestrationError of kind KindAllSpecialistsFailed.
var ErrAllSpecialistsFailed = errors.New("all specialists failed")

// ErrorKind classifies an OrchestrationError.
type ErrorKind string

const KindAllSpecialistsFailed ErrorKind = "all_specialists_failed"

// Failure is one specialist that did not contribute.
type Failure struct {
	Category review.Category
	Err      error
}

// OrchestrationError is returned when a run produces no Review because no
// dispatched specialist succeeded.
type OrchestrationError struct {
	Kind     ErrorKind
	RunID    string
	TimedOut bool
	Failures []Failure
}

func (e *OrchestrationError) Error() string {
	var parts []string
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Category, f.Err))
	}
	msg := fmt.Sprintf("run %s: all %d specialists failed", e.RunID, len(e.Failures))
	if e.TimedOut {
		msg += " (run timeout)"
	}
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	return msg
}

func (e *OrchestrationError) Unwrap() error {
	if e.Kind == KindAllSpecialistsFailed {
		return ErrAllSpecialistsFailed
	}
	return nil
}
