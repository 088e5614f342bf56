// Package failure defines the error taxonomy shared by the routing pipeline
// and the tool orchestrator.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindMissingInput        Kind = "missing_input"
	KindServiceFailure      Kind = "service_failure"
	KindManifestUnavailable Kind = "manifest_unavailable"
	KindUnresolvedWorkflow  Kind = "unresolved_workflow"
)

// Error carries a user-facing message next to the technical cause.
// Message is safe to show to a user; Err is for logs only.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func New(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// UserMessage returns the user-facing text of err, falling back to fallback
// when err carries none.
func UserMessage(err error, fallback string) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return fallback
}
