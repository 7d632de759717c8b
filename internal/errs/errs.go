// Package errs provides the structured error type used to carry the core's
// error taxonomy (SPEC_FULL.md §7) through the resolver, the ReAct engine,
// and the background agent manager.
//
// Grounded on the teacher's internal/agent.ToolError: a typed, causal error
// with a classification and a human-readable message, generalized from
// tool-only classification to the full set of error kinds.
package errs

import (
	"errors"
	"fmt"

	"github.com/driftloop/agentrt/pkg/models"
)

// Error is a classified, causal error.
type Error struct {
	Kind    models.ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified error.
func New(kind models.ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an existing error under kind, preserving it as the cause.
func Wrap(kind models.ErrorKind, cause error) *Error {
	if cause == nil {
		return &Error{Kind: kind}
	}
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

// KindOf extracts the ErrorKind from err, if it is or wraps an *Error.
func KindOf(err error) (models.ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is or wraps an *Error of the given kind.
func Is(err error, kind models.ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Sentinel errors for conditions that never reach a caller as a *Error
// (pure Go-level signals checked with errors.Is).
var (
	ErrContextCancelled = errors.New("context cancelled")
	ErrRunLockHeld      = errors.New("run-lock already held")
)
