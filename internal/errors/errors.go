// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrProfileNotFound is a sentinel error for an unknown profile URL.
type ErrProfileNotFound struct {
	URL string
}

func (e *ErrProfileNotFound) Error() string {
	return fmt.Sprintf("profile with URL %s not found", e.URL)
}

// Helper constructor
func NewProfileNotFound(url string) error {
	return &ErrProfileNotFound{URL: url}
}

// TransientUIError means a control or modal didn't appear in time. The action
// executor retries the whole sequence exactly once before recording it.
type TransientUIError struct {
	Step  string
	Cause error
}

func (e *TransientUIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient UI failure at %s: %v", e.Step, e.Cause)
	}
	return fmt.Sprintf("transient UI failure at %s", e.Step)
}

func (e *TransientUIError) Unwrap() error { return e.Cause }

func NewTransientUI(step string, cause error) error {
	return &TransientUIError{Step: step, Cause: cause}
}

// IsTransientUI reports whether err is a retriable UI failure.
func IsTransientUI(err error) bool {
	var t *TransientUIError
	return errors.As(err, &t)
}

// PermanentSkipError marks an expected, permanent condition (follow-only
// profile, messaging restricted, InMail required). Recorded, never retried.
type PermanentSkipError struct {
	Reason string
}

func (e *PermanentSkipError) Error() string {
	return fmt.Sprintf("skipped: %s", e.Reason)
}

func NewPermanentSkip(reason string) error {
	return &PermanentSkipError{Reason: reason}
}

// ErrCapReached is a run-level halt signal for one counter kind. The run may
// continue for the other kind (messaging after the connection cap, etc).
type ErrCapReached struct {
	Kind string
}

func (e *ErrCapReached) Error() string {
	return fmt.Sprintf("daily cap reached for %s", e.Kind)
}

func NewCapReached(kind string) error {
	return &ErrCapReached{Kind: kind}
}

// IsCapReached reports whether err carries a cap halt signal.
func IsCapReached(err error) bool {
	var cr *ErrCapReached
	return errors.As(err, &cr)
}

// Run-level authentication failures. Both require the operator to
// re-authenticate interactively, so neither is auto-retried.
var (
	ErrLoginRequired  = errors.New("login required: no valid saved session")
	ErrSessionInvalid = errors.New("session invalid: login expired or rejected")
)
