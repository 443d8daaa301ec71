// Package monitorerr types the error kinds spec.md §7 names, following the
// sentinel/typed-error style of the teacher's
// internal/repository/postgres/util.go (ErrNotFound, ErrConflict, ...).
package monitorerr

import (
	"context"
	"errors"
	"fmt"
)

// ConfigError wraps a probe misconfiguration: invalid JSON body, a missing
// API key, an unknown monitor type. Surfaced as a DOWN reason; retryable,
// since config can be fixed without restarting the runtime.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func NewConfigError(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// NetworkError wraps a transport-level probe failure: timeout, TLS failure,
// protocol error. Feeds the retry/PENDING/DOWN accounting in §4.4.
type NetworkError struct {
	Msg string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

func NewNetworkError(msg string, err error) error {
	return &NetworkError{Msg: msg, Err: err}
}

// ProbePredicateError wraps a probe that completed but whose result failed
// the configured predicate: keyword mismatch, jsonpath mismatch, every
// "*content" field null. DOWN with a descriptive message, not retried
// differently from any other probe failure.
type ProbePredicateError struct {
	Msg string
}

func (e *ProbePredicateError) Error() string { return e.Msg }

func NewProbePredicateError(format string, args ...any) error {
	return &ProbePredicateError{Msg: fmt.Sprintf(format, args...)}
}

// TransientSupervisorError marks a bug caught by the tick's outer safety
// shell (spec.md §4.2's "Safety" paragraph): logged, the runtime reschedules
// after interval seconds rather than propagating.
type TransientSupervisorError struct {
	Msg string
	Err error
}

func (e *TransientSupervisorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *TransientSupervisorError) Unwrap() error { return e.Err }

func NewTransientSupervisorError(msg string, err error) error {
	return &TransientSupervisorError{Msg: msg, Err: err}
}

// NotifierError wraps a single provider's dispatch failure. Logged per
// provider; per spec.md §4.9 step 3, it never aborts the notification loop.
type NotifierError struct {
	Provider string
	Err      error
}

func (e *NotifierError) Error() string {
	return fmt.Sprintf("notify via %s: %v", e.Provider, e.Err)
}

func (e *NotifierError) Unwrap() error { return e.Err }

// Cancelled reports whether err is (or wraps) a context cancellation —
// callers render this as the canonical timeout message rather than the raw
// error text (spec.md §4.2 step 5).
func Cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
