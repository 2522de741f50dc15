// Package corerr implements the Core's error taxonomy (spec §7):
// ValidationError, StateConflict, StoreError, ProtocolError, and Fatal.
// Modules never pass these to each other over channels; each is either
// handled locally or recorded against the entity it concerns. The one
// exception is a *Fatal, which moduleinit forwards on its Fatal channel
// to the process embedding the Core.
package corerr

import "fmt"

// ValidationError reports a §3 invariant violated on input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// StateConflict reports an attempted transition from a state that does
// not permit it. Callers recover by skipping the operation.
type StateConflict struct {
	Entity string
	From   string
	To     string
}

func (e *StateConflict) Error() string {
	return fmt.Sprintf("state conflict: %s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

// StoreError wraps an underlying persistence failure. The operation is
// abandoned; the next tick retries implicitly where applicable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a malformed UDP frame, bad cron expression, or
// bad log payload. Dropped (UDP) or marks the entity Failed (cron).
type ProtocolError struct {
	Context string
	Reason  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %s", e.Context, e.Reason)
}

// Fatal reports an unrecoverable resource acquisition failure at
// Startup (cannot bind UDP socket, cannot reach store). The process
// exits non-zero after the Fatal log is emitted.
type Fatal struct {
	Component string
	Err       error
}

func (e *Fatal) Error() string {
	return fmt.Sprintf("fatal: %s: %v", e.Component, e.Err)
}

func (e *Fatal) Unwrap() error {
	return e.Err
}
