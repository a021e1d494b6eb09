package proction

import (
	"errors"
	"fmt"
)

// Kind classifies the failure modes a Plan's core machinery can raise,
// per the four-tag taxonomy: Logic, Precondition, Assertion, Reported.
type Kind int

const (
	// KindLogic indicates an internal inconsistency: a slot of unexpected
	// kind, a missing slot, a duplicate producer, a double-initialized
	// DeferredRefCount. Should never fire against a correct caller.
	KindLogic Kind = iota
	// KindPrecondition indicates caller misuse: cross-plan handles, an
	// empty handle list where one is required, the same external object
	// registered as both a source and a destination.
	KindPrecondition
	// KindAssertion indicates a leak-audit violation: an intermediate
	// slot still holding a live payload at the end of a successful run.
	KindAssertion
)

func (k Kind) String() string {
	switch k {
	case KindLogic:
		return "logic"
	case KindPrecondition:
		return "precondition"
	case KindAssertion:
		return "assertion"
	default:
		return "unknown"
	}
}

// Error is the concrete error type raised by the core for the Logic,
// Precondition, and Assertion kinds. An error returned by a user body or
// middleware is not wrapped in Error: Run returns it inside a RunError. An
// error returned by a DeferredRefCount destructor is handed to Context's
// reportError sink as-is; a destructor panic reaches the sink as a
// KindLogic Error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func newErrorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return fmt.Sprintf("proction: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("proction: %s: %s", e.Kind, e.Message)
}

// Unwrap exposes Cause for errors.Is/errors.As chaining.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is a sentinel of the same Kind (ErrLogic,
// ErrPrecondition, ErrAssertion), or another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var sentinel *kindSentinel
	if errors.As(target, &sentinel) {
		return sentinel.kind == e.Kind
	}
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// kindSentinel lets callers write errors.Is(err, proction.ErrLogic) without
// needing to know about *Error's fields.
type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return "proction: " + s.kind.String() }

// Sentinels for use with errors.Is.
var (
	ErrLogic        error = &kindSentinel{kind: KindLogic}
	ErrPrecondition error = &kindSentinel{kind: KindPrecondition}
	ErrAssertion    error = &kindSentinel{kind: KindAssertion}
)

// RunError wraps the first structured error encountered while draining a
// Plan, recording which invocation failed. A failed invocation still
// unblocks its downstream consumers (the scheduling counter is
// incremented whether a task succeeds or fails), so any consumer
// attempting to restore an unprepared input surfaces a *Error{Kind:
// KindLogic}; RunError carries the first error of either kind that moved
// the Plan into the error state.
type RunError struct {
	InvocationID uint64
	Err          error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("proction: invocation %d failed: %v", e.InvocationID, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
