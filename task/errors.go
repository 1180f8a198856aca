// Package task implements the cooperative coroutine task system layered on
// top of executor.Ref: Task[T], AsyncGenerator[T], and the WhenAny/WhenAll/
// Select combinators, grounded on this module's Promise/A+-style lineage
// (a result slot guarded by a mutex, fanning out to a single continuation
// on completion) adapted to Go's explicit-error idiom instead of exceptions.
package task

import (
	"errors"
	"fmt"
)

// Code is the AsyncError taxonomy: bit-level stable per the external
// interface contract.
type Code int

const (
	// Canceled means the operation observed cancellation.
	Canceled Code = iota
	// Fault means the producer failed internally (a returned error, or a
	// recovered panic).
	Fault
	// InvalidState means a combinator or awaitable was used incorrectly.
	InvalidState
	// Timeout means a timed operation elapsed.
	Timeout
)

func (c Code) String() string {
	switch c {
	case Canceled:
		return "Canceled"
	case Fault:
		return "Fault"
	case InvalidState:
		return "InvalidState"
	case Timeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// AsyncError is the error type every task, generator, and combinator in
// this package resolves to on failure. It supports errors.Is/As against
// both a Code sentinel (via Is) and any wrapped Cause (via Unwrap).
type AsyncError struct {
	Code  Code
	Cause error
}

// NewAsyncError constructs an AsyncError. cause may be nil.
func NewAsyncError(code Code, cause error) *AsyncError {
	return &AsyncError{Code: code, Cause: cause}
}

func (e *AsyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("task: %s: %s", e.Code, e.Cause)
	}
	return fmt.Sprintf("task: %s", e.Code)
}

func (e *AsyncError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AsyncError with the same Code, enabling
// errors.Is(err, &AsyncError{Code: Canceled}) style checks without also
// requiring an equal Cause.
func (e *AsyncError) Is(target error) bool {
	other, ok := target.(*AsyncError)
	if !ok {
		return false
	}
	return other.Code == e.Code
}

// IsCode reports whether err is (or wraps) an *AsyncError with the given
// code.
func IsCode(err error, code Code) bool {
	return errors.Is(err, &AsyncError{Code: code})
}

// AggregateError collects every child error from a WhenAll call whose
// children did not all succeed, following the ES2022 AggregateError
// pattern used elsewhere in this module's lineage.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("task: %d child task(s) failed, first error: %v", len(e.Errors), e.Errors[0])
}

// Unwrap supports errors.Is/As traversal into any one of the aggregated
// errors (Go 1.20+ multi-error Unwrap).
func (e *AggregateError) Unwrap() []error { return e.Errors }
