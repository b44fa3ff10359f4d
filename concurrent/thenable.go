// Package concurrent implements the Promise/Thenable composition engine:
// a CompletionStage-style future with chaining operators, combinators, and
// timeout support, used throughout the runtime for asynchronous Binder
// transactions and plugin lifecycle operations.
//
// Grounded on mindroid/util/concurrent/Promise.h and Thenable.h.
package concurrent

import "fmt"

// Thenable is the completion-observing half of a Promise's contract,
// type-erased over the value so heterogeneous promises can be combined
// (see AllOf). Every *Promise[T] implements it.
type Thenable interface {
	// OnCompletion registers fn to run once the Thenable completes,
	// immediately if it already has. fn receives nil on success.
	OnCompletion(fn func(err error))
	IsDone() bool
}

// CancellationException marks a Promise that was cancelled rather than
// completed with a value or failed.
type CancellationException struct{}

func (e *CancellationException) Error() string { return "concurrent: cancelled" }

// TimeoutException marks a Promise that did not complete before its
// deadline (orTimeout, Get with a timeout).
type TimeoutException struct{}

func (e *TimeoutException) Error() string { return "concurrent: timed out" }

// CompletionException wraps any exception raised by user code running in a
// dependent Action, or propagated from a failed parent stage, so descendant
// stages can distinguish "this stage's own code threw" from "I was handed
// an already-wrapped failure".
type CompletionException struct {
	Cause error
}

func (e *CompletionException) Error() string {
	if e.Cause == nil {
		return "concurrent: completion exception"
	}
	return fmt.Sprintf("concurrent: completion exception: %v", e.Cause)
}

func (e *CompletionException) Unwrap() error { return e.Cause }

// ExecutionException is what a blocking Get returns when the Promise
// completed exceptionally; its Cause is the original failure with any
// CompletionException wrapper removed.
type ExecutionException struct {
	Cause error
}

func (e *ExecutionException) Error() string {
	return fmt.Sprintf("concurrent: execution exception: %v", e.Cause)
}

func (e *ExecutionException) Unwrap() error { return e.Cause }

// wrapException normalizes err for delivery to a dependent stage: a
// CompletionException passes through unchanged, anything else is wrapped
// with the original as cause.
func wrapException(err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CompletionException); ok {
		return ce
	}
	return &CompletionException{Cause: err}
}

// toError converts a recovered panic value (from user Action code) into an
// error, so a throwing callback can be folded into the normal exceptional
// path instead of crashing the dispatching goroutine.
func toError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
