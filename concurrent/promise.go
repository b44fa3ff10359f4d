package concurrent

import (
	"sync"
	"time"
)

// maxWait caps a single timed wait on a Promise the same way MessageQueue
// caps a dequeue wait, so the loop re-checks its deadline periodically
// instead of trusting a single wakeup.
const maxWait = time.Duration(1<<31-1) * time.Millisecond

type pendingAction struct {
	executor Executor
	fn       func()
}

// Promise is a single-assignment, observable result: PENDING until exactly
// one of Complete, CompleteWith, CompleteWithPromise, or Cancel succeeds.
// Dependent Actions (registered via the package-level operators, or
// internally via OnCompletion) are queued while pending and drained, each
// via its bound Executor or inline, the moment the Promise completes.
type Promise[T any] struct {
	mu   sync.Mutex
	cond *sync.Cond

	completed bool
	cancelled bool
	value     T
	err       error

	actions  []pendingAction
	executor Executor
}

// NewPromise returns a pending Promise whose chained stages run inline
// (on the completing goroutine) unless an operator names an executor.
func NewPromise[T any]() *Promise[T] {
	p := &Promise[T]{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// NewPromiseWithExecutor is like NewPromise but sets the default executor
// inherited by stages derived from it.
func NewPromiseWithExecutor[T any](executor Executor) *Promise[T] {
	p := NewPromise[T]()
	p.executor = executor
	return p
}

// Completed returns an already-successful Promise.
func Completed[T any](value T) *Promise[T] {
	p := NewPromise[T]()
	p.Complete(value)
	return p
}

// Failed returns an already-failed Promise.
func Failed[T any](err error) *Promise[T] {
	p := NewPromise[T]()
	p.CompleteWith(err)
	return p
}

func newChild[T any](parent interface{ defaultExecutor() Executor }, executor Executor) *Promise[T] {
	child := NewPromise[T]()
	if executor != nil {
		child.executor = executor
	} else {
		child.executor = parent.defaultExecutor()
	}
	return child
}

func (p *Promise[T]) defaultExecutor() Executor { return p.executor }

// Complete transitions a pending Promise to success with value. It returns
// false if the Promise was already completed (by any means).
func (p *Promise[T]) Complete(value T) bool {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}
	p.completed = true
	p.value = value
	actions := p.actions
	p.actions = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	dispatch(actions)
	return true
}

// CompleteWith transitions a pending Promise to failure with err. err must
// be non-nil; use Cancel for cancellation.
func (p *Promise[T]) CompleteWith(err error) bool {
	if err == nil {
		panic("concurrent: CompleteWith requires a non-nil error")
	}
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}
	p.completed = true
	p.err = err
	actions := p.actions
	p.actions = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	dispatch(actions)
	return true
}

// CompleteWithPromise arranges for p to complete with other's eventual
// outcome. It returns false immediately if p was already completed;
// otherwise the relay is armed and the return value says nothing about
// whether other ever completes.
func (p *Promise[T]) CompleteWithPromise(other *Promise[T]) bool {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	other.addAction(nil, func() {
		val, err := other.snapshot()
		if err != nil {
			p.CompleteWith(err)
			return
		}
		p.Complete(val)
	})
	return true
}

// Cancel transitions a pending Promise to cancelled. It returns true if it
// effected the transition, or if the Promise was already cancelled.
func (p *Promise[T]) Cancel() bool {
	p.mu.Lock()
	if p.completed {
		already := p.cancelled
		p.mu.Unlock()
		return already
	}
	p.completed = true
	p.cancelled = true
	p.err = &CancellationException{}
	actions := p.actions
	p.actions = nil
	p.cond.Broadcast()
	p.mu.Unlock()

	dispatch(actions)
	return true
}

func dispatch(actions []pendingAction) {
	for _, a := range actions {
		if a.executor != nil {
			a.executor.Execute(a.fn)
		} else {
			a.fn()
		}
	}
}

// addAction registers fn to run (via executor, or inline if nil) once p
// completes, dispatching immediately if p is already done. This is the
// claim-free registration path every operator and combinator builds on.
func (p *Promise[T]) addAction(executor Executor, fn func()) {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		if executor != nil {
			executor.Execute(fn)
		} else {
			fn()
		}
		return
	}
	p.actions = append(p.actions, pendingAction{executor, fn})
	p.mu.Unlock()
}

// OnCompletion implements Thenable.
func (p *Promise[T]) OnCompletion(fn func(err error)) {
	p.addAction(nil, func() {
		_, err := p.snapshot()
		fn(err)
	})
}

func (p *Promise[T]) snapshot() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// IsDone reports whether p has completed, successfully, exceptionally, or
// by cancellation.
func (p *Promise[T]) IsDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// IsCancelled reports whether p completed via Cancel.
func (p *Promise[T]) IsCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}

// IsCompletedExceptionally reports whether p completed with an error
// (including cancellation).
func (p *Promise[T]) IsCompletedExceptionally() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed && p.err != nil
}

// Get blocks until p completes and returns its outcome, translating a
// stored failure into ExecutionException (CancellationException passes
// through as-is).
func (p *Promise[T]) Get() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.completed {
		p.cond.Wait()
	}
	return p.translateLocked()
}

// GetWithTimeout is like Get but returns TimeoutException if p is still
// pending once timeout elapses.
func (p *Promise[T]) GetWithTimeout(timeout time.Duration) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for !p.completed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, &TimeoutException{}
		}
		if remaining > maxWait {
			remaining = maxWait
		}
		p.timedWaitLocked(remaining)
	}
	return p.translateLocked()
}

func (p *Promise[T]) timedWaitLocked(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	p.cond.Wait()
	timer.Stop()
}

// translateLocked must be called with p.mu held and p.completed true.
func (p *Promise[T]) translateLocked() (T, error) {
	if p.err == nil {
		return p.value, nil
	}
	if p.cancelled {
		return p.value, p.err
	}
	if ce, ok := p.err.(*CompletionException); ok {
		return p.value, &ExecutionException{Cause: ce.Cause}
	}
	return p.value, &ExecutionException{Cause: p.err}
}

// OrTimeout arms p to fail with TimeoutException if it has not completed
// within d. It returns p for chaining. The timer is disarmed as soon as p
// completes by any other means.
func OrTimeout[T any](p *Promise[T], d time.Duration) *Promise[T] {
	timer := time.AfterFunc(d, func() {
		p.CompleteWith(&TimeoutException{})
	})
	p.addAction(nil, func() { timer.Stop() })
	return p
}

// CompleteOnTimeout arms p to succeed with value if it has not completed
// within d. It returns p for chaining.
func CompleteOnTimeout[T any](p *Promise[T], value T, d time.Duration) *Promise[T] {
	timer := time.AfterFunc(d, func() {
		p.Complete(value)
	})
	p.addAction(nil, func() { timer.Stop() })
	return p
}

// Await returns a new Promise that takes on the source's value after an
// additional delay once the source completes, rather than immediately.
func Await[T any](p *Promise[T], delay time.Duration) *Promise[T] {
	child := NewPromise[T]()
	p.addAction(nil, func() {
		val, err := p.snapshot()
		if err != nil {
			CompleteOnTimeout(child, val, delay)
			return
		}
		CompleteOnTimeout(child, val, delay)
	})
	return child
}
