package concurrent

// This file holds the chaining operators. Go does not allow a method to
// introduce type parameters beyond its receiver's, so operators that
// change the value type (ThenApply, ThenCompose, ...) are package-level
// generic functions taking the source Promise as their first argument,
// rather than methods — the only way to express Promise<T>.thenApply(T->U)
// under the language's generics rules. Each accepts an optional trailing
// Executor, collapsing the three call-site overloads (default, Handler,
// Executor) from the original API into one variadic parameter; an
// os.Handler is usable here via its AsExecutor() method.

func recovering[U any](child *Promise[U], fn func() U) {
	defer func() {
		if r := recover(); r != nil {
			child.CompleteWith(&CompletionException{Cause: toError(r)})
		}
	}()
	child.Complete(fn())
}

// ThenApply produces a Promise<U> by applying fn to p's value; a failed p
// propagates its (wrapped) exception instead of invoking fn.
func ThenApply[T, U any](p *Promise[T], fn func(T) U, executor ...Executor) *Promise[U] {
	ex := firstExecutor(executor, p.executor)
	child := newChild[U](p, ex)
	p.addAction(ex, func() {
		val, err := p.snapshot()
		if err != nil {
			child.CompleteWith(wrapException(err))
			return
		}
		recovering(child, func() U { return fn(val) })
	})
	return child
}

// ThenApplyBoth produces a Promise<U> by applying fn to both outcomes of p
// (err is nil on success).
func ThenApplyBoth[T, U any](p *Promise[T], fn func(T, error) U, executor ...Executor) *Promise[U] {
	ex := firstExecutor(executor, p.executor)
	child := newChild[U](p, ex)
	p.addAction(ex, func() {
		val, err := p.snapshot()
		recovering(child, func() U { return fn(val, err) })
	})
	return child
}

// ThenCompose flattens a T -> Promise<U> continuation: the returned
// Promise<U> relays the inner promise's eventual outcome.
func ThenCompose[T, U any](p *Promise[T], fn func(T) *Promise[U], executor ...Executor) *Promise[U] {
	ex := firstExecutor(executor, p.executor)
	child := newChild[U](p, ex)
	p.addAction(ex, func() {
		val, err := p.snapshot()
		if err != nil {
			child.CompleteWith(wrapException(err))
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					child.CompleteWith(&CompletionException{Cause: toError(r)})
				}
			}()
			inner := fn(val)
			child.CompleteWithPromise(inner)
		}()
	})
	return child
}

// ThenAccept observes p's value and passes it through unchanged.
func ThenAccept[T any](p *Promise[T], fn func(T), executor ...Executor) *Promise[T] {
	ex := firstExecutor(executor, p.executor)
	child := newChild[T](p, ex)
	p.addAction(ex, func() {
		val, err := p.snapshot()
		if err != nil {
			child.CompleteWith(wrapException(err))
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					child.CompleteWith(&CompletionException{Cause: toError(r)})
					return
				}
			}()
			fn(val)
			child.Complete(val)
		}()
	})
	return child
}

// ThenAcceptBoth observes both outcomes of p and passes them through
// unchanged.
func ThenAcceptBoth[T any](p *Promise[T], fn func(T, error), executor ...Executor) *Promise[T] {
	ex := firstExecutor(executor, p.executor)
	child := newChild[T](p, ex)
	p.addAction(ex, func() {
		val, err := p.snapshot()
		func() {
			defer func() {
				if r := recover(); r != nil {
					child.CompleteWith(&CompletionException{Cause: toError(r)})
					return
				}
			}()
			fn(val, err)
			if err != nil {
				child.CompleteWith(err)
				return
			}
			child.Complete(val)
		}()
	})
	return child
}

// ThenRun ignores p's value and runs r, passing p's outcome through.
func ThenRun[T any](p *Promise[T], r func(), executor ...Executor) *Promise[T] {
	return ThenAccept(p, func(T) { r() }, executor...)
}

// CatchException recovers from a failed p by producing a value with fn; a
// successful p passes through unchanged and fn is not invoked.
func CatchException[T any](p *Promise[T], fn func(error) T, executor ...Executor) *Promise[T] {
	ex := firstExecutor(executor, p.executor)
	child := newChild[T](p, ex)
	p.addAction(ex, func() {
		val, err := p.snapshot()
		if err == nil {
			child.Complete(val)
			return
		}
		recovering(child, func() T { return fn(err) })
	})
	return child
}

// CatchExceptionObserve observes a failed p's exception without recovering
// it; the original outcome (success or failure) passes through.
func CatchExceptionObserve[T any](p *Promise[T], fn func(error), executor ...Executor) *Promise[T] {
	ex := firstExecutor(executor, p.executor)
	child := newChild[T](p, ex)
	p.addAction(ex, func() {
		val, err := p.snapshot()
		if err == nil {
			child.Complete(val)
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					child.CompleteWith(&CompletionException{Cause: toError(r)})
					return
				}
			}()
			fn(err)
			child.CompleteWith(err)
		}()
	})
	return child
}
