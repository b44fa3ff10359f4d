package concurrent

import "sync"

// AllOf returns a Promise<struct{}> that completes once every thenable has
// completed, or fails with the first exception observed. It is structured
// as a balanced binary AND-tree of pairwise merges (mirroring the
// BiRelayAction tree in Promise.h) rather than a flat fan-in, so no single
// node waits on more than two predecessors. An empty input completes
// immediately.
func AllOf(thenables ...Thenable) *Promise[struct{}] {
	if len(thenables) == 0 {
		return Completed(struct{}{})
	}
	return allOfTree(thenables)
}

func allOfTree(ts []Thenable) *Promise[struct{}] {
	if len(ts) == 1 {
		return relay(ts[0])
	}
	mid := len(ts) / 2
	left := allOfTree(ts[:mid])
	right := allOfTree(ts[mid:])
	return biRelay(left, right)
}

func relay(t Thenable) *Promise[struct{}] {
	p := NewPromise[struct{}]()
	t.OnCompletion(func(err error) {
		if err != nil {
			p.CompleteWith(err)
			return
		}
		p.Complete(struct{}{})
	})
	return p
}

// biRelay joins two struct{}-valued promises into one that completes once
// both have, or as soon as either fails.
func biRelay(a, b *Promise[struct{}]) *Promise[struct{}] {
	p := NewPromise[struct{}]()
	var mu sync.Mutex
	count := 0

	onComplete := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			p.CompleteWith(err)
			return
		}
		count++
		if count == 2 {
			p.Complete(struct{}{})
		}
	}

	a.OnCompletion(onComplete)
	b.OnCompletion(onComplete)
	return p
}

// AnyOf returns a Promise<T> that completes with the first of promises to
// complete, by whichever outcome arrives first; later completions among the
// remaining promises have no effect on the consumer. An empty input is
// forever pending.
func AnyOf[T any](promises ...*Promise[T]) *Promise[T] {
	consumer := NewPromise[T]()
	for _, pr := range promises {
		pr.addAction(nil, func() {
			val, err := pr.snapshot()
			if err != nil {
				consumer.CompleteWith(err)
				return
			}
			consumer.Complete(val)
		})
	}
	return consumer
}
