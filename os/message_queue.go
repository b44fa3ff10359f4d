package os

import (
	"reflect"
	"sync"
	"time"
)

// maxWait caps a single timed wait so the dequeue loop periodically
// re-evaluates its condition instead of trusting a single wakeup signal.
const maxWait = time.Duration(1<<31-1) * time.Millisecond

// MessageQueue is a time-ordered queue of Messages, owned by exactly one
// Looper. Enqueue orders by Message.When; dequeue blocks until the
// earliest-due message's time arrives or the queue quits.
//
// Grounded on mindroid/os/MessageQueue.cpp: a singly-linked list scanned
// forward to find the insertion point, a condition variable signaled on
// every head change, and a quitting flag that causes dequeue to return nil
// without further waiting.
type MessageQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	head     *Message
	quitting bool
}

func newMessageQueue() *MessageQueue {
	q := &MessageQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// enqueueMessage inserts msg in When order. It panics if msg has no target
// or is already queued elsewhere — these are programmer errors, not runtime
// conditions. If the queue is quitting, the message is rejected and
// recycled in place.
func (q *MessageQueue) enqueueMessage(msg *Message, whenNanos int64) {
	if msg.target == nil {
		panic("os: message has no target")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if msg.inUse {
		panic("os: message already in use")
	}

	if q.quitting {
		msg.recycle()
		return
	}

	msg.inUse = true
	msg.When = whenNanos

	p := q.head
	if p == nil || whenNanos == 0 || whenNanos < p.When {
		msg.next = p
		q.head = msg
		q.cond.Broadcast()
		return
	}

	var prev *Message
	for p != nil && p.When <= whenNanos {
		prev = p
		p = p.next
	}
	msg.next = p
	prev.next = msg
}

// dequeueMessage blocks until the earliest-due message's time arrives and
// returns it unlinked, or returns nil once the queue has quit.
func (q *MessageQueue) dequeueMessage() *Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.quitting {
			return nil
		}

		if q.head == nil {
			q.cond.Wait()
			continue
		}

		now := time.Now().UnixNano()
		if now >= q.head.When {
			msg := q.head
			q.head = msg.next
			msg.next = nil
			msg.inUse = false
			return msg
		}

		delta := time.Duration(q.head.When-now) * time.Nanosecond
		if delta > maxWait {
			delta = maxWait
		}
		q.timedWaitLocked(delta)
	}
}

// timedWaitLocked waits on q.cond for at most d, re-acquiring the lock
// before returning either way. Callers must hold q.mu.
func (q *MessageQueue) timedWaitLocked(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	q.cond.Wait()
	timer.Stop()
}

func (q *MessageQueue) quit() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.quitting {
		return
	}
	q.quitting = true
	for m := q.head; m != nil; {
		n := m.next
		m.recycle()
		m = n
	}
	q.head = nil
	q.cond.Broadcast()
}

func matches(m *Message, target *Handler, what int32, obj interface{}) bool {
	return m.target == target && m.What == what && (obj == nil || m.Obj == obj)
}

func matchesCallback(m *Message, target *Handler, r Runnable, obj interface{}) bool {
	return m.target == target && sameRunnable(m.Callback, r) && (obj == nil || m.Obj == obj)
}

// sameRunnable compares two Runnables by the function value they point to.
// Go function values aren't comparable with ==, so this compares underlying
// code pointers via reflection; it correctly identifies the same named
// function or method value passed to both post and removeCallbacks, but not
// two textually-identical closures created separately.
func sameRunnable(a, b Runnable) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func (q *MessageQueue) removeMessages(target *Handler, what int32, obj interface{}) {
	q.removeWhere(func(m *Message) bool { return matches(m, target, what, obj) })
}

func (q *MessageQueue) removeCallbacks(target *Handler, r Runnable, obj interface{}) {
	q.removeWhere(func(m *Message) bool { return matchesCallback(m, target, r, obj) })
}

func (q *MessageQueue) removeCallbacksAndMessages(target *Handler, obj interface{}) {
	q.removeWhere(func(m *Message) bool {
		return m.target == target && (obj == nil || m.Obj == obj)
	})
}

// cancelCallback removes a single pending Runnable r targeting target,
// reporting whether one was found and removed. Used by Executor
// implementations backed by a Handler to implement Cancel.
func (q *MessageQueue) cancelCallback(target *Handler, r Runnable) bool {
	return q.removeWhere(func(m *Message) bool { return matchesCallback(m, target, r, nil) })
}

// removeWhere unlinks every message satisfying pred, recycling each, and
// reports whether anything matched. The head-advancing loop and the
// relinking loop are kept separate so both q.head and each surviving
// node's next stay valid throughout.
func (q *MessageQueue) removeWhere(pred func(*Message) bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	found := false

	for q.head != nil && pred(q.head) {
		n := q.head.next
		q.head.recycle()
		q.head = n
		found = true
	}

	p := q.head
	for p != nil && p.next != nil {
		if pred(p.next) {
			doomed := p.next
			p.next = doomed.next
			doomed.recycle()
			found = true
			continue
		}
		p = p.next
	}
	return found
}

func (q *MessageQueue) hasMessages(target *Handler, what int32, obj interface{}) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for m := q.head; m != nil; m = m.next {
		if matches(m, target, what, obj) {
			return true
		}
	}
	return false
}

func (q *MessageQueue) hasCallbacks(target *Handler, r Runnable, obj interface{}) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for m := q.head; m != nil; m = m.next {
		if matchesCallback(m, target, r, obj) {
			return true
		}
	}
	return false
}
