// Package os provides the Handler/Looper message-loop primitives, the
// Binder/Proxy RPC mechanism, and the Parcel/Bundle data carriers that make
// up the core of the Mindroid runtime.
package os

import "time"

// Runnable is a unit of deferred work posted to a Handler or Executor. It
// is an alias of func(), so an os.Executor also satisfies
// concurrent.Executor.
type Runnable = func()

// Message is a unit of work queued on a MessageQueue. Messages form an
// intrusive singly-linked list ordered by When; there is only a next link
// (no prev), so removal walks the list from the head. next is owned by the
// queue that currently holds the message and must not be touched by callers.
type Message struct {
	What     int32
	Arg1     int32
	Arg2     int32
	Obj      interface{}
	Data     *Bundle
	Callback Runnable

	// When is the absolute delivery time in Unix nanoseconds.
	When int64

	target *Handler
	next   *Message
	inUse  bool
}

// Target returns the Handler that will receive this message, or nil for an
// unbound message.
func (m *Message) Target() *Handler {
	return m.target
}

// obtainMessage returns a fresh zero-value message. Mindroid's C++
// implementation pools messages; Go's GC makes pooling an optimization
// rather than a correctness requirement, so obtainMessage simply allocates.
func obtainMessage() *Message {
	return &Message{}
}

func (m *Message) recycle() {
	m.What = 0
	m.Arg1 = 0
	m.Arg2 = 0
	m.Obj = nil
	m.Data = nil
	m.Callback = nil
	m.When = 0
	m.target = nil
	m.next = nil
	m.inUse = false
}

func when(delay time.Duration) int64 {
	return time.Now().Add(delay).UnixNano()
}
