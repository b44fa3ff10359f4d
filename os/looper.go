package os

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Looper runs a message loop for a goroutine: it owns a MessageQueue and
// repeatedly dequeues and dispatches messages until Quit is called.
//
// Go has no thread-local storage, so "the current goroutine's Looper" from
// mindroid/os/Looper.h is emulated with a package-level registry keyed by a
// synthetic goroutine id (parsed from the runtime stack trace, the same
// trick used by goroutine-local-storage shims elsewhere in the ecosystem).
// A Looper-owning goroutine must be started via LooperThread/Prepare so the
// registry entry is created on the right goroutine; there is no way to
// retrofit affinity onto a goroutine that didn't register itself.
type Looper struct {
	queue *MessageQueue
	gid   uint64
}

var (
	loopersMu sync.RWMutex
	loopers   = make(map[uint64]*Looper)
)

func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if idx := bytes.IndexByte(buf, ' '); idx >= 0 {
		buf = buf[:idx]
	}
	id, err := strconv.ParseUint(string(buf), 10, 64)
	if err != nil {
		panic("os: could not determine goroutine id: " + err.Error())
	}
	return id
}

// Prepare creates and registers a Looper for the calling goroutine. It
// panics if the calling goroutine already has one, mirroring Android's
// "Only one Looper may be created per thread".
func Prepare() *Looper {
	gid := goroutineID()

	loopersMu.Lock()
	defer loopersMu.Unlock()

	if _, exists := loopers[gid]; exists {
		panic("os: Looper already prepared for this goroutine")
	}

	l := &Looper{queue: newMessageQueue(), gid: gid}
	loopers[gid] = l
	return l
}

// MyLooper returns the calling goroutine's Looper, or nil if none was
// prepared.
func MyLooper() *Looper {
	gid := goroutineID()
	loopersMu.RLock()
	defer loopersMu.RUnlock()
	return loopers[gid]
}

// Loop runs the message loop on the calling goroutine until Quit is called.
// It must be called from the goroutine that prepared l.
func (l *Looper) Loop() {
	for {
		msg := l.queue.dequeueMessage()
		if msg == nil {
			return
		}
		dispatch(msg)
	}
}

func dispatch(msg *Message) {
	if msg.Callback != nil {
		msg.Callback()
		return
	}
	if msg.target != nil {
		msg.target.HandleMessage(msg)
	}
}

// Quit stops the loop. Messages currently being dispatched run to
// completion; no further messages are dequeued.
func (l *Looper) Quit() {
	l.queue.quit()

	loopersMu.Lock()
	defer loopersMu.Unlock()
	delete(loopers, l.gid)
}

// IsCurrentThread reports whether the calling goroutine is the one this
// Looper is affine to.
func (l *Looper) IsCurrentThread() bool {
	return goroutineID() == l.gid
}

func (l *Looper) messageQueue() *MessageQueue {
	return l.queue
}

// LooperThread spawns a goroutine that prepares a Looper and runs its loop,
// giving callers a join handle analogous to mindroid's LooperThread<T>. The
// looper is available via GetLooper once NewLooperThread returns.
//
// Grounded on LooperThreadExample.cpp's sLooperThread->getLooper()->quit()
// / sLooperThread->join() usage.
type LooperThread struct {
	ready  chan *Looper
	done   chan struct{}
	looper *Looper
}

// NewLooperThread starts a goroutine, prepares a Looper on it, invokes init
// (if non-nil) with that Looper before entering the loop, and runs until
// the Looper quits.
func NewLooperThread(init func(*Looper)) *LooperThread {
	t := &LooperThread{
		ready: make(chan *Looper, 1),
		done:  make(chan struct{}),
	}

	go func() {
		l := Prepare()
		t.ready <- l
		if init != nil {
			init(l)
		}
		l.Loop()
		close(t.done)
	}()

	t.looper = <-t.ready
	return t
}

// GetLooper returns the Looper running on this thread.
func (t *LooperThread) GetLooper() *Looper {
	return t.looper
}

// Join blocks until the thread's loop has quit.
func (t *LooperThread) Join() {
	<-t.done
}
