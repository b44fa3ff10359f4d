package os

import "time"

// Callback lets a Handler's message dispatch be supplied without
// subclassing, mirroring mindroid's Handler.Callback interface.
type Callback interface {
	HandleMessage(msg *Message)
}

// CallbackFunc adapts a plain function to Callback.
type CallbackFunc func(msg *Message)

// HandleMessage implements Callback.
func (f CallbackFunc) HandleMessage(msg *Message) { f(msg) }

// Handler is bound at construction to a Looper (explicit, or the calling
// goroutine's current Looper) and queues Messages and Runnables onto that
// Looper's MessageQueue.
type Handler struct {
	looper   *Looper
	callback Callback
}

// NewHandler binds a Handler to the calling goroutine's current Looper. It
// panics if none was prepared.
func NewHandler() *Handler {
	l := MyLooper()
	if l == nil {
		panic("os: no Looper prepared for this goroutine")
	}
	return &Handler{looper: l}
}

// NewHandlerForLooper binds a Handler to an explicit Looper.
func NewHandlerForLooper(l *Looper) *Handler {
	if l == nil {
		panic("os: nil Looper")
	}
	return &Handler{looper: l}
}

// NewHandlerWithCallback is like NewHandler but dispatches through cb
// instead of an overridden HandleMessage.
func NewHandlerWithCallback(cb Callback) *Handler {
	h := NewHandler()
	h.callback = cb
	return h
}

// NewHandlerForLooperWithCallback is like NewHandlerForLooper with a
// Callback.
func NewHandlerForLooperWithCallback(l *Looper, cb Callback) *Handler {
	h := NewHandlerForLooper(l)
	h.callback = cb
	return h
}

// HandleMessage is the default dispatch target for messages sent without a
// Callback. Construct with NewHandlerWithCallback or
// NewHandlerForLooperWithCallback to supply behavior; a type that embeds
// Handler and defines its own HandleMessage is not dispatched to, because
// messages target the *Handler itself.
func (h *Handler) HandleMessage(msg *Message) {
	if h.callback != nil {
		h.callback.HandleMessage(msg)
	}
}

// Looper returns the Looper this Handler is bound to.
func (h *Handler) Looper() *Looper {
	return h.looper
}

// IsCurrentThread reports whether the calling goroutine owns this
// Handler's Looper.
func (h *Handler) IsCurrentThread() bool {
	return h.looper.IsCurrentThread()
}

// ObtainMessage creates a Message targeting this Handler.
func (h *Handler) ObtainMessage(what int32, args ...int32) *Message {
	msg := obtainMessage()
	msg.target = h
	msg.What = what
	if len(args) > 0 {
		msg.Arg1 = args[0]
	}
	if len(args) > 1 {
		msg.Arg2 = args[1]
	}
	return msg
}

// SendMessage enqueues msg for immediate dispatch.
func (h *Handler) SendMessage(msg *Message) {
	h.SendMessageDelayed(msg, 0)
}

// SendMessageDelayed enqueues msg to be dispatched after delay.
func (h *Handler) SendMessageDelayed(msg *Message, delay time.Duration) {
	msg.target = h
	h.looper.messageQueue().enqueueMessage(msg, when(delay))
}

// SendMessageAtTime enqueues msg to be dispatched at the given absolute
// Unix-nanosecond time.
func (h *Handler) SendMessageAtTime(msg *Message, whenNanos int64) {
	msg.target = h
	h.looper.messageQueue().enqueueMessage(msg, whenNanos)
}

// Post enqueues r to run on this Handler's Looper.
func (h *Handler) Post(r Runnable) {
	h.PostDelayed(r, 0)
}

// PostDelayed enqueues r to run after delay.
func (h *Handler) PostDelayed(r Runnable, delay time.Duration) {
	msg := obtainMessage()
	msg.target = h
	msg.Callback = r
	h.looper.messageQueue().enqueueMessage(msg, when(delay))
}

// HasMessages reports whether a pending message targets this Handler with
// the given what and (if non-nil) obj.
func (h *Handler) HasMessages(what int32, obj interface{}) bool {
	return h.looper.messageQueue().hasMessages(h, what, obj)
}

// HasCallbacks reports whether a pending Runnable r is queued for this
// Handler, matching obj if non-nil.
func (h *Handler) HasCallbacks(r Runnable, obj interface{}) bool {
	return h.looper.messageQueue().hasCallbacks(h, r, obj)
}

// RemoveMessages removes pending messages matching what and obj (nil is a
// wildcard).
func (h *Handler) RemoveMessages(what int32, obj interface{}) {
	h.looper.messageQueue().removeMessages(h, what, obj)
}

// RemoveCallbacks removes pending Runnable r matching obj (nil is a
// wildcard).
func (h *Handler) RemoveCallbacks(r Runnable, obj interface{}) {
	h.looper.messageQueue().removeCallbacks(h, r, obj)
}

// RemoveCallbacksAndMessages removes every pending message and callback
// targeting this Handler, matching obj if non-nil.
func (h *Handler) RemoveCallbacksAndMessages(obj interface{}) {
	h.looper.messageQueue().removeCallbacksAndMessages(h, obj)
}

// cancelCallback removes a single pending Runnable r targeting this
// Handler (no obj filter), reporting whether one was found and removed.
// Used by Executor implementations backed by a Handler to implement
// Cancel.
func (h *Handler) cancelCallback(r Runnable) bool {
	return h.looper.messageQueue().cancelCallback(h, r)
}

// AsExecutor returns an Executor whose Execute posts to this Handler.
func (h *Handler) AsExecutor() Executor {
	return handlerExecutor{h}
}

type handlerExecutor struct{ h *Handler }

func (e handlerExecutor) Execute(r Runnable) { e.h.Post(r) }

// Cancel implements Executor: it removes r from the Handler's Looper queue
// if it has not started running yet.
func (e handlerExecutor) Cancel(r Runnable) bool { return e.h.cancelCallback(r) }
