package os

import (
	"fmt"

	"github.com/geoffjay/mindroid/concurrent"
	"github.com/geoffjay/mindroid/net"
)

// Transaction flags. FlagOneway suppresses the reply Promise entirely —
// the caller has no way to observe failure or result.
const (
	FlagOneway int32 = 1 << 0
)

// IBinder is the common contract of a local Binder and a remote Proxy: an
// addressable endpoint that can be transacted against.
type IBinder interface {
	ID() uint64
	URI() string
	InterfaceDescriptor() string
	Transact(what int32, data *Parcel, flags int32) (*concurrent.Promise[*Parcel], error)
}

// Transactor supplies a Binder's reply to a transaction. Construct a Binder
// and set its Impl field to override the default (which always fails with
// RemoteException(NoSuchMethod)), mirroring mindroid's onTransact override
// point without requiring embedding/inheritance.
type Transactor interface {
	OnTransact(what int32, data *Parcel) (*Parcel, error)
}

// Runtime is the subset of the runtime registry a Binder/Proxy needs,
// defined here (rather than imported) so this package never depends on the
// runtime package — the runtime package depends on os for Binder/Handler,
// so the reverse edge would be a cycle. The runtime package's concrete
// registry type satisfies this interface and is installed via SetRuntime.
type Runtime interface {
	NodeID() uint32
	AttachBinder(b *Binder) uint64
	AttachBinderAt(uri string, b *Binder)
	DetachBinder(id uint64, uri string)
	AttachProxy(p *Proxy) uint64
	DetachProxy(id uint64, uri string, proxyID uint64)
	TransactProxy(p *Proxy, what int32, data *Parcel, flags int32) (*concurrent.Promise[*Parcel], error)
}

var activeRuntime Runtime

// SetRuntime installs the process-wide Runtime that newly constructed
// Binders and Proxies register with. Called once by runtime.Start.
func SetRuntime(rt Runtime) { activeRuntime = rt }

func requireRuntime() Runtime {
	if activeRuntime == nil {
		panic("os: no runtime installed; call runtime.Start before creating a Binder or Proxy")
	}
	return activeRuntime
}

// messenger delivers a dispatch closure either onto a Handler's Looper or
// onto an Executor, mirroring Binder.h's IMessenger/Messenger/ExecutorMessenger.
type messenger interface {
	isCurrentThread() bool
	send(fn func())
}

type handlerMessenger struct{ handler *Handler }

func (m handlerMessenger) isCurrentThread() bool { return m.handler.IsCurrentThread() }
func (m handlerMessenger) send(fn func())        { m.handler.Post(fn) }

type executorMessenger struct{ executor Executor }

func (m executorMessenger) isCurrentThread() bool { return false }
func (m executorMessenger) send(fn func())        { m.executor.Execute(fn) }

// Binder is a local, remotable object: the core of Mindroid's lightweight
// RPC mechanism. Construct one, optionally call AttachInterface to publish
// it under an interface URI, and set Impl to supply transaction replies.
//
// Grounded on mindroid/os/Binder.h and Binder.cpp.
type Binder struct {
	Impl Transactor

	id         uint64
	uri        string
	descriptor string
	owner      interface{}
	messenger  messenger
	rt         Runtime
}

// NewBinder binds to the calling goroutine's current Looper.
func NewBinder() *Binder {
	return newBinder(handlerMessenger{NewHandler()})
}

// NewBinderForLooper binds to an explicit Looper.
func NewBinderForLooper(l *Looper) *Binder {
	return newBinder(handlerMessenger{NewHandlerForLooper(l)})
}

// NewBinderForExecutor dispatches transactions on executor instead of a
// Looper; IsCurrentThread is always false for such a Binder, since an
// Executor has no single affine goroutine.
func NewBinderForExecutor(executor Executor) *Binder {
	return newBinder(executorMessenger{executor})
}

func newBinder(m messenger) *Binder {
	b := &Binder{messenger: m}
	b.rt = requireRuntime()
	b.id = b.rt.AttachBinder(b)
	return b
}

// AttachInterface publishes this Binder under the URI
// "mindroid://<node>.<local>" and records descriptor so
// QueryLocalInterface can return owner for matching lookups.
func (b *Binder) AttachInterface(owner interface{}, descriptor string) {
	b.owner = owner
	b.descriptor = descriptor
	b.uri = fmt.Sprintf("mindroid://%d.%d", b.rt.NodeID(), uint32(b.id))
	b.rt.AttachBinderAt(b.uri, b)
}

// ID returns the binder's local id (the low 32 bits of its runtime-assigned
// id; the high bits identifying the owning node are only meaningful inside
// the Runtime's own tables).
func (b *Binder) ID() uint64 { return uint64(uint32(b.id)) }

// SetID reassigns this Binder's runtime id. Only the Runtime calls this,
// when a locally-registered service's name matches one pinned to a fixed id
// in the topology configuration.
func (b *Binder) SetID(id uint64) { b.id = id }

// URI returns the URI this Binder was published under, or "" if
// AttachInterface was never called.
func (b *Binder) URI() string { return b.uri }

// InterfaceDescriptor returns the descriptor set by AttachInterface, or ""
// if none.
func (b *Binder) InterfaceDescriptor() string { return b.descriptor }

// QueryLocalInterface returns the owner passed to AttachInterface if
// descriptor matches, or nil.
func (b *Binder) QueryLocalInterface(descriptor string) interface{} {
	if b.descriptor != "" && b.descriptor == descriptor {
		return b.owner
	}
	return nil
}

// IsCurrentThread reports whether the calling goroutine is this Binder's
// affine thread (always false for an executor-backed Binder).
func (b *Binder) IsCurrentThread() bool {
	return b.messenger.isCurrentThread()
}

// Transact packages (what, data) as a transaction and delivers it to this
// Binder's messenger. When the caller shares this Binder's Looper, dispatch
// bypasses the queue and runs inline. With FlagOneway set, the returned
// Promise is nil and no reply is ever produced.
func (b *Binder) Transact(what int32, data *Parcel, flags int32) (*concurrent.Promise[*Parcel], error) {
	var result *concurrent.Promise[*Parcel]
	if flags&FlagOneway == 0 {
		result = concurrent.NewPromise[*Parcel]()
	}

	run := func() { b.dispatchTransact(what, data, result) }

	if b.messenger.isCurrentThread() {
		run()
		return result, nil
	}
	b.messenger.send(run)
	return result, nil
}

func (b *Binder) dispatchTransact(what int32, data *Parcel, result *concurrent.Promise[*Parcel]) {
	reply, err := b.onTransact(what, data)
	if result == nil {
		return
	}
	if err != nil {
		if re, ok := err.(*RemoteException); ok {
			result.CompleteWith(re)
			return
		}
		result.CompleteWith(NewRemoteExceptionWithCause("transaction failed", err))
		return
	}
	result.Complete(reply)
}

func (b *Binder) onTransact(what int32, data *Parcel) (*Parcel, error) {
	if b.Impl != nil {
		return b.Impl.OnTransact(what, data)
	}
	return nil, NewRemoteExceptionWithCause("no such method", ErrNoSuchMethod)
}

// Close unregisters this Binder from the Runtime. Mindroid's weak-reference
// cache is emulated with explicit lifecycle instead: a Binder left
// un-Closed leaks its registry entry the same way a Looper left un-Quit
// leaks its goroutine.
func (b *Binder) Close() {
	b.rt.DetachBinder(b.id, b.uri)
}

// Equals compares two IBinders by identity (id).
func (b *Binder) Equals(other IBinder) bool {
	return other != nil && b.ID() == other.ID()
}

// Proxy is a remote handle constructed from a Binder's URI. A Proxy whose
// URI targets the local node is never constructed by runtime.Resolve —
// the local Binder is returned instead (identity collapse).
//
// Grounded on mindroid/os/Binder.h's nested Proxy class and Binder.cpp.
type Proxy struct {
	proxyID    uint64
	id         uint64
	uri        string
	descriptor string
	rt         Runtime
}

// NewProxy parses rawURI (authority "<node>.<local>", optional
// "/if=<descriptor>" path) and registers a Proxy with the active Runtime.
func NewProxy(rawURI string) (*Proxy, error) {
	u, err := net.Parse(rawURI)
	if err != nil {
		return nil, err
	}

	_, local, ok := net.SplitAuthority(u.Authority)
	if !ok {
		return nil, fmt.Errorf("os: proxy URI authority is not a binder address: %q", rawURI)
	}

	descriptor, _ := u.InterfaceDescriptor()

	p := &Proxy{id: uint64(local), uri: rawURI, descriptor: descriptor}
	p.rt = requireRuntime()
	p.proxyID = p.rt.AttachProxy(p)
	return p, nil
}

func (p *Proxy) ID() uint64                  { return p.id }
func (p *Proxy) URI() string                 { return p.uri }
func (p *Proxy) InterfaceDescriptor() string { return p.descriptor }

// Transact routes the transaction through the Runtime, which delegates to
// the URI scheme's transport plugin.
func (p *Proxy) Transact(what int32, data *Parcel, flags int32) (*concurrent.Promise[*Parcel], error) {
	return p.rt.TransactProxy(p, what, data, flags)
}

// Close unregisters this Proxy, letting the owning plugin release any
// connection resources reserved for it.
func (p *Proxy) Close() {
	p.rt.DetachProxy(p.id, p.uri, p.proxyID)
}

// Equals compares two IBinders by identity (id).
func (p *Proxy) Equals(other IBinder) bool {
	return other != nil && p.ID() == other.ID()
}
