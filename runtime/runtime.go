// Package runtime is the Mindroid node registry: it owns every Binder and
// Proxy a process has created, assigns their ids, loads the topology
// configuration, and drives each configured transport plugin through its
// setup/start/stop/teardown lifecycle.
//
// Grounded on mindroid/runtime/system/Runtime.cpp, which plays the same
// role as a process-wide singleton constructed once at startup.
package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/geoffjay/mindroid/concurrent"
	"github.com/geoffjay/mindroid/net"
	"github.com/geoffjay/mindroid/os"
	"github.com/geoffjay/mindroid/runtime/discovery"
	log "github.com/sirupsen/logrus"
)

// pluginLifecycleTimeout bounds how long a plugin's Start/Stop promise is
// awaited during Runtime startup/shutdown.
const pluginLifecycleTimeout = 10 * time.Second

// Runtime is the process-wide registry of binders, proxies, services and
// transport plugins for one node. Exactly one exists per process; obtain it
// with Start and release it with Shutdown.
type Runtime struct {
	mu     sync.Mutex
	nodeID uint32
	config *discovery.Configuration

	plugins map[string]Plugin // by scheme

	binderCounter uint64
	proxyCounter  uint64

	ids          map[uint64]bool
	binders      map[uint64]*os.Binder
	binderIDs    map[*os.Binder]uint64
	bindersByURI map[string]*os.Binder

	stubs    map[string]os.IBinder
	proxies  map[string]*os.Proxy
	services map[string]*os.Binder
}

var (
	singletonMu sync.Mutex
	singleton   *Runtime
)

// Start loads configurationPath, instantiates and starts every plugin
// configured for nodeID, installs the Runtime as the process-wide os.Runtime,
// and returns it. Calling Start again on an already-started process returns
// the existing Runtime unchanged.
func Start(nodeID uint32, configurationPath string) (*Runtime, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	if singleton != nil {
		return singleton, nil
	}
	if nodeID == 0 {
		return nil, fmt.Errorf("runtime: node id must be nonzero")
	}

	cfg, err := discovery.Read(configurationPath)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		nodeID:       nodeID,
		config:       cfg,
		plugins:      make(map[string]Plugin),
		ids:          make(map[uint64]bool),
		binders:      make(map[uint64]*os.Binder),
		binderIDs:    make(map[*os.Binder]uint64),
		bindersByURI: make(map[string]*os.Binder),
		stubs:        make(map[string]os.IBinder),
		proxies:      make(map[string]*os.Proxy),
		services:     make(map[string]*os.Binder),
	}

	for _, svc := range cfg.Services(nodeID) {
		rt.ids[(uint64(nodeID)<<32)|svc.ID] = true
	}

	for _, p := range cfg.NodePlugins(nodeID) {
		plugin, ok := newPluginByClass(p.Class)
		if !ok {
			return nil, fmt.Errorf("runtime: unknown plugin class %q for scheme %q", p.Class, p.Scheme)
		}
		rt.plugins[p.Scheme] = plugin
	}

	os.SetRuntime(rt)

	for scheme, plugin := range rt.plugins {
		if err := plugin.SetUp(rt); err != nil {
			return nil, fmt.Errorf("runtime: setting up plugin %q: %w", scheme, err)
		}
	}
	for scheme, plugin := range rt.plugins {
		if _, err := plugin.Start().GetWithTimeout(pluginLifecycleTimeout); err != nil {
			return nil, fmt.Errorf("runtime: starting plugin %q: %w", scheme, err)
		}
	}

	log.WithFields(log.Fields{"nodeId": nodeID, "plugins": len(rt.plugins)}).Info("runtime started")
	singleton = rt
	return rt, nil
}

// Get returns the process's Runtime, or nil if Start has not been called.
func Get() *Runtime {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	return singleton
}

// Shutdown stops every plugin, then tears every plugin down, and clears the
// process-wide singleton. The order among plugins is not defined (as in
// Start, they are visited in map order). It is safe to call on an
// already-shut-down or never-started Runtime.
func Shutdown() error {
	singletonMu.Lock()
	rt := singleton
	singleton = nil
	singletonMu.Unlock()

	if rt == nil {
		return nil
	}

	var firstErr error
	for scheme, plugin := range rt.plugins {
		if _, err := plugin.Stop().GetWithTimeout(pluginLifecycleTimeout); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("runtime: stopping plugin %q: %w", scheme, err)
		}
	}
	for scheme, plugin := range rt.plugins {
		if err := plugin.TearDown(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("runtime: tearing down plugin %q: %w", scheme, err)
		}
	}

	log.WithFields(log.Fields{"nodeId": rt.nodeID}).Info("runtime stopped")
	return firstErr
}

// NodeID implements os.Runtime.
func (rt *Runtime) NodeID() uint32 { return rt.nodeID }

// Configuration returns the topology configuration this Runtime was started
// with, so a Plugin can look up its own server address and the addresses of
// the other nodes it may need to dial.
func (rt *Runtime) Configuration() *discovery.Configuration { return rt.config }

func (rt *Runtime) pluginFor(scheme string) (Plugin, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	p, ok := rt.plugins[scheme]
	return p, ok
}

// AttachBinder implements os.Runtime: it assigns b the next unused
// (nodeID, counter) id and records it in the local tables.
func (rt *Runtime) AttachBinder(b *os.Binder) uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	var id uint64
	for {
		rt.binderCounter++
		id = (uint64(rt.nodeID) << 32) | (rt.binderCounter & 0xFFFFFFFF)
		if !rt.ids[id] {
			break
		}
	}
	rt.ids[id] = true
	rt.binders[id] = b
	rt.binderIDs[b] = id
	return id
}

// AttachBinderAt implements os.Runtime: it publishes b under uri and, if a
// plugin is registered for uri's scheme, notifies it so bridging transports
// can advertise the service.
func (rt *Runtime) AttachBinderAt(uri string, b *os.Binder) {
	rt.mu.Lock()
	rt.bindersByURI[uri] = b
	rt.mu.Unlock()

	if u, err := net.Parse(uri); err == nil {
		if plugin, ok := rt.pluginFor(u.Scheme); ok {
			plugin.AttachBinder(uri, b)
		}
	}
}

// DetachBinder implements os.Runtime.
func (rt *Runtime) DetachBinder(id uint64, uri string) {
	rt.mu.Lock()
	b := rt.binders[id]
	delete(rt.binders, id)
	delete(rt.ids, id)
	if uri != "" {
		delete(rt.bindersByURI, uri)
	}
	if b != nil {
		delete(rt.binderIDs, b)
	}
	rt.mu.Unlock()

	if b == nil || uri == "" {
		return
	}
	if u, err := net.Parse(uri); err == nil {
		if plugin, ok := rt.pluginFor(u.Scheme); ok {
			plugin.DetachBinder(uri, b)
		}
	}
}

// AttachProxy implements os.Runtime.
func (rt *Runtime) AttachProxy(p *os.Proxy) uint64 {
	rt.mu.Lock()
	rt.proxyCounter++
	id := rt.proxyCounter
	rt.proxies[p.URI()] = p
	rt.mu.Unlock()

	if u, err := net.Parse(p.URI()); err == nil {
		if plugin, ok := rt.pluginFor(u.Scheme); ok {
			plugin.AttachProxy(id, p)
		}
	}
	return id
}

// DetachProxy implements os.Runtime.
func (rt *Runtime) DetachProxy(id uint64, uri string, proxyID uint64) {
	rt.mu.Lock()
	delete(rt.proxies, uri)
	rt.mu.Unlock()

	if u, err := net.Parse(uri); err == nil {
		if plugin, ok := rt.pluginFor(u.Scheme); ok {
			plugin.DetachProxy(proxyID)
		}
	}
}

// TransactProxy implements os.Runtime: it routes the transaction to the
// plugin registered for the Proxy's URI scheme.
func (rt *Runtime) TransactProxy(p *os.Proxy, what int32, data *os.Parcel, flags int32) (*concurrent.Promise[*os.Parcel], error) {
	u, err := net.Parse(p.URI())
	if err != nil {
		return nil, err
	}
	plugin, ok := rt.pluginFor(u.Scheme)
	if !ok {
		return nil, os.NewRemoteException("runtime: no plugin for scheme " + u.Scheme)
	}
	return plugin.Transact(p, what, data, flags)
}

// Resolve returns the IBinder addressed by uri: the local Binder itself when
// uri names this node (identity collapse — no Proxy is ever constructed for
// a local address), a cached or freshly wrapped stub when uri uses a
// bridging scheme over a local Binder, or a Proxy when uri names another
// node.
func (rt *Runtime) Resolve(uri string) (os.IBinder, error) {
	u, err := net.Parse(uri)
	if err != nil {
		return nil, err
	}

	nodeID, _, isAddress := net.SplitAuthority(u.Authority)
	local := isAddress && nodeID == rt.nodeID

	if !local {
		rt.mu.Lock()
		if p, ok := rt.proxies[uri]; ok {
			rt.mu.Unlock()
			return p, nil
		}
		rt.mu.Unlock()
		return os.NewProxy(uri)
	}

	if u.Scheme == "mindroid" {
		rt.mu.Lock()
		b, ok := rt.bindersByURI[uri]
		rt.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("runtime: no binder registered at %s", uri)
		}
		return b, nil
	}

	rt.mu.Lock()
	if stub, ok := rt.stubs[uri]; ok {
		rt.mu.Unlock()
		return stub, nil
	}
	rt.mu.Unlock()

	baseURI := fmt.Sprintf("mindroid://%s%s", u.Authority, u.Path)
	rt.mu.Lock()
	b, ok := rt.bindersByURI[baseURI]
	plugin, pluginOK := rt.plugins[u.Scheme]
	rt.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("runtime: no binder registered at %s", baseURI)
	}
	if !pluginOK {
		return nil, fmt.Errorf("runtime: no plugin for scheme %s", u.Scheme)
	}

	stub, err := plugin.Stub(b)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	rt.stubs[uri] = stub
	rt.mu.Unlock()
	return stub, nil
}

// AddService records binder under name in the service directory and, if the
// topology configuration pins name to a fixed id on this node, reassigns
// binder's runtime id to that pinned value so remote nodes can address it
// without a discovery round-trip.
func (rt *Runtime) AddService(name string, binder *os.Binder) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.services[name] = binder

	nodeID, svc, ok := rt.config.ServiceByName(name)
	if !ok || nodeID != rt.nodeID {
		return nil
	}

	newID := (uint64(rt.nodeID) << 32) | svc.ID
	if oldID, tracked := rt.binderIDs[binder]; tracked {
		delete(rt.binders, oldID)
		delete(rt.ids, oldID)
	}
	rt.binders[newID] = binder
	rt.binderIDs[binder] = newID
	rt.ids[newID] = true
	binder.SetID(newID)

	log.WithFields(log.Fields{"service": name, "id": svc.ID}).Debug("reassigned service binder id from topology")
	return nil
}

// Service returns the binder registered under name, if any.
func (rt *Runtime) Service(name string) (*os.Binder, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	b, ok := rt.services[name]
	return b, ok
}
