package mindroidplugin

import (
	"fmt"
	"sync"

	"github.com/geoffjay/mindroid/concurrent"
	mnet "github.com/geoffjay/mindroid/net"
	mos "github.com/geoffjay/mindroid/os"
	"github.com/geoffjay/mindroid/runtime"
)

// ClassName is the configuration class name nodes running this plugin
// reference in their topology's <plugin class="..."> attribute.
const ClassName = "mindroidplugin.Plugin"

func init() {
	runtime.RegisterPluginFactory(ClassName, func() runtime.Plugin { return New() })
}

// Plugin is the "mindroid" scheme's transport: it listens for inbound
// transactions when this node publishes a server address, and dials
// outbound connections lazily, one per remote node, when a local Proxy
// first transacts against it.
//
// Grounded on Mindroid (mindroid/runtime/system/plugins/Mindroid.h/.cpp).
type Plugin struct {
	rt        *runtime.Runtime
	config    PluginConfig
	serverURI string
	server    *server

	mu      sync.Mutex
	clients map[uint32]*client
}

// New constructs an unconfigured Plugin; SetUp must be called before Start.
func New() *Plugin {
	return &Plugin{clients: make(map[uint32]*client)}
}

// SetUp implements runtime.Plugin. It loads the plugin's tuning knobs from
// the node's <plugin config="..."> attribute, if set, layering an optional
// YAML file and MINDROIDPLUGIN_-prefixed environment variables over
// DefaultPluginConfig; a node with no config attribute gets the defaults.
func (p *Plugin) SetUp(rt *runtime.Runtime) error {
	p.rt = rt
	p.server = newServer(p)

	cfg, ok := rt.Configuration().PluginForScheme(rt.NodeID(), "mindroid")
	if !ok {
		p.config = DefaultPluginConfig()
		return nil
	}
	p.serverURI = cfg.Server.URI

	if cfg.Config == "" {
		p.config = DefaultPluginConfig()
		return nil
	}
	pluginConfig, err := LoadPluginConfigFromFile(cfg.Config)
	if err != nil {
		return fmt.Errorf("mindroidplugin: loading config %s: %w", cfg.Config, err)
	}
	p.config = pluginConfig
	return nil
}

// Start implements runtime.Plugin: it binds the configured server address,
// if any. A node with no server entry only dials out, never accepts.
func (p *Plugin) Start() *concurrent.Promise[struct{}] {
	if p.serverURI != "" {
		if err := p.server.start(p.serverURI); err != nil {
			return concurrent.Failed[struct{}](err)
		}
	}
	return concurrent.Completed(struct{}{})
}

// Stop implements runtime.Plugin: it shuts the server and every outbound
// client connection down, failing any transaction still in flight.
func (p *Plugin) Stop() *concurrent.Promise[struct{}] {
	if p.server != nil {
		p.server.shutdown()
	}

	p.mu.Lock()
	clients := make([]*client, 0, len(p.clients))
	for _, c := range p.clients {
		clients = append(clients, c)
	}
	p.clients = make(map[uint32]*client)
	p.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
	return concurrent.Completed(struct{}{})
}

// TearDown implements runtime.Plugin. There is no resource acquired in SetUp
// beyond what Stop already releases.
func (p *Plugin) TearDown() error { return nil }

// AttachBinder implements runtime.Plugin. A Binder published under the
// "mindroid" scheme is already reachable by URI through Runtime.Resolve;
// this plugin needs no per-binder bookkeeping of its own.
func (p *Plugin) AttachBinder(uri string, binder *mos.Binder) {}

// DetachBinder implements runtime.Plugin.
func (p *Plugin) DetachBinder(uri string, binder *mos.Binder) {}

// AttachProxy implements runtime.Plugin. Outbound connections are opened
// lazily on first Transact rather than eagerly here, matching the original's
// "connect on demand" client lifecycle.
func (p *Plugin) AttachProxy(proxyID uint64, proxy *mos.Proxy) {}

// DetachProxy implements runtime.Plugin. A client connection is torn down
// only when Stop is called or the connection fails or is closed by the
// peer; this plugin intentionally never reference-counts per-proxy (see
// DESIGN.md's note on the original's stubbed-out lazy shutdown).
func (p *Plugin) DetachProxy(proxyID uint64) {}

// Transact implements runtime.Plugin: it routes the transaction to the
// client connection for the Proxy's target node, dialing it first if this
// is the first transaction bound for that node.
func (p *Plugin) Transact(proxy *mos.Proxy, what int32, data *mos.Parcel, flags int32) (*concurrent.Promise[*mos.Parcel], error) {
	u, err := mnet.Parse(proxy.URI())
	if err != nil {
		return nil, err
	}
	nodeID, _, ok := mnet.SplitAuthority(u.Authority)
	if !ok {
		return nil, fmt.Errorf("mindroidplugin: proxy uri is not a binder address: %q", proxy.URI())
	}

	c, err := p.clientFor(nodeID)
	if err != nil {
		return nil, err
	}
	return c.transact(proxy.URI(), what, data, flags)
}

// Stub implements runtime.Plugin. The "mindroid" scheme speaks the wire
// format natively, so a local Binder needs no bridging wrapper.
func (p *Plugin) Stub(binder *mos.Binder) (mos.IBinder, error) {
	return binder, nil
}

func (p *Plugin) clientFor(nodeID uint32) (*client, error) {
	p.mu.Lock()
	if c, ok := p.clients[nodeID]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	cfg, ok := p.rt.Configuration().PluginForScheme(nodeID, "mindroid")
	if !ok {
		return nil, mos.NewRemoteException("mindroidplugin: no route to node")
	}

	c := newClient(nodeID, p)
	if err := c.start(cfg.Server.URI); err != nil {
		return nil, mos.NewRemoteExceptionWithCause("binder transaction failure", err)
	}

	p.mu.Lock()
	p.clients[nodeID] = c
	p.mu.Unlock()
	return c, nil
}

func (p *Plugin) onClientShutdown(nodeID uint32) {
	p.mu.Lock()
	delete(p.clients, nodeID)
	p.mu.Unlock()
}
