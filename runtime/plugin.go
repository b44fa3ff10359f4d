package runtime

import (
	"github.com/geoffjay/mindroid/concurrent"
	"github.com/geoffjay/mindroid/os"
)

// Plugin is a URI-scheme transport: it bridges Binder transactions and
// Proxy lifecycle events onto some concrete wire protocol. One Plugin
// instance is created per configured scheme per node.
//
// Grounded on mindroid/runtime/system/Plugin.h and the concrete
// implementation in mindroid/runtime/system/plugins/Mindroid.cpp.
type Plugin interface {
	// SetUp is called once, before Start, with the Runtime the plugin
	// should register binders/proxies against.
	SetUp(rt *Runtime) error

	// Start begins accepting connections / dialing peers as configured.
	Start() *concurrent.Promise[struct{}]

	// Stop tears down connections. Called before TearDown on shutdown.
	Stop() *concurrent.Promise[struct{}]

	// TearDown releases any resources acquired in SetUp.
	TearDown() error

	// AttachBinder notifies the plugin that a local binder was published
	// under uri, so it can be reached by incoming transactions on this
	// scheme.
	AttachBinder(uri string, binder *os.Binder)

	// DetachBinder is the inverse of AttachBinder.
	DetachBinder(uri string, binder *os.Binder)

	// AttachProxy notifies the plugin that proxyID now refers to a Proxy
	// it must route transactions for.
	AttachProxy(proxyID uint64, proxy *os.Proxy)

	// DetachProxy is the inverse of AttachProxy. The Runtime's DetachProxy
	// receives only the proxy's ids and URI, so no *os.Proxy is handed back;
	// the plugin must keep its own id-keyed bookkeeping from Attach.
	DetachProxy(proxyID uint64)

	// Transact routes a Proxy's transaction over the wire.
	Transact(proxy *os.Proxy, what int32, data *os.Parcel, flags int32) (*concurrent.Promise[*os.Parcel], error)

	// Stub wraps a local Binder for invocation through this plugin's
	// bridging scheme, used when a service is installed under a URI whose
	// scheme differs from the base "mindroid" scheme.
	Stub(binder *os.Binder) (os.IBinder, error)
}

// PluginFactory constructs a Plugin by its configured class name. Plugins
// register themselves at init time via RegisterPluginFactory, the same way
// Runtime.cpp resolves a plugin class by reflection.
type PluginFactory func() Plugin

var pluginFactories = make(map[string]PluginFactory)

// RegisterPluginFactory makes a plugin implementation constructible by
// class name from a discovery.Plugin's Class field.
func RegisterPluginFactory(class string, factory PluginFactory) {
	pluginFactories[class] = factory
}

func newPluginByClass(class string) (Plugin, bool) {
	factory, ok := pluginFactories[class]
	if !ok {
		return nil, false
	}
	return factory(), true
}
