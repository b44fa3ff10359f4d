package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/geoffjay/mindroid/concurrent"
	mos "github.com/geoffjay/mindroid/os"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlugin struct {
	attachedBinders map[string]*mos.Binder
	attachedProxies map[uint64]*mos.Proxy
	setUpCalled     bool
	tornDown        bool
}

func newFakePlugin() *fakePlugin {
	return &fakePlugin{
		attachedBinders: make(map[string]*mos.Binder),
		attachedProxies: make(map[uint64]*mos.Proxy),
	}
}

func (p *fakePlugin) SetUp(rt *Runtime) error { p.setUpCalled = true; return nil }
func (p *fakePlugin) Start() *concurrent.Promise[struct{}] {
	return concurrent.Completed(struct{}{})
}
func (p *fakePlugin) Stop() *concurrent.Promise[struct{}] {
	return concurrent.Completed(struct{}{})
}
func (p *fakePlugin) TearDown() error { p.tornDown = true; return nil }
func (p *fakePlugin) AttachBinder(uri string, binder *mos.Binder) {
	p.attachedBinders[uri] = binder
}
func (p *fakePlugin) DetachBinder(uri string, binder *mos.Binder) { delete(p.attachedBinders, uri) }
func (p *fakePlugin) AttachProxy(proxyID uint64, proxy *mos.Proxy) {
	p.attachedProxies[proxyID] = proxy
}
func (p *fakePlugin) DetachProxy(proxyID uint64) { delete(p.attachedProxies, proxyID) }
func (p *fakePlugin) Transact(proxy *mos.Proxy, what int32, data *mos.Parcel, flags int32) (*concurrent.Promise[*mos.Parcel], error) {
	return concurrent.Completed(data), nil
}
func (p *fakePlugin) Stub(binder *mos.Binder) (mos.IBinder, error) { return binder, nil }

func writeRuntimeConfig(t *testing.T, nodeID uint32, serviceName string, serviceID uint64) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.xml")
	xml := `
<runtime>
  <nodes>
    <node id="` + itoa(nodeID) + `">
      <plugin scheme="fake" class="runtime.fakePlugin">
        <server uri="tcp://0.0.0.0:0"/>
      </plugin>
    </node>
  </nodes>
  <serviceDiscovery>
    <node id="` + itoa(nodeID) + `">
      <service id="` + itoa64(serviceID) + `" name="` + serviceName + `"/>
    </node>
  </serviceDiscovery>
</runtime>
`
	require.NoError(t, os.WriteFile(path, []byte(xml), 0o644))
	return path
}

func itoa(v uint32) string {
	return itoa64(uint64(v))
}

func itoa64(v uint64) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func resetSingleton() {
	singletonMu.Lock()
	singleton = nil
	singletonMu.Unlock()
}

func TestStart_InstantiatesConfiguredPlugins(t *testing.T) {
	resetSingleton()
	plugin := newFakePlugin()
	RegisterPluginFactory("runtime.fakePlugin", func() Plugin { return plugin })

	path := writeRuntimeConfig(t, 1, "mindroid://svc", 42)
	rt, err := Start(1, path)
	require.NoError(t, err)
	defer Shutdown()

	assert.True(t, plugin.setUpCalled)
	assert.Equal(t, uint32(1), rt.NodeID())
}

func TestAttachBinder_AssignsUniqueIncreasingIDs(t *testing.T) {
	resetSingleton()
	plugin := newFakePlugin()
	RegisterPluginFactory("runtime.fakePlugin", func() Plugin { return plugin })

	path := writeRuntimeConfig(t, 2, "mindroid://other", 7)
	rt, err := Start(2, path)
	require.NoError(t, err)
	defer Shutdown()

	b1 := mos.NewBinderForLooper(mustLooper(t))
	b2 := mos.NewBinderForLooper(mustLooper(t))

	assert.NotEqual(t, b1.ID(), b2.ID())
	assert.Less(t, b1.ID(), b2.ID())
	assert.Equal(t, uint32(2), rt.NodeID())
}

func TestAddService_ReassignsConfiguredID(t *testing.T) {
	resetSingleton()
	plugin := newFakePlugin()
	RegisterPluginFactory("runtime.fakePlugin", func() Plugin { return plugin })

	path := writeRuntimeConfig(t, 3, "mindroid://svc", 99)
	rt, err := Start(3, path)
	require.NoError(t, err)
	defer Shutdown()

	b := mos.NewBinderForLooper(mustLooper(t))
	require.NoError(t, rt.AddService("mindroid://svc", b))

	assert.Equal(t, uint64(99), b.ID())
	got, ok := rt.Service("mindroid://svc")
	assert.True(t, ok)
	assert.Same(t, b, got)
}

func TestResolve_LocalBinderIdentityCollapse(t *testing.T) {
	resetSingleton()
	plugin := newFakePlugin()
	RegisterPluginFactory("runtime.fakePlugin", func() Plugin { return plugin })

	path := writeRuntimeConfig(t, 4, "mindroid://svc", 5)
	rt, err := Start(4, path)
	require.NoError(t, err)
	defer Shutdown()

	b := mos.NewBinderForLooper(mustLooper(t))
	b.AttachInterface(nil, "mindroid://interfaces/test/IFoo")

	resolved, err := rt.Resolve(b.URI())
	require.NoError(t, err)
	assert.Equal(t, b.ID(), resolved.ID())
}

func mustLooper(t *testing.T) *mos.Looper {
	t.Helper()
	thread := mos.NewLooperThread(nil)
	t.Cleanup(func() {
		thread.GetLooper().Quit()
		thread.Join()
	})
	return thread.GetLooper()
}
