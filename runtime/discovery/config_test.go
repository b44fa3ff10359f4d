package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
<runtime>
  <nodes>
    <node id="1">
      <plugin scheme="mindroid" class="mindroidplugin.Plugin">
        <server uri="tcp://0.0.0.0:1234"/>
      </plugin>
    </node>
  </nodes>
  <serviceDiscovery>
    <node id="1">
      <service id="42" name="mindroid://svc">
        <announcement interfaceDescriptor="mindroid://interfaces/pkg/Foo"/>
      </service>
    </node>
  </serviceDiscovery>
</runtime>
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	return path
}

func TestRead_ParsesSchema(t *testing.T) {
	cfg, err := Read(writeSample(t))
	require.NoError(t, err)

	require.Len(t, cfg.Nodes.Nodes, 1)
	assert.Equal(t, uint32(1), cfg.Nodes.Nodes[0].ID)

	plugin, ok := cfg.PluginForScheme(1, "mindroid")
	require.True(t, ok)
	assert.Equal(t, "tcp://0.0.0.0:1234", plugin.Server.URI)

	nodeID, svc, ok := cfg.ServiceByName("mindroid://svc")
	require.True(t, ok)
	assert.Equal(t, uint32(1), nodeID)
	assert.Equal(t, uint64(42), svc.ID)
	require.Len(t, svc.Announcements, 1)
	assert.Equal(t, "mindroid://interfaces/pkg/Foo", svc.Announcements[0].InterfaceDescriptor)
}

func TestRead_RejectsZeroNodeID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<runtime><nodes><node id="0"/></nodes></runtime>`), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestRead_RejectsEmptyPluginScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<runtime><nodes><node id="1"><plugin class="x"/></node></nodes></runtime>`), 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}
