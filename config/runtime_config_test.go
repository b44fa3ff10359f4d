package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearRuntimeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"MINDROID_NODE_ID", "MINDROID_RUNTIME_CONFIGURATION", "MINDROID_ROOT_DIRECTORY"} {
		original, had := os.LookupEnv(key)
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() {
			if had {
				os.Setenv(key, original)
			}
		})
	}
}

func TestLoadRuntimeConfig_UsesDefaultsWhenUnset(t *testing.T) {
	clearRuntimeEnv(t)

	cfg, err := LoadRuntimeConfig(1, "runtime.xml")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), cfg.NodeID)
	assert.Equal(t, "runtime.xml", cfg.ConfigurationPath)
	assert.Equal(t, ".", cfg.RootDirectory)
}

func TestLoadRuntimeConfig_EnvironmentOverridesDefaults(t *testing.T) {
	clearRuntimeEnv(t)
	require.NoError(t, os.Setenv("MINDROID_NODE_ID", "7"))
	require.NoError(t, os.Setenv("MINDROID_RUNTIME_CONFIGURATION", "/etc/mindroid/runtime.xml"))
	require.NoError(t, os.Setenv("MINDROID_ROOT_DIRECTORY", "/var/lib/mindroid"))

	cfg, err := LoadRuntimeConfig(1, "runtime.xml")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), cfg.NodeID)
	assert.Equal(t, "/etc/mindroid/runtime.xml", cfg.ConfigurationPath)
	assert.Equal(t, "/var/lib/mindroid", cfg.RootDirectory)
}

func TestLoadRuntimeConfig_RejectsZeroNodeID(t *testing.T) {
	clearRuntimeEnv(t)
	require.NoError(t, os.Setenv("MINDROID_NODE_ID", "0"))

	_, err := LoadRuntimeConfig(1, "runtime.xml")
	assert.Error(t, err)
}
