package config

import (
	"fmt"
	"strconv"

	"github.com/geoffjay/mindroid/util"
)

// RuntimeConfig is the process-level configuration mindroidd reads at
// startup: which node it is, where its topology file lives, and where it
// should resolve relative paths from.
//
// Grounded on core/util.Getenv(key, fallback), used throughout the pack for
// exactly this kind of process-environment configuration.
type RuntimeConfig struct {
	NodeID            uint32
	ConfigurationPath string
	RootDirectory     string
}

// LoadRuntimeConfig reads MINDROID_NODE_ID, MINDROID_RUNTIME_CONFIGURATION
// and MINDROID_ROOT_DIRECTORY, falling back to defaultNodeID and
// defaultConfigurationPath when unset.
func LoadRuntimeConfig(defaultNodeID uint32, defaultConfigurationPath string) (*RuntimeConfig, error) {
	nodeIDStr := util.Getenv("MINDROID_NODE_ID", strconv.FormatUint(uint64(defaultNodeID), 10))
	nodeID, err := strconv.ParseUint(nodeIDStr, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("config: invalid MINDROID_NODE_ID %q: %w", nodeIDStr, err)
	}

	cfg := &RuntimeConfig{
		NodeID:            uint32(nodeID),
		ConfigurationPath: util.Getenv("MINDROID_RUNTIME_CONFIGURATION", defaultConfigurationPath),
		RootDirectory:     util.Getenv("MINDROID_ROOT_DIRECTORY", "."),
	}

	if cfg.NodeID == 0 {
		return nil, fmt.Errorf("config: node id must be nonzero")
	}
	if cfg.ConfigurationPath == "" {
		return nil, fmt.Errorf("config: runtime configuration path must not be empty")
	}

	return cfg, nil
}
