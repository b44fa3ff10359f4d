package mindroidplugin

import (
	"errors"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// PluginConfig holds the tuning knobs for a mindroidplugin.Plugin instance.
//
// Grounded on core/mdp/config.go's Config/DefaultConfig, renamed to the
// binder-transaction domain: the MDP broker's heartbeat/reconnect/timeout
// triad becomes a client connection's connect-timeout/reconnect/
// transact-timeout triad, and InstanceID plays the role the pack's
// identity/state services give a google/uuid-minted id.
//
// The Plugin reads ConnectTimeout (the outbound dial timeout) and
// WriteQueueSize (each connection's write queue). ReconnectInterval,
// TransactTimeout and MaxRetries are decoded but not applied: outbound
// transactions carry no timeout, are not retried, and a closed client
// connection is only dialled again by the next Transact to that node.
type PluginConfig struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout" default:"5000ms"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval" mapstructure:"reconnect_interval" default:"2500ms"`
	TransactTimeout   time.Duration `yaml:"transact_timeout" mapstructure:"transact_timeout" default:"5000ms"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries" default:"3"`
	WriteQueueSize    int           `yaml:"write_queue_size" mapstructure:"write_queue_size" default:"64"`
	InstanceID        string        `yaml:"-"`
}

// DefaultPluginConfig returns a PluginConfig with the same defaults
// core/mdp/config.go's DefaultConfig applies to its MDP counterparts, plus a
// freshly minted InstanceID.
func DefaultPluginConfig() PluginConfig {
	return PluginConfig{
		ConnectTimeout:    5000 * time.Millisecond,
		ReconnectInterval: 2500 * time.Millisecond,
		TransactTimeout:   5000 * time.Millisecond,
		MaxRetries:        3,
		WriteQueueSize:    64,
		InstanceID:        uuid.NewString(),
	}
}

// LoadPluginConfig starts from DefaultPluginConfig and, if data is non-nil,
// layers a YAML document over it the way core/mdp's LoadConfig layers a file
// over its struct defaults.
func LoadPluginConfig(data []byte) (PluginConfig, error) {
	cfg := DefaultPluginConfig()
	if data == nil {
		return cfg, nil
	}
	instanceID := cfg.InstanceID
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return PluginConfig{}, err
	}
	cfg.InstanceID = instanceID
	return cfg, nil
}

// LoadPluginConfigFromFile layers an optional YAML file at path and
// MINDROIDPLUGIN_-prefixed environment variables over DefaultPluginConfig,
// the way core/config (via the teacher's broker/app services) layers viper
// over struct defaults. A missing file is not an error — defaults apply.
func LoadPluginConfigFromFile(path string) (PluginConfig, error) {
	cfg := DefaultPluginConfig()

	v := viper.New()
	v.SetEnvPrefix("mindroidplugin")
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("connect_timeout", cfg.ConnectTimeout)
	v.SetDefault("reconnect_interval", cfg.ReconnectInterval)
	v.SetDefault("transact_timeout", cfg.TransactTimeout)
	v.SetDefault("max_retries", cfg.MaxRetries)
	v.SetDefault("write_queue_size", cfg.WriteQueueSize)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
			return PluginConfig{}, err
		}
	}

	instanceID := cfg.InstanceID
	if err := v.Unmarshal(&cfg); err != nil {
		return PluginConfig{}, err
	}
	cfg.InstanceID = instanceID
	return cfg, nil
}
