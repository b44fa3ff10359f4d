// Package config holds the typed configuration structures the runtime
// process loads at startup: logging, service identity, and (via
// runtime/discovery) the node topology.
package config

// LokiConfig addresses a Grafana Loki endpoint log entries are shipped to.
type LokiConfig struct {
	Address string
	Labels  map[string]string
}

// LogConfig configures the process-wide logrus logger. Level is one of
// logrus's level names ("trace".."panic"); Formatter is "text" or "json"
// and defaults to "text" when empty.
type LogConfig struct {
	Formatter string
	Level     string
	Loki      LokiConfig
}
