// Package log configures the process-wide logrus logger: level, formatter,
// and an optional Loki shipping hook.
//
// Grounded on proxy/main.go's initLogging, generalized into a function the
// runtime and every plugin share instead of each binary repeating it.
package log

import (
	"github.com/geoffjay/mindroid/config"
	log "github.com/sirupsen/logrus"
	loki "github.com/yukitsune/lokirus"
)

// Initialize applies cfg to the standard logrus logger: level (ignored if
// unparseable, leaving the current level in place), formatter ("json" or
// anything else, which defaults to text), and a Loki hook for the Info,
// Warn, Error and Fatal levels (not Panic) when cfg.Loki.Address is set.
func Initialize(cfg config.LogConfig) {
	if cfg.Level != "" {
		if level, err := log.ParseLevel(cfg.Level); err == nil {
			log.SetLevel(level)
		}
	}

	if cfg.Formatter == "json" {
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if cfg.Loki.Address == "" {
		return
	}

	opts := loki.NewLokiHookOptions().WithLevelMap(
		loki.LevelMap{log.PanicLevel: "critical"},
	).WithFormatter(
		&log.JSONFormatter{},
	).WithStaticLabels(
		loki.Labels(cfg.Loki.Labels),
	)

	hook := loki.NewLokiHookWithOpts(
		cfg.Loki.Address,
		opts,
		log.InfoLevel,
		log.WarnLevel,
		log.ErrorLevel,
		log.FatalLevel,
	)

	log.AddHook(hook)
}
