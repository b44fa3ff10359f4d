// Command mindroidd is the Mindroid runtime process entrypoint: it loads
// its node configuration, starts the runtime registry and its configured
// transport plugins, and runs until terminated.
//
// Grounded on proxy/main.go's signal-driven run loop.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geoffjay/mindroid/config"
	mindroidlog "github.com/geoffjay/mindroid/log"
	"github.com/geoffjay/mindroid/runtime"
	log "github.com/sirupsen/logrus"
)

const (
	exitOK = iota
	exitConfigError
	exitStartError
)

func main() {
	os.Exit(run())
}

func run() int {
	rtConfig, err := config.LoadRuntimeConfig(1, "runtime.xml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "mindroidd: %v\n", err)
		return exitConfigError
	}

	mindroidlog.Initialize(config.LogConfig{
		Level:     os.Getenv("MINDROID_LOG_LEVEL"),
		Formatter: os.Getenv("MINDROID_LOG_FORMAT"),
	})

	rt, err := runtime.Start(rtConfig.NodeID, rtConfig.ConfigurationPath)
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Error("failed to start runtime")
		return exitStartError
	}

	log.WithFields(log.Fields{"nodeId": rt.NodeID()}).Info("mindroidd started")

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	<-termChan

	log.Debug("mindroidd received termination signal")

	if err := runtime.Shutdown(); err != nil {
		log.WithFields(log.Fields{"error": err}).Error("runtime shutdown reported an error")
	}

	log.Debug("mindroidd exiting")
	return exitOK
}
