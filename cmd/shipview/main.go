package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"ship-renderer/internal/config"
	"ship-renderer/internal/logger"

	"github.com/xlab/closer"
	"go.uber.org/zap"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults are used when empty)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shipview:", err)
		os.Exit(2)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shipview:", err)
		os.Exit(2)
	}
	closer.Bind(func() { log.Sync() })

	v, err := setup(cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		closer.Exit(1)
	}

	// A signal closes the window; teardown stays on the main thread.
	stopped := make(chan struct{})
	closer.Bind(func() {
		v.requestClose()
		<-stopped
	})

	runErr := v.Run()
	v.Release()
	close(stopped)
	if runErr != nil {
		log.Error("render loop failed", zap.Error(runErr))
		closer.Exit(1)
	}
	closer.Close()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
