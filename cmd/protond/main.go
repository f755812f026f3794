// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Command protond is a multi-process, reactor-based HTTP/1.x origin
// server, grounded on original_source/src/core/proton.c's CLI surface and
// startup sequence.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/momentics/protond/config"
	"github.com/momentics/protond/internal/logging"
	"github.com/momentics/protond/internal/module"
	"github.com/momentics/protond/internal/module/static"
	"github.com/momentics/protond/internal/supervisor"
	"github.com/momentics/protond/internal/worker"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "protond v%s\n", version)
	fmt.Fprintf(os.Stderr, "Usage: %s [-c config_file]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  -c config_file  Specify configuration file (default proton.conf)\n")
	fmt.Fprintf(os.Stderr, "  -h              Show this help message\n")
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("protond", flag.ContinueOnError)
	fs.Usage = usage
	configPath := fs.String("c", "proton.conf", "configuration file path")
	help := fs.Bool("h", false, "show usage")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}
	if *help {
		usage()
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "protond: %s\n", err)
		return 1
	}

	log, err := logging.New(cfg.ErrorLog, logging.Info)
	if err != nil {
		fmt.Fprintf(os.Stderr, "protond: %s\n", err)
		return 1
	}
	defer log.Close()

	log.Infof("protond v%s starting (pid=%d)", version, os.Getpid())
	log.Infof("configuration file: %s", *configPath)

	if slot, isWorker := supervisor.IsWorker(); isWorker {
		log.Infof("worker %d started (pid=%d)", slot, os.Getpid())
		return runWorker(cfg, log)
	}

	return runSupervisor(cfg, *configPath, log)
}

// loadConfig tries the YAML loader first; any document that is not valid
// YAML but does exist falls back to the nginx-style directive parser, so
// either a protond.yaml or a legacy proton.conf resolves.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return config.Config{}, err
	}
	return config.LoadDirectives(path)
}

func runSupervisor(cfg config.Config, configPath string, log *logging.Logger) int {
	sup := supervisor.New(cfg, configPath, log)
	if err := sup.Run(); err != nil {
		log.Errorf("supervisor: %s", err)
		return 1
	}
	log.Infof("protond shutting down")
	return 0
}

func runWorker(cfg config.Config, log *logging.Logger) int {
	chain, err := buildModuleChain(cfg, log)
	if err != nil {
		log.Errorf("failed to initialize modules: %s", err)
		return 1
	}
	defer chain.Cleanup()

	w := worker.New(cfg, chain, log)
	if err := w.Run(); err != nil {
		log.Errorf("worker: %s", err)
		return 1
	}
	return 0
}

func buildModuleChain(cfg config.Config, log *logging.Logger) (*module.Chain, error) {
	staticHandler, err := static.New(cfg.DocumentRoot, log)
	if err != nil {
		return nil, fmt.Errorf("static module: %w", err)
	}

	chain := module.NewChain(log, staticHandler.Module())
	if err := chain.Init(cfg); err != nil {
		return nil, err
	}
	return chain, nil
}
