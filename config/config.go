// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package config parses the worker/listen/logging directives the core
// reads at startup, grounded on original_source/src/core/config_parser.c's
// field set but loaded from YAML via gopkg.in/yaml.v3 rather than the
// original's hand-rolled line parser.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the core-to-config contract record.
type Config struct {
	WorkerProcesses   int    `yaml:"worker_processes"`
	WorkerConnections int    `yaml:"worker_connections"`
	ListenPort        int    `yaml:"listen_port"`
	ErrorLog          string `yaml:"error_log"`
	AccessLog         string `yaml:"access_log"`
	DocumentRoot      string `yaml:"document_root"`
}

// Defaults matches config_parser.c's built-in defaults exactly.
func Defaults() Config {
	return Config{
		WorkerProcesses:   0,
		WorkerConnections: 1024,
		ListenPort:        8080,
		ErrorLog:          "stderr",
		AccessLog:         "stderr",
		DocumentRoot:      ".",
	}
}

// Load reads path as YAML over Defaults(): a field the document does not
// set keeps its default, and a field the document sets, even to zero,
// takes the document's value (WorkerProcesses=0 is the "auto" value).
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	overlay := cfg
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return overlay, nil
}
