// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadDirectives parses an nginx-style block file (worker_processes,
// worker_connections, listen, error_log, root inside http{}/server{}
// blocks) directly, preserving compatibility with the original
// proton.conf format alongside Load's YAML path. Semicolons terminate a
// directive's value and are stripped; blank lines and '#' comments are
// skipped.
func LoadDirectives(path string) (Config, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var inHTTP, inServer bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case line == "http {":
			inHTTP = true
			continue
		case line == "server {" && inHTTP:
			inServer = true
			continue
		case line == "}":
			if inServer {
				inServer = false
			} else if inHTTP {
				inHTTP = false
			}
			continue
		}

		directive, value, ok := splitDirective(line)
		if !ok {
			continue
		}

		switch directive {
		case "worker_processes":
			cfg.WorkerProcesses = parseIntDirective(value, cfg.WorkerProcesses)
		case "worker_connections":
			cfg.WorkerConnections = parseIntDirective(value, cfg.WorkerConnections)
		case "listen":
			if inServer {
				cfg.ListenPort = parseIntDirective(value, cfg.ListenPort)
			}
		case "error_log":
			cfg.ErrorLog = value
		case "access_log":
			cfg.AccessLog = value
		case "root":
			if inServer {
				cfg.DocumentRoot = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	return cfg, nil
}

func splitDirective(line string) (name, value string, ok bool) {
	sp := strings.IndexByte(line, ' ')
	if sp < 0 {
		return "", "", false
	}
	name = line[:sp]
	value = strings.TrimSpace(line[sp+1:])
	value = strings.TrimSuffix(value, ";")
	value = strings.TrimSpace(value)
	return name, value, true
}

func parseIntDirective(value string, fallback int) int {
	if value == "auto" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
