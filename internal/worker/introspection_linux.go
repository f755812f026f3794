//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package worker

import "runtime"

// registerPlatformProbes adds Linux-specific debug probes.
func registerPlatformProbes(d *debugProbes) {
	d.register("platform.cpus", func() any {
		return runtime.NumCPU()
	})
}
