//go:build windows
// +build windows

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package worker

import "runtime"

// registerPlatformProbes adds Windows-specific debug probes. The worker
// itself only runs on Linux (see reactor_stub.go), and createListenSocket
// uses golang.org/x/sys/unix, so the worker package does not build on
// Windows with this file alone.
func registerPlatformProbes(d *debugProbes) {
	d.register("platform.cpus", func() any {
		return runtime.NumCPU()
	})
}
