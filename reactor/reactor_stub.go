//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for platforms without an epoll-class readiness API.
// The worker runtime requires non-blocking accept plus edge-triggered
// readiness; ports to other platforms belong in a sibling file implementing
// newPlatformReactor, not in this core.

package reactor

func newPlatformReactor() (Reactor, error) {
	return nil, ErrPlatformUnsupported
}
