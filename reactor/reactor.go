// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the core readiness-notification event loop
// abstraction and its platform-specific implementations (epoll on Linux).
// A Reactor binds a file descriptor to a pair of handler callbacks and
// dispatches them as the kernel reports the descriptor readable, writable,
// or in error.
package reactor

import "errors"

// ErrPlatformUnsupported is returned by New on platforms without a
// readiness-notification backend.
var ErrPlatformUnsupported = errors.New("reactor: this platform is not supported")

// Mask is a bitset of interest/readiness flags.
type Mask uint8

const (
	Read Mask = 1 << iota
	Write
	Error
	Close
)

// HandlerFunc is invoked by the reactor when a Handle's descriptor becomes
// ready for the corresponding interest.
type HandlerFunc func(h *Handle)

// Handle is a reactor registration: a descriptor, its current interest
// mask, and the handler pair the reactor dispatches into. The reactor
// holds only a non-owning reference to the Handle's owner via UserData;
// the caller is responsible for the Handle's lifetime.
type Handle struct {
	FD         int
	Mask       Mask
	OnReadable HandlerFunc
	OnWritable HandlerFunc
	UserData   any

	registered bool
}

// Reactor registers descriptors, waits for readiness, and dispatches to
// handlers. Implementations are single-threaded: all methods are expected
// to be called from the one goroutine that owns the worker's event loop.
type Reactor interface {
	// Register adds h to the interest set, or updates its mask in place
	// if h is already registered. A descriptor is registered at most once.
	Register(h *Handle, mask Mask) error

	// Deregister removes h's descriptor from the interest set. Safe to
	// call from within a handler invoked by Poll.
	Deregister(h *Handle) error

	// Poll blocks up to timeoutMs for readiness and dispatches handlers
	// for every ready descriptor. Returns the number of descriptors
	// dispatched. An interrupted wait returns (0, nil), not an error.
	Poll(timeoutMs int) (int, error)

	// Close releases all kernel resources held by the reactor.
	Close() error
}

// New constructs the platform-specific Reactor implementation.
func New() (Reactor, error) {
	return newPlatformReactor()
}
