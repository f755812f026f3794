//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll(7) implementation.

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// epollReactor implements Reactor using Linux epoll with edge-triggered
// notification, minimizing wakeups per spec.
type epollReactor struct {
	epfd int

	mu      sync.Mutex
	handles map[int]*Handle
}

func newPlatformReactor() (Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{
		epfd:    epfd,
		handles: make(map[int]*Handle),
	}, nil
}

func epollEvents(mask Mask) uint32 {
	var ev uint32 = unix.EPOLLET
	if mask&Read != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&Write != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register adds h to the epoll interest set, or updates its mask with
// EPOLL_CTL_MOD if the descriptor is already registered.
func (r *epollReactor) Register(h *Handle, mask Mask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	h.Mask = mask
	ev := unix.EpollEvent{
		Events: epollEvents(mask),
		Fd:     int32(h.FD),
	}

	op := unix.EPOLL_CTL_ADD
	if h.registered {
		op = unix.EPOLL_CTL_MOD
	}
	if err := unix.EpollCtl(r.epfd, op, h.FD, &ev); err != nil {
		return fmt.Errorf("epoll ctl: %w", err)
	}
	h.registered = true
	r.handles[h.FD] = h
	return nil
}

// Deregister removes h's descriptor from the interest set.
func (r *epollReactor) Deregister(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !h.registered {
		return nil
	}
	delete(r.handles, h.FD)
	h.registered = false
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, h.FD, nil); err != nil {
		return fmt.Errorf("epoll ctl del: %w", err)
	}
	return nil
}

// Poll blocks up to timeoutMs for readiness and dispatches handlers in a
// fixed order: readable, then writable, then error.
func (r *epollReactor) Poll(timeoutMs int) (int, error) {
	const maxEvents = 128
	var raw [maxEvents]unix.EpollEvent

	n, err := unix.EpollWait(r.epfd, raw[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("epoll wait: %w", err)
	}

	dispatched := 0
	for i := 0; i < n; i++ {
		fd := int(raw[i].Fd)

		r.mu.Lock()
		h, ok := r.handles[fd]
		r.mu.Unlock()
		if !ok {
			continue
		}

		readable := raw[i].Events&unix.EPOLLIN != 0
		writable := raw[i].Events&unix.EPOLLOUT != 0
		errored := raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0

		if readable && h.OnReadable != nil {
			h.OnReadable(h)
		}
		if writable && h.OnWritable != nil {
			// The descriptor may have been deregistered by OnReadable
			// (e.g. connection closed on EOF); guard against dispatching
			// into a stale handle.
			if r.isRegistered(fd) {
				h.OnWritable(h)
			}
		}
		if errored && h.OnReadable != nil && r.isRegistered(fd) {
			h.OnReadable(h)
		}
		dispatched++
	}

	return dispatched, nil
}

func (r *epollReactor) isRegistered(fd int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[fd]
	return ok
}

// Close releases the epoll file descriptor.
func (r *epollReactor) Close() error {
	return unix.Close(r.epfd)
}
