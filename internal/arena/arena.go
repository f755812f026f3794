// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package arena implements a bump-style region allocator tied to the
// lifetime of a single in-flight HTTP request. Allocations are 8-byte
// aligned and never move; the whole chain is released at once when the
// request (or the connection holding it) completes.
package arena

import (
	"fmt"
	"unsafe"
)

// DefaultBlockSize is used when New is called with size <= 0.
const DefaultBlockSize = 4096

// block is one fixed-capacity allocation unit in the arena's chain.
type block struct {
	data []byte
	used int
	next *block
}

// Arena is a singly-linked list of blocks. It has exactly two operations:
// Allocate and Destroy.
type Arena struct {
	blockSize int
	head      *block
}

// New creates an Arena whose blocks default to size bytes (DefaultBlockSize
// if size <= 0).
func New(size int) *Arena {
	if size <= 0 {
		size = DefaultBlockSize
	}
	return &Arena{blockSize: size}
}

func align8(n int) int {
	return (n + 7) &^ 7
}

// Allocate returns a zeroed, 8-byte-aligned slice of length n. It bumps the
// head block's cursor if there is room, otherwise links a new block of
// max(n, blockSize) bytes ahead of the head and serves from it. Returns an
// error (propagating as a request-level failure) only if n is negative; a
// failed block allocation is not reported as an error.
func (a *Arena) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("arena: negative allocation size %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	aligned := align8(n)

	if a.head != nil && a.head.used+aligned <= len(a.head.data) {
		b := a.head
		out := b.data[b.used : b.used+n : b.used+aligned]
		b.used += aligned
		return out, nil
	}

	size := a.blockSize
	if aligned > size {
		size = aligned
	}
	nb := &block{data: make([]byte, size), next: a.head}
	a.head = nb
	nb.used = aligned
	return nb.data[0:n:aligned], nil
}

// AllocateString copies s into a fresh arena allocation and returns it as a
// string backed by arena memory.
func (a *Arena) AllocateString(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	buf, err := a.Allocate(len(s))
	if err != nil {
		return "", err
	}
	copy(buf, s)
	return unsafe.String(&buf[0], len(buf)), nil
}

// Destroy releases every block in the chain. The Arena is left usable
// (equivalent to a freshly New'd arena) but all previously returned slices
// must not be dereferenced afterward.
func (a *Arena) Destroy() {
	a.head = nil
}
