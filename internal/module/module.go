// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package module implements the ordered request-handler chain: modules are
// declared in a fixed table and dispatched in declaration order, each
// returning Handled, Declined, or Error, grounded on
// original_source/src/modules/module.c.
package module

import (
	"github.com/momentics/protond/internal/httpcore"
	"github.com/momentics/protond/internal/logging"
)

// Result is a module handler's return code.
type Result int

const (
	Handled  Result = 0
	Declined Result = -1
	Error    Result = -2
)

// Conn is the subset of connection state a module handler needs: the
// parsed request and the response it may populate. Satisfied by
// *internal/conn.Conn.
type Conn interface {
	Request() *httpcore.Request
	Response() *httpcore.Response
}

// Module is a named handler with three lifecycle operations, matching the
// module-to-core dispatch contract.
type Module struct {
	Name    string
	Init    func(cfg any) error
	Handle  func(c Conn) Result
	Cleanup func()
}

// Chain is a fixed, ordered table of modules traversed on every request.
type Chain struct {
	modules []Module
	log     *logging.Logger
}

// NewChain builds a Chain from modules, in the given order.
func NewChain(log *logging.Logger, modules ...Module) *Chain {
	return &Chain{modules: modules, log: log}
}

// Init invokes each module's Init in table order. An init failure aborts
// startup.
func (c *Chain) Init(cfg any) error {
	for _, m := range c.modules {
		if m.Init == nil {
			continue
		}
		if err := m.Init(cfg); err != nil {
			return err
		}
		if c.log != nil {
			c.log.Infof("module loaded: %s", m.Name)
		}
	}
	return nil
}

// Dispatch walks the module table in order for one request:
//   - Handled stops further dispatch; the module has populated the
//     response.
//   - Declined tries the next module.
//   - Error stops dispatch, logs, and lets the core transmit whatever the
//     response currently holds (typically a 500).
//
// If every module declines, the core synthesizes a 404.
func (c *Chain) Dispatch(conn Conn) Result {
	for _, m := range c.modules {
		if m.Handle == nil {
			continue
		}
		switch r := m.Handle(conn); r {
		case Handled:
			return Handled
		case Error:
			if c.log != nil {
				c.log.Errorf("module %s returned error", m.Name)
			}
			return Error
		case Declined:
			continue
		}
	}

	res := conn.Response()
	res.SetStatus(404)
	res.Write([]byte("404 Not Found\n"))
	return Declined
}

// Cleanup invokes each module's Cleanup in table order, at worker shutdown.
func (c *Chain) Cleanup() {
	for _, m := range c.modules {
		if m.Cleanup == nil {
			continue
		}
		m.Cleanup()
		if c.log != nil {
			c.log.Infof("module cleaned up: %s", m.Name)
		}
	}
}
