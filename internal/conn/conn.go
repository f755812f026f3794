// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package conn implements the per-connection state machine: NEW -> READING
// -> DISPATCHING -> RESPONDING -> (READING | CLOSED), grounded on
// original_source/src/core/worker.c's accept/read/parse/dispatch/write loop
// combined with the arena-per-request lifecycle of
// MiraiMindz-watt/shockwave's server_arena.go.
package conn

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/protond/internal/arena"
	"github.com/momentics/protond/internal/buffer"
	"github.com/momentics/protond/internal/errs"
	"github.com/momentics/protond/internal/httpcore"
	"github.com/momentics/protond/internal/logging"
	"github.com/momentics/protond/internal/module"
	"github.com/momentics/protond/reactor"
)

// State is one of the five connection lifecycle states.
type State int

const (
	StateNew State = iota
	StateReading
	StateDispatching
	StateResponding
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateReading:
		return "READING"
	case StateDispatching:
		return "DISPATCHING"
	case StateResponding:
		return "RESPONDING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

const defaultArenaSize = 8192

// Conn is one accepted connection: its descriptor, buffers, current
// request/response, and keep-alive disposition. It implements
// module.Conn.
type Conn struct {
	fd    int
	state State

	readBuf  *buffer.Buffer
	writeBuf *buffer.Buffer
	a        *arena.Arena

	req *httpcore.Request
	res *httpcore.Response

	keepAlive bool

	handle *reactor.Handle
	r      reactor.Reactor
	chain  *module.Chain
	log    *logging.Logger

	onClose func(*Conn)
}

// New wraps fd (already accepted and set non-blocking) in a fresh
// connection in state NEW.
func New(fd int, chain *module.Chain, log *logging.Logger, onClose func(*Conn)) *Conn {
	return &Conn{
		fd:        fd,
		state:     StateNew,
		readBuf:   buffer.New(buffer.DefaultCapacity),
		writeBuf:  buffer.New(buffer.DefaultCapacity),
		a:         arena.New(defaultArenaSize),
		keepAlive: true,
		chain:     chain,
		log:       log,
		onClose:   onClose,
	}
}

// Request implements module.Conn.
func (c *Conn) Request() *httpcore.Request { return c.req }

// Response implements module.Conn.
func (c *Conn) Response() *httpcore.Response { return c.res }

// State reports the connection's current lifecycle state.
func (c *Conn) State() State { return c.state }

// FD returns the connection's underlying file descriptor.
func (c *Conn) FD() int { return c.fd }

// Attach registers the connection's descriptor with the reactor, wiring
// OnReadable to the read-parse-dispatch loop. Called once after New.
func (c *Conn) Attach(r reactor.Reactor) error {
	c.r = r
	c.handle = &reactor.Handle{FD: c.fd, OnReadable: c.onReadable, OnWritable: c.onWritable}
	c.state = StateReading
	return r.Register(c.handle, reactor.Read)
}

// onReadable drains the descriptor into readBuf, attempts to parse a
// complete request, and dispatches it through the module chain. Partial
// reads leave the connection in READING awaiting the next readiness event.
func (c *Conn) onReadable(h *reactor.Handle) {
	for {
		chunk := make([]byte, 4096)
		n, err := unix.Read(c.fd, chunk)
		if n > 0 {
			if appendErr := c.readBuf.Append(chunk[:n]); appendErr != nil {
				if c.log != nil {
					c.log.Errorf("connection fd=%d: %s", c.fd, errs.New(errs.CodeResourceExhausted, appendErr.Error()))
				}
				c.Close()
				return
			}
		}
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
				break
			}
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			c.Close()
			return
		}
		if n == 0 {
			c.Close()
			return
		}
		if n < len(chunk) {
			break
		}
	}

	c.tryParse()
}

func (c *Conn) tryParse() {
	if c.req == nil {
		c.req = &httpcore.Request{}
	}

	status, err := httpcore.Parse(c.readBuf.Bytes(), c.req, c.a)
	if err != nil {
		c.respondAndClose(400, "Bad Request\n")
		return
	}
	if status == httpcore.NeedMore {
		return
	}

	if err := httpcore.TryExtractBody(c.readBuf.Bytes(), c.req, c.a); err != nil {
		c.respondAndClose(400, "Bad Request\n")
		return
	}

	c.keepAlive = computeKeepAlive(c.req)
	c.state = StateDispatching
	c.dispatch()
}

// computeKeepAlive applies the HTTP/1.0 default-close rule: HTTP/1.1
// connections default to keep-alive unless Connection: close is present;
// HTTP/1.0 connections default to close unless Connection: keep-alive is
// present.
func computeKeepAlive(req *httpcore.Request) bool {
	if req.Version == httpcore.Version10 {
		return req.HeaderHasToken("Connection", "keep-alive")
	}
	return !req.HeaderHasToken("Connection", "close")
}

func (c *Conn) dispatch() {
	c.res = httpcore.NewResponse()

	if c.chain != nil {
		c.chain.Dispatch(c)
	} else {
		c.res.SetStatus(404)
		c.res.Write([]byte("404 Not Found\n"))
	}

	c.state = StateResponding
	c.beginWrite()
}

func (c *Conn) respondAndClose(status int, body string) {
	c.res = httpcore.NewResponse()
	c.res.SetStatus(status)
	c.res.Write([]byte(body))
	c.keepAlive = false
	c.state = StateResponding
	c.beginWrite()
}

func (c *Conn) beginWrite() {
	c.writeBuf.Reset()
	if err := c.res.Serialize(c.writeBuf); err != nil {
		c.Close()
		return
	}
	c.flush()
}

// onWritable resumes a partially-written response after EAGAIN.
func (c *Conn) onWritable(h *reactor.Handle) {
	c.flush()
}

func (c *Conn) flush() {
	for c.writeBuf.Len() > 0 {
		n, err := unix.Write(c.fd, c.writeBuf.Bytes())
		if n > 0 {
			c.writeBuf.Discard(n)
		}
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
				if c.r != nil {
					_ = c.r.Register(c.handle, reactor.Read|reactor.Write)
				}
				return
			}
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			c.Close()
			return
		}
		if n == 0 {
			return
		}
	}

	if c.r != nil && c.handle.Mask&reactor.Write != 0 {
		_ = c.r.Register(c.handle, reactor.Read)
	}

	if c.keepAlive {
		c.resetForNextRequest()
	} else {
		c.Close()
	}
}

// resetForNextRequest transitions RESPONDING -> READING, discarding the
// consumed request bytes and releasing the request's arena. A fresh arena
// backs the next request on this connection.
func (c *Conn) resetForNextRequest() {
	headerEnd := httpcore.HeaderBlockEnd(c.readBuf.Bytes())
	consumed := headerEnd
	if c.req != nil && c.req.HasBody {
		consumed += c.req.BodyLen
	}
	if consumed > 0 && consumed <= c.readBuf.Len() {
		c.readBuf.Discard(consumed)
	} else {
		c.readBuf.Reset()
	}

	c.a.Destroy()
	c.a = arena.New(defaultArenaSize)
	c.req = nil
	c.res = nil
	c.state = StateReading
}

// Close releases the connection's resources and closes its descriptor.
// Safe to call more than once.
func (c *Conn) Close() {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed

	if c.r != nil {
		c.r.Deregister(c.handle)
	}
	c.a.Destroy()
	unix.Close(c.fd)

	if c.onClose != nil {
		c.onClose(c)
	}
}
