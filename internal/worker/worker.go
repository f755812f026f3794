// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package worker implements the per-process event loop: bind a listening
// socket, register it with the reactor, accept connections in a loop on
// readability, and drive each accepted connection's state machine,
// grounded on original_source/src/core/worker.c.
package worker

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/protond/config"
	"github.com/momentics/protond/internal/conn"
	"github.com/momentics/protond/internal/logging"
	"github.com/momentics/protond/internal/module"
	"github.com/momentics/protond/reactor"
)

const listenBacklog = 128

// Worker owns one process's listening socket, reactor, and live
// connection set.
type Worker struct {
	cfg   config.Config
	chain *module.Chain
	log   *logging.Logger

	listenFD int
	r        reactor.Reactor

	conns    map[int]*conn.Conn
	accepted uint64
	quit     atomic.Bool

	metrics *connMetrics
	debug   *debugProbes
}

// New builds a Worker for cfg, dispatching accepted connections through
// chain.
func New(cfg config.Config, chain *module.Chain, log *logging.Logger) *Worker {
	w := &Worker{
		cfg:     cfg,
		chain:   chain,
		log:     log,
		conns:   make(map[int]*conn.Conn),
		metrics: newConnMetrics(),
		debug:   newDebugProbes(),
	}
	registerPlatformProbes(w.debug)
	w.debug.register("worker.connections", func() any { return len(w.conns) })
	w.debug.register("worker.pid", func() any { return os.Getpid() })
	return w
}

// handleReload logs the reload-intent signal. No configuration is swapped
// live; a full reload still requires restarting the worker, matching the
// supervisor's own respawn-on-death behavior.
func (w *Worker) handleReload() {
	if w.log != nil {
		w.log.Infof("hot reload signal received: document_root=%s (no live swap implemented)", w.cfg.DocumentRoot)
	}
}

// Metrics returns the worker's metrics registry, for a future stats
// endpoint or CLI introspection command.
func (w *Worker) Metrics() *connMetrics { return w.metrics }

// DebugProbes returns the worker's debug probe registry.
func (w *Worker) DebugProbes() *debugProbes { return w.debug }

// createListenSocket binds a non-blocking TCP listening socket on port
// with SO_REUSEADDR and SO_REUSEPORT set, so sibling workers can share the
// port without FD passing.
func createListenSocket(port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("worker: create socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("worker: SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("worker: SO_REUSEPORT: %w", err)
	}

	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("worker: bind port %d: %w", port, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("worker: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("worker: set non-blocking: %w", err)
	}

	return fd, nil
}

// Run binds the listening socket, registers it with a fresh reactor, and
// blocks in the event loop until a quit signal arrives.
func (w *Worker) Run() error {
	fd, err := createListenSocket(w.cfg.ListenPort)
	if err != nil {
		return err
	}
	w.listenFD = fd
	defer unix.Close(w.listenFD)

	r, err := reactor.New()
	if err != nil {
		return fmt.Errorf("worker: create reactor: %w", err)
	}
	w.r = r
	defer r.Close()

	listenHandle := &reactor.Handle{FD: w.listenFD, OnReadable: w.onAcceptable}
	if err := r.Register(listenHandle, reactor.Read); err != nil {
		return fmt.Errorf("worker: register listener: %w", err)
	}

	if w.log != nil {
		w.log.Infof("worker ready, listening on port %d (pid=%d)", w.cfg.ListenPort, os.Getpid())
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for !w.quit.Load() {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				w.handleReload()
			default:
				w.quit.Store(true)
			}
			continue
		default:
		}

		if _, err := r.Poll(1000); err != nil {
			if w.log != nil {
				w.log.Errorf("event processing error: %s", err)
			}
			break
		}
	}

	if w.log != nil {
		w.log.Infof("worker shutting down")
	}
	for _, c := range w.conns {
		c.Close()
	}
	return nil
}

// onAcceptable drains the listening socket's accept backlog, handing each
// new connection to the module chain via a fresh conn.Conn.
func (w *Worker) onAcceptable(h *reactor.Handle) {
	for {
		fd, _, err := unix.Accept(w.listenFD)
		if err != nil {
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
				return
			}
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			if w.log != nil {
				w.log.Errorf("accept failed: %s", err)
			}
			return
		}

		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(fd)
			continue
		}

		w.accepted++
		w.metrics.set("connections.accepted", w.accepted)
		w.metrics.set("connections.active", len(w.conns)+1)

		c := conn.New(fd, w.chain, w.log, w.forget)
		w.conns[fd] = c
		if err := c.Attach(w.r); err != nil {
			if w.log != nil {
				w.log.Errorf("attach connection fd=%d: %s", fd, err)
			}
			c.Close()
		}
	}
}

func (w *Worker) forget(c *conn.Conn) {
	delete(w.conns, c.FD())
	w.metrics.set("connections.active", len(w.conns))
}
