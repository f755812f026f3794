// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package supervisor implements the master process: it spawns one worker
// process per configured slot, reaps and respawns any that die, sends
// SIGTERM to every worker on shutdown, and logs reload requests without
// signalling the workers, grounded on
// original_source/src/core/master.c. Go has no fork(2): each worker is a
// re-exec of the supervisor's own binary with an environment variable
// marking the child as a worker, following the pattern demonstrated in
// graceful-restart examples that re-exec os.Args[0] with os/exec. Unlike
// that FD-handoff pattern, workers here need no inherited descriptor:
// each binds its own listening socket with SO_REUSEADDR+SO_REUSEPORT so
// the kernel fans out accept() across siblings.
package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/momentics/protond/config"
	"github.com/momentics/protond/internal/logging"
)

// WorkerEnvVar marks a re-exec'd process as a worker; WorkerSlotEnvVar
// carries its slot index. cmd/protond checks these at startup to decide
// whether to run as supervisor or worker.
const (
	WorkerEnvVar     = "PROTOND_WORKER"
	WorkerSlotEnvVar = "PROTOND_WORKER_SLOT"
)

// Supervisor owns the worker process table and the signal-driven main
// loop.
type Supervisor struct {
	cfg        config.Config
	configPath string
	log        *logging.Logger

	mu      sync.Mutex
	workers []*exec.Cmd // slot-indexed; nil means not currently running

	quit   atomic.Bool
	reload atomic.Bool

	reloadListeners reloadListeners
}

// New builds a Supervisor for cfg; each worker is a re-exec of the running
// binary with "-c configPath".
func New(cfg config.Config, configPath string, log *logging.Logger) *Supervisor {
	return &Supervisor{cfg: cfg, configPath: configPath, log: log}
}

// ConfigSnapshot returns the supervisor's current in-memory configuration
// view, for a future admin/status surface.
func (s *Supervisor) ConfigSnapshot() map[string]any {
	return map[string]any{
		"listen_port":        s.cfg.ListenPort,
		"worker_processes":   s.cfg.WorkerProcesses,
		"worker_connections": s.cfg.WorkerConnections,
		"document_root":      s.cfg.DocumentRoot,
	}
}

// OnReload registers fn to run with the configuration snapshot every time
// a SIGHUP reload tick is processed.
func (s *Supervisor) OnReload(fn func(map[string]any)) {
	s.reloadListeners.onReload(fn)
}

func workerCount(cfg config.Config) int {
	if cfg.WorkerProcesses > 0 {
		return cfg.WorkerProcesses
	}
	n := runtime.NumCPU()
	if n <= 0 {
		n = 1
	}
	return n
}

// Run spawns the configured worker slots and blocks in the supervisor's
// signal/reap loop until a quit signal arrives, then stops all workers and
// returns.
func (s *Supervisor) Run() error {
	n := workerCount(s.cfg)
	s.workers = make([]*exec.Cmd, n)

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("supervisor: resolve executable: %w", err)
	}

	if s.log != nil {
		s.log.Infof("master process started (pid=%d)", os.Getpid())
	}

	for i := 0; i < n; i++ {
		s.spawnWorker(exe, i)
	}

	if s.log != nil {
		s.log.Infof("protond is ready to handle connections on port %d", s.cfg.ListenPort)
	}

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGCHLD)
	signal.Ignore(syscall.SIGPIPE)
	defer signal.Stop(sigCh)

	for !s.quit.Load() {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				s.quit.Store(true)
			case syscall.SIGHUP:
				s.reload.Store(true)
			case syscall.SIGCHLD:
				// handled by the reap pass below
			}
		case <-time.After(time.Second):
		}

		if s.reload.Load() {
			s.reload.Store(false)
			if s.log != nil {
				s.log.Infof("received reload signal")
			}
			// Dispatch the current snapshot to any registered listener
			// (e.g. a future admin surface); the supervisor does not
			// re-parse configuration or respawn workers with new settings.
			s.reloadListeners.dispatch(s.ConfigSnapshot())
		}

		s.reapDeadWorkers(exe)
	}

	if s.log != nil {
		s.log.Infof("master process shutting down")
	}
	s.stopWorkers()
	return nil
}

func (s *Supervisor) spawnWorker(exe string, slot int) {
	cmd := exec.Command(exe, "-c", s.configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=1", WorkerEnvVar),
		fmt.Sprintf("%s=%d", WorkerSlotEnvVar, slot),
	)

	if err := cmd.Start(); err != nil {
		if s.log != nil {
			s.log.Errorf("failed to spawn worker %d: %s", slot, err)
		}
		return
	}

	s.mu.Lock()
	s.workers[slot] = cmd
	s.mu.Unlock()

	if s.log != nil {
		s.log.Infof("spawned worker %d (pid=%d)", slot, cmd.Process.Pid)
	}
}

// reapDeadWorkers waits (non-blocking per slot) for any worker that has
// exited and respawns it in the same slot, matching master.c's
// slot-stable respawn behavior.
func (s *Supervisor) reapDeadWorkers(exe string) {
	s.mu.Lock()
	snapshot := make([]*exec.Cmd, len(s.workers))
	copy(snapshot, s.workers)
	s.mu.Unlock()

	for slot, cmd := range snapshot {
		if cmd == nil {
			continue
		}

		var ws syscall.WaitStatus
		pid, err := syscall.Wait4(cmd.Process.Pid, &ws, syscall.WNOHANG, nil)
		if err != nil || pid == 0 {
			continue
		}

		if s.log != nil {
			s.log.Warnf("worker %d (pid=%d) died, respawning", slot, cmd.Process.Pid)
		}
		s.mu.Lock()
		s.workers[slot] = nil
		s.mu.Unlock()

		if s.quit.Load() {
			continue
		}
		s.spawnWorker(exe, slot)
	}
}

func (s *Supervisor) stopWorkers() {
	s.mu.Lock()
	snapshot := make([]*exec.Cmd, len(s.workers))
	copy(snapshot, s.workers)
	s.mu.Unlock()

	for slot, cmd := range snapshot {
		if cmd == nil {
			continue
		}
		if s.log != nil {
			s.log.Infof("stopping worker %d (pid=%d)", slot, cmd.Process.Pid)
		}
		_ = cmd.Process.Signal(syscall.SIGTERM)
	}
	for slot, cmd := range snapshot {
		if cmd == nil {
			continue
		}
		_ = cmd.Wait()
		if s.log != nil {
			s.log.Infof("worker %d exited", slot)
		}
	}
}

// IsWorker reports whether the current process was re-exec'd as a worker,
// and its slot index if so.
func IsWorker() (slot int, ok bool) {
	if os.Getenv(WorkerEnvVar) != "1" {
		return 0, false
	}
	fmt.Sscanf(os.Getenv(WorkerSlotEnvVar), "%d", &slot)
	return slot, true
}
