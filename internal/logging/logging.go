// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package logging implements a leveled, structured line logger, grounded on
// original_source/src/core/log.c, built on stdlib io/fmt/sync rather than a
// third-party logging library.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is one of the four severities the core contract defines.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a leveled sink guarded by a mutex so the supervisor and a
// worker's connection handlers can share one process-wide instance safely
// (within one process; workers never share a Logger across the fork
// boundary).
type Logger struct {
	mu    sync.Mutex
	out   io.Writer
	min   Level
	pid   int
	close func() error
}

// New opens filename ("stderr" or empty falls back to os.Stderr) at the
// given minimum level, matching proton_log_init's contract.
func New(filename string, min Level) (*Logger, error) {
	l := &Logger{out: os.Stderr, min: min, pid: os.Getpid()}
	if filename == "" || filename == "stderr" {
		return l, nil
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", filename, err)
	}
	l.out = f
	l.close = f.Close
	return l, nil
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.out, "[%s] [%s] [%d] %s\n", ts, level, l.pid, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.log(Debug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(Info, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(Warn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(Error, format, args...) }

// Close flushes and closes the sink if it owns a file handle.
func (l *Logger) Close() error {
	if l.close != nil {
		return l.close()
	}
	return nil
}
