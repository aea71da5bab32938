// Package logging provides component-tagged file logging for Veil. All
// components of one run append to a single run-scoped log file; if the log
// directory cannot be prepared, logging falls back to stderr rather than
// failing the caller.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	runID     string
	runIDOnce sync.Once

	dirMu  sync.Mutex
	logDir string
)

// RunID returns the identifier shared by all log entries of this process.
func RunID() string {
	runIDOnce.Do(func() {
		runID = uuid.New().String()
	})
	return runID
}

// SetDirectory selects the directory log files are written to. Call it once
// at startup, before creating loggers; the default is ~/.veil/logs.
func SetDirectory(dir string) {
	dirMu.Lock()
	defer dirMu.Unlock()
	logDir = dir
}

func directory() (string, error) {
	dirMu.Lock()
	defer dirMu.Unlock()
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("logging: resolve home directory: %w", err)
		}
		logDir = filepath.Join(home, ".veil", "logs")
	}
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return "", fmt.Errorf("logging: create log directory: %w", err)
	}
	return logDir, nil
}

// Logger writes timestamped, component-tagged entries. Safe for concurrent
// use.
type Logger struct {
	component string
	file      *os.File
	out       *log.Logger
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewLogger creates a logger for one component. Multiple components share
// the run's log file; entries carry the component tag. On failure it returns
// a stderr-backed logger together with the error so callers can keep going.
func NewLogger(component string) (*Logger, error) {
	dir, err := directory()
	if err != nil {
		return fallbackLogger(component, err), err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-veil.log", RunID()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		err = fmt.Errorf("logging: open log file: %w", err)
		return fallbackLogger(component, err), err
	}
	return &Logger{
		component: component,
		file:      file,
		out:       log.New(file, "", 0),
	}, nil
}

func fallbackLogger(component string, cause error) *Logger {
	out := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	out.Printf("file logging unavailable, using stderr: %v", cause)
	return &Logger{component: component, out: out}
}

func (l *Logger) emit(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	l.out.Printf("[%s] [%s] [%s] %s", ts, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.emit("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.emit("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.emit("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.emit("ERROR", format, v...) }

// Close closes the underlying file, if any. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
