package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Run scopes logging to one pipeline execution. Each stage logger writes to
// the console logger and to <dir>/<stage>.log in append mode.
type Run struct {
	ID string

	console *slog.Logger
	dir     string
	level   slog.Level

	mu    sync.Mutex
	files map[string]*os.File
}

// NewRun creates a run scope with a fresh run ID. An empty dir disables
// stage log files.
func NewRun(console *slog.Logger, dir string, level slog.Level) *Run {
	id := uuid.NewString()
	return &Run{
		ID:      id,
		console: console.With("run_id", id),
		dir:     dir,
		level:   level,
		files:   make(map[string]*os.File),
	}
}

// Logger returns the run-scoped console logger.
func (r *Run) Logger() *slog.Logger {
	return r.console
}

// Stage returns a logger for the named stage. If the stage log file cannot
// be opened the console logger is returned along with the error.
func (r *Run) Stage(name string) (*slog.Logger, error) {
	console := r.console.With("stage", name)
	if r.dir == "" {
		return console, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.files[name]
	if !ok {
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return console, fmt.Errorf("mkdir %s: %w", r.dir, err)
		}
		path := filepath.Join(r.dir, name+".log")
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return console, fmt.Errorf("open stage log %s: %w", path, err)
		}
		r.files[name] = f
	}

	file := slog.NewTextHandler(f, &slog.HandlerOptions{Level: r.level}).
		WithAttrs([]slog.Attr{slog.String("run_id", r.ID), slog.String("stage", name)})
	return slog.New(fanout{console.Handler(), file}), nil
}

// Close closes every stage log file opened by the run.
func (r *Run) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, f := range r.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s log: %w", name, err))
		}
		delete(r.files, name)
	}
	return errors.Join(errs...)
}
