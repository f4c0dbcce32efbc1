// Package watch follows one diagram file on disk and forwards its content
// whenever it changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SettleDelay is how long the file must stay quiet before it is read, so
// a truncate-then-write save is seen once, complete.
const SettleDelay = 50 * time.Millisecond

// Sink receives the full file content after each change.
type Sink func(source string)

// Watcher follows a single file. The parent directory is watched so that
// editors that save by rename-and-replace are still seen.
type Watcher struct {
	path string
	sink Sink
	log  *slog.Logger
	fs   *fsnotify.Watcher

	last    string
	hasLast bool
}

// New creates a Watcher for path. Nothing is read until Run.
func New(path string, sink Sink, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path: abs,
		sink: sink,
		log:  logger.With("component", "watch", "path", abs),
		fs:   fs,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run delivers the current content, then every change, until ctx ends or
// the watcher is closed. A missing file is not an error; it is picked up
// once it is created.
func (w *Watcher) Run(ctx context.Context) error {
	w.load()

	var settle *time.Timer
	var fire <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-fire:
			fire = nil
			w.load()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if settle == nil {
					settle = time.NewTimer(SettleDelay)
				} else {
					settle.Reset(SettleDelay)
				}
				fire = settle.C
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.log.Debug("file went away, waiting for it to return")
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// load reads the file and forwards it when it differs from the last
// delivered content.
func (w *Watcher) load() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn("reading file", "error", err)
		}
		return
	}
	src := string(data)
	if w.hasLast && src == w.last {
		return
	}
	w.last, w.hasLast = src, true
	w.log.Debug("file changed", "bytes", len(data))
	w.sink(src)
}

// Close stops watching. Run returns once its event channel closes.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
