// Package watch turns filesystem changes under a directory tree into triggers.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherClosed is returned by Run once the watcher has been closed.
var ErrWatcherClosed = errors.New("watcher is closed")

// Triggerer receives a notification for every relevant change.
// It must not block; task.Worker satisfies it.
type Triggerer interface {
	Trigger()
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithIgnore skips events for paths the predicate matches. Matching
// directories are not watched at all.
func WithIgnore(ignore func(path string) bool) Option {
	return func(w *Watcher) {
		if ignore != nil {
			w.ignore = ignore
		}
	}
}

// Watcher forwards fsnotify events for a directory tree to a Triggerer.
// There is no debouncing: bursts are expected to be absorbed by the receiver.
type Watcher struct {
	root    string
	target  Triggerer
	ignore  func(path string) bool
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	closeMu sync.Once
	closed  chan struct{}
}

// New creates a Watcher for root and registers root and all of its
// subdirectories before returning.
func New(root string, target Triggerer, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if target == nil {
		return nil, errors.New("watch target cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:   abs,
		target: target,
		ignore: func(string) bool { return false },
		fsw:    fsw,
		logger: logger.With("component", "watcher", "root", abs),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addRecursive(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Run forwards events until ctx is done or the watcher is closed.
// It returns nil when ctx ends and ErrWatcherClosed after Close.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching for changes", "directories", len(w.fsw.WatchList()))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			return nil

		case <-w.closed:
			return ErrWatcherClosed

		case event, ok := <-w.fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.logger.Warn("filesystem watch error", "error", err)
		}
	}
}

// Close stops the watcher and releases its resources. It is idempotent.
func (w *Watcher) Close() error {
	var err error
	w.closeMu.Do(func() {
		close(w.closed)
		err = w.fsw.Close()
	})
	return err
}

// Watched returns the directories currently registered.
func (w *Watcher) Watched() []string {
	return w.fsw.WatchList()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.ignore(event.Name) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
	w.target.Trigger()
}

// addRecursive registers dir and its subdirectories. Only a failure on dir
// itself is reported; nested failures are logged and skipped.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to walk %s: %w", path, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignore(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
