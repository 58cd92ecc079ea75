package configwatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invokes callbacks when watched files are written or replaced.
// It watches each file's directory, so files may be created after Watch
// and editors that save by rename are handled.
type Watcher struct {
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string][]func(path string)
	timers  map[string]*time.Timer
}

// New creates a Watcher. Bursts of events for one file within debounce are
// reported once.
func New(debounce time.Duration, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		debounce: debounce,
		logger:   logger,
		entries:  make(map[string][]func(string)),
		timers:   make(map[string]*time.Timer),
	}
}

// Watch registers cb for path. Call it before Run. The file does not need
// to exist at watch time.
func (w *Watcher) Watch(path string, cb func(path string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[abs] = append(w.entries[abs], cb)
	return nil
}

// Run watches until the context is cancelled. It blocks, so call it in a
// goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	w.mu.Lock()
	dirs := make(map[string]bool)
	for path := range w.entries {
		dirs[filepath.Dir(path)] = true
	}
	w.mu.Unlock()

	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.entries[path]; !ok {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	cbs := append([]func(string){}, w.entries[path]...)
	w.mu.Unlock()

	// Skip if the file is gone (renamed away or mid-save).
	if _, err := os.Stat(path); err != nil {
		return
	}

	w.logger.Info("config file changed", "path", path)
	for _, cb := range cbs {
		cb(path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
