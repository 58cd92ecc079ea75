package configwatch_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jdelaire/openbot/core/configwatch"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, path string, called *atomic.Int32) context.CancelFunc {
	t.Helper()
	w := configwatch.New(50*time.Millisecond, testLogger())
	if err := w.Watch(path, func(_ string) { called.Add(1) }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	// Let Run register the directory.
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func waitCalled(t *testing.T, called *atomic.Int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for called.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for change callback")
		default:
			time.Sleep(20 * time.Millisecond)
		}
	}
}

func TestWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("v: 1\n"), 0644)

	var called atomic.Int32
	cancel := startWatcher(t, path, &called)
	defer cancel()

	os.WriteFile(path, []byte("v: 2\n"), 0644)
	waitCalled(t, &called)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("v: 1\n"), 0644)

	var called atomic.Int32
	cancel := startWatcher(t, path, &called)
	defer cancel()

	for i := 0; i < 5; i++ {
		os.WriteFile(path, []byte("v: 2\n"), 0644)
	}
	waitCalled(t, &called)
	time.Sleep(250 * time.Millisecond)
	if n := called.Load(); n != 1 {
		t.Errorf("callback fired %d times for one burst, want 1", n)
	}
}

func TestWatcherNoCallbackWithoutChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("v: 1\n"), 0644)

	var called atomic.Int32
	cancel := startWatcher(t, path, &called)
	time.Sleep(200 * time.Millisecond)
	cancel()

	if called.Load() != 0 {
		t.Errorf("callback fired %d times without file change", called.Load())
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("v: 1\n"), 0644)

	var called atomic.Int32
	cancel := startWatcher(t, path, &called)
	defer cancel()

	os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0644)
	time.Sleep(200 * time.Millisecond)
	if called.Load() != 0 {
		t.Errorf("callback fired %d times for unrelated file", called.Load())
	}
}

func TestWatcherHandlesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("v: 1\n"), 0644)

	var called atomic.Int32
	cancel := startWatcher(t, path, &called)
	defer cancel()

	os.Remove(path)

	// Should not panic or fire callback for deletion.
	time.Sleep(200 * time.Millisecond)
	if called.Load() != 0 {
		t.Errorf("callback fired %d times for deleted file", called.Load())
	}
}

func TestWatcherHandlesNonExistentFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.yaml")

	var called atomic.Int32
	cancel := startWatcher(t, path, &called)
	defer cancel()

	os.WriteFile(path, []byte("v: 1\n"), 0644)
	waitCalled(t, &called)
}

func TestWatcherHandlesRenameIntoPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("v: 1\n"), 0644)

	var called atomic.Int32
	cancel := startWatcher(t, path, &called)
	defer cancel()

	tmp := filepath.Join(dir, "config.yaml.tmp")
	os.WriteFile(tmp, []byte("v: 2\n"), 0644)
	os.Rename(tmp, path)
	waitCalled(t, &called)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	w := configwatch.New(50*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
		// Run exited cleanly.
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after context cancel")
	}
}
