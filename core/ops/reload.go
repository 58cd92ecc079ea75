package ops

import (
	"log/slog"
	"sync"
)

// Reloader swaps the config-declared shell ops in a Registry. Built-in ops
// registered elsewhere are never touched.
type Reloader struct {
	registry *Registry
	logger   *slog.Logger

	mu    sync.Mutex
	owned []Op
}

// NewReloader creates a reloader for registry.
func NewReloader(registry *Registry, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{registry: registry, logger: logger}
}

// Apply removes the shell ops of the previous call and registers cmds. Ops
// registered under the same names by someone else are left alone. A command
// whose name is taken by another op is skipped. It returns the names now
// registered.
func (r *Reloader) Apply(cmds []ShellOp) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, op := range r.owned {
		r.registry.Remove(op)
	}
	r.owned = r.owned[:0]

	names := make([]string, 0, len(cmds))
	for i := range cmds {
		op := &cmds[i]
		if err := r.registry.Register(op); err != nil {
			r.logger.Warn("skip command", "name", op.Name(), "error", err)
			continue
		}
		r.owned = append(r.owned, op)
		names = append(names, op.Name())
	}
	r.logger.Info("commands loaded", "count", len(names))
	return names
}
