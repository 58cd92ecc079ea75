package ops

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Op is a bot command: /<Name> runs Execute with the rest of the message.
type Op interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args string) (string, error)
}

// ErrDuplicateOp is returned by Register when the name is taken.
var ErrDuplicateOp = errors.New("op already registered")

// Registry holds registered operations keyed by name.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Op
}

// NewRegistry creates an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Op)}
}

// Register adds an operation. Returns an error if the name is already registered.
func (r *Registry) Register(op Op) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := op.Name()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOp, name)
	}
	r.ops[name] = op
	return nil
}

// Remove unregisters op only if it is the op currently registered under its
// name, and reports whether it did.
func (r *Registry) Remove(op Op) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.ops[op.Name()]; !ok || cur != op {
		return false
	}
	delete(r.ops, op.Name())
	return true
}

// Get returns the operation with the given name, or nil if not found.
func (r *Registry) Get(name string) Op {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ops[name]
}

// List returns all registered operation names sorted alphabetically.
func (r *Registry) List() []Op {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Op, 0, len(r.ops))
	for _, op := range r.ops {
		result = append(result, op)
	}
	slices.SortFunc(result, func(a, b Op) int { return strings.Compare(a.Name(), b.Name()) })
	return result
}
