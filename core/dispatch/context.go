package dispatch

import (
	"reflect"
	"sync"
)

// Context is the per-update store shared by middleware, filters, extractors
// and handlers. It holds one value per type; the last write wins.
//
// Writes are expected from sequential pipeline stages only. The lock keeps
// reads from concurrently processed siblings safe, it does not order writes.
type Context struct {
	mu     sync.RWMutex
	values map[reflect.Type]any
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{values: make(map[reflect.Type]any)}
}

// Set stores v under its static type T.
func Set[T any](c *Context, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[reflect.TypeFor[T]()] = v
}

// Lookup returns the value stored for T.
func Lookup[T any](c *Context) (T, bool) {
	v, ok := c.lookup(reflect.TypeFor[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Get returns the value stored for T or a *MissingKeyError.
func Get[T any](c *Context) (T, error) {
	v, ok := Lookup[T](c)
	if !ok {
		return v, &MissingKeyError{Type: reflect.TypeFor[T]().String()}
	}
	return v, nil
}

// Delete removes the value stored for T.
func Delete[T any](c *Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, reflect.TypeFor[T]())
}

func (c *Context) lookup(t reflect.Type) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[t]
	return v, ok
}

// Len returns the number of stored values.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Clone returns a shallow copy; writes to the copy do not affect c.
func (c *Context) Clone() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := &Context{values: make(map[reflect.Type]any, len(c.values))}
	for k, v := range c.values {
		cp.values[k] = v
	}
	return cp
}
