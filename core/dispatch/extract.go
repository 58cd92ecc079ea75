package dispatch

import (
	"context"
	"reflect"
	"sync"
)

// Extractor is implemented (on a pointer receiver) by types that know how to
// build themselves from a request.
//
//	type Session struct{ UserID int64 }
//
//	func (s *Session) Extract(ctx context.Context, req *dispatch.Request) error {
//	    from, ok := req.Update.From()
//	    if !ok {
//	        return errors.New("no sender")
//	    }
//	    s.UserID = from.ID
//	    return nil
//	}
type Extractor interface {
	Extract(ctx context.Context, req *Request) error
}

type extractFunc func(ctx context.Context, req *Request) (any, error)

var registry = struct {
	sync.RWMutex
	m map[reflect.Type]extractFunc
}{m: make(map[reflect.Type]extractFunc)}

// RegisterExtractor teaches Extract how to build values of a type the caller
// does not own. Register before the dispatcher starts; a later registration
// for the same type replaces the earlier one.
func RegisterExtractor[T any](fn func(ctx context.Context, req *Request) (T, error)) {
	registry.Lock()
	defer registry.Unlock()
	registry.m[reflect.TypeFor[T]()] = func(ctx context.Context, req *Request) (any, error) {
		return fn(ctx, req)
	}
}

func registered(t reflect.Type) (extractFunc, bool) {
	registry.RLock()
	defer registry.RUnlock()
	fn, ok := registry.m[t]
	return fn, ok
}

// Extract builds a T from the request. Resolution order:
//
//  1. T's own Extract method (on *T)
//  2. an extractor registered for T
//  3. for a pointer T, the extractor of its element type
//  4. a value of type T stored in the request Context
//  5. for a pointer T, a pointer to a copy of the stored element value
//
// Failure is reported as *ExtractionError.
func Extract[T any](ctx context.Context, req *Request) (T, error) {
	var v T
	t := reflect.TypeFor[T]()
	if e, ok := any(&v).(Extractor); ok {
		if err := e.Extract(ctx, req); err != nil {
			return v, &ExtractionError{Type: t.String(), Err: err}
		}
		return v, nil
	}
	out, err := extractType(ctx, req, t)
	if err != nil || out == nil {
		return v, err
	}
	return out.(T), nil
}

func extractType(ctx context.Context, req *Request, t reflect.Type) (any, error) {
	if fn, ok := registered(t); ok {
		v, err := fn(ctx, req)
		if err != nil {
			return nil, &ExtractionError{Type: t.String(), Err: err}
		}
		return v, nil
	}

	if t.Kind() == reflect.Pointer {
		elem := t.Elem()
		p := reflect.New(elem)
		if e, ok := p.Interface().(Extractor); ok {
			if err := e.Extract(ctx, req); err != nil {
				return nil, &ExtractionError{Type: t.String(), Err: err}
			}
			return p.Interface(), nil
		}
		if fn, ok := registered(elem); ok {
			v, err := fn(ctx, req)
			if err != nil {
				return nil, &ExtractionError{Type: t.String(), Err: err}
			}
			if v != nil {
				p.Elem().Set(reflect.ValueOf(v))
			}
			return p.Interface(), nil
		}
	}

	if v, ok := req.Context.lookup(t); ok {
		return v, nil
	}
	if t.Kind() == reflect.Pointer {
		if v, ok := req.Context.lookup(t.Elem()); ok && v != nil {
			p := reflect.New(t.Elem())
			p.Elem().Set(reflect.ValueOf(v))
			return p.Interface(), nil
		}
	}
	return nil, &ExtractionError{Type: t.String(), Err: &MissingKeyError{Type: t.String()}}
}

// Option extracts T when possible. Its own extraction never fails.
type Option[T any] struct {
	Value T
	Valid bool
}

// Extract implements Extractor.
func (o *Option[T]) Extract(ctx context.Context, req *Request) error {
	v, err := Extract[T](ctx, req)
	if err != nil {
		*o = Option[T]{}
		return nil
	}
	o.Value, o.Valid = v, true
	return nil
}

// Get returns the value and whether it was extracted.
func (o Option[T]) Get() (T, bool) { return o.Value, o.Valid }

// Result extracts T and keeps the failure instead of reporting it.
// Its own extraction never fails.
type Result[T any] struct {
	Value T
	Err   error
}

// Extract implements Extractor.
func (r *Result[T]) Extract(ctx context.Context, req *Request) error {
	r.Value, r.Err = Extract[T](ctx, req)
	return nil
}
