package dispatch

import "context"

// HandlerFunc is the untyped handler signature every handler reduces to.
type HandlerFunc func(ctx context.Context, req *Request) (EventReturn, error)

// Bind adapts a handler taking one extracted argument.
//
//	r.Message().Register(dispatch.Bind(func(ctx context.Context, msg *types.Message) (dispatch.EventReturn, error) {
//	    return dispatch.Finish, nil
//	}))
func Bind[A any](fn func(ctx context.Context, a A) (EventReturn, error)) HandlerFunc {
	return func(ctx context.Context, req *Request) (EventReturn, error) {
		a, err := Extract[A](ctx, req)
		if err != nil {
			return Skip, &bindError{err: err}
		}
		return fn(ctx, a)
	}
}

// Bind2 adapts a handler taking two extracted arguments.
func Bind2[A, B any](fn func(ctx context.Context, a A, b B) (EventReturn, error)) HandlerFunc {
	return func(ctx context.Context, req *Request) (EventReturn, error) {
		a, err := Extract[A](ctx, req)
		if err != nil {
			return Skip, &bindError{err: err}
		}
		b, err := Extract[B](ctx, req)
		if err != nil {
			return Skip, &bindError{err: err}
		}
		return fn(ctx, a, b)
	}
}

// Bind3 adapts a handler taking three extracted arguments.
func Bind3[A, B, C any](fn func(ctx context.Context, a A, b B, c C) (EventReturn, error)) HandlerFunc {
	return func(ctx context.Context, req *Request) (EventReturn, error) {
		a, err := Extract[A](ctx, req)
		if err != nil {
			return Skip, &bindError{err: err}
		}
		b, err := Extract[B](ctx, req)
		if err != nil {
			return Skip, &bindError{err: err}
		}
		c, err := Extract[C](ctx, req)
		if err != nil {
			return Skip, &bindError{err: err}
		}
		return fn(ctx, a, b, c)
	}
}

// bindError marks an argument Bind could not build. The observer moves on
// to the next candidate instead of reporting it.
type bindError struct {
	err error
}

func (e *bindError) Error() string { return e.err.Error() }
func (e *bindError) Unwrap() error { return e.err }

// HandlerObject is a registered handler with its own filters. It is not
// modified once the dispatcher is serving.
type HandlerObject struct {
	name    string
	handler HandlerFunc
	filters []Filter
}

// NewHandlerObject wraps h with filters.
func NewHandlerObject(name string, h HandlerFunc, filters ...Filter) *HandlerObject {
	return &HandlerObject{name: name, handler: h, filters: filters}
}

// Name returns the handler name used in logs.
func (h *HandlerObject) Name() string { return h.name }

// WithName renames the handler. Call it at registration time only.
func (h *HandlerObject) WithName(name string) *HandlerObject {
	h.name = name
	return h
}

// Filters returns the handler's own filters.
func (h *HandlerObject) Filters() []Filter { return h.filters }

// Check reports whether all of the handler's filters pass.
func (h *HandlerObject) Check(ctx context.Context, req *Request) bool {
	return checkAll(ctx, req, h.filters)
}

// Call invokes the handler.
func (h *HandlerObject) Call(ctx context.Context, req *Request) (EventReturn, error) {
	return h.handler(ctx, req)
}
