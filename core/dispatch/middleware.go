package dispatch

import (
	"context"
	"fmt"
)

// Next continues an inner middleware chain.
type Next func(ctx context.Context, req *Request) (Response, error)

// InnerMiddleware wraps the selected handler. It may run code before and
// after calling next, replace the request passed down, or not call next at
// all. A returned error is a failure of the middleware itself.
type InnerMiddleware interface {
	Call(ctx context.Context, req *Request, next Next) (Response, error)
}

// InnerMiddlewareFunc adapts a function to InnerMiddleware.
type InnerMiddlewareFunc func(ctx context.Context, req *Request, next Next) (Response, error)

// Call implements InnerMiddleware.
func (f InnerMiddlewareFunc) Call(ctx context.Context, req *Request, next Next) (Response, error) {
	return f(ctx, req, next)
}

// OuterMiddleware runs at router level before any filter. Returning Skip
// makes the router report Unhandled, Cancel makes it report Rejected. The
// returned request, when non-nil, replaces the current one.
type OuterMiddleware interface {
	Call(ctx context.Context, req *Request) (*Request, EventReturn, error)
}

// OuterMiddlewareFunc adapts a function to OuterMiddleware.
type OuterMiddlewareFunc func(ctx context.Context, req *Request) (*Request, EventReturn, error)

// Call implements OuterMiddleware.
func (f OuterMiddlewareFunc) Call(ctx context.Context, req *Request) (*Request, EventReturn, error) {
	return f(ctx, req)
}

// Named is implemented by middleware that wants a stable name in errors.
type Named interface {
	Name() string
}

func middlewareName(m any) string {
	if n, ok := m.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}

// innerChain is an index-based chain: step i calls middleware i with a next
// that continues at i+1. The step past the last middleware calls the handler.
type innerChain struct {
	mws     []InnerMiddleware
	handler *HandlerObject
}

func (c innerChain) call(i int) Next {
	if i >= len(c.mws) {
		return func(ctx context.Context, req *Request) (Response, error) {
			ret, err := c.handler.Call(ctx, req)
			return Response{Request: req, Handler: c.handler.Name(), Return: ret, Err: err}, nil
		}
	}
	mw := c.mws[i]
	return func(ctx context.Context, req *Request) (Response, error) {
		resp, err := mw.Call(ctx, req, c.call(i+1))
		if err != nil {
			return resp, wrapMiddleware(middlewareName(mw), err)
		}
		return resp, nil
	}
}

// runOuter applies outer middleware in registration order and stops at the
// first one that does not return Finish.
func runOuter(ctx context.Context, req *Request, mws []OuterMiddleware) (*Request, EventReturn, error) {
	for _, mw := range mws {
		next, ret, err := mw.Call(ctx, req)
		if err != nil {
			return req, ret, wrapMiddleware(middlewareName(mw), err)
		}
		if next != nil {
			req = next
		}
		if ret != Finish {
			return req, ret, nil
		}
	}
	return req, Finish, nil
}
