package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdelaire/openbot/core/types"
)

// Observer holds the handlers for one update kind, the filters shared by all
// of them and the inner middleware wrapping each call.
type Observer struct {
	kind     types.UpdateType
	handlers []*HandlerObject
	filters  []Filter
	inner    []InnerMiddleware
}

func newObserver(kind types.UpdateType) *Observer {
	return &Observer{kind: kind}
}

// Kind returns the update kind this observer serves.
func (o *Observer) Kind() types.UpdateType { return o.kind }

// Filter adds observer-wide filters, checked before every handler's own.
func (o *Observer) Filter(filters ...Filter) *Observer {
	o.filters = append(o.filters, filters...)
	return o
}

// Use appends inner middleware. The first registered is the outermost.
func (o *Observer) Use(mws ...InnerMiddleware) *Observer {
	o.inner = append(o.inner, mws...)
	return o
}

// Register adds a handler. Handlers are tried in registration order.
func (o *Observer) Register(h HandlerFunc, filters ...Filter) *HandlerObject {
	name := fmt.Sprintf("%s#%d", o.kind, len(o.handlers))
	obj := NewHandlerObject(name, h, filters...)
	o.handlers = append(o.handlers, obj)
	return obj
}

// Handlers returns the registered handlers.
func (o *Observer) Handlers() []*HandlerObject { return o.handlers }

// Trigger runs the candidate loop with only this observer's middleware.
func (o *Observer) Trigger(ctx context.Context, req *Request) (PropagateResult, error) {
	return o.trigger(ctx, req, nil)
}

// trigger tries each handler in order. inherited is the inner middleware of
// enclosing routers for the same kind; it wraps this observer's own.
func (o *Observer) trigger(ctx context.Context, req *Request, inherited []InnerMiddleware) (PropagateResult, error) {
	if len(o.handlers) == 0 {
		return unhandled(), nil
	}
	if !checkAll(ctx, req, o.filters) {
		return unhandled(), nil
	}

	mws := compose(inherited, o.inner)
	for _, h := range o.handlers {
		if !h.Check(ctx, req) {
			continue
		}
		resp, err := innerChain{mws: mws, handler: h}.call(0)(ctx, req)
		if err != nil {
			return unhandled(), err
		}
		if resp.Err != nil {
			var bindErr *bindError
			if resp.Return == Skip && errors.As(resp.Err, &bindErr) {
				continue
			}
			return handled(&resp), nil
		}
		switch resp.Return {
		case Skip:
			continue
		case Cancel:
			return rejected(&resp), nil
		default:
			return handled(&resp), nil
		}
	}
	return unhandled(), nil
}

func compose(outer, inner []InnerMiddleware) []InnerMiddleware {
	if len(outer) == 0 {
		return inner
	}
	if len(inner) == 0 {
		return outer
	}
	out := make([]InnerMiddleware, 0, len(outer)+len(inner))
	out = append(out, outer...)
	return append(out, inner...)
}
