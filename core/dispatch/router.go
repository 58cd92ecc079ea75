package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jdelaire/openbot/core/types"
)

// Router is a node in the handler tree. It owns one Observer per update
// kind, outer middleware run on every visit, and child routers tried in
// order when its own observer leaves the update unhandled.
type Router struct {
	name      string
	parent    *Router
	children  []*Router
	observers map[types.UpdateType]*Observer
	outer     []OuterMiddleware
	startup   []func(ctx context.Context) error
	shutdown  []func(ctx context.Context) error
	isolate   bool
}

// NewRouter returns an empty router.
func NewRouter(name string) *Router {
	r := &Router{
		name:      name,
		observers: make(map[types.UpdateType]*Observer, len(types.AllUpdateTypes)),
	}
	for _, kind := range types.AllUpdateTypes {
		r.observers[kind] = newObserver(kind)
	}
	return r
}

// Name returns the router name.
func (r *Router) Name() string { return r.name }

// Parent returns the router this one was included into, or nil.
func (r *Router) Parent() *Router { return r.parent }

// Children returns the included routers in registration order.
func (r *Router) Children() []*Router { return r.children }

// Include attaches child routers. Names must be unique among siblings and a
// router may only have one parent.
func (r *Router) Include(children ...*Router) error {
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.parent != nil {
			return fmt.Errorf("include %q into %q: %w", child.name, r.name, ErrRouterAttached)
		}
		for p := r; p != nil; p = p.parent {
			if p == child {
				return fmt.Errorf("include %q into %q: cycle: %w", child.name, r.name, ErrRouterAttached)
			}
		}
		for _, c := range r.children {
			if c.name == child.name {
				return fmt.Errorf("include %q into %q: %w", child.name, r.name, ErrDuplicateRouter)
			}
		}
		child.parent = r
		r.children = append(r.children, child)
	}
	return nil
}

// Observer returns the observer for kind, or nil for an unknown kind.
func (r *Router) Observer(kind types.UpdateType) *Observer { return r.observers[kind] }

func (r *Router) Message() *Observer           { return r.observers[types.UpdateMessage] }
func (r *Router) EditedMessage() *Observer     { return r.observers[types.UpdateEditedMessage] }
func (r *Router) ChannelPost() *Observer       { return r.observers[types.UpdateChannelPost] }
func (r *Router) EditedChannelPost() *Observer { return r.observers[types.UpdateEditedChannelPost] }
func (r *Router) CallbackQuery() *Observer     { return r.observers[types.UpdateCallbackQuery] }
func (r *Router) InlineQuery() *Observer       { return r.observers[types.UpdateInlineQuery] }
func (r *Router) ChosenInlineResult() *Observer {
	return r.observers[types.UpdateChosenInlineResult]
}
func (r *Router) ShippingQuery() *Observer    { return r.observers[types.UpdateShippingQuery] }
func (r *Router) PreCheckoutQuery() *Observer { return r.observers[types.UpdatePreCheckoutQuery] }
func (r *Router) Poll() *Observer             { return r.observers[types.UpdatePoll] }
func (r *Router) PollAnswer() *Observer       { return r.observers[types.UpdatePollAnswer] }
func (r *Router) MyChatMember() *Observer     { return r.observers[types.UpdateMyChatMember] }
func (r *Router) ChatMember() *Observer       { return r.observers[types.UpdateChatMember] }
func (r *Router) ChatJoinRequest() *Observer  { return r.observers[types.UpdateChatJoinRequest] }

// UseOuter appends outer middleware, run in registration order on every
// visit of this router before its observer.
func (r *Router) UseOuter(mws ...OuterMiddleware) *Router {
	r.outer = append(r.outer, mws...)
	return r
}

// UseInner appends inner middleware to every observer of this router.
func (r *Router) UseInner(mws ...InnerMiddleware) *Router {
	for _, o := range r.observers {
		o.Use(mws...)
	}
	return r
}

// Isolate makes the subtree work on a copy of the Context, so values set
// below this router are not seen by siblings tried afterwards.
func (r *Router) Isolate() *Router {
	r.isolate = true
	return r
}

// OnStartup registers a hook run before the dispatcher starts serving.
func (r *Router) OnStartup(fn func(ctx context.Context) error) {
	r.startup = append(r.startup, fn)
}

// OnShutdown registers a hook run after the dispatcher stops serving.
func (r *Router) OnShutdown(fn func(ctx context.Context) error) {
	r.shutdown = append(r.shutdown, fn)
}

// ResolveUsedUpdateTypes lists the kinds that have at least one handler
// anywhere in the tree, in canonical order.
func (r *Router) ResolveUsedUpdateTypes() []types.UpdateType {
	used := make(map[types.UpdateType]bool)
	r.walk(func(n *Router) {
		for kind, o := range n.observers {
			if len(o.handlers) > 0 {
				used[kind] = true
			}
		}
	})
	var out []types.UpdateType
	for _, kind := range types.AllUpdateTypes {
		if used[kind] {
			out = append(out, kind)
		}
	}
	return out
}

func (r *Router) walk(fn func(*Router)) {
	fn(r)
	for _, c := range r.children {
		c.walk(fn)
	}
}

// Propagate runs the update through this router and its subtree.
func (r *Router) Propagate(ctx context.Context, req *Request) (PropagateResult, error) {
	return r.propagate(ctx, req, nil)
}

func (r *Router) propagate(ctx context.Context, req *Request, inherited []InnerMiddleware) (PropagateResult, error) {
	if r.isolate {
		req = req.WithContext(req.Context.Clone())
	}

	req, ret, err := runOuter(ctx, req, r.outer)
	if err != nil {
		return unhandled(), err
	}
	switch ret {
	case Skip:
		return unhandled(), nil
	case Cancel:
		return rejected(nil), nil
	}

	kind := req.Update.Kind()
	o, ok := r.observers[kind]
	if !ok {
		return unhandled(), fmt.Errorf("propagate in %q: %w", r.name, types.ErrUnknownUpdateType)
	}

	res, err := o.trigger(ctx, req, inherited)
	if err != nil || res.Kind != Unhandled {
		return res, err
	}

	next := compose(inherited, o.inner)
	for _, child := range r.children {
		res, err := child.propagate(ctx, req, next)
		if err != nil || res.Kind != Unhandled {
			return res, err
		}
	}
	return unhandled(), nil
}

// emitStartup runs startup hooks depth first, parents before children, and
// stops at the first failure.
func (r *Router) emitStartup(ctx context.Context) error {
	for _, fn := range r.startup {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("startup %q: %w", r.name, err)
		}
	}
	for _, c := range r.children {
		if err := c.emitStartup(ctx); err != nil {
			return err
		}
	}
	return nil
}

// emitShutdown runs every shutdown hook, children before parents, and joins
// the failures.
func (r *Router) emitShutdown(ctx context.Context) error {
	var errs []error
	for i := len(r.children) - 1; i >= 0; i-- {
		if err := r.children[i].emitShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range r.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %q: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}
