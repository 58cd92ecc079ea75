package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jdelaire/openbot/core/client"
	"github.com/jdelaire/openbot/core/types"
)

const (
	defaultMaxConcurrency = 16
	defaultPollingTimeout = 30 * time.Second
	defaultMinBackoff     = time.Second
	defaultMaxBackoff     = time.Minute
)

// ResultHook observes the outcome of every processed update.
type ResultHook func(ctx context.Context, u *types.Update, res PropagateResult, err error)

// Dispatcher owns the root router and the bot handle. It turns each
// incoming update into a request with a fresh Context and propagates it.
type Dispatcher struct {
	root           *Router
	bot            *client.Bot
	logger         *slog.Logger
	maxConcurrency int
	pollingTimeout time.Duration
	minBackoff     time.Duration
	maxBackoff     time.Duration
	allowed        []types.UpdateType
	onResult       []ResultHook
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMaxConcurrency bounds how many updates are processed at once while
// polling.
func WithMaxConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxConcurrency = n
		}
	}
}

// WithPollingTimeout sets the getUpdates long-poll timeout.
func WithPollingTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t >= 0 {
			d.pollingTimeout = t
		}
	}
}

// WithBackoff sets the delay bounds between failed polls.
func WithBackoff(minDelay, maxDelay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if minDelay > 0 {
			d.minBackoff = minDelay
		}
		if maxDelay >= d.minBackoff {
			d.maxBackoff = maxDelay
		}
	}
}

// WithOnResult adds a hook called after each update.
func WithOnResult(h ResultHook) DispatcherOption {
	return func(d *Dispatcher) {
		d.onResult = append(d.onResult, h)
	}
}

// WithAllowedUpdates overrides the kinds requested from getUpdates. By
// default the kinds with handlers in the tree are requested.
func WithAllowedUpdates(kinds ...types.UpdateType) DispatcherOption {
	return func(d *Dispatcher) {
		d.allowed = kinds
	}
}

// NewDispatcher creates a Dispatcher for root. bot may be nil when updates
// are only fed manually and handlers do not call the API.
func NewDispatcher(root *Router, bot *client.Bot, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		root:           root,
		bot:            bot,
		logger:         slog.Default(),
		maxConcurrency: defaultMaxConcurrency,
		pollingTimeout: defaultPollingTimeout,
		minBackoff:     defaultMinBackoff,
		maxBackoff:     defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Router returns the root router.
func (d *Dispatcher) Router() *Router { return d.root }

// Bot returns the bot handle.
func (d *Dispatcher) Bot() *client.Bot { return d.bot }

// FeedUpdate processes one update to completion. Panics in handlers or
// middleware are recovered and reported as ErrHandlerPanic.
func (d *Dispatcher) FeedUpdate(ctx context.Context, u *types.Update) (res PropagateResult, err error) {
	if err := u.Validate(); err != nil {
		return unhandled(), fmt.Errorf("feed update: %w", err)
	}

	trace := TraceID(uuid.NewString())
	logger := d.logger.With("trace_id", string(trace), "update_id", u.UpdateID, "kind", u.Kind().String())

	req := NewRequest(d.bot, u)
	Set(req.Context, trace)
	Set(req.Context, logger)
	if d.bot != nil {
		Set(req.Context, d.bot)
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			logger.Error("handler panic", "panic", p, "stack", string(debug.Stack()))
			res, err = unhandled(), fmt.Errorf("%w: %v", ErrHandlerPanic, p)
		}
		d.report(ctx, logger, u, res, err, time.Since(start))
	}()

	return d.root.Propagate(ctx, req)
}

// FeedRaw decodes a JSON update and processes it.
func (d *Dispatcher) FeedRaw(ctx context.Context, raw []byte) (PropagateResult, error) {
	u, err := types.DecodeUpdate(raw)
	if err != nil {
		return unhandled(), fmt.Errorf("feed raw: %w", err)
	}
	return d.FeedUpdate(ctx, u)
}

func (d *Dispatcher) report(ctx context.Context, logger *slog.Logger, u *types.Update, res PropagateResult, err error, elapsed time.Duration) {
	switch {
	case err != nil:
		logger.Error("update failed", "error", err, "duration", elapsed)
	case res.Err() != nil:
		logger.Warn("handler error", "handler", res.Response.Handler, "error", res.Err(), "duration", elapsed)
	case res.Kind == Unhandled:
		logger.Debug("update unhandled", "duration", elapsed)
	default:
		attrs := []any{"result", res.Kind.String(), "duration", elapsed}
		if res.Response != nil {
			attrs = append(attrs, "handler", res.Response.Handler)
		}
		logger.Debug("update processed", attrs...)
	}
	for _, h := range d.onResult {
		h(ctx, u, res, err)
	}
}

// Startup runs the tree's startup hooks.
func (d *Dispatcher) Startup(ctx context.Context) error {
	return d.root.emitStartup(ctx)
}

// Shutdown runs the tree's shutdown hooks.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	return d.root.emitShutdown(ctx)
}

// AllowedUpdates returns the kinds requested from the API.
func (d *Dispatcher) AllowedUpdates() []types.UpdateType {
	if d.allowed != nil {
		return d.allowed
	}
	return d.root.ResolveUsedUpdateTypes()
}
