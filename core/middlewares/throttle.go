package middlewares

import (
	"context"
	"log/slog"
	"time"

	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/ratelimit"
)

// Throttled is stored in the Context when an update is dropped by Throttle.
type Throttled struct {
	UserID int64
	Wait   time.Duration
}

// Throttle is an outer middleware that cancels updates from users sending
// faster than the flood limiter allows. Updates without a sender pass.
type Throttle struct {
	flood *ratelimit.Flood
}

// NewThrottle allows limit updates per user within window.
func NewThrottle(limit int, window time.Duration) *Throttle {
	return &Throttle{flood: ratelimit.NewFlood(limit, window)}
}

func (*Throttle) Name() string { return "throttle" }

// Call implements dispatch.OuterMiddleware.
func (t *Throttle) Call(ctx context.Context, req *dispatch.Request) (*dispatch.Request, dispatch.EventReturn, error) {
	from, ok := req.Update.From()
	if !ok {
		return req, dispatch.Finish, nil
	}
	if wait, ok := t.flood.Allow(from.ID); !ok {
		logger, _ := dispatch.Extract[*slog.Logger](ctx, req)
		logger.Info("update throttled", "user_id", from.ID, "retry_in", wait)
		dispatch.Set(req.Context, Throttled{UserID: from.ID, Wait: wait})
		return req, dispatch.Cancel, nil
	}
	return req, dispatch.Finish, nil
}

// Prune forgets users idle for a full window. Run it periodically from a
// long-lived bot.
func (t *Throttle) Prune() { t.flood.Prune() }
