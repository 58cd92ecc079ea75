// Package middlewares provides the stock inner and outer middleware.
package middlewares

import (
	"context"
	"log/slog"
	"time"

	"github.com/jdelaire/openbot/core/dispatch"
)

// Logging is an inner middleware that logs every handler call.
type Logging struct {
	level slog.Level
}

// NewLogging returns a Logging middleware logging successful calls at level.
// Handler errors are always logged at warn.
func NewLogging(level slog.Level) *Logging {
	return &Logging{level: level}
}

func (*Logging) Name() string { return "logging" }

// Call implements dispatch.InnerMiddleware.
func (l *Logging) Call(ctx context.Context, req *dispatch.Request, next dispatch.Next) (dispatch.Response, error) {
	logger, _ := dispatch.Extract[*slog.Logger](ctx, req)

	start := time.Now()
	resp, err := next(ctx, req)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		logger.Error("handler chain failed", "error", err, "duration", elapsed)
	case resp.Err != nil:
		logger.Warn("handler returned error", "handler", resp.Handler, "error", resp.Err, "duration", elapsed)
	default:
		logger.Log(ctx, l.level, "handler called", "handler", resp.Handler, "return", resp.Return.String(), "duration", elapsed)
	}
	return resp, err
}
