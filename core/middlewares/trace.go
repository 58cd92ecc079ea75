package middlewares

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jdelaire/openbot/core/dispatch"
)

// Trace is an outer middleware that makes sure the Context carries a
// dispatch.TraceID and a logger tagged with it. The Dispatcher already seeds
// both; Trace covers routers propagated directly.
type Trace struct {
	logger *slog.Logger
}

// NewTrace returns a Trace middleware deriving loggers from logger.
func NewTrace(logger *slog.Logger) *Trace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trace{logger: logger}
}

func (*Trace) Name() string { return "trace" }

// Call implements dispatch.OuterMiddleware.
func (t *Trace) Call(_ context.Context, req *dispatch.Request) (*dispatch.Request, dispatch.EventReturn, error) {
	if _, ok := dispatch.Lookup[dispatch.TraceID](req.Context); ok {
		return req, dispatch.Finish, nil
	}
	id := dispatch.TraceID(uuid.NewString())
	dispatch.Set(req.Context, id)
	dispatch.Set(req.Context, t.logger.With("trace_id", string(id), "update_id", req.Update.UpdateID))
	return req, dispatch.Finish, nil
}
