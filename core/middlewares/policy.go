package middlewares

import (
	"context"
	"log/slog"
	"time"

	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/policy"
)

// Policy is an outer middleware that cancels updates the policy rejects:
// chats off the allowlist, stale messages and redelivered update ids.
// Updates without a chat are cancelled too.
type Policy struct {
	policy *policy.Policy
}

// NewPolicy wraps p.
func NewPolicy(p *policy.Policy) *Policy {
	return &Policy{policy: p}
}

func (*Policy) Name() string { return "policy" }

// Call implements dispatch.OuterMiddleware.
func (m *Policy) Call(ctx context.Context, req *dispatch.Request) (*dispatch.Request, dispatch.EventReturn, error) {
	logger, _ := dispatch.Extract[*slog.Logger](ctx, req)

	chat, ok := req.Update.Chat()
	if !ok {
		logger.Debug("update rejected by policy", "reason", "no chat")
		return req, dispatch.Cancel, nil
	}

	var ts time.Time
	if msg, ok := req.Update.AnyMessage(); ok && msg.Date != 0 && req.Update.CallbackQuery == nil {
		ts = msg.Time()
	}

	if err := m.policy.Authorize(chat.ID, req.Update.UpdateID, ts); err != nil {
		logger.Debug("update rejected by policy", "chat_id", chat.ID, "error", err)
		return req, dispatch.Cancel, nil
	}
	return req, dispatch.Finish, nil
}
