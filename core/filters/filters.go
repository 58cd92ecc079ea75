// Package filters provides the stock dispatch.Filter implementations.
package filters

import (
	"context"
	"slices"
	"strings"

	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/types"
)

// message returns the message an update carries directly. The message a
// callback query is attached to is not considered.
func message(req *dispatch.Request) (*types.Message, bool) {
	m, err := types.As[*types.Message](req.Update)
	return m, err == nil
}

// ChatType passes when the update's chat is one of kinds.
func ChatType(kinds ...types.ChatType) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		chat, ok := req.Update.Chat()
		return ok && slices.Contains(kinds, chat.Type)
	})
}

// ContentType passes when the message carries one of kinds.
func ContentType(kinds ...types.ContentType) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		m, ok := message(req)
		return ok && slices.Contains(kinds, m.ContentType())
	})
}

// Text passes when the message text (or caption) equals one of values.
func Text(values ...string) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		m, ok := message(req)
		return ok && slices.Contains(values, m.TextOrCaption())
	})
}

// TextPrefix passes when the message text (or caption) starts with prefix.
func TextPrefix(prefix string) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		m, ok := message(req)
		return ok && strings.HasPrefix(m.TextOrCaption(), prefix)
	})
}

// ChatID passes when the update's chat id is one of ids.
func ChatID(ids ...int64) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		chat, ok := req.Update.Chat()
		return ok && slices.Contains(ids, chat.ID)
	})
}

// UserID passes when the update's sender id is one of ids.
func UserID(ids ...int64) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		from, ok := req.Update.From()
		return ok && slices.Contains(ids, from.ID)
	})
}

// CallbackData passes when a callback query's data starts with prefix.
func CallbackData(prefix string) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		q := req.Update.CallbackQuery
		return q != nil && strings.HasPrefix(q.Data, prefix)
	})
}

// And passes when every filter passes. Evaluation stops at the first failure.
func And(filters ...dispatch.Filter) dispatch.Filter {
	return dispatch.FilterFunc(func(ctx context.Context, req *dispatch.Request) bool {
		for _, f := range filters {
			if !f.Check(ctx, req) {
				return false
			}
		}
		return true
	})
}

// Or passes when any filter passes. Evaluation stops at the first success.
func Or(filters ...dispatch.Filter) dispatch.Filter {
	return dispatch.FilterFunc(func(ctx context.Context, req *dispatch.Request) bool {
		for _, f := range filters {
			if f.Check(ctx, req) {
				return true
			}
		}
		return false
	})
}

// Not inverts f.
func Not(f dispatch.Filter) dispatch.Filter {
	return dispatch.FilterFunc(func(ctx context.Context, req *dispatch.Request) bool {
		return !f.Check(ctx, req)
	})
}
