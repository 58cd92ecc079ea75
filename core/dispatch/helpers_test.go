package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/jdelaire/openbot/core/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func messageUpdate(id int64, chatType types.ChatType, text string) *types.Update {
	return &types.Update{
		UpdateID: id,
		Message: &types.Message{
			MessageID: id,
			From:      &types.User{ID: 42, FirstName: "Ada"},
			Chat:      types.Chat{ID: 100, Type: chatType},
			Text:      text,
		},
	}
}

func messageRequest(chatType types.ChatType, text string) *Request {
	return NewRequest(nil, messageUpdate(1, chatType, text))
}

// recorder collects call labels in order across goroutines.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func returning(rec *recorder, label string, ret EventReturn) HandlerFunc {
	return func(context.Context, *Request) (EventReturn, error) {
		rec.add(label)
		return ret, nil
	}
}

func always(ok bool) Filter {
	return FilterFunc(func(context.Context, *Request) bool { return ok })
}

func chatIs(ct types.ChatType) Filter {
	return FilterFunc(func(_ context.Context, req *Request) bool {
		chat, ok := req.Update.Chat()
		return ok && chat.Type == ct
	})
}

func labelInner(rec *recorder, label string) InnerMiddleware {
	return InnerMiddlewareFunc(func(ctx context.Context, req *Request, next Next) (Response, error) {
		rec.add(label + "-pre")
		resp, err := next(ctx, req)
		rec.add(label + "-post")
		return resp, err
	})
}
