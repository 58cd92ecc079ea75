package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jdelaire/openbot/core/client"
	"github.com/jdelaire/openbot/core/types"
)

var (
	errNoBot    = errors.New("request has no bot")
	errNoChat   = errors.New("update has no chat")
	errNoSender = errors.New("update has no sender")
)

func init() {
	RegisterExtractor(func(_ context.Context, req *Request) (*Request, error) { return req, nil })
	RegisterExtractor(func(_ context.Context, req *Request) (*Context, error) { return req.Context, nil })
	RegisterExtractor(func(_ context.Context, req *Request) (*types.Update, error) { return req.Update, nil })
	RegisterExtractor(func(_ context.Context, req *Request) (types.Update, error) { return *req.Update, nil })
	RegisterExtractor(func(_ context.Context, req *Request) (types.UpdateType, error) { return req.Update.Kind(), nil })
	RegisterExtractor(func(_ context.Context, req *Request) (*client.Bot, error) {
		if req.Bot == nil {
			return nil, errNoBot
		}
		return req.Bot, nil
	})
	RegisterExtractor(func(_ context.Context, req *Request) (*slog.Logger, error) {
		if l, ok := Lookup[*slog.Logger](req.Context); ok {
			return l, nil
		}
		return slog.Default(), nil
	})
	RegisterExtractor(func(_ context.Context, req *Request) (*types.Chat, error) {
		chat, ok := req.Update.Chat()
		if !ok {
			return nil, errNoChat
		}
		return chat, nil
	})
	RegisterExtractor(func(_ context.Context, req *Request) (*types.User, error) {
		from, ok := req.Update.From()
		if !ok {
			return nil, errNoSender
		}
		return from, nil
	})

	registerEvent[*types.Message]()
	registerEvent[*types.CallbackQuery]()
	registerEvent[*types.InlineQuery]()
	registerEvent[*types.ChosenInlineResult]()
	registerEvent[*types.ShippingQuery]()
	registerEvent[*types.PreCheckoutQuery]()
	registerEvent[*types.Poll]()
	registerEvent[*types.PollAnswer]()
	registerEvent[*types.ChatMemberUpdated]()
	registerEvent[*types.ChatJoinRequest]()
}

func registerEvent[T any]() {
	RegisterExtractor(func(_ context.Context, req *Request) (T, error) {
		return types.As[T](req.Update)
	})
}
