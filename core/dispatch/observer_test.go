package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelaire/openbot/core/types"
)

func TestObserverFirstFinishWins(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for k := 0; k < n; k++ {
			t.Run(fmt.Sprintf("n=%d/k=%d", n, k), func(t *testing.T) {
				rec := &recorder{}
				o := newObserver(types.UpdateMessage)
				var want *HandlerObject
				for i := 0; i < n; i++ {
					h := o.Register(returning(rec, fmt.Sprint(i), Finish), always(i >= k))
					if i == k {
						want = h
					}
				}

				res, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
				require.NoError(t, err)
				assert.Equal(t, Handled, res.Kind)
				require.NotNil(t, res.Response)
				assert.Equal(t, want.Name(), res.Response.Handler)
				assert.Equal(t, []string{fmt.Sprint(k)}, rec.list())
			})
		}
	}
}

func TestObserverUnhandled(t *testing.T) {
	tests := []struct {
		name  string
		setup func(o *Observer, rec *recorder)
		calls []string
	}{
		{
			name:  "no handlers",
			setup: func(*Observer, *recorder) {},
		},
		{
			name: "all filters fail",
			setup: func(o *Observer, rec *recorder) {
				o.Register(returning(rec, "a", Finish), always(false))
				o.Register(returning(rec, "b", Finish), always(true), always(false))
			},
		},
		{
			name: "all skip",
			setup: func(o *Observer, rec *recorder) {
				o.Register(returning(rec, "a", Skip))
				o.Register(returning(rec, "b", Skip))
			},
			calls: []string{"a", "b"},
		},
		{
			name: "observer filter fails",
			setup: func(o *Observer, rec *recorder) {
				o.Filter(always(false))
				o.Register(returning(rec, "a", Finish))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			o := newObserver(types.UpdateMessage)
			tt.setup(o, rec)

			res, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
			require.NoError(t, err)
			assert.Equal(t, Unhandled, res.Kind)
			assert.Nil(t, res.Response)
			assert.Equal(t, tt.calls, rec.list())
		})
	}
}

func TestObserverCancelRejects(t *testing.T) {
	rec := &recorder{}
	o := newObserver(types.UpdateMessage)
	o.Register(returning(rec, "skip", Skip))
	o.Register(returning(rec, "cancel", Cancel))
	o.Register(returning(rec, "finish", Finish))

	res, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
	require.NoError(t, err)
	assert.Equal(t, Rejected, res.Kind)
	assert.Equal(t, []string{"skip", "cancel"}, rec.list())
}

func TestObserverPrivateChatSkipThenFinish(t *testing.T) {
	rec := &recorder{}
	o := newObserver(types.UpdateMessage)
	o.Register(returning(rec, "private", Skip), chatIs(types.ChatPrivate))
	second := o.Register(returning(rec, "any", Finish))

	res, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
	require.NoError(t, err)
	assert.Equal(t, Handled, res.Kind)
	assert.Equal(t, second.Name(), res.Response.Handler)
	assert.Equal(t, []string{"private", "any"}, rec.list())
}

func TestObserverObserverFiltersCheckedOnce(t *testing.T) {
	checks := 0
	o := newObserver(types.UpdateMessage)
	o.Filter(FilterFunc(func(context.Context, *Request) bool {
		checks++
		return true
	}))
	rec := &recorder{}
	o.Register(returning(rec, "a", Skip))
	o.Register(returning(rec, "b", Skip))
	o.Register(returning(rec, "c", Finish))

	_, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
	require.NoError(t, err)
	assert.Equal(t, 1, checks)
}

func TestObserverExtractionErrorTriesNext(t *testing.T) {
	rec := &recorder{}
	o := newObserver(types.UpdateMessage)
	o.Register(Bind(func(context.Context, *types.CallbackQuery) (EventReturn, error) {
		rec.add("callback")
		return Finish, nil
	}))
	o.Register(Bind(func(_ context.Context, msg *types.Message) (EventReturn, error) {
		rec.add("message:" + msg.Text)
		return Finish, nil
	}))

	res, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
	require.NoError(t, err)
	assert.Equal(t, Handled, res.Kind)
	assert.Equal(t, []string{"message:hi"}, rec.list())
}

type session struct{ ID string }

func TestObserverHandlerExtractionErrorIsHandled(t *testing.T) {
	rec := &recorder{}
	o := newObserver(types.UpdateMessage)
	o.Register(func(ctx context.Context, req *Request) (EventReturn, error) {
		if _, err := Extract[session](ctx, req); err != nil {
			return Finish, fmt.Errorf("load session: %w", err)
		}
		return Finish, nil
	})
	o.Register(returning(rec, "later", Finish))

	res, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
	require.NoError(t, err)
	assert.Equal(t, Handled, res.Kind)
	var extErr *ExtractionError
	require.ErrorAs(t, res.Err(), &extErr)
	assert.Contains(t, res.Err().Error(), "load session")
	assert.Empty(t, rec.list())
}

func TestObserverHandlerErrorIsHandled(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	o := newObserver(types.UpdateMessage)
	o.Register(func(context.Context, *Request) (EventReturn, error) { return Finish, boom })
	o.Register(returning(rec, "later", Finish))

	res, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
	require.NoError(t, err)
	assert.Equal(t, Handled, res.Kind)
	assert.ErrorIs(t, res.Err(), boom)
	assert.Empty(t, rec.list())
}

func TestObserverMiddlewareErrorAborts(t *testing.T) {
	boom := errors.New("store down")
	rec := &recorder{}
	o := newObserver(types.UpdateMessage)
	o.Use(InnerMiddlewareFunc(func(context.Context, *Request, Next) (Response, error) {
		return Response{}, boom
	}))
	o.Register(returning(rec, "a", Finish))

	_, err := o.Trigger(context.Background(), messageRequest(types.ChatPrivate, "hi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var mwErr *MiddlewareError
	assert.ErrorAs(t, err, &mwErr)
	assert.Empty(t, rec.list())
}

func TestRegisterNamesHandlers(t *testing.T) {
	o := newObserver(types.UpdateCallbackQuery)
	h0 := o.Register(returning(&recorder{}, "a", Finish))
	h1 := o.Register(returning(&recorder{}, "b", Finish)).WithName("confirm")

	assert.Equal(t, "callback_query#0", h0.Name())
	assert.Equal(t, "confirm", h1.Name())
	assert.Len(t, o.Handlers(), 2)
}
