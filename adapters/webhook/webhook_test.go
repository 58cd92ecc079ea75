package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const messageBody = `{"update_id":7,"message":{"message_id":1,"chat":{"id":100,"type":"private"},"date":0,"text":"hi"}}`

type spyFeeder struct {
	mu   sync.Mutex
	seen []string
}

func (s *spyFeeder) FeedRaw(_ context.Context, raw []byte) (dispatch.PropagateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, string(raw))
	return dispatch.PropagateResult{}, nil
}

func post(h http.Handler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerFeedsUpdate(t *testing.T) {
	feeder := &spyFeeder{}
	h := New(feeder, "s3cret", testLogger())

	rec := post(h, messageBody, "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	h.Wait()
	assert.Equal(t, []string{messageBody}, feeder.seen)
}

type blockingFeeder struct {
	started chan struct{}
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func (b *blockingFeeder) FeedRaw(context.Context, []byte) (dispatch.PropagateResult, error) {
	n := b.active.Add(1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	b.started <- struct{}{}
	<-b.release
	b.active.Add(-1)
	return dispatch.PropagateResult{}, nil
}

func TestHandlerBoundsConcurrency(t *testing.T) {
	feeder := &blockingFeeder{started: make(chan struct{}), release: make(chan struct{})}
	h := New(feeder, "", testLogger(), WithMaxConcurrency(1))

	require.Equal(t, http.StatusOK, post(h, messageBody, "").Code)
	<-feeder.started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(messageBody)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	done := make(chan int, 1)
	go func() { done <- post(h, messageBody, "").Code }()
	select {
	case <-feeder.started:
		t.Fatal("second update started while the only slot was taken")
	case <-time.After(50 * time.Millisecond):
	}

	close(feeder.release)
	<-feeder.started
	assert.Equal(t, http.StatusOK, <-done)
	h.Wait()
	assert.Equal(t, int32(1), feeder.peak.Load())
}

func TestHandlerRejects(t *testing.T) {
	feeder := &spyFeeder{}
	h := New(feeder, "s3cret", testLogger())

	assert.Equal(t, http.StatusUnauthorized, post(h, messageBody, "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(h, messageBody, "wrong").Code)
	assert.Equal(t, http.StatusBadRequest, post(h, "{not json", "s3cret").Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		post(h, `{"update_id":1,"x":"`+strings.Repeat("a", MaxBodyBytes)+`"}`, "s3cret").Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	h.Wait()
	assert.Empty(t, feeder.seen)
}

func TestHandlerAcknowledgesUnknownKind(t *testing.T) {
	feeder := &spyFeeder{}
	h := New(feeder, "", testLogger())

	rec := post(h, `{"update_id":9,"business_message":{}}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	h.Wait()
	assert.Empty(t, feeder.seen)
}

func TestHandlerWithDispatcher(t *testing.T) {
	var got []string
	var mu sync.Mutex
	r := dispatch.NewRouter("root")
	r.Message().Register(dispatch.Bind(func(_ context.Context, msg *types.Message) (dispatch.EventReturn, error) {
		mu.Lock()
		got = append(got, msg.Text)
		mu.Unlock()
		return dispatch.Finish, nil
	}))
	d := dispatch.NewDispatcher(r, nil, dispatch.WithLogger(testLogger()))

	srv := httptest.NewServer(New(d, "", testLogger()))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(messageBody))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "hi"
	}, time.Second, 10*time.Millisecond)
}
