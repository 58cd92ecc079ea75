// Package webhook receives updates pushed by the Bot API over HTTPS and
// feeds them into a Dispatcher.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/types"
)

const (
	// SecretHeader carries the secret_token given to setWebhook.
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	// MaxBodyBytes bounds a single update payload.
	MaxBodyBytes = 1 << 20

	shutdownTimeout       = 10 * time.Second
	defaultMaxConcurrency = 16
)

// Feeder processes one raw update. *dispatch.Dispatcher implements it.
type Feeder interface {
	FeedRaw(ctx context.Context, raw []byte) (dispatch.PropagateResult, error)
}

// Handler is an http.Handler that acknowledges updates immediately and
// processes them in the background. At most a fixed number of updates are
// processed at once; further requests wait for a free slot.
type Handler struct {
	feeder Feeder
	secret string
	logger *slog.Logger
	sem    chan struct{}
	wg     sync.WaitGroup
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxConcurrency bounds how many updates are processed at once.
func WithMaxConcurrency(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.sem = make(chan struct{}, n)
		}
	}
}

// New creates a Handler. An empty secret disables the header check.
func New(feeder Feeder, secret string, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		feeder: feeder,
		secret: secret,
		logger: logger,
		sem:    make(chan struct{}, defaultMaxConcurrency),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.secret)) != 1 {
		h.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if len(data) > MaxBodyBytes {
		http.Error(w, fmt.Sprintf("payload exceeds %d byte limit", MaxBodyBytes), http.StatusRequestEntityTooLarge)
		return
	}

	id, kind, err := types.DetectKind(data)
	switch {
	case errors.Is(err, types.ErrUnknownUpdateType):
		// Acknowledge so the API does not redeliver it.
		h.logger.Warn("webhook update of unknown kind dropped", "update_id", id)
		w.WriteHeader(http.StatusOK)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	select {
	case h.sem <- struct{}{}:
	case <-r.Context().Done():
		// Not acknowledged, so the API delivers it again.
		http.Error(w, "busy", http.StatusServiceUnavailable)
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() { <-h.sem }()
		if _, err := h.feeder.FeedRaw(context.WithoutCancel(r.Context()), data); err != nil {
			h.logger.Error("webhook update failed", "update_id", id, "kind", kind, "error", err)
		}
	}()
	w.WriteHeader(http.StatusOK)
}

// Wait blocks until updates accepted so far have been processed.
func (h *Handler) Wait() { h.wg.Wait() }

// Serve listens on addr and serves h at path until ctx is cancelled, then
// shuts the server down and waits for in-flight updates.
func Serve(ctx context.Context, addr, path string, h *Handler) error {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("webhook listening", "addr", addr, "path", path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	h.Wait()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
