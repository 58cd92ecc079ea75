package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jdelaire/openbot/core/client"
)

// ErrNoBot is returned by RunPolling when the dispatcher has no bot handle.
var ErrNoBot = errors.New("dispatch: polling requires a bot")

// RunPolling long-polls getUpdates and processes every update in its own
// goroutine, at most WithMaxConcurrency at once. It blocks until ctx is
// cancelled or the token is rejected, waits for in-flight updates, then runs
// the shutdown hooks.
func (d *Dispatcher) RunPolling(ctx context.Context) error {
	if d.bot == nil {
		return ErrNoBot
	}
	if err := d.Startup(ctx); err != nil {
		return err
	}

	if _, err := client.Send[bool](ctx, d.bot, client.DeleteWebhook{}); err != nil {
		d.logger.Warn("delete webhook failed", "error", err)
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.maxConcurrency)
	)
	pollErr := d.poll(ctx, &wg, sem)
	wg.Wait()

	shutdownCtx := context.WithoutCancel(ctx)
	if err := d.Shutdown(shutdownCtx); err != nil {
		d.logger.Error("shutdown hooks failed", "error", err)
		if pollErr == nil {
			pollErr = err
		}
	}
	return pollErr
}

func (d *Dispatcher) poll(ctx context.Context, wg *sync.WaitGroup, sem chan struct{}) error {
	allowed := d.AllowedUpdates()
	params := client.GetUpdates{
		Timeout:        int(d.pollingTimeout / time.Second),
		AllowedUpdates: allowed,
	}
	d.logger.Info("polling started", "allowed_updates", allowed, "max_concurrency", d.maxConcurrency)

	backoff := d.minBackoff
	for {
		if ctx.Err() != nil {
			d.logger.Info("polling stopped")
			return nil
		}

		updates, err := d.bot.GetUpdates(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				d.logger.Info("polling stopped")
				return nil
			}
			if errors.Is(err, client.ErrUnauthorized) {
				return fmt.Errorf("get updates: %w", err)
			}
			wait := backoff
			if ra, ok := client.RetryAfter(err); ok {
				wait = ra
			}
			d.logger.Error("poll error", "error", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				d.logger.Info("polling stopped")
				return nil
			}
			backoff = min(backoff*2, d.maxBackoff)
			continue
		}
		backoff = d.minBackoff

		for i := range updates {
			u := &updates[i]
			params.Offset = u.UpdateID + 1

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				d.logger.Info("polling stopped")
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				// In-flight updates finish even when polling is cancelled.
				_, _ = d.FeedUpdate(context.WithoutCancel(ctx), u)
			}()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
