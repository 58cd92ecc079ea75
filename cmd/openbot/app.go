package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jdelaire/openbot/adapters/notify"
	"github.com/jdelaire/openbot/adapters/webhook"
	"github.com/jdelaire/openbot/core/auth"
	"github.com/jdelaire/openbot/core/client"
	"github.com/jdelaire/openbot/core/configwatch"
	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/middlewares"
	"github.com/jdelaire/openbot/core/ops"
	"github.com/jdelaire/openbot/core/policy"
	"github.com/jdelaire/openbot/core/ratelimit"
	"github.com/jdelaire/openbot/internal/config"
)

const (
	reloadDebounce = 500 * time.Millisecond
	pruneInterval  = 5 * time.Minute
)

// app holds the wired bot: router tree, dispatcher and the state a config
// reload touches.
type app struct {
	cfg        *config.Config
	bot        *client.Bot
	logger     *slog.Logger
	level      *slog.LevelVar
	policy     *policy.Policy
	throttle   *middlewares.Throttle
	lockouts   *ratelimit.Limiter
	registry   *ops.Registry
	reloader   *ops.Reloader
	stats      *ops.Stats
	dispatcher *dispatch.Dispatcher
}

func newApp(cfg *config.Config, bot *client.Bot, username string, logger *slog.Logger, level *slog.LevelVar) (*app, error) {
	a := &app{
		cfg:      cfg,
		bot:      bot,
		logger:   logger,
		level:    level,
		policy:   policy.New(cfg.AllowedChats).WithFreshness(cfg.Freshness()),
		registry: ops.NewRegistry(),
		stats:    &ops.Stats{},
	}
	if len(cfg.AllowedChats) == 0 {
		logger.Warn("allowed_chats is empty: every update will be rejected")
	}

	a.registry.Register(&ops.HelpOp{Registry: a.registry})
	a.registry.Register(&ops.StatusOp{Stats: a.stats})
	a.reloader = ops.NewReloader(a.registry, logger)
	a.reloader.Apply(cfg.Commands)

	cmdOpts := []ops.CommandsOption{
		ops.WithBotUsername(username),
		ops.WithOpTimeout(cfg.OpTimeout()),
		ops.WithMaxConcurrentOps(cfg.Ops.MaxConcurrent),
	}
	if cfg.TOTPSecret != "" {
		v, err := auth.New(cfg.TOTPSecret)
		if err != nil {
			return nil, fmt.Errorf("totp: %w", err)
		}
		a.lockouts = ratelimit.New()
		cmdOpts = append(cmdOpts, ops.WithVerifier(v, a.lockouts))
	} else {
		logger.Warn("totp_secret not set: only risk-free commands will run")
	}

	root := dispatch.NewRouter("root")
	root.UseOuter(middlewares.NewTrace(logger), middlewares.NewPolicy(a.policy))
	if cfg.Throttle.Limit > 0 {
		a.throttle = middlewares.NewThrottle(cfg.Throttle.Limit, cfg.ThrottleWindow())
		root.UseOuter(a.throttle)
	}
	root.UseInner(middlewares.NewLogging(slog.LevelInfo))
	if err := root.Include(ops.NewCommands(a.registry, cmdOpts...).Router("ops")); err != nil {
		return nil, err
	}
	root.OnStartup(func(context.Context) error {
		logger.Info("bot started", "username", username, "mode", cfg.Mode, "updates", root.ResolveUsedUpdateTypes())
		return nil
	})
	root.OnShutdown(func(context.Context) error {
		logger.Info("bot stopped", "updates", a.stats.String())
		return nil
	})

	a.dispatcher = dispatch.NewDispatcher(root, bot,
		dispatch.WithLogger(logger),
		dispatch.WithMaxConcurrency(cfg.Polling.MaxConcurrency),
		dispatch.WithPollingTimeout(cfg.PollTimeout()),
		dispatch.WithOnResult(a.stats.Observe),
	)
	return a, nil
}

// reload applies the parts of a new config that can change at runtime.
func (a *app) reload(cfg *config.Config) {
	a.policy.SetAllowed(cfg.AllowedChats)
	a.reloader.Apply(cfg.Commands)
	if a.level != nil {
		a.level.Set(cfg.Level())
	}
	a.logger.Info("config reloaded", "allowed_chats", len(cfg.AllowedChats), "commands", len(cfg.Commands))
}

func (a *app) run(ctx context.Context, configPath string) error {
	w := configwatch.New(reloadDebounce, a.logger)
	if err := w.Watch(configPath, func(path string) {
		cfg, err := config.Load(path)
		if err != nil {
			a.logger.Error("config reload failed, keeping previous", "path", path, "error", err)
			return
		}
		a.reload(cfg)
	}); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	go func() {
		if err := w.Run(ctx); err != nil {
			a.logger.Error("config watcher stopped", "error", err)
		}
	}()

	if a.throttle != nil || a.lockouts != nil {
		go a.prune(ctx)
	}

	if a.cfg.Notify.Socket != "" {
		srv := notify.NewServer(a.cfg.Notify.Socket, a.bot, a.cfg.Notify.Chats, a.logger)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("notify socket: %w", err)
		}
		defer srv.Shutdown()
	}

	if a.cfg.Mode == config.ModeWebhook {
		return a.runWebhook(ctx)
	}
	return a.dispatcher.RunPolling(ctx)
}

func (a *app) runWebhook(ctx context.Context) error {
	d := a.dispatcher
	if err := d.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	_, err := client.Send[bool](ctx, a.bot, client.SetWebhook{
		URL:            a.cfg.Webhook.URL,
		SecretToken:    a.cfg.Webhook.Secret,
		AllowedUpdates: d.AllowedUpdates(),
	})
	if err != nil {
		if serr := d.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			a.logger.Error("shutdown hooks failed", "error", serr)
		}
		return fmt.Errorf("set webhook: %w", err)
	}

	h := webhook.New(d, a.cfg.Webhook.Secret, a.logger, webhook.WithMaxConcurrency(a.cfg.Polling.MaxConcurrency))
	serveErr := webhook.Serve(ctx, a.cfg.Webhook.Addr, a.cfg.Webhook.Path, h)
	if err := d.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Error("shutdown hooks failed", "error", err)
	}
	return serveErr
}

func (a *app) prune(ctx context.Context) {
	t := time.NewTicker(pruneInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if a.throttle != nil {
				a.throttle.Prune()
			}
			if a.lockouts != nil {
				a.lockouts.Prune()
			}
		}
	}
}
