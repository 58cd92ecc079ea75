package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jdelaire/openbot/core/client"
	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/filters"
	"github.com/jdelaire/openbot/core/ratelimit"
	"github.com/jdelaire/openbot/core/types"
)

const (
	defaultMaxConcurrent = 2
	defaultTimeout       = 30 * time.Second
	maxReplyRunes        = 4096

	confirmPrefix = "confirm:"
	cancelPrefix  = "cancel:"
)

var commandName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Commands exposes a Registry as bot commands. Ops are looked up at call
// time, so registry changes apply without rebuilding the router.
type Commands struct {
	reg      *Registry
	verifier filters.Verifier
	limiter  *ratelimit.Limiter
	confirm  *Confirmations
	username string
	timeout  time.Duration
	sem      chan struct{}
}

// CommandsOption configures Commands.
type CommandsOption func(*Commands)

// WithVerifier enables one-time codes for ops of RiskLow and above.
// Failures are counted in limiter when it is not nil. Without a verifier
// those ops are refused.
func WithVerifier(v filters.Verifier, limiter *ratelimit.Limiter) CommandsOption {
	return func(c *Commands) {
		c.verifier = v
		c.limiter = limiter
	}
}

// WithBotUsername makes commands addressed to other bots ignored.
func WithBotUsername(username string) CommandsOption {
	return func(c *Commands) { c.username = username }
}

// WithOpTimeout bounds a single op execution.
func WithOpTimeout(d time.Duration) CommandsOption {
	return func(c *Commands) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxConcurrentOps caps ops running at once. Extra commands are
// answered with a busy reply.
func WithMaxConcurrentOps(n int) CommandsOption {
	return func(c *Commands) {
		if n > 0 {
			c.sem = make(chan struct{}, n)
		}
	}
}

// NewCommands creates command handlers for reg.
func NewCommands(reg *Registry, opts ...CommandsOption) *Commands {
	c := &Commands{
		reg:     reg,
		confirm: NewConfirmations(),
		timeout: defaultTimeout,
		sem:     make(chan struct{}, defaultMaxConcurrent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Router builds a router serving the registry. Handlers are tried in order:
// open ops, ops with a valid code, ops missing a code, then unknown commands.
// Callback queries carry Confirm and Cancel presses for high-risk ops.
func (c *Commands) Router(name string) *dispatch.Router {
	r := dispatch.NewRouter(name)

	command := func() dispatch.Filter {
		return filters.Command(nil, filters.WithPattern(commandName), filters.WithUsername(c.username))
	}

	r.Message().Register(c.run, command(), c.riskIs(RiskNone)).WithName("ops.open")
	if c.verifier != nil {
		r.Message().Register(c.run, command(), c.riskIs(RiskLow, RiskHigh), filters.TOTP(c.verifier, c.limiter)).
			WithName("ops.guarded")
	}
	r.Message().Register(c.needsCode, command(), c.riskIs(RiskLow, RiskHigh)).WithName("ops.needs_code")
	r.Message().Register(c.unknown, command()).WithName("ops.unknown")

	r.CallbackQuery().Register(dispatch.Bind2(c.confirmed), filters.CallbackData(confirmPrefix)).WithName("ops.confirm")
	r.CallbackQuery().Register(dispatch.Bind2(c.cancelled), filters.CallbackData(cancelPrefix)).WithName("ops.cancel")
	return r
}

// lookup resolves the op named by the CommandObject in the Context.
func (c *Commands) lookup(req *dispatch.Request) (filters.CommandObject, Op) {
	cmd, ok := dispatch.Lookup[filters.CommandObject](req.Context)
	if !ok {
		return cmd, nil
	}
	if op := c.reg.Get(cmd.Command); op != nil {
		return cmd, op
	}
	return cmd, c.reg.Get(strings.ToLower(cmd.Command))
}

func (c *Commands) riskIs(levels ...RiskLevel) dispatch.Filter {
	return dispatch.FilterFunc(func(_ context.Context, req *dispatch.Request) bool {
		_, op := c.lookup(req)
		if op == nil {
			return false
		}
		risk := RiskOf(op)
		for _, l := range levels {
			if risk == l {
				return true
			}
		}
		return false
	})
}

func (c *Commands) run(ctx context.Context, req *dispatch.Request) (dispatch.EventReturn, error) {
	cmd, op := c.lookup(req)
	msg, err := dispatch.Extract[*types.Message](ctx, req)
	if err != nil {
		return dispatch.Skip, err
	}
	if op == nil {
		return dispatch.Skip, nil
	}

	if RiskOf(op) == RiskHigh {
		return dispatch.Finish, c.askConfirm(ctx, req, msg, op.Name(), cmd.Args)
	}
	return dispatch.Finish, c.reply(ctx, req, msg, c.execute(ctx, req, op, cmd.Args))
}

func (c *Commands) needsCode(ctx context.Context, req *dispatch.Request) (dispatch.EventReturn, error) {
	msg, err := dispatch.Extract[*types.Message](ctx, req)
	if err != nil {
		return dispatch.Skip, err
	}
	text := "This command requires a valid one-time code as its last argument."
	if lockErr, ok := dispatch.Lookup[*ratelimit.LockoutError](req.Context); ok {
		text = "Too many invalid codes: " + lockErr.Error() + "."
	}
	if c.verifier == nil {
		text = "This command is disabled: no one-time code secret is configured."
	}
	return dispatch.Finish, c.reply(ctx, req, msg, text)
}

func (c *Commands) unknown(ctx context.Context, req *dispatch.Request) (dispatch.EventReturn, error) {
	cmd, _ := c.lookup(req)
	msg, err := dispatch.Extract[*types.Message](ctx, req)
	if err != nil {
		return dispatch.Skip, err
	}
	return dispatch.Finish, c.reply(ctx, req, msg,
		fmt.Sprintf("Unknown command: /%s\nSend /help for available commands.", cmd.Command))
}

func (c *Commands) askConfirm(ctx context.Context, req *dispatch.Request, msg *types.Message, op, args string) error {
	nonce, err := c.confirm.Create(msg.Chat.ID, op, args)
	if err != nil {
		return c.reply(ctx, req, msg, "Cannot queue confirmation: "+err.Error())
	}
	bot, err := dispatch.Extract[*client.Bot](ctx, req)
	if err != nil {
		return err
	}
	text := "Run /" + op
	if args != "" {
		text += " " + args
	}
	_, err = bot.SendMessage(ctx, client.SendMessage{
		ChatID:           msg.Chat.ID,
		Text:             text + "?",
		ReplyToMessageID: msg.MessageID,
		ReplyMarkup: &client.InlineKeyboardMarkup{InlineKeyboard: [][]client.InlineKeyboardButton{{
			{Text: "Confirm", CallbackData: confirmPrefix + nonce},
			{Text: "Cancel", CallbackData: cancelPrefix + nonce},
		}}},
	})
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

func (c *Commands) confirmed(ctx context.Context, q *types.CallbackQuery, req *dispatch.Request) (dispatch.EventReturn, error) {
	bot, err := dispatch.Extract[*client.Bot](ctx, req)
	if err != nil {
		return dispatch.Skip, err
	}
	if q.Message == nil {
		return dispatch.Finish, bot.AnswerCallbackQuery(ctx, client.AnswerCallbackQuery{CallbackQueryID: q.ID, Text: "Message is gone."})
	}

	p, err := c.confirm.Consume(strings.TrimPrefix(q.Data, confirmPrefix), q.Message.Chat.ID)
	if err != nil {
		return dispatch.Finish, bot.AnswerCallbackQuery(ctx, client.AnswerCallbackQuery{CallbackQueryID: q.ID, Text: err.Error(), ShowAlert: true})
	}
	if err := bot.AnswerCallbackQuery(ctx, client.AnswerCallbackQuery{CallbackQueryID: q.ID, Text: "Running"}); err != nil {
		return dispatch.Finish, err
	}

	op := c.reg.Get(p.Op)
	result := fmt.Sprintf("/%s is no longer available.", p.Op)
	if op != nil {
		result = c.execute(ctx, req, op, p.Args)
	}
	_, err = client.Send[types.Message](ctx, bot, client.EditMessageText{
		ChatID:    q.Message.Chat.ID,
		MessageID: q.Message.MessageID,
		Text:      truncate(result),
	})
	return dispatch.Finish, err
}

func (c *Commands) cancelled(ctx context.Context, q *types.CallbackQuery, req *dispatch.Request) (dispatch.EventReturn, error) {
	bot, err := dispatch.Extract[*client.Bot](ctx, req)
	if err != nil {
		return dispatch.Skip, err
	}
	if q.Message == nil {
		return dispatch.Finish, bot.AnswerCallbackQuery(ctx, client.AnswerCallbackQuery{CallbackQueryID: q.ID})
	}
	p, err := c.confirm.Consume(strings.TrimPrefix(q.Data, cancelPrefix), q.Message.Chat.ID)
	if err != nil {
		return dispatch.Finish, bot.AnswerCallbackQuery(ctx, client.AnswerCallbackQuery{CallbackQueryID: q.ID, Text: err.Error()})
	}
	if err := bot.AnswerCallbackQuery(ctx, client.AnswerCallbackQuery{CallbackQueryID: q.ID, Text: "Cancelled"}); err != nil {
		return dispatch.Finish, err
	}
	_, err = client.Send[types.Message](ctx, bot, client.EditMessageText{
		ChatID:    q.Message.Chat.ID,
		MessageID: q.Message.MessageID,
		Text:      fmt.Sprintf("/%s cancelled.", p.Op),
	})
	return dispatch.Finish, err
}

// execute runs op and renders the result or error as reply text.
func (c *Commands) execute(ctx context.Context, req *dispatch.Request, op Op, args string) string {
	select {
	case c.sem <- struct{}{}:
	default:
		return "Busy: too many operations running. Try again shortly."
	}
	defer func() { <-c.sem }()

	logger, _ := dispatch.Extract[*slog.Logger](ctx, req)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := op.Execute(ctx, args)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
		}
		logger.Error("op failed", "op", op.Name(), "error", err)
		return fmt.Sprintf("Error running /%s: %s", op.Name(), err)
	}
	logger.Info("op executed", "op", op.Name(), "duration", time.Since(start))
	if result == "" {
		return "(no output)"
	}
	return result
}

func (c *Commands) reply(ctx context.Context, req *dispatch.Request, msg *types.Message, text string) error {
	bot, err := dispatch.Extract[*client.Bot](ctx, req)
	if err != nil {
		return err
	}
	if _, err := bot.SendMessage(ctx, client.SendMessage{
		ChatID:           msg.Chat.ID,
		Text:             truncate(text),
		ReplyToMessageID: msg.MessageID,
	}); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

// truncate keeps text within the Bot API message limit.
func truncate(text string) string {
	r := []rune(text)
	if len(r) <= maxReplyRunes {
		return text
	}
	return string(r[:maxReplyRunes-1]) + "…"
}
