package client

import (
	"context"

	"github.com/jdelaire/openbot/core/types"
)

// GetMe returns basic information about the bot.
type GetMe struct {
	Returns[types.User] `json:"-"`
}

func (GetMe) Name() string { return "getMe" }
func (GetMe) Params() any  { return nil }

// GetUpdates long-polls for incoming updates.
type GetUpdates struct {
	Returns[[]types.Update] `json:"-"`

	Offset         int64              `json:"offset,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	Timeout        int                `json:"timeout,omitempty"`
	AllowedUpdates []types.UpdateType `json:"allowed_updates,omitempty"`
}

func (m GetUpdates) Name() string { return "getUpdates" }
func (m GetUpdates) Params() any  { return m }

// InlineKeyboardButton is one button of an inline keyboard.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// InlineKeyboardMarkup is a keyboard attached to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// SendMessage sends a text message.
type SendMessage struct {
	Returns[types.Message] `json:"-"`

	ChatID           int64                 `json:"chat_id"`
	Text             string                `json:"text"`
	ParseMode        string                `json:"parse_mode,omitempty"`
	ReplyToMessageID int64                 `json:"reply_to_message_id,omitempty"`
	ReplyMarkup      *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (m SendMessage) Name() string { return "sendMessage" }
func (m SendMessage) Params() any  { return m }

// EditMessageText replaces the text of a sent message.
type EditMessageText struct {
	Returns[types.Message] `json:"-"`

	ChatID      int64                 `json:"chat_id,omitempty"`
	MessageID   int64                 `json:"message_id,omitempty"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (m EditMessageText) Name() string { return "editMessageText" }
func (m EditMessageText) Params() any  { return m }

// AnswerCallbackQuery acknowledges an inline button press.
type AnswerCallbackQuery struct {
	Returns[bool] `json:"-"`

	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

func (m AnswerCallbackQuery) Name() string { return "answerCallbackQuery" }
func (m AnswerCallbackQuery) Params() any  { return m }

// SetWebhook registers a webhook URL.
type SetWebhook struct {
	Returns[bool] `json:"-"`

	URL            string             `json:"url"`
	SecretToken    string             `json:"secret_token,omitempty"`
	AllowedUpdates []types.UpdateType `json:"allowed_updates,omitempty"`
}

func (m SetWebhook) Name() string { return "setWebhook" }
func (m SetWebhook) Params() any  { return m }

// DeleteWebhook removes the webhook so getUpdates can be used.
type DeleteWebhook struct {
	Returns[bool] `json:"-"`

	DropPendingUpdates bool `json:"drop_pending_updates,omitempty"`
}

func (m DeleteWebhook) Name() string { return "deleteWebhook" }
func (m DeleteWebhook) Params() any  { return m }

var (
	_ Method[types.User]     = GetMe{}
	_ Method[[]types.Update] = GetUpdates{}
	_ Method[types.Message]  = SendMessage{}
	_ Method[types.Message]  = EditMessageText{}
	_ Method[bool]           = AnswerCallbackQuery{}
	_ Method[bool]           = SetWebhook{}
	_ Method[bool]           = DeleteWebhook{}
)

// GetMe fetches the bot's own user.
func (b *Bot) GetMe(ctx context.Context) (types.User, error) {
	return Send[types.User](ctx, b, GetMe{})
}

// GetUpdates fetches the next batch of updates.
func (b *Bot) GetUpdates(ctx context.Context, m GetUpdates) ([]types.Update, error) {
	return Send[[]types.Update](ctx, b, m)
}

// SendMessage sends a text message and returns it as delivered.
func (b *Bot) SendMessage(ctx context.Context, m SendMessage) (types.Message, error) {
	return Send[types.Message](ctx, b, m)
}

// AnswerCallbackQuery acknowledges a callback query.
func (b *Bot) AnswerCallbackQuery(ctx context.Context, m AnswerCallbackQuery) error {
	_, err := Send[bool](ctx, b, m)
	return err
}
