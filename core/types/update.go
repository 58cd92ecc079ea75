package types

import (
	"errors"
	"fmt"
)

// ErrUnknownUpdateType is returned when an update carries none of the known event kinds.
var ErrUnknownUpdateType = errors.New("unknown update type")

// UpdateType names the concrete event carried by an Update.
type UpdateType string

const (
	UpdateUnknown            UpdateType = ""
	UpdateMessage            UpdateType = "message"
	UpdateEditedMessage      UpdateType = "edited_message"
	UpdateChannelPost        UpdateType = "channel_post"
	UpdateEditedChannelPost  UpdateType = "edited_channel_post"
	UpdateInlineQuery        UpdateType = "inline_query"
	UpdateChosenInlineResult UpdateType = "chosen_inline_result"
	UpdateCallbackQuery      UpdateType = "callback_query"
	UpdateShippingQuery      UpdateType = "shipping_query"
	UpdatePreCheckoutQuery   UpdateType = "pre_checkout_query"
	UpdatePoll               UpdateType = "poll"
	UpdatePollAnswer         UpdateType = "poll_answer"
	UpdateMyChatMember       UpdateType = "my_chat_member"
	UpdateChatMember         UpdateType = "chat_member"
	UpdateChatJoinRequest    UpdateType = "chat_join_request"
)

// AllUpdateTypes lists every known kind in wire order.
var AllUpdateTypes = []UpdateType{
	UpdateMessage,
	UpdateEditedMessage,
	UpdateChannelPost,
	UpdateEditedChannelPost,
	UpdateInlineQuery,
	UpdateChosenInlineResult,
	UpdateCallbackQuery,
	UpdateShippingQuery,
	UpdatePreCheckoutQuery,
	UpdatePoll,
	UpdatePollAnswer,
	UpdateMyChatMember,
	UpdateChatMember,
	UpdateChatJoinRequest,
}

func (t UpdateType) String() string {
	if t == UpdateUnknown {
		return "unknown"
	}
	return string(t)
}

// Update is one inbound event. Exactly one of the pointer fields is set.
type Update struct {
	UpdateID int64 `json:"update_id"`

	Message            *Message            `json:"message,omitempty"`
	EditedMessage      *Message            `json:"edited_message,omitempty"`
	ChannelPost        *Message            `json:"channel_post,omitempty"`
	EditedChannelPost  *Message            `json:"edited_channel_post,omitempty"`
	InlineQuery        *InlineQuery        `json:"inline_query,omitempty"`
	ChosenInlineResult *ChosenInlineResult `json:"chosen_inline_result,omitempty"`
	CallbackQuery      *CallbackQuery      `json:"callback_query,omitempty"`
	ShippingQuery      *ShippingQuery      `json:"shipping_query,omitempty"`
	PreCheckoutQuery   *PreCheckoutQuery   `json:"pre_checkout_query,omitempty"`
	Poll               *Poll               `json:"poll,omitempty"`
	PollAnswer         *PollAnswer         `json:"poll_answer,omitempty"`
	MyChatMember       *ChatMemberUpdated  `json:"my_chat_member,omitempty"`
	ChatMember         *ChatMemberUpdated  `json:"chat_member,omitempty"`
	ChatJoinRequest    *ChatJoinRequest    `json:"chat_join_request,omitempty"`
}

// Kind reports which event the update carries.
func (u *Update) Kind() UpdateType {
	switch {
	case u == nil:
		return UpdateUnknown
	case u.Message != nil:
		return UpdateMessage
	case u.EditedMessage != nil:
		return UpdateEditedMessage
	case u.ChannelPost != nil:
		return UpdateChannelPost
	case u.EditedChannelPost != nil:
		return UpdateEditedChannelPost
	case u.InlineQuery != nil:
		return UpdateInlineQuery
	case u.ChosenInlineResult != nil:
		return UpdateChosenInlineResult
	case u.CallbackQuery != nil:
		return UpdateCallbackQuery
	case u.ShippingQuery != nil:
		return UpdateShippingQuery
	case u.PreCheckoutQuery != nil:
		return UpdatePreCheckoutQuery
	case u.Poll != nil:
		return UpdatePoll
	case u.PollAnswer != nil:
		return UpdatePollAnswer
	case u.MyChatMember != nil:
		return UpdateMyChatMember
	case u.ChatMember != nil:
		return UpdateChatMember
	case u.ChatJoinRequest != nil:
		return UpdateChatJoinRequest
	default:
		return UpdateUnknown
	}
}

// Validate returns ErrUnknownUpdateType if the update carries no known event.
func (u *Update) Validate() error {
	if u == nil {
		return fmt.Errorf("nil update: %w", ErrUnknownUpdateType)
	}
	if u.Kind() == UpdateUnknown {
		return fmt.Errorf("update %d: %w", u.UpdateID, ErrUnknownUpdateType)
	}
	return nil
}

// Event returns the concrete event value as an untyped pointer, or nil.
func (u *Update) Event() any {
	switch u.Kind() {
	case UpdateMessage:
		return u.Message
	case UpdateEditedMessage:
		return u.EditedMessage
	case UpdateChannelPost:
		return u.ChannelPost
	case UpdateEditedChannelPost:
		return u.EditedChannelPost
	case UpdateInlineQuery:
		return u.InlineQuery
	case UpdateChosenInlineResult:
		return u.ChosenInlineResult
	case UpdateCallbackQuery:
		return u.CallbackQuery
	case UpdateShippingQuery:
		return u.ShippingQuery
	case UpdatePreCheckoutQuery:
		return u.PreCheckoutQuery
	case UpdatePoll:
		return u.Poll
	case UpdatePollAnswer:
		return u.PollAnswer
	case UpdateMyChatMember:
		return u.MyChatMember
	case UpdateChatMember:
		return u.ChatMember
	case UpdateChatJoinRequest:
		return u.ChatJoinRequest
	}
	return nil
}

// AnyMessage returns whichever message-shaped event the update carries,
// including the message a callback query is attached to.
func (u *Update) AnyMessage() (*Message, bool) {
	if u == nil {
		return nil, false
	}
	for _, m := range []*Message{u.Message, u.EditedMessage, u.ChannelPost, u.EditedChannelPost} {
		if m != nil {
			return m, true
		}
	}
	if u.CallbackQuery != nil && u.CallbackQuery.Message != nil {
		return u.CallbackQuery.Message, true
	}
	return nil, false
}

// Chat returns the chat the event happened in, if it has one.
func (u *Update) Chat() (*Chat, bool) {
	if m, ok := u.AnyMessage(); ok {
		return &m.Chat, true
	}
	switch {
	case u == nil:
	case u.MyChatMember != nil:
		return &u.MyChatMember.Chat, true
	case u.ChatMember != nil:
		return &u.ChatMember.Chat, true
	case u.ChatJoinRequest != nil:
		return &u.ChatJoinRequest.Chat, true
	case u.PollAnswer != nil && u.PollAnswer.VoterChat != nil:
		return u.PollAnswer.VoterChat, true
	}
	return nil, false
}

// From returns the user that caused the event, if known.
func (u *Update) From() (*User, bool) {
	if u == nil {
		return nil, false
	}
	var from *User
	switch u.Kind() {
	case UpdateMessage, UpdateEditedMessage, UpdateChannelPost, UpdateEditedChannelPost:
		m, _ := u.AnyMessage()
		from = m.From
	case UpdateInlineQuery:
		from = &u.InlineQuery.From
	case UpdateChosenInlineResult:
		from = &u.ChosenInlineResult.From
	case UpdateCallbackQuery:
		from = &u.CallbackQuery.From
	case UpdateShippingQuery:
		from = &u.ShippingQuery.From
	case UpdatePreCheckoutQuery:
		from = &u.PreCheckoutQuery.From
	case UpdatePollAnswer:
		from = u.PollAnswer.User
	case UpdateMyChatMember:
		from = &u.MyChatMember.From
	case UpdateChatMember:
		from = &u.ChatMember.From
	case UpdateChatJoinRequest:
		from = &u.ChatJoinRequest.From
	}
	return from, from != nil
}
