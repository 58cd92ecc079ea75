package types

// Per-kind accessors. Each returns the event and true only when the update
// carries that kind. They are safe on a nil *Update.

func event[T any](u *Update, pick func(*Update) *T) (*T, bool) {
	if u == nil {
		return nil, false
	}
	v := pick(u)
	return v, v != nil
}

func (u *Update) AsMessage() (*Message, bool) {
	return event(u, func(u *Update) *Message { return u.Message })
}

func (u *Update) AsEditedMessage() (*Message, bool) {
	return event(u, func(u *Update) *Message { return u.EditedMessage })
}

func (u *Update) AsChannelPost() (*Message, bool) {
	return event(u, func(u *Update) *Message { return u.ChannelPost })
}

func (u *Update) AsEditedChannelPost() (*Message, bool) {
	return event(u, func(u *Update) *Message { return u.EditedChannelPost })
}

func (u *Update) AsInlineQuery() (*InlineQuery, bool) {
	return event(u, func(u *Update) *InlineQuery { return u.InlineQuery })
}

func (u *Update) AsChosenInlineResult() (*ChosenInlineResult, bool) {
	return event(u, func(u *Update) *ChosenInlineResult { return u.ChosenInlineResult })
}

func (u *Update) AsCallbackQuery() (*CallbackQuery, bool) {
	return event(u, func(u *Update) *CallbackQuery { return u.CallbackQuery })
}

func (u *Update) AsShippingQuery() (*ShippingQuery, bool) {
	return event(u, func(u *Update) *ShippingQuery { return u.ShippingQuery })
}

func (u *Update) AsPreCheckoutQuery() (*PreCheckoutQuery, bool) {
	return event(u, func(u *Update) *PreCheckoutQuery { return u.PreCheckoutQuery })
}

func (u *Update) AsPoll() (*Poll, bool) {
	return event(u, func(u *Update) *Poll { return u.Poll })
}

func (u *Update) AsPollAnswer() (*PollAnswer, bool) {
	return event(u, func(u *Update) *PollAnswer { return u.PollAnswer })
}

func (u *Update) AsMyChatMember() (*ChatMemberUpdated, bool) {
	return event(u, func(u *Update) *ChatMemberUpdated { return u.MyChatMember })
}

func (u *Update) AsChatMember() (*ChatMemberUpdated, bool) {
	return event(u, func(u *Update) *ChatMemberUpdated { return u.ChatMember })
}

func (u *Update) AsChatJoinRequest() (*ChatJoinRequest, bool) {
	return event(u, func(u *Update) *ChatJoinRequest { return u.ChatJoinRequest })
}
