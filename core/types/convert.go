package types

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/tidwall/gjson"
)

// ConvertError is returned when an update does not carry the requested event kind.
type ConvertError struct {
	UpdateID int64
	Have     UpdateType
	Want     string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("update %d is %s, cannot convert to %s", e.UpdateID, e.Have, e.Want)
}

// As returns the event of type T carried by the update. T is one of the
// concrete event pointer types (*Message, *CallbackQuery, ...). For *Message
// every message-shaped kind matches.
func As[T any](u *Update) (T, error) {
	var zero T
	if u == nil {
		return zero, &ConvertError{Have: UpdateUnknown, Want: typeName[T]()}
	}
	switch any(zero).(type) {
	case *Message:
		if m, ok := u.AnyMessage(); ok && u.CallbackQuery == nil {
			return any(m).(T), nil
		}
	default:
		if v, ok := u.Event().(T); ok {
			return v, nil
		}
	}
	return zero, &ConvertError{UpdateID: u.UpdateID, Have: u.Kind(), Want: typeName[T]()}
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// DetectKind inspects raw update JSON without decoding it. It returns the
// update id and the kind of the first known event key present.
func DetectKind(raw []byte) (int64, UpdateType, error) {
	if !gjson.ValidBytes(raw) {
		return 0, UpdateUnknown, fmt.Errorf("detect kind: invalid JSON")
	}
	id := gjson.GetBytes(raw, "update_id").Int()
	for _, t := range AllUpdateTypes {
		if gjson.GetBytes(raw, string(t)).IsObject() {
			return id, t, nil
		}
	}
	return id, UpdateUnknown, fmt.Errorf("update %d: %w", id, ErrUnknownUpdateType)
}

// DecodeUpdate decodes a single update and checks that it carries a known event.
func DecodeUpdate(raw []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	if err := u.Validate(); err != nil {
		return &u, err
	}
	return &u, nil
}
