package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	MaxPayloadBytes = 8192
	MaxTextLen      = 4096
	MaxSourceLen    = 128
	CurrentVersion  = 1
)

// Request is the JSON envelope a local client writes to the socket.
type Request struct {
	Version int             `json:"version"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Payload is the body of a "notify" request. ChatID picks one of the
// configured chats; zero means all of them.
type Payload struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	ChatID int64  `json:"chat_id,omitempty"`
}

// Response is written back before the connection is closed.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	ID    string `json:"id,omitempty"`
}

// Parse validates the envelope and decodes the notify payload.
func Parse(data []byte) (Payload, error) {
	if len(data) > MaxPayloadBytes {
		return Payload{}, fmt.Errorf("payload exceeds %d byte limit", MaxPayloadBytes)
	}

	var req Request
	if err := strictDecode(data, &req); err != nil {
		return Payload{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if req.Version != CurrentVersion {
		return Payload{}, fmt.Errorf("unsupported version %d, expected %d", req.Version, CurrentVersion)
	}
	if req.Action != "notify" {
		return Payload{}, fmt.Errorf("unknown action %q", req.Action)
	}
	if req.Payload == nil {
		return Payload{}, fmt.Errorf("missing payload")
	}

	var p Payload
	if err := strictDecode(req.Payload, &p); err != nil {
		return Payload{}, fmt.Errorf("invalid notify payload: %w", err)
	}
	if p.Text == "" {
		return Payload{}, fmt.Errorf("text is required")
	}
	if utf8.RuneCountInString(p.Text) > MaxTextLen {
		return Payload{}, fmt.Errorf("text exceeds %d character limit", MaxTextLen)
	}
	if len(p.Source) > MaxSourceLen {
		return Payload{}, fmt.Errorf("source exceeds %d character limit", MaxSourceLen)
	}
	return p, nil
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
