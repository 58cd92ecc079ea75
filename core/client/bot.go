package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	httpTimeout    = 35 * time.Second
	maxBodyBytes   = 8 << 20
)

// Method is a typed API request. R is the decoded type of the "result" field.
// Implementations embed Returns[R] to declare it.
type Method[R any] interface {
	// Name is the remote method name, e.g. "sendMessage".
	Name() string
	// Params is the JSON request payload; nil sends an empty body.
	Params() any
	returns(R)
}

// Returns binds a method type to its result type R.
type Returns[R any] struct{}

func (Returns[R]) returns(R) {}

// Bot is a handle on the remote API for one bot token. It is safe for
// concurrent use; connection pooling is left to the http.Client.
type Bot struct {
	token   string
	baseURL string
	client  *http.Client
}

// New creates a Bot for the given token.
func New(token string) *Bot {
	return &Bot{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// WithBaseURL overrides the API base URL (for testing or a local API server).
func (b *Bot) WithBaseURL(url string) *Bot {
	b.baseURL = strings.TrimRight(url, "/")
	return b
}

// WithHTTPClient replaces the underlying http.Client.
func (b *Bot) WithHTTPClient(c *http.Client) *Bot {
	b.client = c
	return b
}

// ID returns the numeric bot id encoded in the token, or 0.
func (b *Bot) ID() int64 {
	id, _ := tokenID(b.token)
	return id
}

// Send performs m on bot and decodes its result.
func Send[R any](ctx context.Context, bot *Bot, m Method[R]) (R, error) {
	var result R
	raw, err := bot.Do(ctx, m.Name(), m.Params())
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, &DecodeError{Method: m.Name(), Body: string(raw), Err: err}
	}
	return result, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Do calls a remote method with a JSON payload and returns the raw result.
func (b *Bot) Do(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body := []byte("{}")
	if params != nil {
		var err error
		body, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%s: encode params: %w", method, err)
		}
	}

	url := fmt.Sprintf("%s/bot%s/%s", b.baseURL, b.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &NetworkError{Method: method, Err: redactToken(err, b.token)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Method: method, Err: err}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, &DecodeError{Method: method, Body: string(data), Err: err}
	}

	if !apiResp.OK {
		code := apiResp.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return nil, &APIError{
			Method:          method,
			Code:            code,
			Description:     apiResp.Description,
			RetryAfter:      time.Duration(gjson.GetBytes(data, "parameters.retry_after").Int()) * time.Second,
			MigrateToChatID: gjson.GetBytes(data, "parameters.migrate_to_chat_id").Int(),
		}
	}

	return apiResp.Result, nil
}

// The token is part of the URL; keep it out of error strings and logs.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
