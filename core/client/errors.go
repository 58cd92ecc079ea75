package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// API error classes. Match them with errors.Is against an *APIError.
var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrEntityTooLarge  = errors.New("entity too large")
	ErrTooManyRequests = errors.New("too many requests")
	ErrServerError     = errors.New("server error")
	ErrMigrateToChat   = errors.New("migrate to chat")
)

// APIError is an explicit rejection returned by the remote API (ok=false).
type APIError struct {
	Method          string
	Code            int
	Description     string
	RetryAfter      time.Duration
	MigrateToChatID int64
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error %d: %s", e.Method, e.Code, e.Description)
}

// Is reports whether target is the class sentinel matching this error.
func (e *APIError) Is(target error) bool {
	return target == e.class()
}

func (e *APIError) class() error {
	switch {
	case e.MigrateToChatID != 0:
		return ErrMigrateToChat
	case e.Code == http.StatusBadRequest:
		return ErrBadRequest
	case e.Code == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Code == http.StatusForbidden:
		return ErrForbidden
	case e.Code == http.StatusNotFound:
		return ErrNotFound
	case e.Code == http.StatusConflict:
		return ErrConflict
	case e.Code == http.StatusRequestEntityTooLarge:
		return ErrEntityTooLarge
	case e.Code == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case e.Code >= 500:
		return ErrServerError
	// Some rejections only carry the class in the description.
	case strings.Contains(strings.ToLower(e.Description), "too many requests"):
		return ErrTooManyRequests
	}
	return nil
}

// NetworkError wraps transport-level failures (dial, timeout, reset).
type NetworkError struct {
	Method string
	Err    error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network: %v", e.Method, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError wraps a response body that could not be decoded.
type DecodeError struct {
	Method string
	Body   string
	Err    error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("%s: decode response: %v", e.Method, e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// RetryAfter returns the flood-wait duration carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return 0, false
}
