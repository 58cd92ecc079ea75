package dispatch

import (
	"github.com/jdelaire/openbot/core/client"
	"github.com/jdelaire/openbot/core/types"
)

// Request is what flows through one update's pipeline.
type Request struct {
	Bot     *client.Bot
	Update  *types.Update
	Context *Context
}

// NewRequest builds a request with a fresh Context.
func NewRequest(bot *client.Bot, u *types.Update) *Request {
	return &Request{Bot: bot, Update: u, Context: NewContext()}
}

// WithContext returns a copy of r using c.
func (r *Request) WithContext(c *Context) *Request {
	cp := *r
	cp.Context = c
	return &cp
}

// TraceID identifies one processed update in logs.
type TraceID string
