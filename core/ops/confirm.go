package ops

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	nonceBytes = 8
	confirmTTL = 2 * time.Minute
	maxPending = 100
)

var (
	ErrTooManyPending = errors.New("too many pending confirmations")
	ErrUnknownNonce   = errors.New("unknown or expired confirmation")
	ErrWrongChat      = errors.New("confirmation belongs to a different chat")
)

// Pending is an operation waiting for its Confirm button.
type Pending struct {
	ChatID    int64
	Op        string
	Args      string
	createdAt time.Time
}

// Confirmations holds high-risk operations awaiting a second step. Each
// entry is bound to one chat and expires after two minutes.
type Confirmations struct {
	mu    sync.Mutex
	items map[string]*Pending
	now   func() time.Time
}

// NewConfirmations creates an empty store.
func NewConfirmations() *Confirmations {
	return &Confirmations{
		items: make(map[string]*Pending),
		now:   time.Now,
	}
}

// Create registers a pending operation and returns its nonce.
func (c *Confirmations) Create(chatID int64, op, args string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	if len(c.items) >= maxPending {
		return "", ErrTooManyPending
	}

	nonce, err := generateNonce()
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	c.items[nonce] = &Pending{ChatID: chatID, Op: op, Args: args, createdAt: c.now()}
	return nonce, nil
}

// Consume removes and returns the pending operation for nonce. A nonce
// presented from another chat is left in place.
func (c *Confirmations) Consume(nonce string, chatID int64) (Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked()
	p, ok := c.items[nonce]
	if !ok {
		return Pending{}, ErrUnknownNonce
	}
	if p.ChatID != chatID {
		return Pending{}, ErrWrongChat
	}
	delete(c.items, nonce)
	return *p, nil
}

// Len returns the number of live entries.
func (c *Confirmations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	return len(c.items)
}

// pruneLocked must be called with mu held.
func (c *Confirmations) pruneLocked() {
	now := c.now()
	for nonce, p := range c.items {
		if now.Sub(p.createdAt) > confirmTTL {
			delete(c.items, nonce)
		}
	}
}

func generateNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
