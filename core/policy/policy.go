package policy

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	defaultFreshness = 5 * time.Minute
	maxSeenIDs       = 10000
	pruneCount       = 1000
)

var (
	ErrUnauthorizedChat = errors.New("unauthorized chat")
	ErrStale            = errors.New("stale update")
	ErrDuplicate        = errors.New("duplicate update")
)

// Policy authorizes inbound updates against a chat allowlist,
// freshness window, and update_id deduplication.
type Policy struct {
	mu        sync.Mutex
	allowed   map[int64]bool
	freshness time.Duration
	seen      map[int64]bool
	seenOrder []int64
	now       func() time.Time
}

// New creates a Policy that authorizes only the given chat IDs.
func New(chatIDs []int64) *Policy {
	p := &Policy{
		freshness: defaultFreshness,
		seen:      make(map[int64]bool),
		now:       time.Now,
	}
	p.SetAllowed(chatIDs)
	return p
}

// WithFreshness overrides how old an update may be. Zero disables the check.
func (p *Policy) WithFreshness(d time.Duration) *Policy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.freshness = d
	return p
}

// SetAllowed replaces the allowlist. Safe to call while serving.
func (p *Policy) SetAllowed(chatIDs []int64) {
	allowed := make(map[int64]bool, len(chatIDs))
	for _, id := range chatIDs {
		allowed[id] = true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowed = allowed
}

// Allowed reports whether chatID is on the allowlist.
func (p *Policy) Allowed(chatID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allowed[chatID]
}

// Authorize checks whether an update should be processed. A zero timestamp
// skips the freshness check; not every update kind carries a date.
func (p *Policy) Authorize(chatID int64, updateID int64, timestamp time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.allowed[chatID] {
		return fmt.Errorf("%w: %d", ErrUnauthorizedChat, chatID)
	}

	if p.freshness > 0 && !timestamp.IsZero() {
		if age := p.now().Sub(timestamp); age > p.freshness {
			return fmt.Errorf("%w: %v old", ErrStale, age.Truncate(time.Second))
		}
	}

	if p.seen[updateID] {
		return fmt.Errorf("%w: %d", ErrDuplicate, updateID)
	}

	// Prune oldest entries if at capacity.
	if len(p.seen) >= maxSeenIDs {
		n := min(pruneCount, len(p.seenOrder))
		for _, id := range p.seenOrder[:n] {
			delete(p.seen, id)
		}
		p.seenOrder = p.seenOrder[n:]
	}

	p.seen[updateID] = true
	p.seenOrder = append(p.seenOrder, updateID)

	return nil
}
