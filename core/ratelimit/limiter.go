package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLockedOut matches every *LockoutError.
var ErrLockedOut = errors.New("ratelimit: locked out")

// LockoutError reports a locked-out key and how long until it is released.
type LockoutError struct {
	Key       int64
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("too many failed attempts, try again in %s", e.Remaining.Truncate(time.Second))
}

func (e *LockoutError) Is(target error) bool { return target == ErrLockedOut }

// Limiter counts failed verifications per key (a user id) and locks a key
// out once it fails too often within the window.
type Limiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	lockout  time.Duration
	failures map[int64][]time.Time
	locked   map[int64]time.Time // key -> release time
	now      func() time.Time
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithMaxFailures sets the failures within the window that trigger a lockout.
func WithMaxFailures(n int) LimiterOption {
	return func(l *Limiter) {
		if n > 0 {
			l.max = n
		}
	}
}

// WithLockout sets the failure window and the lockout duration.
func WithLockout(window, lockout time.Duration) LimiterOption {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
		if lockout > 0 {
			l.lockout = lockout
		}
	}
}

// New creates a limiter: 5 failures within 15 minutes lock a key for 15 minutes.
func New(opts ...LimiterOption) *Limiter {
	l := &Limiter{
		max:      5,
		window:   15 * time.Minute,
		lockout:  15 * time.Minute,
		failures: make(map[int64][]time.Time),
		locked:   make(map[int64]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check returns a *LockoutError while key is locked out.
func (l *Limiter) Check(key int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.locked[key]
	if !ok {
		return nil
	}
	now := l.now()
	if !now.Before(until) {
		delete(l.locked, key)
		delete(l.failures, key)
		return nil
	}
	return &LockoutError{Key: key, Remaining: until.Sub(now)}
}

// RecordFailure counts a failure and reports whether key is now locked out.
func (l *Limiter) RecordFailure(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.recent(key, now)
	recent = append(recent, now)
	if len(recent) < l.max {
		l.failures[key] = recent
		return false
	}
	delete(l.failures, key)
	l.locked[key] = now.Add(l.lockout)
	return true
}

// Reset forgets key's failures and lockout.
func (l *Limiter) Reset(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	delete(l.locked, key)
}

// Prune drops expired lockouts and keys whose failures left the window.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, until := range l.locked {
		if !now.Before(until) {
			delete(l.locked, key)
		}
	}
	for key := range l.failures {
		if len(l.recent(key, now)) == 0 {
			delete(l.failures, key)
		}
	}
}

// Len returns the number of keys with failures or a lockout.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.locked)
	for key := range l.failures {
		if _, ok := l.locked[key]; !ok {
			n++
		}
	}
	return n
}

// recent trims key's failures to the window. Callers hold mu.
func (l *Limiter) recent(key int64, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	kept := l.failures[key][:0]
	for _, t := range l.failures[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = kept
	return kept
}
