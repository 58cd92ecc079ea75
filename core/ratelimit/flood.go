package ratelimit

import (
	"sync"
	"time"
)

// Flood allows at most limit events per key within a sliding window.
type Flood struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	events map[int64][]time.Time
	now    func() time.Time
}

// NewFlood creates a flood limiter. A limit below 1 is treated as 1.
func NewFlood(limit int, window time.Duration) *Flood {
	return &Flood{
		limit:  max(limit, 1),
		window: window,
		events: make(map[int64][]time.Time),
		now:    time.Now,
	}
}

// Allow records an event for key and reports whether it is within the
// limit. When it is not, the returned duration is how long until the oldest
// event leaves the window. Rejected events are not recorded.
func (f *Flood) Allow(key int64) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	cutoff := now.Add(-f.window)
	events := f.events[key]
	fresh := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= f.limit {
		f.events[key] = fresh
		return fresh[0].Sub(cutoff), false
	}
	f.events[key] = append(fresh, now)
	return 0, true
}

// Prune drops keys with no events inside the window.
func (f *Flood) Prune() {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().Add(-f.window)
	for key, events := range f.events {
		if len(events) == 0 || !events[len(events)-1].After(cutoff) {
			delete(f.events, key)
		}
	}
}

// Len returns the number of tracked keys.
func (f *Flood) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
