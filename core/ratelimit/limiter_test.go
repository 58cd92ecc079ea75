package ratelimit

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(now *time.Time, opts ...LimiterOption) *Limiter {
	l := New(opts...)
	l.now = func() time.Time { return *now }
	return l
}

func TestLimiterLocksOutAfterMaxFailures(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now, WithMaxFailures(3))

	assert.False(t, l.RecordFailure(42))
	assert.False(t, l.RecordFailure(42))
	require.NoError(t, l.Check(42))
	assert.True(t, l.RecordFailure(42))

	now = now.Add(time.Minute)
	err := l.Check(42)
	require.ErrorIs(t, err, ErrLockedOut)

	var lockErr *LockoutError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, int64(42), lockErr.Key)
	assert.Equal(t, 14*time.Minute, lockErr.Remaining)
	assert.Contains(t, err.Error(), "try again in 14m0s")

	wrapped := fmt.Errorf("deploy: %w", err)
	assert.True(t, errors.Is(wrapped, ErrLockedOut))
}

func TestLimiterLockoutExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now, WithMaxFailures(1), WithLockout(time.Minute, 10*time.Second))

	require.True(t, l.RecordFailure(42))
	require.Error(t, l.Check(42))

	now = now.Add(10 * time.Second)
	assert.NoError(t, l.Check(42))
	assert.Zero(t, l.Len())
}

func TestLimiterFailuresLeaveWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now, WithMaxFailures(2), WithLockout(time.Minute, time.Hour))

	l.RecordFailure(42)
	now = now.Add(time.Minute + time.Second)
	assert.False(t, l.RecordFailure(42))
	assert.NoError(t, l.Check(42))
}

func TestLimiterKeysAreUsers(t *testing.T) {
	l := New(WithMaxFailures(1))
	l.RecordFailure(42)

	assert.ErrorIs(t, l.Check(42), ErrLockedOut)
	assert.NoError(t, l.Check(43))
}

func TestLimiterResetOnSuccess(t *testing.T) {
	l := New(WithMaxFailures(2))
	l.RecordFailure(42)
	l.Reset(42)

	assert.False(t, l.RecordFailure(42))
	assert.NoError(t, l.Check(42))
}

func TestLimiterPrune(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now, WithMaxFailures(2), WithLockout(time.Minute, 5*time.Minute))

	l.RecordFailure(1)
	l.RecordFailure(2)
	l.RecordFailure(2)
	require.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	l.Prune()
	assert.Equal(t, 1, l.Len(), "the lockout of key 2 outlives the window")

	now = now.Add(5 * time.Minute)
	l.Prune()
	assert.Zero(t, l.Len())
}
