package policy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/jdelaire/openbot/core/policy"
)

func TestAuthorizeAllowedChat(t *testing.T) {
	p := policy.New([]int64{100, 200})
	err := p.Authorize(100, 1, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorizeDeniedChat(t *testing.T) {
	p := policy.New([]int64{100})
	err := p.Authorize(999, 1, time.Now())
	if !errors.Is(err, policy.ErrUnauthorizedChat) {
		t.Errorf("error = %v, want ErrUnauthorizedChat", err)
	}
}

func TestAuthorizeStaleUpdate(t *testing.T) {
	p := policy.New([]int64{100})
	stale := time.Now().Add(-6 * time.Minute)
	err := p.Authorize(100, 1, stale)
	if !errors.Is(err, policy.ErrStale) {
		t.Errorf("error = %v, want ErrStale", err)
	}
}

func TestAuthorizeZeroTimestamp(t *testing.T) {
	p := policy.New([]int64{100})
	if err := p.Authorize(100, 1, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorizeFreshnessDisabled(t *testing.T) {
	p := policy.New([]int64{100}).WithFreshness(0)
	if err := p.Authorize(100, 1, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAuthorizeDuplicateUpdateID(t *testing.T) {
	p := policy.New([]int64{100})
	now := time.Now()

	if err := p.Authorize(100, 42, now); err != nil {
		t.Fatalf("first: %v", err)
	}

	err := p.Authorize(100, 42, now)
	if !errors.Is(err, policy.ErrDuplicate) {
		t.Errorf("error = %v, want ErrDuplicate", err)
	}
}

func TestAuthorizePruning(t *testing.T) {
	p := policy.New([]int64{100})
	now := time.Now()

	// Fill up to capacity.
	for i := int64(0); i < 10000; i++ {
		if err := p.Authorize(100, i, now); err != nil {
			t.Fatalf("authorize %d: %v", i, err)
		}
	}

	// Next authorize should trigger pruning and succeed.
	if err := p.Authorize(100, 10000, now); err != nil {
		t.Fatalf("post-prune authorize: %v", err)
	}

	// Early IDs should be pruned and reusable.
	if err := p.Authorize(100, 0, now); err != nil {
		t.Fatalf("reuse pruned ID: %v", err)
	}
}

func TestAuthorizeEmptyAllowlist(t *testing.T) {
	p := policy.New(nil)
	err := p.Authorize(100, 1, time.Now())
	if err == nil {
		t.Fatal("expected error for empty allowlist")
	}
}

func TestSetAllowed(t *testing.T) {
	p := policy.New([]int64{100})
	p.SetAllowed([]int64{200})

	if p.Allowed(100) {
		t.Error("chat 100 still allowed after reload")
	}
	if !p.Allowed(200) {
		t.Error("chat 200 not allowed after reload")
	}
	if err := p.Authorize(200, 1, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
