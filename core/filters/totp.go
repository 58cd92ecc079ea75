package filters

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jdelaire/openbot/core/dispatch"
	"github.com/jdelaire/openbot/core/ratelimit"
)

// Verifier checks one-time codes. *auth.TOTP implements it.
type Verifier interface {
	Verify(code string) bool
}

// TOTP passes when the last argument of the command parsed by a preceding
// Command filter is a valid one-time code. The code is removed from the
// stored CommandObject's Args. Wrong codes are counted per user in limiter,
// if given; a command without anything shaped like a code is not counted.
// While a user is locked out the filter fails and stores the
// *ratelimit.LockoutError in the Context for later handlers.
func TOTP(v Verifier, limiter *ratelimit.Limiter) dispatch.Filter {
	return dispatch.FilterFunc(func(ctx context.Context, req *dispatch.Request) bool {
		cmd, ok := dispatch.Lookup[CommandObject](req.Context)
		if !ok {
			return false
		}
		var key int64
		if from, ok := req.Update.From(); ok {
			key = from.ID
		}
		logger, _ := dispatch.Extract[*slog.Logger](ctx, req)

		if limiter != nil && lockedOut(req, limiter, key) {
			logger.Warn("totp locked out", "user_id", key, "command", cmd.Command)
			return false
		}

		fields := cmd.Fields()
		if len(fields) == 0 || !codeShaped(fields[len(fields)-1]) {
			return false
		}
		if !v.Verify(fields[len(fields)-1]) {
			logger.Warn("totp rejected", "user_id", key, "command", cmd.Command)
			if limiter != nil && limiter.RecordFailure(key) {
				lockedOut(req, limiter, key)
			}
			return false
		}
		if limiter != nil {
			limiter.Reset(key)
		}

		cmd.Args = strings.Join(fields[:len(fields)-1], " ")
		dispatch.Set(req.Context, cmd)
		return true
	})
}

func lockedOut(req *dispatch.Request, limiter *ratelimit.Limiter, key int64) bool {
	var lockErr *ratelimit.LockoutError
	if errors.As(limiter.Check(key), &lockErr) {
		dispatch.Set(req.Context, lockErr)
		return true
	}
	return false
}

// codeShaped reports whether s looks like an attempt at a code: 6 to 8 digits.
func codeShaped(s string) bool {
	if len(s) < 6 || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
