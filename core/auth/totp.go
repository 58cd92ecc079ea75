// Package auth verifies the one-time codes that guard risky bot commands.
package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidSecret is returned by New for a secret that is not base32 or is empty.
var ErrInvalidSecret = errors.New("auth: invalid totp secret")

// TOTP checks RFC 6238 codes (HMAC-SHA1) against a shared secret.
type TOTP struct {
	key    []byte
	digits int
	step   time.Duration
	skew   int
	now    func() time.Time
}

// Option configures a TOTP.
type Option func(*TOTP)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *TOTP) { t.now = now }
}

// WithDigits sets the code length. Authenticator apps use 6.
func WithDigits(n int) Option {
	return func(t *TOTP) {
		if n >= 6 && n <= 8 {
			t.digits = n
		}
	}
}

// WithSkew sets how many steps before and after now are accepted.
func WithSkew(steps int) Option {
	return func(t *TOTP) {
		if steps >= 0 {
			t.skew = steps
		}
	}
}

// New parses a base32 secret as shown by authenticator apps: case, spaces
// and padding are ignored.
func New(secret string, opts ...Option) (*TOTP, error) {
	clean := strings.ToUpper(strings.Join(strings.Fields(secret), ""))
	clean = strings.TrimRight(clean, "=")
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSecret)
	}
	t := &TOTP{key: key, digits: 6, step: 30 * time.Second, skew: 1, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Code returns the code for the current step.
func (t *TOTP) Code() string {
	return t.CodeAt(t.now())
}

// CodeAt returns the code for the step containing at.
func (t *TOTP) CodeAt(at time.Time) string {
	return t.hotp(t.counter(at))
}

// Verify reports whether code matches the current step or one within the
// configured skew.
func (t *TOTP) Verify(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != t.digits {
		return false
	}
	c := t.counter(t.now())
	ok := false
	for d := -t.skew; d <= t.skew; d++ {
		// Every step is compared so timing does not reveal which one matched.
		if hmac.Equal([]byte(code), []byte(t.hotp(c+int64(d)))) {
			ok = true
		}
	}
	return ok
}

func (t *TOTP) counter(at time.Time) int64 {
	return at.Unix() / int64(t.step/time.Second)
}

// hotp is RFC 4226 dynamic truncation of HMAC(key, counter).
func (t *TOTP) hotp(counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	mac := hmac.New(sha1.New, t.key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	off := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[off:off+4]) & 0x7fffffff
	mod := uint32(1)
	for range t.digits {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", t.digits, bin%mod)
}
