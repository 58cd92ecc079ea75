package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base32 of the RFC 6238 SHA1 seed "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func fixedClock(unix int64) Option {
	return WithClock(func() time.Time { return time.Unix(unix, 0) })
}

func TestCodeAtRFCVectors(t *testing.T) {
	totp, err := New(rfcSecret, WithDigits(8))
	require.NoError(t, err)

	tests := []struct {
		unix int64
		want string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, totp.CodeAt(time.Unix(tt.unix, 0)), "t=%d", tt.unix)
	}
}

func TestSixDigitCodeIsTruncated(t *testing.T) {
	totp, err := New(rfcSecret, fixedClock(59))
	require.NoError(t, err)
	assert.Equal(t, "287082", totp.Code())
	assert.True(t, totp.Verify("287082"))
	assert.True(t, totp.Verify(" 287082\n"))
}

func TestVerifySkew(t *testing.T) {
	const at = 1111111111
	tests := []struct {
		name   string
		skew   []Option
		offset int64
		want   bool
	}{
		{"current step", nil, 0, true},
		{"previous step", nil, -30, true},
		{"next step", nil, 30, true},
		{"two steps away", nil, 60, false},
		{"no skew rejects previous", []Option{WithSkew(0)}, -30, false},
		{"skew two accepts two steps", []Option{WithSkew(2)}, 60, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totp, err := New(rfcSecret, append([]Option{fixedClock(at)}, tt.skew...)...)
			require.NoError(t, err)
			code := totp.CodeAt(time.Unix(at+tt.offset, 0))
			assert.Equal(t, tt.want, totp.Verify(code))
		})
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	totp, err := New(rfcSecret, fixedClock(59))
	require.NoError(t, err)
	for _, code := range []string{"", "28708", "2870822", "abcdef"} {
		assert.False(t, totp.Verify(code), "code %q", code)
	}
}

func TestNewSecretForms(t *testing.T) {
	want, err := New("JBSWY3DPEHPK3PXP", fixedClock(0))
	require.NoError(t, err)

	for _, s := range []string{"jbswy3dpehpk3pxp", "JBSW Y3DP EHPK 3PXP", "JBSWY3DPEHPK3PXP===="} {
		got, err := New(s, fixedClock(0))
		require.NoError(t, err, s)
		assert.Equal(t, want.Code(), got.Code(), s)
	}

	for _, s := range []string{"", "   ", "!!!invalid!!!"} {
		_, err := New(s)
		assert.ErrorIs(t, err, ErrInvalidSecret, s)
	}
}

func TestWithDigitsIgnoresOutOfRange(t *testing.T) {
	totp, err := New(rfcSecret, WithDigits(4), fixedClock(59))
	require.NoError(t, err)
	assert.Len(t, totp.Code(), 6)
}
