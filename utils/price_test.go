package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := map[string]int64{
		"15000":     15000,
		"15.000":    15000,
		"1.234.567": 1234567,
		" 9990 ":    9990,
		"0":         0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParsePrice(in), in)
	}
}

// Unparseable prices fall back to zero instead of failing.
func TestParsePrice_ZeroFallback(t *testing.T) {
	for _, in := range []string{"", "abc", "12,50", "$100", "1.2e3"} {
		assert.Zero(t, ParsePrice(in), in)
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0", FormatPrice(0))
	assert.Equal(t, "999", FormatPrice(999))
	assert.Equal(t, "1.000", FormatPrice(1000))
	assert.Equal(t, "39.990", FormatPrice(39990))
	assert.Equal(t, "1.234.567", FormatPrice(1234567))
	assert.Equal(t, "-1.500", FormatPrice(-1500))
}

func TestPriceRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 999, 1000, 1234567, 100000, 9223372036854775807} {
		assert.Equal(t, n, ParsePrice(FormatPrice(n)), n)
	}
}

func TestFormatOrderDate(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
	assert.Equal(t, "05 Mar 2024, 14:07", FormatOrderDate(ts, time.UTC))
	assert.Equal(t, DateUnavailable, FormatOrderDate(time.Time{}, time.UTC))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "secret", time.Hour)
	require.NoError(t, err)

	userID, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	_, err = ParseToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
