package backoff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"abuseguard/internal/ratelimit/config"
)

func TestCalculateAttemptDelay(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{-1, 0},
		{0, 0},
		{1, 0},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CalculateAttemptDelay(tc.attempts), "attempts=%d", tc.attempts)
	}
}

func TestExponentIsCapped(t *testing.T) {
	capped := CalculateAttemptDelay(31)
	assert.Equal(t, time.Duration(1<<30)*time.Second, capped)
	assert.Equal(t, capped, CalculateAttemptDelay(1000), "huge counts must not overflow")
	assert.Positive(t, CalculateAttemptDelay(1000))
}

func TestCustomBase(t *testing.T) {
	c := New(config.BackoffConfig{Base: 250 * time.Millisecond, MaxShift: 2})
	assert.Equal(t, 500*time.Millisecond, c.CalculateAttemptDelay(2))
	assert.Equal(t, time.Second, c.CalculateAttemptDelay(3))
	assert.Equal(t, time.Second, c.CalculateAttemptDelay(9))
}

func TestLargeBaseSaturates(t *testing.T) {
	c := New(config.BackoffConfig{Base: 10 * time.Second, MaxShift: 30})
	assert.Equal(t, 10*time.Second*(1<<29), c.CalculateAttemptDelay(30), "still in range")
	assert.Equal(t, time.Duration(math.MaxInt64), c.CalculateAttemptDelay(31))
	assert.Equal(t, time.Duration(math.MaxInt64), c.CalculateAttemptDelay(1000))

	wide := New(config.BackoffConfig{Base: time.Nanosecond, MaxShift: 100})
	assert.Equal(t, time.Duration(1<<62), wide.CalculateAttemptDelay(1000), "exponent stays below the sign bit")
}
