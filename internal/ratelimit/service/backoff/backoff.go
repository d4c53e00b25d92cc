// Package backoff computes the progressive delay suggested after repeated
// failed logins. The delay is advisory: nothing in the module sleeps on it.
package backoff

import (
	"math"
	"time"

	"abuseguard/internal/ratelimit/config"
)

// Calculator doubles the delay for every failure after the first.
type Calculator struct {
	base     time.Duration
	maxShift int
}

func New(cfg config.BackoffConfig) *Calculator {
	c := &Calculator{base: cfg.Base, maxShift: cfg.MaxShift}
	if c.base <= 0 {
		c.base = time.Second
	}
	if c.maxShift <= 0 {
		c.maxShift = 30
	}
	c.maxShift = min(c.maxShift, 62)
	return c
}

// CalculateAttemptDelay returns 0 for attemptCount <= 1 and
// base * 2^(attemptCount-1) otherwise, with the exponent capped. A product
// past the range of time.Duration saturates at the maximum.
func (c *Calculator) CalculateAttemptDelay(attemptCount int) time.Duration {
	if attemptCount <= 1 {
		return 0
	}
	shift := min(attemptCount-1, c.maxShift)
	if c.base > time.Duration(math.MaxInt64>>shift) {
		return time.Duration(math.MaxInt64)
	}
	return c.base * time.Duration(int64(1)<<shift)
}

var defaultCalculator = New(config.DefaultConfig().Backoff)

// CalculateAttemptDelay uses the default one-second base.
func CalculateAttemptDelay(attemptCount int) time.Duration {
	return defaultCalculator.CalculateAttemptDelay(attemptCount)
}
