// Package config is the static abuse-prevention policy. It is built once at
// startup and never mutated, so it is safe to share across goroutines.
package config

import (
	"time"

	"abuseguard/internal/ratelimit/models"
)

type Config struct {
	// Token-bucket limits by endpoint class
	EndpointLimits map[models.EndpointClass]Limit

	Lockout    LockoutConfig
	IPThrottle IPThrottleConfig
	Backoff    BackoffConfig
	Cleanup    CleanupConfig
}

// Limit is a token-bucket policy: MaxTokens capacity, refilled continuously
// so an empty bucket is full again after Window.
type Limit struct {
	MaxTokens int
	Window    time.Duration
}

// Capacity is MaxTokens as a float for bucket arithmetic.
func (l Limit) Capacity() float64 {
	return float64(l.MaxTokens)
}

func (l Limit) RefillRatePerSecond() float64 {
	if l.Window <= 0 {
		return 0
	}
	return float64(l.MaxTokens) / l.Window.Seconds()
}

// LockoutConfig holds the account-lockout thresholds and heuristics.
type LockoutConfig struct {
	MaxAttempts   int           // 5 failures in AttemptWindow lock the account
	AttemptWindow time.Duration // 15 minutes, sliding
	LockDuration  time.Duration // 30 minutes, regardless of reason

	SuspiciousMinAttempts int           // heuristics need at least 3 attempts
	DistinctIPThreshold   int           // 3 distinct source IPs
	RapidFireThreshold    int           // 3 attempts within RapidFireWindow
	RapidFireWindow       time.Duration // 60 seconds
}

// IPThrottleConfig limits all login attempts from one address.
type IPThrottleConfig struct {
	MaxAttempts int           // 10 attempts admitted per Window
	Window      time.Duration // 15 minutes, sliding
}

// BackoffConfig is the advisory delay policy: Base * 2^(n-1) for n >= 2.
type BackoffConfig struct {
	Base     time.Duration
	MaxShift int
}

// CleanupConfig drives the memory-bounding sweep. It never affects lockout
// correctness.
type CleanupConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		EndpointLimits: map[models.EndpointClass]Limit{
			models.ClassSearch:    {MaxTokens: 1000, Window: time.Hour},
			models.ClassPurchase:  {MaxTokens: 100, Window: time.Hour},
			models.ClassStream:    {MaxTokens: 10000, Window: time.Hour},
			models.ClassAnalytics: {MaxTokens: 500, Window: time.Hour},
		},
		Lockout: LockoutConfig{
			MaxAttempts:           5,
			AttemptWindow:         15 * time.Minute,
			LockDuration:          30 * time.Minute,
			SuspiciousMinAttempts: 3,
			DistinctIPThreshold:   3,
			RapidFireThreshold:    3,
			RapidFireWindow:       60 * time.Second,
		},
		IPThrottle: IPThrottleConfig{
			MaxAttempts: 10,
			Window:      15 * time.Minute,
		},
		Backoff: BackoffConfig{
			Base:     time.Second,
			MaxShift: 30,
		},
		Cleanup: CleanupConfig{
			Interval:  time.Hour,
			Retention: time.Hour,
		},
	}
}

// GetLimit returns the bucket policy for class. ok is false for classes with
// no configured limit, which callers must treat as a configuration error.
func (c *Config) GetLimit(class models.EndpointClass) (Limit, bool) {
	limit, ok := c.EndpointLimits[class]
	if !ok || limit.MaxTokens <= 0 || limit.Window <= 0 {
		return Limit{}, false
	}
	return limit, true
}
