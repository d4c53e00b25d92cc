package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abuseguard/internal/ratelimit/models"
)

func TestDefaultConfig_EndpointTable(t *testing.T) {
	cfg := DefaultConfig()

	expected := map[models.EndpointClass]int{
		models.ClassSearch:    1000,
		models.ClassPurchase:  100,
		models.ClassStream:    10000,
		models.ClassAnalytics: 500,
	}
	for class, perHour := range expected {
		limit, ok := cfg.GetLimit(class)
		require.True(t, ok, class)
		assert.Equal(t, perHour, limit.MaxTokens)
		assert.Equal(t, time.Hour, limit.Window)
		assert.InDelta(t, float64(perHour)/3600, limit.RefillRatePerSecond(), 1e-12)
	}
	assert.Len(t, cfg.EndpointLimits, len(models.EndpointClasses()))
}

func TestGetLimit_UnknownClass(t *testing.T) {
	cfg := DefaultConfig()
	_, ok := cfg.GetLimit("upload")
	assert.False(t, ok)

	cfg.EndpointLimits["broken"] = Limit{MaxTokens: 0, Window: time.Hour}
	_, ok = cfg.GetLimit("broken")
	assert.False(t, ok, "a zero-capacity limit is a configuration defect")
}

func TestDefaultConfig_LockoutPolicy(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.Lockout.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.AttemptWindow)
	assert.Equal(t, 30*time.Minute, cfg.Lockout.LockDuration)
	assert.Equal(t, 3, cfg.Lockout.SuspiciousMinAttempts)
	assert.Equal(t, 3, cfg.Lockout.DistinctIPThreshold)
	assert.Equal(t, 3, cfg.Lockout.RapidFireThreshold)
	assert.Equal(t, time.Minute, cfg.Lockout.RapidFireWindow)
	assert.Equal(t, 10, cfg.IPThrottle.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.IPThrottle.Window)
	assert.Equal(t, time.Hour, cfg.Cleanup.Interval)
}
