package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveDecision("search", OutcomeAllowed)
	m.ObserveDecision("search", OutcomeAllowed)
	m.ObserveDecision("purchase", OutcomeRejected)
	m.IncrementLockouts("max_attempts")
	m.SetLockedIdentifiers(3)
	m.AddCleanupEvictions("buckets", 4)
	m.AddCleanupEvictions("buckets", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateLimitDecisionsTotal.WithLabelValues("search", OutcomeAllowed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDecisionsTotal.WithLabelValues("purchase", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitLockoutsTotal.WithLabelValues("max_attempts")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RateLimitLockedIdentifiers))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RateLimitCleanupEvictionsTotal.WithLabelValues("buckets")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision("search", OutcomeAllowed)
		m.IncrementFailedAttempts()
		m.IncrementLoginRejections("forbidden")
		m.IncrementCleanupRuns(CleanupSucceeded)
		m.ObserveCleanupDuration(0.1)
	})
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
