package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for rate-limit decisions.
const (
	OutcomeAllowed   = "allowed"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
	CleanupSucceeded = "success"
	CleanupFailed    = "failure"
)

type Metrics struct {
	RateLimitDecisionsTotal         *prometheus.CounterVec
	RateLimitFailedAttemptsTotal    prometheus.Counter
	RateLimitLockoutsTotal          *prometheus.CounterVec
	RateLimitLoginRejectionsTotal   *prometheus.CounterVec
	RateLimitLockedIdentifiers      prometheus.Gauge
	RateLimitCleanupRunsTotal       *prometheus.CounterVec
	RateLimitCleanupEvictionsTotal  *prometheus.CounterVec
	RateLimitCleanupDurationSeconds prometheus.Histogram
}

// New registers the ratelimit collectors with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "abuseguard_ratelimit_decisions_total",
			Help: "Token bucket decisions by endpoint class and outcome",
		}, []string{"class", "outcome"}),
		RateLimitFailedAttemptsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "abuseguard_ratelimit_failed_attempts_recorded_total",
			Help: "Total number of failed login attempts recorded",
		}),
		RateLimitLockoutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "abuseguard_ratelimit_lockouts_total",
			Help: "Total number of account lockouts by reason",
		}, []string{"reason"}),
		RateLimitLoginRejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "abuseguard_ratelimit_login_rejections_total",
			Help: "Login attempts rejected by the validation gateway, by code",
		}, []string{"code"}),
		RateLimitLockedIdentifiers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "abuseguard_ratelimit_locked_identifiers",
			Help: "Current number of locked identifiers as of the last stats read",
		}),
		RateLimitCleanupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "abuseguard_ratelimit_cleanup_runs_total",
			Help: "Total number of cleanup runs",
		}, []string{"status"}),
		RateLimitCleanupEvictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "abuseguard_ratelimit_cleanup_evictions_total",
			Help: "Entries evicted by the cleanup worker, by store",
		}, []string{"store"}),
		RateLimitCleanupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "abuseguard_ratelimit_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
	}
}

// All recorders are nil-safe so services can run without metrics.

func (m *Metrics) ObserveDecision(class, outcome string) {
	if m == nil {
		return
	}
	m.RateLimitDecisionsTotal.WithLabelValues(class, outcome).Inc()
}

func (m *Metrics) IncrementFailedAttempts() {
	if m == nil {
		return
	}
	m.RateLimitFailedAttemptsTotal.Inc()
}

func (m *Metrics) IncrementLockouts(reason string) {
	if m == nil {
		return
	}
	m.RateLimitLockoutsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementLoginRejections(code string) {
	if m == nil {
		return
	}
	m.RateLimitLoginRejectionsTotal.WithLabelValues(code).Inc()
}

func (m *Metrics) SetLockedIdentifiers(count int) {
	if m == nil {
		return
	}
	m.RateLimitLockedIdentifiers.Set(float64(count))
}

func (m *Metrics) IncrementCleanupRuns(status string) {
	if m == nil {
		return
	}
	m.RateLimitCleanupRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) AddCleanupEvictions(store string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.RateLimitCleanupEvictionsTotal.WithLabelValues(store).Add(float64(count))
}

func (m *Metrics) ObserveCleanupDuration(durationSeconds float64) {
	if m == nil {
		return
	}
	m.RateLimitCleanupDurationSeconds.Observe(durationSeconds)
}
