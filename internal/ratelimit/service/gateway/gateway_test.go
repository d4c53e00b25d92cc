package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"abuseguard/internal/ratelimit/config"
	"abuseguard/internal/ratelimit/metrics"
	"abuseguard/internal/ratelimit/mocks"
	"abuseguard/internal/ratelimit/models"
	"abuseguard/internal/ratelimit/service/attempttracker"
	"abuseguard/internal/ratelimit/service/authlockout"
	"abuseguard/internal/ratelimit/service/backoff"
	"abuseguard/internal/ratelimit/service/requestlimit"
	attemptStore "abuseguard/internal/ratelimit/store/attempt"
	bucketStore "abuseguard/internal/ratelimit/store/bucket"
	ipwindowStore "abuseguard/internal/ratelimit/store/ipwindow"
	lockoutStore "abuseguard/internal/ratelimit/store/lockout"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/requestcontext"
	"abuseguard/pkg/testutil"
)

// =============================================================================
// Validation Gateway Test Suite
// =============================================================================
// Justification: the gateway wires every component together; these tests run
// the real in-memory stack and check rule ordering and rejection payloads.

type GatewaySuite struct {
	suite.Suite
	logs    *bytes.Buffer
	ring    *audit.Ring
	metrics *metrics.Metrics
	deps    Deps
	gateway *Gateway
	now     time.Time
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.logs = &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(s.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s.ring = audit.NewRing(64)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	limiter, err := requestlimit.New(bucketStore.New(), requestlimit.WithLogger(logger))
	s.Require().NoError(err)
	tracker, err := attempttracker.New(attemptStore.New(), attempttracker.WithLogger(logger))
	s.Require().NoError(err)
	engine, err := authlockout.New(lockoutStore.New(), tracker, authlockout.WithLogger(logger))
	s.Require().NoError(err)

	s.deps = Deps{
		Limiter:   limiter,
		Lockouts:  engine,
		Attempts:  tracker,
		Backoff:   backoff.New(config.DefaultConfig().Backoff),
		IPWindows: ipwindowStore.New(),
	}
	s.gateway, err = New(s.deps,
		WithLogger(logger),
		WithAuditPublisher(s.ring),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *GatewaySuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(offset))
}

func (s *GatewaySuite) rejection(err error) *models.LoginRejection {
	var rejection *models.LoginRejection
	s.Require().ErrorAs(err, &rejection)
	return rejection
}

// lock drives identifier into a max_attempts lock at offset 8m.
func (s *GatewaySuite) lock(identifier string) {
	for i := range 5 {
		s.Require().NoError(s.gateway.RecordFailedAttempt(s.at(time.Duration(i)*2*time.Minute), identifier, "198.51.100.1", ""))
	}
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *GatewaySuite) TestNew() {
	cases := map[string]func(d *Deps){
		"rate limiter is required":       func(d *Deps) { d.Limiter = nil },
		"lockout engine is required":     func(d *Deps) { d.Lockouts = nil },
		"attempt tracker is required":    func(d *Deps) { d.Attempts = nil },
		"backoff calculator is required": func(d *Deps) { d.Backoff = nil },
		"ip window store is required":    func(d *Deps) { d.IPWindows = nil },
	}
	for msg, mutate := range cases {
		s.Run(msg, func() {
			deps := s.deps
			mutate(&deps)
			_, err := New(deps)
			s.ErrorContains(err, msg)
		})
	}
}

// =============================================================================
// IP Throttle Tests
// =============================================================================

func (s *GatewaySuite) TestIPThrottleBoundary() {
	for i := range 10 {
		s.Require().NoError(s.gateway.ValidateLoginAttempt(s.at(0), "user@x.io", "203.0.113.1"), "attempt %d", i+1)
	}

	err := s.gateway.ValidateLoginAttempt(s.at(time.Minute), "user@x.io", "203.0.113.1")
	s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
	rejection := s.rejection(err)
	s.Equal(14*time.Minute, rejection.RetryAfter)
	s.Equal(840, rejection.RetryAfterSeconds())
	s.Empty(rejection.Reason)

	s.NoError(s.gateway.ValidateLoginAttempt(s.at(0), "user@x.io", "203.0.113.2"), "other addresses are unaffected")
	s.Equal(1.0, promtest.ToFloat64(s.metrics.RateLimitLoginRejectionsTotal.WithLabelValues("too_many_requests")))

	events := s.ring.Recent(1)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionIPThrottled.String(), events[0].Action)
}

func (s *GatewaySuite) TestIPThrottleWindowSlides() {
	for range 10 {
		s.Require().NoError(s.gateway.ValidateLoginAttempt(s.at(0), "user@x.io", "203.0.113.3"))
	}
	s.Error(s.gateway.ValidateLoginAttempt(s.at(14*time.Minute), "user@x.io", "203.0.113.3"))
	s.NoError(s.gateway.ValidateLoginAttempt(s.at(15*time.Minute+time.Second), "user@x.io", "203.0.113.3"))
}

func (s *GatewaySuite) TestSuccessfulLoginsCountTowardIPThrottleOnly() {
	for range 10 {
		s.Require().NoError(s.gateway.ValidateLoginAttempt(s.at(0), "happy@x.io", "203.0.113.4"))
		s.Require().NoError(s.gateway.ClearFailedAttempts(s.at(0), "happy@x.io"))
	}
	s.Error(s.gateway.ValidateLoginAttempt(s.at(0), "happy@x.io", "203.0.113.4"))

	count, err := s.gateway.GetFailedAttemptCount(s.at(0), "happy@x.io")
	s.Require().NoError(err)
	s.Zero(count, "ip throttling never feeds the failed-attempt history")
}

func (s *GatewaySuite) TestIPThrottleCheckedBeforeLockout() {
	s.lock("locked@x.io")
	for range 10 {
		_ = s.gateway.ValidateLoginAttempt(s.at(9*time.Minute), "other@x.io", "203.0.113.5")
	}
	err := s.gateway.ValidateLoginAttempt(s.at(9*time.Minute), "locked@x.io", "203.0.113.5")
	s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
}

func (s *GatewaySuite) TestConcurrentValidationHonoursIPLimit() {
	res := testutil.RunConcurrent(40, func(int) error {
		return s.gateway.ValidateLoginAttempt(s.at(0), "crowd@x.io", "203.0.113.6")
	})
	s.Equal(int32(10), res.Successes)
	s.Equal(int32(30), res.Throttled)
	s.Zero(res.Errors)
}

// =============================================================================
// Lockout Tests
// =============================================================================

func (s *GatewaySuite) TestLockedAccountIsForbidden() {
	s.lock("alice@x.io")

	err := s.gateway.ValidateLoginAttempt(s.at(18*time.Minute+30*time.Second), "Alice@X.io", "203.0.113.7")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	rejection := s.rejection(err)
	s.Equal(models.ReasonMaxAttempts, rejection.Reason)
	s.Equal(s.now.Add(38*time.Minute), rejection.LockedUntil)
	s.Equal(
		"Account temporarily locked due to too many failed login attempts. Try again in 20 minute(s).",
		rejection.Message,
	)

	events := s.ring.Recent(1)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionLoginBlocked.String(), events[0].Action)
	s.Equal("max_attempts", events[0].Reason)
}

func (s *GatewaySuite) TestSuspiciousLockMessage() {
	for i, ip := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		s.Require().NoError(s.gateway.RecordFailedAttempt(s.at(time.Duration(i)*2*time.Minute), "bob@x.io", ip, ""))
	}

	err := s.gateway.ValidateLoginAttempt(s.at(4*time.Minute), "bob@x.io", "203.0.113.8")
	rejection := s.rejection(err)
	s.Equal(models.ReasonSuspiciousActivity, rejection.Reason)
	s.Equal("Account temporarily locked due to suspicious activity. Try again in 30 minute(s).", rejection.Message)
}

func (s *GatewaySuite) TestUnlockAndExpiryAdmitAgain() {
	s.lock("carol@x.io")
	s.Require().NoError(s.gateway.UnlockAccount(s.at(9*time.Minute), "carol@x.io"))
	s.NoError(s.gateway.ValidateLoginAttempt(s.at(9*time.Minute), "carol@x.io", "203.0.113.9"))

	s.lock("dave@x.io")
	s.Error(s.gateway.ValidateLoginAttempt(s.at(37*time.Minute), "dave@x.io", "203.0.113.10"))
	s.NoError(s.gateway.ValidateLoginAttempt(s.at(38*time.Minute), "dave@x.io", "203.0.113.10"))
}

func (s *GatewaySuite) TestSuccessfulLoginClearsLock() {
	s.lock("frank@x.io")
	s.Error(s.gateway.ValidateLoginAttempt(s.at(9*time.Minute), "frank@x.io", "203.0.113.13"))

	s.Require().NoError(s.gateway.ClearFailedAttempts(s.at(9*time.Minute), "frank@x.io"))

	lockout, err := s.gateway.CheckAccountLockout(s.at(9*time.Minute), "frank@x.io")
	s.Require().NoError(err)
	s.Nil(lockout)
	count, err := s.gateway.GetFailedAttemptCount(s.at(9*time.Minute), "frank@x.io")
	s.Require().NoError(err)
	s.Zero(count)
	s.NoError(s.gateway.ValidateLoginAttempt(s.at(9*time.Minute), "frank@x.io", "203.0.113.13"))
}

func (s *GatewaySuite) TestUnresolvedClientAddress() {
	for _, ip := range []string{"", "unknown", "not-an-ip"} {
		s.Run(fmt.Sprintf("ip %q", ip), func() {
			err := s.gateway.ValidateLoginAttempt(s.at(0), "gina@x.io", ip)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}

	s.Contains(s.logs.String(), "login attempt without a resolvable client address")
	s.NotContains(s.logs.String(), "gina@x.io")
	s.NoError(s.gateway.ValidateLoginAttempt(s.at(0), "gina@x.io", "203.0.113.14"),
		"rejected attempts never count against an address window")
}

// =============================================================================
// Backoff Hint Tests
// =============================================================================

func (s *GatewaySuite) TestBackoffIsAdvisory() {
	s.Require().NoError(s.gateway.RecordFailedAttempt(s.at(0), "erin@x.io", "198.51.100.9", ""))
	s.Require().NoError(s.gateway.RecordFailedAttempt(s.at(2*time.Minute), "erin@x.io", "198.51.100.9", ""))

	s.logs.Reset()
	s.NoError(s.gateway.ValidateLoginAttempt(s.at(2*time.Minute), "erin@x.io", "203.0.113.11"),
		"a pending backoff never rejects")
	s.Contains(s.logs.String(), "login backoff advised")
	s.Contains(s.logs.String(), `"backoff_ms":2000`)
	s.NotContains(s.logs.String(), "erin@x.io")
}

// =============================================================================
// Facade and Error Tests
// =============================================================================

func (s *GatewaySuite) TestFacade() {
	res, err := s.gateway.CheckRateLimit(s.at(0), "10.0.0.1", models.ClassSearch)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.NoError(s.gateway.ResetBucket(s.at(0), "10.0.0.1", models.ClassSearch))

	s.lock("frank@x.io")
	stats, err := s.gateway.GetLockoutStats(s.at(9 * time.Minute))
	s.Require().NoError(err)
	s.Equal(1, stats.TotalLocked)

	lockout, err := s.gateway.CheckAccountLockout(s.at(9*time.Minute), "frank@x.io")
	s.Require().NoError(err)
	s.NotNil(lockout)
}

func (s *GatewaySuite) TestIPStoreErrorIsInternal() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockIPWindowStore(ctrl)
	store.EXPECT().
		Admit(gomock.Any(), "203.0.113.12", 10, s.now.Add(-15*time.Minute), s.now).
		Return(false, time.Time{}, errors.New("boom"))

	deps := s.deps
	deps.IPWindows = store
	gw, err := New(deps)
	s.Require().NoError(err)

	err = gw.ValidateLoginAttempt(s.at(0), "user@x.io", "203.0.113.12")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
