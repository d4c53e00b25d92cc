package requestlimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"abuseguard/internal/ratelimit/config"
	"abuseguard/internal/ratelimit/mocks"
	"abuseguard/internal/ratelimit/models"
	bucketStore "abuseguard/internal/ratelimit/store/bucket"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/requestcontext"
)

// =============================================================================
// RequestLimit Service Test Suite
// =============================================================================
// Justification for unit tests: bucket arithmetic (burst, refill, header
// values) depends on exact timestamps, which feature tests cannot pin.

type RequestLimitServiceSuite struct {
	suite.Suite
	store   *bucketStore.InMemoryBucketStore
	ring    *audit.Ring
	service *Service
	now     time.Time
}

type recordingReporter struct {
	errs []error
}

func (r *recordingReporter) CaptureError(_ context.Context, err error, _ map[string]string) {
	r.errs = append(r.errs, err)
}

func TestRequestLimitServiceSuite(t *testing.T) {
	suite.Run(t, new(RequestLimitServiceSuite))
}

func (s *RequestLimitServiceSuite) SetupTest() {
	s.store = bucketStore.New()
	s.ring = audit.NewRing(16)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(
		s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithConfig(config.DefaultConfig()),
		WithAuditPublisher(s.ring),
	)
	s.Require().NoError(err)
}

func (s *RequestLimitServiceSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(offset))
}

func (s *RequestLimitServiceSuite) check(offset time.Duration, client string, class models.EndpointClass) *models.RateLimitResult {
	res, err := s.service.CheckRateLimit(s.at(offset), client, class)
	s.Require().NoError(err)
	return res
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *RequestLimitServiceSuite) TestNew() {
	s.Run("nil buckets store returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "buckets store is required")
	})

	s.Run("valid store returns configured service", func() {
		svc, err := New(s.store)
		s.NoError(err)
		s.NotNil(svc)
	})
}

// =============================================================================
// CheckRateLimit Tests
// =============================================================================

func (s *RequestLimitServiceSuite) TestBurstThenReject() {
	for i := range 100 {
		res := s.check(0, "10.0.0.1", models.ClassPurchase)
		s.Require().True(res.Allowed, "request %d", i+1)
		s.Equal(99-i, res.Remaining)
	}

	res := s.check(0, "10.0.0.1", models.ClassPurchase)
	s.False(res.Allowed)
	s.Equal(0, res.Remaining)
	s.Equal(36, res.RetryAfter, "purchase refills one token every 36s")
	s.Equal("36", res.Headers[models.HeaderRetryAfter])
	s.Equal(s.now.Add(time.Hour), res.ResetAt)

	events := s.ring.Recent(0)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionRateLimitExceeded.String(), events[0].Action)
	s.Equal("10.0.0.1", events[0].Subject)
}

func (s *RequestLimitServiceSuite) TestHeaders() {
	s.Run("allowed response carries limit headers without retry-after", func() {
		res := s.check(0, "10.0.0.2", models.ClassSearch)
		s.True(res.Allowed)
		s.Equal("1000", res.Headers[models.HeaderLimit])
		s.Equal("999", res.Headers[models.HeaderRemaining])
		s.Equal(strconv.FormatInt(s.now.Add(3600*time.Millisecond).Unix(), 10), res.Headers[models.HeaderReset])
		s.NotContains(res.Headers, models.HeaderRetryAfter)
		s.Zero(res.RetryAfter)
	})
}

func (s *RequestLimitServiceSuite) TestRefill() {
	for range 100 {
		s.check(0, "10.0.0.3", models.ClassPurchase)
	}
	s.False(s.check(35*time.Second, "10.0.0.3", models.ClassPurchase).Allowed)

	res := s.check(36*time.Second, "10.0.0.3", models.ClassPurchase)
	s.True(res.Allowed, "one token refills after 36s")
	s.Equal(0, res.Remaining)

	res = s.check(2*time.Hour, "10.0.0.3", models.ClassPurchase)
	s.True(res.Allowed)
	s.Equal(99, res.Remaining, "refill is capped at capacity")
}

func (s *RequestLimitServiceSuite) TestSustainedRateIsAdmitted() {
	// analytics: 500/h, one token every 7.2s
	for i := range 2000 {
		res := s.check(time.Duration(i)*7200*time.Millisecond, "10.0.0.4", models.ClassAnalytics)
		s.Require().True(res.Allowed, "request %d", i)
	}
}

func (s *RequestLimitServiceSuite) TestBucketsAreIndependent() {
	for range 100 {
		s.check(0, "10.0.0.5", models.ClassPurchase)
	}
	s.False(s.check(0, "10.0.0.5", models.ClassPurchase).Allowed)
	s.True(s.check(0, "10.0.0.5", models.ClassSearch).Allowed, "other class unaffected")
	s.True(s.check(0, "10.0.0.6", models.ClassPurchase).Allowed, "other client unaffected")
}

func (s *RequestLimitServiceSuite) TestBackwardClockAddsNothing() {
	for range 100 {
		s.check(time.Minute, "10.0.0.7", models.ClassPurchase)
	}
	s.False(s.check(0, "10.0.0.7", models.ClassPurchase).Allowed)
	s.False(s.check(time.Minute+35*time.Second, "10.0.0.7", models.ClassPurchase).Allowed)
}

func (s *RequestLimitServiceSuite) TestUnknownClassIsMisconfiguration() {
	reporter := &recordingReporter{}
	svc, err := New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithErrorReporter(reporter),
	)
	s.Require().NoError(err)

	res, err := svc.CheckRateLimit(s.at(0), "10.0.0.8", models.EndpointClass("uploads"))
	s.Nil(res)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeMisconfigured))
	s.ErrorIs(err, models.ErrUnknownEndpointClass)
	s.Len(reporter.errs, 1)
	s.Zero(s.store.Len(), "no bucket is created for an unknown class")
}

func (s *RequestLimitServiceSuite) TestStoreErrorIsInternal() {
	ctrl := gomock.NewController(s.T())
	store := mocks.NewMockBucketStore(ctrl)
	store.EXPECT().
		Consume(gomock.Any(), "rl:10.0.0.9:search", 1000.0, time.Hour, s.now).
		Return(models.Bucket{}, false, errors.New("backend down"))

	svc, err := New(store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)

	_, err = svc.CheckRateLimit(s.at(0), "10.0.0.9", models.ClassSearch)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// ResetBucket Tests
// =============================================================================

func (s *RequestLimitServiceSuite) TestResetBucket() {
	for range 100 {
		s.check(0, "10.0.0.10", models.ClassPurchase)
	}
	s.False(s.check(0, "10.0.0.10", models.ClassPurchase).Allowed)

	s.Require().NoError(s.service.ResetBucket(s.at(0), "10.0.0.10", models.ClassPurchase))

	res := s.check(0, "10.0.0.10", models.ClassPurchase)
	s.True(res.Allowed)
	s.Equal(99, res.Remaining)

	s.Run("unknown class", func() {
		err := s.service.ResetBucket(s.at(0), "10.0.0.10", models.EndpointClass("nope"))
		s.True(dErrors.HasCode(err, dErrors.CodeMisconfigured))
	})
}
