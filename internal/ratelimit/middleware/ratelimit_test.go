package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"abuseguard/internal/ratelimit/models"
	"abuseguard/internal/ratelimit/service/requestlimit"
	bucketStore "abuseguard/internal/ratelimit/store/bucket"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/circuit"
	"abuseguard/pkg/requestcontext"
)

// =============================================================================
// Rate Limit Middleware Test Suite
// =============================================================================
// Justification: the middleware decides between fail-open and fail-closed on
// errors; those paths cannot be triggered through the real in-memory store.

type MiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
	now    time.Time
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

type stubLimiter struct {
	result *models.RateLimitResult
	err    error
}

func (l *stubLimiter) CheckRateLimit(context.Context, string, models.EndpointClass) (*models.RateLimitResult, error) {
	return l.result, l.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func (s *MiddlewareSuite) serve(mw *Middleware, class models.EndpointClass, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, "test-agent")
	ctx = requestcontext.WithTime(ctx, s.now)
	rec := httptest.NewRecorder()
	mw.RateLimit(class)(okHandler).ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func (s *MiddlewareSuite) TestEnforcesBucket() {
	limiter, err := requestlimit.New(bucketStore.New(), requestlimit.WithLogger(s.logger))
	s.Require().NoError(err)
	mw := New(limiter, s.logger)

	for i := range 100 {
		rec := s.serve(mw, models.ClassPurchase, "203.0.113.1")
		s.Require().Equal(http.StatusOK, rec.Code, "request %d", i+1)
		s.Equal("100", rec.Header().Get(models.HeaderLimit))
		s.Equal(fmt.Sprint(99-i), rec.Header().Get(models.HeaderRemaining))
		s.Empty(rec.Header().Get(models.HeaderRetryAfter))
	}

	rec := s.serve(mw, models.ClassPurchase, "203.0.113.1")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	s.Equal("36", rec.Header().Get(models.HeaderRetryAfter))
	s.Equal("0", rec.Header().Get(models.HeaderRemaining))

	var body models.RateLimitExceededResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("rate_limit_exceeded", body.Error)
	s.Equal(36, body.RetryAfter)

	s.Equal(http.StatusOK, s.serve(mw, models.ClassPurchase, "203.0.113.2").Code, "keyed per client")
}

func (s *MiddlewareSuite) TestMisconfiguredClassFailsClosed() {
	limiter, err := requestlimit.New(bucketStore.New(), requestlimit.WithLogger(s.logger))
	s.Require().NoError(err)

	rec := s.serve(New(limiter, s.logger), models.EndpointClass("uploads"), "203.0.113.3")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "internal_error")
}

func (s *MiddlewareSuite) TestStoreErrorFailsOpen() {
	limiter := &stubLimiter{err: dErrors.Wrap(errors.New("backend down"), dErrors.CodeInternal, "failed to check rate limit")}
	mw := New(limiter, s.logger, WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))))

	rec := s.serve(mw, models.ClassSearch, "203.0.113.4")
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Header().Get(HeaderStatus))
	s.NoError(mw.CheckHealth())

	rec = s.serve(mw, models.ClassSearch, "203.0.113.4")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("degraded", rec.Header().Get(HeaderStatus), "breaker opens on the second failure")
	s.Error(mw.CheckHealth())

	limiter.err = nil
	limiter.result = &models.RateLimitResult{Allowed: true, Limit: 1000, Remaining: 999}
	limiter.result.BuildHeaders()
	rec = s.serve(mw, models.ClassSearch, "203.0.113.4")
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Header().Get(HeaderStatus))
	s.NoError(mw.CheckHealth(), "one success closes the breaker")
}
