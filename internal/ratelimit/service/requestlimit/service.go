// Package requestlimit enforces per-client token buckets per endpoint class.
//
// Every (client, class) pair owns one bucket holding up to the class limit.
// Tokens refill continuously at limit/window per second, so a client can
// burst up to the full limit and then sustain the average rate.
//
// Usage:
//
//	svc, _ := requestlimit.New(bucketStore)
//	result, err := svc.CheckRateLimit(ctx, clientIP, models.ClassSearch)
//	if err == nil && !result.Allowed {
//	    // Return 429 Too Many Requests with result.Headers
//	}
package requestlimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"abuseguard/internal/ratelimit/config"
	"abuseguard/internal/ratelimit/metrics"
	"abuseguard/internal/ratelimit/models"
	"abuseguard/internal/ratelimit/observability"
	"abuseguard/internal/ratelimit/ports"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/requestcontext"
)

// ErrorReporter receives errors that indicate a deployment fault rather than
// client behaviour.
type ErrorReporter interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
}

// Service is safe for concurrent use; all per-key atomicity lives in the store.
type Service struct {
	buckets        ports.BucketStore
	auditPublisher ports.AuditPublisher
	reporter       ErrorReporter
	logger         *slog.Logger
	config         *config.Config
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithConfig overrides the default endpoint table.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithErrorReporter(reporter ErrorReporter) Option {
	return func(s *Service) {
		s.reporter = reporter
	}
}

func New(buckets ports.BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}

	svc := &Service{
		buckets: buckets,
		config:  config.DefaultConfig(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// CheckRateLimit spends one token from the (clientID, class) bucket.
//
// A rejection is a normal result with Allowed=false, not an error. An unknown
// class is a deployment fault: it returns a misconfigured error wrapping
// models.ErrUnknownEndpointClass and is never turned into a throttling
// decision.
func (s *Service) CheckRateLimit(ctx context.Context, clientID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, ok := s.config.GetLimit(class)
	if !ok {
		return nil, s.misconfigured(ctx, class)
	}

	now := requestcontext.Now(ctx)
	capacity := limit.Capacity()
	bucket, allowed, err := s.buckets.Consume(ctx, models.NewBucketKey(clientID, class), capacity, limit.Window, now)
	if err != nil {
		s.metrics.ObserveDecision(class.String(), metrics.OutcomeError)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	result := &models.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit.MaxTokens,
		Remaining: bucket.Remaining(),
		ResetAt:   now.Add(bucket.TimeToFull(capacity, limit.Window)),
	}
	if !allowed {
		result.RetryAfter = retryAfterSeconds(bucket, capacity, limit)
	}
	result.BuildHeaders()

	if allowed {
		s.metrics.ObserveDecision(class.String(), metrics.OutcomeAllowed)
		return result, nil
	}

	s.metrics.ObserveDecision(class.String(), metrics.OutcomeRejected)
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionRateLimitExceeded,
		"client_id", clientID,
		"endpoint_class", class.String(),
		"limit", limit.MaxTokens,
		"retry_after_seconds", result.RetryAfter,
	)
	return result, nil
}

// ResetBucket forgets the (clientID, class) bucket so the next request sees a
// full one.
func (s *Service) ResetBucket(ctx context.Context, clientID string, class models.EndpointClass) error {
	if _, ok := s.config.GetLimit(class); !ok {
		return s.misconfigured(ctx, class)
	}
	if err := s.buckets.Reset(ctx, models.NewBucketKey(clientID, class)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit bucket")
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionBucketReset,
		"client_id", clientID,
		"endpoint_class", class.String(),
	)
	return nil
}

func (s *Service) misconfigured(ctx context.Context, class models.EndpointClass) error {
	err := dErrors.Wrap(
		fmt.Errorf("%w: %q", models.ErrUnknownEndpointClass, class),
		dErrors.CodeMisconfigured,
		"no rate limit configured for endpoint class",
	)
	s.logger.ErrorContext(ctx, "rate limit configuration error",
		"endpoint_class", class.String(),
		"error", err,
	)
	if s.reporter != nil {
		s.reporter.CaptureError(ctx, err, map[string]string{"endpoint_class": class.String()})
	}
	return err
}

// retryAfterSeconds is the wait until one whole token is available, rounded
// up and never below one second.
func retryAfterSeconds(bucket models.Bucket, capacity float64, limit config.Limit) int {
	wait := bucket.TimeToNextToken(capacity, limit.Window).Seconds()
	return max(int(math.Ceil(wait)), 1)
}
