// Package gateway is the entry point consumers call: it gates login attempts
// and fronts the rate limiter and lockout engine.
//
// ValidateLoginAttempt only gates. The authentication flow reports outcomes
// itself: RecordFailedAttempt on a bad credential, ClearFailedAttempts on
// success.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"abuseguard/internal/platform/privacy"
	"abuseguard/internal/ratelimit/config"
	"abuseguard/internal/ratelimit/metrics"
	"abuseguard/internal/ratelimit/models"
	"abuseguard/internal/ratelimit/observability"
	"abuseguard/internal/ratelimit/ports"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/requestcontext"
)

const tracerName = "abuseguard/ratelimit"

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, clientID string, class models.EndpointClass) (*models.RateLimitResult, error)
	ResetBucket(ctx context.Context, clientID string, class models.EndpointClass) error
}

type LockoutEngine interface {
	CheckAccountLockout(ctx context.Context, identifier string) (*models.AccountLockout, error)
	RecordFailure(ctx context.Context, identifier, ip, userAgent string) (*models.AccountLockout, error)
	RecordSuccess(ctx context.Context, identifier string) error
	UnlockAccount(ctx context.Context, identifier string) error
	GetLockoutStats(ctx context.Context) (*models.LockoutStats, error)
}

type AttemptTracker interface {
	GetFailedAttemptCount(ctx context.Context, identifier string) (int, error)
}

type BackoffCalculator interface {
	CalculateAttemptDelay(attemptCount int) time.Duration
}

type Gateway struct {
	limiter        RateLimiter
	lockouts       LockoutEngine
	attempts       AttemptTracker
	backoff        BackoffCalculator
	ipWindows      ports.IPWindowStore
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
	config         *config.IPThrottleConfig
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(g *Gateway) {
		g.auditPublisher = publisher
	}
}

func WithConfig(cfg *config.IPThrottleConfig) Option {
	return func(g *Gateway) {
		g.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithTracer overrides the global tracer provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = t
	}
}

// Deps groups the collaborators the gateway fronts.
type Deps struct {
	Limiter   RateLimiter
	Lockouts  LockoutEngine
	Attempts  AttemptTracker
	Backoff   BackoffCalculator
	IPWindows ports.IPWindowStore
}

func New(deps Deps, opts ...Option) (*Gateway, error) {
	switch {
	case deps.Limiter == nil:
		return nil, errors.New("rate limiter is required")
	case deps.Lockouts == nil:
		return nil, errors.New("lockout engine is required")
	case deps.Attempts == nil:
		return nil, errors.New("attempt tracker is required")
	case deps.Backoff == nil:
		return nil, errors.New("backoff calculator is required")
	case deps.IPWindows == nil:
		return nil, errors.New("ip window store is required")
	}

	defaultCfg := config.DefaultConfig().IPThrottle
	g := &Gateway{
		limiter:   deps.Limiter,
		lockouts:  deps.Lockouts,
		attempts:  deps.Attempts,
		backoff:   deps.Backoff,
		ipWindows: deps.IPWindows,
		config:    &defaultCfg,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(tracerName)
	}

	return g, nil
}

// ValidateLoginAttempt admits or rejects a login attempt before credentials
// are checked. The first failing rule wins:
//
//  1. more than the allowed attempts from ip within the window: a
//     too_many_requests *models.LoginRejection; the attempt is not recorded
//  2. an active lock on identifier: a forbidden *models.LoginRejection
//
// An admitted attempt logs the advisory backoff for the identifier; the
// gateway itself never delays or rejects on it.
func (g *Gateway) ValidateLoginAttempt(ctx context.Context, identifier, ip string) (err error) {
	identifier = models.NormalizeIdentifier(identifier)
	ctx, span := g.tracer.Start(ctx, "ratelimit.ValidateLoginAttempt",
		trace.WithAttributes(attribute.String("client.ip_prefix", privacy.AnonymizeIP(ip))),
	)
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
	}()

	if _, perr := netip.ParseAddr(ip); perr != nil {
		g.logger.WarnContext(ctx, "login attempt without a resolvable client address",
			"identifier", privacy.PseudonymizeIdentifier(identifier),
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.New(dErrors.CodeValidation, "client address is required")
	}

	now := requestcontext.Now(ctx)
	admitted, oldest, err := g.ipWindows.Admit(ctx, ip, g.config.MaxAttempts, now.Add(-g.config.Window), now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check login attempts for address")
	}
	if !admitted {
		rejection := models.NewIPThrottledRejection(oldest.Add(g.config.Window).Sub(now))
		g.reject(ctx, span, rejection, audit.ActionIPThrottled, "ip", ip)
		return rejection
	}

	lockout, err := g.lockouts.CheckAccountLockout(ctx, identifier)
	if err != nil {
		return err
	}
	if lockout != nil {
		rejection := models.NewLockedRejection(lockout, now)
		g.reject(ctx, span, rejection, audit.ActionLoginBlocked,
			"identifier", identifier,
			"reason", lockout.Reason.String(),
			"remaining_minutes", lockout.RemainingMinutes(now),
		)
		return rejection
	}

	count, err := g.attempts.GetFailedAttemptCount(ctx, identifier)
	if err != nil {
		return err
	}
	delay := g.backoff.CalculateAttemptDelay(count)
	span.SetAttributes(
		attribute.Int("ratelimit.failed_attempts", count),
		attribute.Int64("ratelimit.backoff_ms", delay.Milliseconds()),
	)
	if delay > 0 {
		g.logger.InfoContext(ctx, "login backoff advised",
			"identifier", privacy.PseudonymizeIdentifier(identifier),
			"failed_attempts", count,
			"backoff_ms", delay.Milliseconds(),
		)
	}
	return nil
}

func (g *Gateway) reject(ctx context.Context, span trace.Span, rejection *models.LoginRejection, action audit.Action, attrs ...any) {
	span.SetAttributes(attribute.String("ratelimit.rejection", string(rejection.Code)))
	g.metrics.IncrementLoginRejections(string(rejection.Code))
	observability.LogAudit(ctx, g.logger, g.auditPublisher, action,
		append(attrs, "retry_after_seconds", rejection.RetryAfterSeconds())...,
	)
}

func (g *Gateway) CheckRateLimit(ctx context.Context, clientID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	return g.limiter.CheckRateLimit(ctx, clientID, class)
}

func (g *Gateway) ResetBucket(ctx context.Context, clientID string, class models.EndpointClass) error {
	return g.limiter.ResetBucket(ctx, clientID, class)
}

// RecordFailedAttempt records a failed credential check and applies the
// lock triggers.
func (g *Gateway) RecordFailedAttempt(ctx context.Context, identifier, ip, userAgent string) error {
	_, err := g.lockouts.RecordFailure(ctx, identifier, ip, userAgent)
	return err
}

// ClearFailedAttempts resets the identifier to good standing after a
// successful login, lifting any lock along with the attempt history.
func (g *Gateway) ClearFailedAttempts(ctx context.Context, identifier string) error {
	return g.lockouts.RecordSuccess(ctx, identifier)
}

func (g *Gateway) CheckAccountLockout(ctx context.Context, identifier string) (*models.AccountLockout, error) {
	return g.lockouts.CheckAccountLockout(ctx, identifier)
}

func (g *Gateway) GetFailedAttemptCount(ctx context.Context, identifier string) (int, error) {
	return g.attempts.GetFailedAttemptCount(ctx, identifier)
}

func (g *Gateway) UnlockAccount(ctx context.Context, identifier string) error {
	return g.lockouts.UnlockAccount(ctx, identifier)
}

func (g *Gateway) GetLockoutStats(ctx context.Context) (*models.LockoutStats, error) {
	return g.lockouts.GetLockoutStats(ctx)
}
