// Package middleware applies token-bucket limits to HTTP routes.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"abuseguard/internal/platform/privacy"
	"abuseguard/internal/ratelimit/models"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/circuit"
	"abuseguard/pkg/platform/httputil"
	"abuseguard/pkg/requestcontext"
)

// HeaderStatus is set to "degraded" while the limiter keeps failing and
// requests are passed through unchecked.
const HeaderStatus = "X-RateLimit-Status"

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, clientID string, class models.EndpointClass) (*models.RateLimitResult, error)
}

type Middleware struct {
	limiter RateLimiter
	logger  *slog.Logger
	breaker *circuit.Breaker
}

type Option func(*Middleware)

func WithBreaker(b *circuit.Breaker) Option {
	return func(m *Middleware) {
		m.breaker = b
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
		breaker: circuit.New("ratelimit"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit keys each request by client address and spends one token of
// class. Limit headers are always written. Store failures fail open; a
// misconfigured class fails closed with a 500.
func (m *Middleware) RateLimit(class models.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := m.limiter.CheckRateLimit(ctx, ip, class)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeMisconfigured) {
					httputil.WriteError(w, err)
					return
				}
				m.failOpen(ctx, w, ip, err)
				next.ServeHTTP(w, r)
				return
			}
			m.recordSuccess(ctx)

			for name, value := range result.Headers {
				w.Header().Set(name, value)
			}
			if !result.Allowed {
				httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: result.RetryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) failOpen(ctx context.Context, w http.ResponseWriter, ip string, err error) {
	open, t := m.breaker.RecordFailure()
	if t.Opened {
		m.logger.ErrorContext(ctx, "rate limiter circuit opened; passing requests through", "error", err)
	}
	if open {
		w.Header().Set(HeaderStatus, "degraded")
		return
	}
	m.logger.ErrorContext(ctx, "failed to check rate limit", "error", err, "ip_prefix", privacy.AnonymizeIP(ip))
}

func (m *Middleware) recordSuccess(ctx context.Context) {
	if _, t := m.breaker.RecordSuccess(); t.Closed {
		m.logger.InfoContext(ctx, "rate limiter circuit closed")
	}
}

// CheckHealth fails while the breaker is open.
func (m *Middleware) CheckHealth() error {
	if m.breaker.IsOpen() {
		return errors.New("rate limiter failing; requests pass unchecked")
	}
	return nil
}
