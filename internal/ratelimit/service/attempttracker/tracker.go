// Package attempttracker records failed logins per identifier over a sliding
// window. It knows nothing about locking; the lockout engine reads the window
// it returns.
package attempttracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"abuseguard/internal/platform/device"
	"abuseguard/internal/ratelimit/config"
	"abuseguard/internal/ratelimit/metrics"
	"abuseguard/internal/ratelimit/models"
	"abuseguard/internal/ratelimit/observability"
	"abuseguard/internal/ratelimit/ports"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/audit"
	"abuseguard/pkg/requestcontext"
)

type Tracker struct {
	store          ports.AttemptStore
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
	config         *config.LockoutConfig
	metrics        *metrics.Metrics
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(t *Tracker) {
		t.auditPublisher = publisher
	}
}

// WithConfig sets the attempt window; only AttemptWindow is read.
func WithConfig(cfg *config.LockoutConfig) Option {
	return func(t *Tracker) {
		t.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

func New(store ports.AttemptStore, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, errors.New("attempt store is required")
	}

	defaultCfg := config.DefaultConfig().Lockout
	t := &Tracker{
		store:  store,
		config: &defaultCfg,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

func (t *Tracker) cutoff(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).Add(-t.config.AttemptWindow)
}

// RecordFailedAttempt appends one failed attempt to the identifier's window.
func (t *Tracker) RecordFailedAttempt(ctx context.Context, identifier, ip, userAgent string) error {
	_, err := t.Record(ctx, identifier, ip, userAgent)
	return err
}

// Record appends one failed attempt and returns the identifier's window
// after the append, oldest first.
func (t *Tracker) Record(ctx context.Context, identifier, ip, userAgent string) ([]models.FailedAttempt, error) {
	identifier = models.NormalizeIdentifier(identifier)
	if identifier == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "identifier is required")
	}

	attempt := models.FailedAttempt{
		ID:          uuid.NewString(),
		Identifier:  identifier,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Device:      device.Label(userAgent),
		AttemptedAt: requestcontext.Now(ctx),
	}
	window, err := t.store.Append(ctx, attempt, t.cutoff(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record failed attempt")
	}

	t.metrics.IncrementFailedAttempts()
	t.logger.DebugContext(ctx, "failed attempt recorded",
		"attempts_in_window", len(window),
		"device", attempt.Device,
	)
	return window, nil
}

// RecentAttempts returns the identifier's current window, oldest first.
func (t *Tracker) RecentAttempts(ctx context.Context, identifier string) ([]models.FailedAttempt, error) {
	window, err := t.store.ListSince(ctx, models.NormalizeIdentifier(identifier), t.cutoff(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read failed attempts")
	}
	return window, nil
}

func (t *Tracker) GetFailedAttemptCount(ctx context.Context, identifier string) (int, error) {
	window, err := t.RecentAttempts(ctx, identifier)
	if err != nil {
		return 0, err
	}
	return len(window), nil
}

// ClearFailedAttempts forgets the identifier's history, e.g. after a
// successful login.
func (t *Tracker) ClearFailedAttempts(ctx context.Context, identifier string) error {
	identifier = models.NormalizeIdentifier(identifier)
	if err := t.store.Clear(ctx, identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear failed attempts")
	}
	observability.LogAudit(ctx, t.logger, t.auditPublisher, audit.ActionAttemptsCleared,
		"identifier", identifier,
	)
	return nil
}

// TotalFailedAttempts counts in-window attempts across all identifiers.
func (t *Tracker) TotalFailedAttempts(ctx context.Context) (int, error) {
	total, err := t.store.CountSince(ctx, t.cutoff(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count failed attempts")
	}
	return total, nil
}
