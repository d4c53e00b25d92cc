// Package authlockout locks identifiers after repeated or suspicious failed
// logins.
//
// Each identifier is either unlocked or locked until a fixed instant. A lock
// whose instant has passed is treated as absent and is cleared, together with
// the identifier's failed-attempt history, by the next read that sees it.
// The cleanup sweep only bounds memory; expiry never depends on it.
package authlockout

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"abuseguard/internal/ratelimit/config"
	"abuseguard/internal/ratelimit/metrics"
	"abuseguard/internal/ratelimit/models"
	"abuseguard/internal/ratelimit/observability"
	"abuseguard/internal/ratelimit/ports"
	dErrors "abuseguard/pkg/domain-errors"
	"abuseguard/pkg/platform/audit"
	psync "abuseguard/pkg/platform/sync"
	"abuseguard/pkg/requestcontext"
)

// AttemptTracker is the failed-attempt history the engine evaluates.
type AttemptTracker interface {
	Record(ctx context.Context, identifier, ip, userAgent string) ([]models.FailedAttempt, error)
	ClearFailedAttempts(ctx context.Context, identifier string) error
	TotalFailedAttempts(ctx context.Context) (int, error)
}

type Service struct {
	lockouts       ports.LockoutStore
	attempts       AttemptTracker
	notifier       ports.Notifier
	auditPublisher ports.AuditPublisher
	logger         *slog.Logger
	config         *config.LockoutConfig
	metrics        *metrics.Metrics

	// identifierLocks makes record, evaluate, and lock one step per identifier.
	identifierLocks *psync.ShardedMutex
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

func WithConfig(cfg *config.LockoutConfig) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNotifier tells account owners about new locks. Notification failures
// are logged and never fail the lock.
func WithNotifier(notifier ports.Notifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

func New(lockouts ports.LockoutStore, attempts AttemptTracker, opts ...Option) (*Service, error) {
	if lockouts == nil {
		return nil, errors.New("lockout store is required")
	}
	if attempts == nil {
		return nil, errors.New("attempt tracker is required")
	}

	defaultCfg := config.DefaultConfig().Lockout
	svc := &Service{
		lockouts:        lockouts,
		attempts:        attempts,
		config:          &defaultCfg,
		logger:          slog.Default(),
		identifierLocks: psync.NewShardedMutex(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// CheckAccountLockout returns the identifier's active lock, or nil. An
// expired lock is deleted along with the failed-attempt history.
func (s *Service) CheckAccountLockout(ctx context.Context, identifier string) (*models.AccountLockout, error) {
	identifier = models.NormalizeIdentifier(identifier)
	now := requestcontext.Now(ctx)

	record, err := s.lockouts.Get(ctx, identifier)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lockout")
	}
	if record == nil {
		return nil, nil
	}
	if record.IsActive(now) {
		return record, nil
	}

	s.identifierLocks.Lock(identifier)
	defer s.identifierLocks.Unlock(identifier)
	if _, err := s.expireLocked(ctx, identifier, now); err != nil {
		return nil, err
	}
	return nil, nil
}

// RecordFailure records one failed login and locks the identifier if a
// trigger fires. It returns the identifier's active lock after the attempt,
// or nil. Recording while already locked never creates a second lock.
func (s *Service) RecordFailure(ctx context.Context, identifier, ip, userAgent string) (*models.AccountLockout, error) {
	identifier = models.NormalizeIdentifier(identifier)
	now := requestcontext.Now(ctx)

	s.identifierLocks.Lock(identifier)
	defer s.identifierLocks.Unlock(identifier)

	active, err := s.expireLocked(ctx, identifier, now)
	if err != nil {
		return nil, err
	}

	window, err := s.attempts.Record(ctx, identifier, ip, userAgent)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return active, nil
	}

	reason, triggered := s.evaluate(window, now)
	if !triggered {
		return nil, nil
	}
	return s.lockAccount(ctx, identifier, reason, len(window))
}

// UnlockAccount removes any lock and the failed-attempt history. Unlocking
// an identifier that is not locked is not an error.
func (s *Service) UnlockAccount(ctx context.Context, identifier string) error {
	identifier = models.NormalizeIdentifier(identifier)
	if identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}

	s.identifierLocks.Lock(identifier)
	defer s.identifierLocks.Unlock(identifier)

	if err := s.release(ctx, identifier); err != nil {
		return err
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionAccountUnlocked,
		"identifier", identifier,
	)
	return nil
}

// RecordSuccess returns the identifier to good standing after a successful
// login: any lock is lifted and the failed-attempt history is cleared, in the
// same critical section RecordFailure uses.
func (s *Service) RecordSuccess(ctx context.Context, identifier string) error {
	identifier = models.NormalizeIdentifier(identifier)
	if identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}

	s.identifierLocks.Lock(identifier)
	defer s.identifierLocks.Unlock(identifier)

	record, err := s.lockouts.Get(ctx, identifier)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lockout")
	}
	if err := s.release(ctx, identifier); err != nil {
		return err
	}
	if record != nil && record.IsActive(requestcontext.Now(ctx)) {
		observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionAccountUnlocked,
			"identifier", identifier,
			"reason", "successful_login",
		)
	}
	return nil
}

// GetLockoutStats counts active locks only; expired records awaiting their
// next read are not reported.
func (s *Service) GetLockoutStats(ctx context.Context) (*models.LockoutStats, error) {
	now := requestcontext.Now(ctx)
	records, err := s.lockouts.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lockouts")
	}

	locked := make([]string, 0, len(records))
	for _, record := range records {
		if record.IsActive(now) {
			locked = append(locked, record.Identifier)
		}
	}
	slices.Sort(locked)

	total, err := s.attempts.TotalFailedAttempts(ctx)
	if err != nil {
		return nil, err
	}

	s.metrics.SetLockedIdentifiers(len(locked))
	return &models.LockoutStats{
		TotalLocked:         len(locked),
		LockedAccounts:      locked,
		TotalFailedAttempts: total,
	}, nil
}

// Sweep deletes locks that expired before cutoff, clearing their history the
// same way a read would.
func (s *Service) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	records, err := s.lockouts.List(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list lockouts")
	}

	evicted := 0
	for _, record := range records {
		if record.LockedUntil.After(cutoff) {
			continue
		}
		removed, err := s.sweepOne(ctx, record.Identifier, cutoff)
		if err != nil {
			return evicted, err
		}
		if removed {
			evicted++
		}
	}
	return evicted, nil
}

func (s *Service) sweepOne(ctx context.Context, identifier string, cutoff time.Time) (bool, error) {
	s.identifierLocks.Lock(identifier)
	defer s.identifierLocks.Unlock(identifier)

	// The lock may have been replaced since the listing.
	current, err := s.lockouts.Get(ctx, identifier)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lockout")
	}
	if current == nil || current.LockedUntil.After(cutoff) {
		return false, nil
	}
	if err := s.release(ctx, identifier); err != nil {
		return false, err
	}
	return true, nil
}

// evaluate applies the lock triggers to the in-window attempts. max_attempts
// is checked first and wins when both rules fire.
func (s *Service) evaluate(window []models.FailedAttempt, now time.Time) (models.LockoutReason, bool) {
	count := len(window)
	if count >= s.config.MaxAttempts {
		return models.ReasonMaxAttempts, true
	}
	if count < s.config.SuspiciousMinAttempts {
		return "", false
	}

	ips := make(map[string]struct{}, count)
	rapid := 0
	rapidSince := now.Add(-s.config.RapidFireWindow)
	for _, a := range window {
		ips[a.IPAddress] = struct{}{}
		if !a.AttemptedAt.Before(rapidSince) {
			rapid++
		}
	}
	if len(ips) >= s.config.DistinctIPThreshold || rapid >= s.config.RapidFireThreshold {
		return models.ReasonSuspiciousActivity, true
	}
	return "", false
}

// lockAccount stores a new lock. Callers hold the identifier lock and have
// checked that no active lock exists.
func (s *Service) lockAccount(ctx context.Context, identifier string, reason models.LockoutReason, failedAttempts int) (*models.AccountLockout, error) {
	now := requestcontext.Now(ctx)
	lockout := &models.AccountLockout{
		Identifier:     identifier,
		LockedAt:       now,
		LockedUntil:    now.Add(s.config.LockDuration),
		FailedAttempts: failedAttempts,
		Reason:         reason,
	}
	if err := s.lockouts.Put(ctx, lockout); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store lockout")
	}

	s.metrics.IncrementLockouts(reason.String())
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionAccountLocked,
		"identifier", identifier,
		"reason", reason.String(),
		"failed_attempts", failedAttempts,
		"locked_until", lockout.LockedUntil,
	)

	s.notify(ctx, lockout)
	return lockout, nil
}

func (s *Service) notify(ctx context.Context, lockout *models.AccountLockout) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyLocked(ctx, lockout); err != nil {
		s.logger.WarnContext(ctx, "lockout notification failed", "reason", lockout.Reason.String(), "error", err)
		return
	}
	lockout.NotificationSent = true
	if err := s.lockouts.Put(ctx, lockout); err != nil {
		s.logger.WarnContext(ctx, "failed to mark lockout notified", "error", err)
	}
}

// expireLocked returns the active lock for identifier, first clearing an
// expired one. Callers hold the identifier lock.
func (s *Service) expireLocked(ctx context.Context, identifier string, now time.Time) (*models.AccountLockout, error) {
	record, err := s.lockouts.Get(ctx, identifier)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read lockout")
	}
	if record == nil {
		return nil, nil
	}
	if record.IsActive(now) {
		return record, nil
	}

	if err := s.release(ctx, identifier); err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, s.auditPublisher, audit.ActionLockoutExpired,
		"identifier", identifier,
		"reason", record.Reason.String(),
	)
	return nil, nil
}

func (s *Service) release(ctx context.Context, identifier string) error {
	if err := s.lockouts.Delete(ctx, identifier); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete lockout")
	}
	return s.attempts.ClearFailedAttempts(ctx, identifier)
}
