// Package cleanup periodically evicts stale rate-limit state to bound memory.
// Correctness never depends on it: buckets refill lazily and lockouts expire
// on read.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"abuseguard/internal/ratelimit/metrics"
	"abuseguard/internal/ratelimit/ports"
)

// CleanupResult contains the results of a cleanup run.
type CleanupResult struct {
	BucketsEvicted      int
	AttemptListsEvicted int
	IPWindowsEvicted    int
	LockoutsEvicted     int
	Duration            time.Duration
}

// Sweepers are the stores swept on every run. Nil entries are skipped.
type Sweepers struct {
	Buckets   ports.Sweeper
	Attempts  ports.Sweeper
	IPWindows ports.Sweeper
	Lockouts  ports.Sweeper
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithRetention sets how long an entry may sit untouched before eviction.
func WithRetention(retention time.Duration) Option {
	return func(s *Service) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

type Service struct {
	sweepers  Sweepers
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	metrics   *metrics.Metrics
	now       func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

func New(sweepers Sweepers, opts ...Option) *Service {
	service := &Service{
		sweepers:  sweepers,
		logger:    slog.Default(),
		interval:  time.Hour,
		retention: time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Start runs RunOnce on every tick until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "ratelimit cleanup worker started",
		"interval", s.interval.String(),
		"retention", s.retention.String(),
	)

	for {
		select {
		case <-ticker.C:
			s.runAndRecord(ctx)
		case <-ctx.Done():
			s.logger.Info("ratelimit cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

func (s *Service) runAndRecord(ctx context.Context) {
	res, err := s.RunOnce(ctx)

	s.mu.Lock()
	s.lastRun, s.lastErr = s.now(), err
	s.mu.Unlock()

	s.metrics.ObserveCleanupDuration(res.Duration.Seconds())
	s.metrics.AddCleanupEvictions("buckets", res.BucketsEvicted)
	s.metrics.AddCleanupEvictions("attempts", res.AttemptListsEvicted)
	s.metrics.AddCleanupEvictions("ip_windows", res.IPWindowsEvicted)
	s.metrics.AddCleanupEvictions("lockouts", res.LockoutsEvicted)

	if err != nil {
		s.logger.ErrorContext(ctx, "ratelimit_cleanup_failed",
			"error", err,
			"duration_ms", res.Duration.Milliseconds(),
		)
		s.metrics.IncrementCleanupRuns(metrics.CleanupFailed)
		return
	}

	s.logger.InfoContext(ctx, "ratelimit_cleanup_completed",
		"buckets_evicted", res.BucketsEvicted,
		"attempt_lists_evicted", res.AttemptListsEvicted,
		"ip_windows_evicted", res.IPWindowsEvicted,
		"lockouts_evicted", res.LockoutsEvicted,
		"duration_ms", res.Duration.Milliseconds(),
	)
	s.metrics.IncrementCleanupRuns(metrics.CleanupSucceeded)
}

// RunOnce sweeps every store with cutoff now-retention. A failing store does
// not stop the others; the result always reflects what was evicted and the
// error joins every failure.
func (s *Service) RunOnce(ctx context.Context) (*CleanupResult, error) {
	start := s.now()
	cutoff := start.Add(-s.retention)
	res := &CleanupResult{}

	var errs []error
	sweep := func(name string, sweeper ports.Sweeper, into *int) {
		if sweeper == nil {
			return
		}
		n, err := sweeper.Sweep(ctx, cutoff)
		*into = n
		if err != nil {
			errs = append(errs, fmt.Errorf("sweep %s: %w", name, err))
		}
	}
	sweep("buckets", s.sweepers.Buckets, &res.BucketsEvicted)
	sweep("attempts", s.sweepers.Attempts, &res.AttemptListsEvicted)
	sweep("ip windows", s.sweepers.IPWindows, &res.IPWindowsEvicted)
	sweep("lockouts", s.sweepers.Lockouts, &res.LockoutsEvicted)

	res.Duration = s.now().Sub(start)
	return res, errors.Join(errs...)
}

// CheckHealth reports the last run's failure, if any. It is nil before the
// first run.
func (s *Service) CheckHealth() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		return fmt.Errorf("last cleanup at %s failed: %w", s.lastRun.UTC().Format(time.RFC3339), s.lastErr)
	}
	return nil
}
