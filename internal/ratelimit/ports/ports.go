// Package ports defines the storage and collaborator interfaces of the
// ratelimit module. Every store implementation must make its per-key
// read-modify-write operations atomic; services never lock around a store.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"abuseguard/internal/ratelimit/models"
	"abuseguard/pkg/platform/audit"
)

// Sweeper evicts entries untouched since cutoff and reports how many went.
// Implementations lock at most one shard at a time.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// BucketStore holds one token bucket per key.
type BucketStore interface {
	Sweeper

	// Consume refills key's bucket to now (creating it full if absent) and
	// takes one token if available, as a single atomic step. It returns the
	// bucket state after the step and whether a token was taken.
	Consume(ctx context.Context, key string, capacity float64, window time.Duration, now time.Time) (models.Bucket, bool, error)

	// Reset forgets key's bucket so the next request sees a full one.
	Reset(ctx context.Context, key string) error
}

// AttemptStore holds the failed-attempt list of each identifier.
type AttemptStore interface {
	Sweeper

	// Append drops attempts at or before cutoff, appends attempt, and returns
	// the surviving window (including attempt), oldest first.
	Append(ctx context.Context, attempt models.FailedAttempt, cutoff time.Time) ([]models.FailedAttempt, error)

	// ListSince drops attempts at or before cutoff and returns the rest,
	// oldest first.
	ListSince(ctx context.Context, identifier string, cutoff time.Time) ([]models.FailedAttempt, error)

	// Clear removes the identifier's whole history.
	Clear(ctx context.Context, identifier string) error

	// CountSince totals attempts after cutoff across every identifier.
	CountSince(ctx context.Context, cutoff time.Time) (int, error)
}

// LockoutStore holds at most one lockout record per identifier.
type LockoutStore interface {
	// Get returns nil, nil when no record exists. Expiry is the caller's
	// concern; the store returns expired records as they are.
	Get(ctx context.Context, identifier string) (*models.AccountLockout, error)

	// Put stores lockout, replacing any record for the same identifier.
	Put(ctx context.Context, lockout *models.AccountLockout) error

	Delete(ctx context.Context, identifier string) error

	// List returns a snapshot of every record.
	List(ctx context.Context) ([]*models.AccountLockout, error)
}

// IPWindowStore throttles login attempts per source address.
type IPWindowStore interface {
	Sweeper

	// Admit drops timestamps at or before cutoff. If fewer than limit remain it
	// appends now and admits; otherwise it rejects without appending. oldest
	// is the earliest timestamp still in the window after the call.
	Admit(ctx context.Context, ip string, limit int, cutoff, now time.Time) (admitted bool, oldest time.Time, err error)
}

// AuditPublisher receives security audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Notifier tells an account owner their account was locked, e.g. by email.
type Notifier interface {
	NotifyLocked(ctx context.Context, lockout *models.AccountLockout) error
}
