// Package attempt stores failed-authentication history per identifier.
package attempt

import (
	"context"
	"slices"
	"time"

	"abuseguard/internal/ratelimit/models"
	psync "abuseguard/pkg/platform/sync"
)

// InMemoryAttemptStore keeps a sliding list of attempts per identifier.
// Expired attempts are pruned lazily whenever a list is read or written.
// Callers always receive copies; the stored slices never leave the lock.
type InMemoryAttemptStore struct {
	attempts *psync.ShardedMap[[]models.FailedAttempt]
}

func New() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{attempts: psync.NewShardedMap[[]models.FailedAttempt]()}
}

func (s *InMemoryAttemptStore) Append(_ context.Context, attempt models.FailedAttempt, cutoff time.Time) ([]models.FailedAttempt, error) {
	var window []models.FailedAttempt
	s.attempts.Update(attempt.Identifier, func(list []models.FailedAttempt, _ bool) ([]models.FailedAttempt, bool) {
		list = append(prune(list, cutoff), attempt)
		window = slices.Clone(list)
		return list, true
	})
	return window, nil
}

func (s *InMemoryAttemptStore) ListSince(_ context.Context, identifier string, cutoff time.Time) ([]models.FailedAttempt, error) {
	var window []models.FailedAttempt
	s.attempts.Update(identifier, func(list []models.FailedAttempt, exists bool) ([]models.FailedAttempt, bool) {
		if !exists {
			return nil, false
		}
		list = prune(list, cutoff)
		window = slices.Clone(list)
		return list, len(list) > 0
	})
	return window, nil
}

func (s *InMemoryAttemptStore) Clear(_ context.Context, identifier string) error {
	s.attempts.Delete(identifier)
	return nil
}

// CountSince is a monitoring read: it counts without pruning, one shard at a
// time, so the total is not a point-in-time snapshot.
func (s *InMemoryAttemptStore) CountSince(_ context.Context, cutoff time.Time) (int, error) {
	total := 0
	s.attempts.Range(func(_ string, list []models.FailedAttempt) bool {
		for _, a := range list {
			if a.AttemptedAt.After(cutoff) {
				total++
			}
		}
		return true
	})
	return total, nil
}

// Sweep drops identifiers whose newest attempt is before cutoff.
func (s *InMemoryAttemptStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	return s.attempts.EvictIf(func(_ string, list []models.FailedAttempt) bool {
		for _, a := range list {
			if !a.AttemptedAt.Before(cutoff) {
				return false
			}
		}
		return true
	}), nil
}

// prune removes attempts at or before cutoff in place, keeping order.
func prune(list []models.FailedAttempt, cutoff time.Time) []models.FailedAttempt {
	return slices.DeleteFunc(list, func(a models.FailedAttempt) bool {
		return !a.AttemptedAt.After(cutoff)
	})
}
