// Package lockout stores account lockout records in memory.
package lockout

import (
	"context"

	"abuseguard/internal/ratelimit/models"
	psync "abuseguard/pkg/platform/sync"
)

// InMemoryLockoutStore holds at most one record per identifier. Records are
// stored by value; callers get copies and must Put to change state.
type InMemoryLockoutStore struct {
	records *psync.ShardedMap[models.AccountLockout]
}

func New() *InMemoryLockoutStore {
	return &InMemoryLockoutStore{records: psync.NewShardedMap[models.AccountLockout]()}
}

func (s *InMemoryLockoutStore) Get(_ context.Context, identifier string) (*models.AccountLockout, error) {
	record, ok := s.records.Get(identifier)
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (s *InMemoryLockoutStore) Put(_ context.Context, lockout *models.AccountLockout) error {
	record := *lockout
	s.records.Update(record.Identifier, func(models.AccountLockout, bool) (models.AccountLockout, bool) {
		return record, true
	})
	return nil
}

func (s *InMemoryLockoutStore) Delete(_ context.Context, identifier string) error {
	s.records.Delete(identifier)
	return nil
}

func (s *InMemoryLockoutStore) List(_ context.Context) ([]*models.AccountLockout, error) {
	var out []*models.AccountLockout
	s.records.Range(func(_ string, record models.AccountLockout) bool {
		out = append(out, &record)
		return true
	})
	return out, nil
}
