// Package ipwindow throttles login attempts per source address with a
// sliding window of timestamps.
package ipwindow

import (
	"context"
	"slices"
	"time"

	psync "abuseguard/pkg/platform/sync"
)

// InMemoryIPWindowStore records every admitted login attempt per address,
// successful or not. It is deliberately separate from failed-attempt history.
type InMemoryIPWindowStore struct {
	windows *psync.ShardedMap[[]time.Time]
}

func New() *InMemoryIPWindowStore {
	return &InMemoryIPWindowStore{windows: psync.NewShardedMap[[]time.Time]()}
}

// Admit prunes, checks, and appends under one shard lock, so concurrent
// attempts from one address can never push the window past limit.
func (s *InMemoryIPWindowStore) Admit(_ context.Context, ip string, limit int, cutoff, now time.Time) (bool, time.Time, error) {
	var admitted bool
	var oldest time.Time
	s.windows.Update(ip, func(stamps []time.Time, _ bool) ([]time.Time, bool) {
		stamps = slices.DeleteFunc(stamps, func(t time.Time) bool { return !t.After(cutoff) })
		if len(stamps) < limit {
			stamps = append(stamps, now)
			admitted = true
		}
		if len(stamps) > 0 {
			oldest = slices.MinFunc(stamps, time.Time.Compare)
		}
		return stamps, len(stamps) > 0
	})
	return admitted, oldest, nil
}

// Sweep drops addresses whose newest attempt is before cutoff.
func (s *InMemoryIPWindowStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	return s.windows.EvictIf(func(_ string, stamps []time.Time) bool {
		for _, t := range stamps {
			if !t.Before(cutoff) {
				return false
			}
		}
		return true
	}), nil
}
