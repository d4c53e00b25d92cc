// Package bucket stores token buckets in memory, sharded by key.
package bucket

import (
	"context"
	"time"

	"abuseguard/internal/ratelimit/models"
	psync "abuseguard/pkg/platform/sync"
)

// InMemoryBucketStore keeps one models.Bucket per key. State is lost on
// restart; every bucket then starts full again.
type InMemoryBucketStore struct {
	buckets *psync.ShardedMap[models.Bucket]
}

func New() *InMemoryBucketStore {
	return &InMemoryBucketStore{buckets: psync.NewShardedMap[models.Bucket]()}
}

// Consume refills and then tries to take one token under the key's shard
// lock, so two concurrent requests can never both spend the last token.
func (s *InMemoryBucketStore) Consume(_ context.Context, key string, capacity float64, window time.Duration, now time.Time) (models.Bucket, bool, error) {
	var allowed bool
	snapshot := s.buckets.Update(key, func(b models.Bucket, exists bool) (models.Bucket, bool) {
		if !exists {
			b = models.NewBucket(capacity, now)
		}
		b.Refill(now, capacity, window)
		allowed = b.TryConsume()
		return b, true
	})
	return snapshot, allowed, nil
}

func (s *InMemoryBucketStore) Reset(_ context.Context, key string) error {
	s.buckets.Delete(key)
	return nil
}

// Sweep drops buckets last refilled before cutoff.
func (s *InMemoryBucketStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	return s.buckets.EvictIf(func(_ string, b models.Bucket) bool {
		return b.LastRefillAt.Before(cutoff)
	}), nil
}

// Len reports the number of live buckets.
func (s *InMemoryBucketStore) Len() int {
	return s.buckets.Len()
}
