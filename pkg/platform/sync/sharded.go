// Package sync provides per-key mutual exclusion primitives. Keys are hashed
// onto a fixed number of shards so unrelated keys rarely contend and no
// operation ever needs a process-wide lock.
package sync

import (
	"sync"
)

const shardCount = 32

// ShardedMutex serialises work on a key without holding a global lock.
// Two keys that share a shard also share a mutex; callers must not lock a
// second key while holding the first.
type ShardedMutex struct {
	shards [shardCount]sync.Mutex
}

func NewShardedMutex() *ShardedMutex {
	return &ShardedMutex{}
}

func (m *ShardedMutex) Lock(key string) {
	m.shards[shardFor(key)].Lock()
}

func (m *ShardedMutex) Unlock(key string) {
	m.shards[shardFor(key)].Unlock()
}

// WithLock runs fn while holding key's shard.
func (m *ShardedMutex) WithLock(key string, fn func()) {
	m.Lock(key)
	defer m.Unlock(key)
	fn()
}

// shardFor maps a key to a shard index; the empty key lives on shard 0.
func shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % shardCount)
}

func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
