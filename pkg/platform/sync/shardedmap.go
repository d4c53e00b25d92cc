package sync

import (
	"sync"
)

type mapShard[V any] struct {
	mu      sync.Mutex
	entries map[string]V
}

// ShardedMap is a string-keyed map split across independently locked shards.
// Update gives callers an atomic read-modify-write on a single key, and the
// bulk operations (EvictIf, Range, Len) visit one shard at a time so they
// never stall traffic on the rest of the map.
type ShardedMap[V any] struct {
	shards [shardCount]*mapShard[V]
}

func NewShardedMap[V any]() *ShardedMap[V] {
	m := &ShardedMap[V]{}
	for i := range m.shards {
		m.shards[i] = &mapShard[V]{entries: make(map[string]V)}
	}
	return m
}

func (m *ShardedMap[V]) shard(key string) *mapShard[V] {
	return m.shards[shardFor(key)]
}

// Get returns the value stored under key.
func (m *ShardedMap[V]) Get(key string) (V, bool) {
	sh := m.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	v, ok := sh.entries[key]
	return v, ok
}

// Update applies fn to the current value of key under the shard lock.
// fn receives the existing value (zero when absent) and whether it existed;
// it returns the value to store and whether to keep it. Returning keep=false
// deletes the key. The stored value is returned.
func (m *ShardedMap[V]) Update(key string, fn func(current V, exists bool) (next V, keep bool)) V {
	sh := m.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, exists := sh.entries[key]
	next, keep := fn(current, exists)
	if keep {
		sh.entries[key] = next
	} else {
		delete(sh.entries, key)
	}
	return next
}

// Delete removes key and reports whether it was present.
func (m *ShardedMap[V]) Delete(key string) bool {
	sh := m.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.entries[key]
	delete(sh.entries, key)
	return ok
}

// EvictIf removes every entry for which shouldEvict returns true and returns
// the number removed. Only one shard is locked at any moment.
func (m *ShardedMap[V]) EvictIf(shouldEvict func(key string, v V) bool) int {
	evicted := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		for k, v := range sh.entries {
			if shouldEvict(k, v) {
				delete(sh.entries, k)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// Range calls fn for each entry until fn returns false. The view is
// consistent per shard, not across the whole map. fn must not call back
// into the map.
func (m *ShardedMap[V]) Range(fn func(key string, v V) bool) {
	for _, sh := range m.shards {
		sh.mu.Lock()
		for k, v := range sh.entries {
			if !fn(k, v) {
				sh.mu.Unlock()
				return
			}
		}
		sh.mu.Unlock()
	}
}

func (m *ShardedMap[V]) Len() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}
