package cmap

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe map from string keys to V, split into shards.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint64
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Op tells Mutate what to do with the key after the callback returns.
type Op int

const (
	// OpKeep leaves the map unchanged.
	OpKeep Op = iota
	// OpStore stores the returned value.
	OpStore
	// OpDelete removes the key.
	OpDelete
)

// NewWithShards creates a map with shardCount shards.
// shardCount must be a power of 2; any other value falls back to DefaultShardCount.
func NewWithShards[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards:    make([]*shard[V], shardCount),
		shardMask: uint64(shardCount - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

// ShardIndex returns the index of the shard that owns key.
func (m *Map[V]) ShardIndex(key string) int {
	return int(murmur3.Sum64([]byte(key)) & m.shardMask)
}

func (m *Map[V]) getShard(key string) *shard[V] {
	return m.shards[m.ShardIndex(key)]
}

// Get retrieves a value by key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// Set stores a key-value pair.
func (m *Map[V]) Set(key string, value V) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Mutate runs fn under the shard write lock with the current value of key
// and applies the returned Op. fn must not call back into the map.
func (m *Map[V]) Mutate(key string, fn func(value V, exists bool) (V, Op)) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[key]
	next, op := fn(cur, ok)
	switch op {
	case OpStore:
		s.items[key] = next
	case OpDelete:
		if ok {
			delete(s.items, key)
		}
	}
}

// Count returns the total number of items.
func (m *Map[V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// Clear removes all items and returns how many were removed.
func (m *Map[V]) Clear() int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		removed += len(s.items)
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
	return removed
}
