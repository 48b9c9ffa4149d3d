package memory

import (
	"bytes"
	"sync/atomic"
	"time"

	"github.com/yndnr/memkv/pkg/cmap"
)

// TTL sentinels returned by Store.TTL.
const (
	// TTLNoExpiry is returned for a live key without a deadline.
	TTLNoExpiry int64 = -1
	// TTLMissing is returned for a key that is absent or expired.
	TTLMissing int64 = -2
)

// entry is an immutable stored value. Updates replace the whole entry.
type entry struct {
	value []byte
	// deadline is the expiry instant in Unix nanoseconds; 0 means none.
	deadline int64
}

func (e entry) expiredAt(now int64) bool {
	return e.deadline != 0 && now >= e.deadline
}

// Stats holds store counters.
type Stats struct {
	Keys    int
	Hits    uint64
	Misses  uint64
	Expired uint64

	// Shards holds the entry count of each shard, by shard index.
	Shards []int
}

// Store is a concurrent-safe key-value table with lazy expiry.
type Store struct {
	data *cmap.Map[entry]
	now  func() time.Time

	shardCount int

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

// Option configures the Store.
type Option func(*Store)

// WithClock replaces the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithShardCount sets the number of shards. It must be a power of 2.
func WithShardCount(n int) Option {
	return func(s *Store) {
		s.shardCount = n
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:        time.Now,
		shardCount: cmap.DefaultShardCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.data = cmap.NewWithShards[entry](s.shardCount)
	return s
}

func (s *Store) clock() int64 {
	return s.now().UnixNano()
}

// lookup returns the live entry for key. An expired entry is removed under
// the shard write lock after re-checking it there, so a concurrent SET that
// replaced it in between is never lost.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.data.Get(key)
	if !ok {
		return entry{}, false
	}
	now := s.clock()
	if !e.expiredAt(now) {
		return e, true
	}

	var live entry
	var found bool
	s.data.Mutate(key, func(cur entry, exists bool) (entry, cmap.Op) {
		if !exists {
			return cur, cmap.OpKeep
		}
		if cur.expiredAt(now) {
			s.expired.Add(1)
			return cur, cmap.OpDelete
		}
		live, found = cur, true
		return cur, cmap.OpKeep
	})
	return live, found
}

// Get returns the value for key. The returned slice must not be modified.
func (s *Store) Get(key string) ([]byte, bool) {
	e, ok := s.lookup(key)
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return e.value, true
}

// Set stores value under key and clears any deadline.
func (s *Store) Set(key string, value []byte) {
	s.data.Set(key, entry{value: bytes.Clone(nonNil(value))})
}

// SetWithExpiry stores value under key with a deadline seconds from now.
// A zero duration makes the key expire on its next access.
func (s *Store) SetWithExpiry(key string, value []byte, seconds int64) {
	s.data.Set(key, entry{
		value:    bytes.Clone(nonNil(value)),
		deadline: s.deadlineAfter(seconds),
	})
}

// Del removes key and reports whether a live key was removed.
func (s *Store) Del(key string) bool {
	now := s.clock()
	removed := false
	s.data.Mutate(key, func(cur entry, exists bool) (entry, cmap.Op) {
		if !exists {
			return cur, cmap.OpKeep
		}
		if cur.expiredAt(now) {
			s.expired.Add(1)
		} else {
			removed = true
		}
		return cur, cmap.OpDelete
	})
	return removed
}

// Exists reports whether key holds a live value.
func (s *Store) Exists(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// Expire sets a deadline seconds from now on a live key.
// It returns false if the key is absent or already expired.
func (s *Store) Expire(key string, seconds int64) bool {
	now := s.clock()
	deadline := s.deadlineAfter(seconds)
	return s.update(key, now, func(e entry) (entry, bool) {
		e.deadline = deadline
		return e, true
	})
}

// Persist clears the deadline of a live key.
// It returns false if the key is absent, expired or has no deadline.
func (s *Store) Persist(key string) bool {
	return s.update(key, s.clock(), func(e entry) (entry, bool) {
		if e.deadline == 0 {
			return e, false
		}
		e.deadline = 0
		return e, true
	})
}

// update applies fn to the live entry for key under the shard write lock.
// Expired entries are evicted and fn is not called.
func (s *Store) update(key string, now int64, fn func(entry) (entry, bool)) bool {
	changed := false
	s.data.Mutate(key, func(cur entry, exists bool) (entry, cmap.Op) {
		if !exists {
			return cur, cmap.OpKeep
		}
		if cur.expiredAt(now) {
			s.expired.Add(1)
			return cur, cmap.OpDelete
		}
		next, ok := fn(cur)
		if !ok {
			return cur, cmap.OpKeep
		}
		changed = true
		return next, cmap.OpStore
	})
	return changed
}

// TTL returns the remaining lifetime of key in whole seconds, rounded up.
// It returns TTLNoExpiry for a live key without a deadline and TTLMissing
// for an absent or expired key.
func (s *Store) TTL(key string) int64 {
	e, ok := s.lookup(key)
	if !ok {
		return TTLMissing
	}
	if e.deadline == 0 {
		return TTLNoExpiry
	}
	remaining := e.deadline - s.clock()
	if remaining <= 0 {
		return TTLMissing
	}
	sec := int64(time.Second)
	return (remaining + sec - 1) / sec
}

// Keys returns a snapshot of all live keys in no particular order.
// Expired entries met along the way are removed.
func (s *Store) Keys() []string {
	now := s.clock()
	keys := make([]string, 0, s.data.Count())
	n := s.data.Sweep(func(key string, e entry) bool {
		if e.expiredAt(now) {
			return true
		}
		keys = append(keys, key)
		return false
	})
	s.expired.Add(uint64(n))
	return keys
}

// FlushDB removes every entry and returns how many were removed.
func (s *Store) FlushDB() int {
	return s.data.Clear()
}

// Len returns the number of stored entries, including expired entries not yet removed.
func (s *Store) Len() int {
	return s.data.Count()
}

// LiveLen returns the number of live keys.
func (s *Store) LiveLen() int {
	now := s.clock()
	n := 0
	s.data.Range(func(_ string, e entry) bool {
		if !e.expiredAt(now) {
			n++
		}
		return true
	})
	return n
}

// DeleteExpired removes all expired entries and returns the count.
func (s *Store) DeleteExpired() int {
	now := s.clock()
	n := s.data.Sweep(func(_ string, e entry) bool {
		return e.expiredAt(now)
	})
	s.expired.Add(uint64(n))
	return n
}

// Stats returns a snapshot of the store counters. Keys is the sum of the
// shard counts, each read at a slightly different instant.
func (s *Store) Stats() Stats {
	shards := s.data.Stats()
	st := Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Expired: s.expired.Load(),
		Shards:  make([]int, len(shards)),
	}
	for _, sh := range shards {
		st.Shards[sh.Index] = sh.Count
		st.Keys += sh.Count
	}
	return st
}

func (s *Store) deadlineAfter(seconds int64) int64 {
	if seconds < 0 {
		seconds = 0
	}
	now := s.now()
	// Clamp so that huge TTLs do not overflow into the past.
	const maxSeconds = int64(1<<63-1) / int64(time.Second)
	if seconds > maxSeconds-now.Unix() {
		seconds = maxSeconds - now.Unix()
	}
	return now.Add(time.Duration(seconds) * time.Second).UnixNano()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
