// Package cmap provides a concurrent map sharded by key hash.
//
// Keys are strings and are assigned to shards with murmur3, so the same
// key always lands in the same shard for a given shard count. Each shard
// is guarded by its own RWMutex:
//
//   - Get: read lock on one shard
//   - Set, Mutate: write lock on one shard
//   - Range, Sweep, Clear, Stats: walk shards in ascending index order,
//     each shard processed completely under its lock
//
// Usage:
//
//	m := cmap.NewWithShards[*entry](32)
//	m.Set("key", e)
//	m.Mutate("key", func(e *entry, ok bool) (*entry, cmap.Op) {
//		if ok && e.expired(now) {
//			return nil, cmap.OpDelete
//		}
//		return e, cmap.OpKeep
//	})
//
// Multi-shard operations never hold more than one shard lock at a time,
// so they see each shard consistently but not the whole map at one instant.
package cmap
