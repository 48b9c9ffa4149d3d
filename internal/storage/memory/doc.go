// Package memory provides the in-memory key-value store.
//
// Entries live in a sharded map (pkg/cmap) keyed by string. Each entry
// carries a value and an optional absolute deadline. Expiry is lazy: an
// entry whose deadline has passed is invisible to every read and is
// removed by the first operation that observes it. The optional Sweeper
// removes expired entries in the background so keys that are never read
// again do not pile up.
//
// Usage:
//
//	store := memory.New(memory.WithShardCount(32))
//	store.SetWithExpiry("session", []byte("abc"), 60)
//	v, ok := store.Get("session")
//
//	sweeper := memory.NewSweeper(store, time.Second, logger)
//	sweeper.Start(ctx)
//	defer sweeper.Stop()
package memory
