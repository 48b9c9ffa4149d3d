package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return New(WithClock(clock.Now), WithShardCount(4)), clock
}

// ============================================================
// Basic Operations
// ============================================================

func TestStore_SetGet(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("foo", []byte("bar"))
	v, ok := store.Get("foo")
	if !ok || string(v) != "bar" {
		t.Fatalf("Get(foo) = (%q, %v), want (bar, true)", v, ok)
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}
}

func TestStore_SetCopiesValue(t *testing.T) {
	store, _ := newTestStore(t)

	buf := []byte("bar")
	store.Set("foo", buf)
	buf[0] = 'X'

	v, _ := store.Get("foo")
	if string(v) != "bar" {
		t.Errorf("stored value changed with caller buffer: %q", v)
	}
}

func TestStore_EmptyValue(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("empty", nil)
	v, ok := store.Get("empty")
	if !ok || v == nil || len(v) != 0 {
		t.Errorf("Get(empty) = (%v, %v), want non-nil empty value", v, ok)
	}
}

func TestStore_Del(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("k", []byte("v"))
	if !store.Del("k") {
		t.Error("Del(k) = false, want true")
	}
	if _, ok := store.Get("k"); ok {
		t.Error("Get after Del should miss")
	}
	if store.Del("k") {
		t.Error("second Del(k) = true, want false")
	}
}

func TestStore_Exists(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("k", []byte("v"))
	if !store.Exists("k") {
		t.Error("Exists(k) = false, want true")
	}
	if store.Exists("other") {
		t.Error("Exists(other) = true, want false")
	}
}

func TestStore_FlushDB(t *testing.T) {
	store, _ := newTestStore(t)

	for i := 0; i < 20; i++ {
		store.Set(strconv.Itoa(i), []byte("v"))
	}
	if n := store.FlushDB(); n != 20 {
		t.Errorf("FlushDB() = %d, want 20", n)
	}
	if store.Len() != 0 || len(store.Keys()) != 0 {
		t.Errorf("store not empty after FlushDB: len=%d", store.Len())
	}
}

// ============================================================
// Expiry
// ============================================================

func TestStore_SetWithExpiry(t *testing.T) {
	store, clock := newTestStore(t)

	store.SetWithExpiry("k", []byte("v"), 5)
	if ttl := store.TTL("k"); ttl <= 0 || ttl > 5 {
		t.Errorf("TTL(k) = %d, want in (0,5]", ttl)
	}

	clock.Advance(4*time.Second + 999*time.Millisecond)
	if _, ok := store.Get("k"); !ok {
		t.Fatal("key expired before its deadline")
	}
	if ttl := store.TTL("k"); ttl != 1 {
		t.Errorf("TTL(k) just before deadline = %d, want 1", ttl)
	}

	clock.Advance(time.Millisecond)
	if _, ok := store.Get("k"); ok {
		t.Error("Get at deadline should miss")
	}
	if store.Exists("k") {
		t.Error("Exists at deadline should be false")
	}
	if ttl := store.TTL("k"); ttl != TTLMissing {
		t.Errorf("TTL after deadline = %d, want %d", ttl, TTLMissing)
	}
}

func TestStore_ZeroSecondsExpiresImmediately(t *testing.T) {
	store, _ := newTestStore(t)

	store.SetWithExpiry("k", []byte("v"), 0)
	if _, ok := store.Get("k"); ok {
		t.Error("key with zero TTL should be expired on next access")
	}
}

func TestStore_LazyEviction(t *testing.T) {
	store, clock := newTestStore(t)

	store.SetWithExpiry("k", []byte("v"), 1)
	clock.Advance(2 * time.Second)

	if store.Len() != 1 {
		t.Fatalf("Len() before access = %d, want 1", store.Len())
	}
	if store.Exists("k") {
		t.Fatal("expired key reported as existing")
	}
	if store.Len() != 0 {
		t.Errorf("Len() after access = %d, want 0 (expired entry evicted)", store.Len())
	}
	if got := store.Stats().Expired; got != 1 {
		t.Errorf("Stats().Expired = %d, want 1", got)
	}
}

func TestStore_SetClearsDeadline(t *testing.T) {
	store, clock := newTestStore(t)

	store.SetWithExpiry("k", []byte("v1"), 5)
	store.Set("k", []byte("v2"))
	if ttl := store.TTL("k"); ttl != TTLNoExpiry {
		t.Errorf("TTL after plain Set = %d, want %d", ttl, TTLNoExpiry)
	}

	clock.Advance(10 * time.Second)
	if v, ok := store.Get("k"); !ok || string(v) != "v2" {
		t.Errorf("Get(k) = (%q, %v), want (v2, true)", v, ok)
	}
}

func TestStore_Expire(t *testing.T) {
	store, clock := newTestStore(t)

	if store.Expire("missing", 10) {
		t.Error("Expire(missing) = true, want false")
	}

	store.Set("k", []byte("v"))
	if !store.Expire("k", 100) {
		t.Fatal("Expire(k) = false, want true")
	}
	if ttl := store.TTL("k"); ttl <= 0 || ttl > 100 {
		t.Errorf("TTL(k) = %d, want in (0,100]", ttl)
	}

	clock.Advance(100 * time.Second)
	if store.Expire("k", 100) {
		t.Error("Expire on expired key = true, want false")
	}
	if store.Exists("k") {
		t.Error("expired key revived by Expire")
	}
}

func TestStore_Persist(t *testing.T) {
	store, clock := newTestStore(t)

	store.Set("plain", []byte("v"))
	if store.Persist("plain") {
		t.Error("Persist on key without deadline = true, want false")
	}
	if v, _ := store.Get("plain"); string(v) != "v" {
		t.Errorf("value changed by Persist: %q", v)
	}

	store.SetWithExpiry("timed", []byte("v"), 5)
	if !store.Persist("timed") {
		t.Fatal("Persist(timed) = false, want true")
	}
	if ttl := store.TTL("timed"); ttl != TTLNoExpiry {
		t.Errorf("TTL after Persist = %d, want %d", ttl, TTLNoExpiry)
	}

	clock.Advance(time.Hour)
	if !store.Exists("timed") {
		t.Error("persisted key expired")
	}

	if store.Persist("missing") {
		t.Error("Persist(missing) = true, want false")
	}
}

func TestStore_TTLSentinels(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("plain", []byte("v"))
	if ttl := store.TTL("plain"); ttl != TTLNoExpiry {
		t.Errorf("TTL(plain) = %d, want %d", ttl, TTLNoExpiry)
	}
	if ttl := store.TTL("missing"); ttl != TTLMissing {
		t.Errorf("TTL(missing) = %d, want %d", ttl, TTLMissing)
	}
}

func TestStore_HugeTTLDoesNotOverflow(t *testing.T) {
	store, _ := newTestStore(t)

	store.SetWithExpiry("k", []byte("v"), 1<<62)
	if !store.Exists("k") {
		t.Fatal("key with huge TTL expired immediately")
	}
	if ttl := store.TTL("k"); ttl <= 0 {
		t.Errorf("TTL(k) = %d, want positive", ttl)
	}
}

func TestStore_KeysSkipsExpired(t *testing.T) {
	store, clock := newTestStore(t)

	store.Set("a", []byte("1"))
	store.Set("b", []byte("2"))
	store.SetWithExpiry("c", []byte("3"), 1)
	clock.Advance(2 * time.Second)

	keys := store.Keys()
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
	if store.LiveLen() != 2 {
		t.Errorf("LiveLen() = %d, want 2", store.LiveLen())
	}
	// The expired entry KEYS walked over is gone, not just hidden.
	if store.Len() != 2 {
		t.Errorf("Len() after Keys() = %d, want 2", store.Len())
	}
	if got := store.Stats().Expired; got != 1 {
		t.Errorf("Stats().Expired = %d, want 1", got)
	}
}

func TestStore_DeleteExpired(t *testing.T) {
	store, clock := newTestStore(t)

	for i := 0; i < 10; i++ {
		store.SetWithExpiry("t"+strconv.Itoa(i), []byte("v"), 1)
		store.Set("p"+strconv.Itoa(i), []byte("v"))
	}
	clock.Advance(time.Second)

	if n := store.DeleteExpired(); n != 10 {
		t.Errorf("DeleteExpired() = %d, want 10", n)
	}
	if store.Len() != 10 {
		t.Errorf("Len() = %d, want 10", store.Len())
	}
}

func TestStore_Stats(t *testing.T) {
	store, _ := newTestStore(t)

	store.Set("k", []byte("v"))
	store.Get("k")
	store.Get("k")
	store.Get("missing")

	st := store.Stats()
	if st.Hits != 2 || st.Misses != 1 || st.Keys != 1 {
		t.Errorf("Stats() = %+v, want hits=2 misses=1 keys=1", st)
	}
}

func TestStore_StatsShards(t *testing.T) {
	store, _ := newTestStore(t)
	for i := 0; i < 50; i++ {
		store.Set("k"+strconv.Itoa(i), []byte("v"))
	}

	st := store.Stats()
	if len(st.Shards) != 4 {
		t.Fatalf("len(Shards) = %d, want 4", len(st.Shards))
	}
	total := 0
	for _, n := range st.Shards {
		total += n
	}
	if total != 50 || st.Keys != 50 {
		t.Errorf("shard total = %d keys = %d, want 50", total, st.Keys)
	}
}

// ============================================================
// Concurrency
// ============================================================

func TestStore_ConcurrentDisjointKeys(t *testing.T) {
	store := New()
	const workers, perWorker = 16, 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := strconv.Itoa(w) + ":" + strconv.Itoa(i)
				val := []byte(key + "-value")
				store.Set(key, val)
				got, ok := store.Get(key)
				if !ok || string(got) != string(val) {
					t.Errorf("Get(%s) = (%q, %v)", key, got, ok)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if store.Len() != workers*perWorker {
		t.Errorf("Len() = %d, want %d", store.Len(), workers*perWorker)
	}
}

func TestStore_ConcurrentExpiryAndSet(t *testing.T) {
	store, clock := newTestStore(t)
	const rounds = 200

	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		key := "k" + strconv.Itoa(i%10)
		store.SetWithExpiry(key, []byte("old"), 1)
		clock.Advance(2 * time.Second)

		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Get(key)
		}()
		go func() {
			defer wg.Done()
			store.Set(key, []byte("new"))
		}()
		wg.Wait()

		// Whatever the interleaving, the fresh SET must survive eviction.
		if v, ok := store.Get(key); !ok || string(v) != "new" {
			t.Fatalf("round %d: Get(%s) = (%q, %v), want (new, true)", i, key, v, ok)
		}
	}
}

// ============================================================
// Sweeper
// ============================================================

func TestSweeper_RemovesExpired(t *testing.T) {
	store, clock := newTestStore(t)
	store.SetWithExpiry("gone", []byte("v"), 1)
	store.Set("kept", []byte("v"))
	clock.Advance(2 * time.Second)

	swept := make(chan int, 16)
	sweeper := NewSweeper(store, 5*time.Millisecond, nil)
	sweeper.OnSweep(func(n int) {
		select {
		case swept <- n:
		default:
		}
	})
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	deadline := time.After(2 * time.Second)
	for store.Len() != 1 {
		select {
		case <-swept:
		case <-deadline:
			t.Fatalf("sweeper did not remove expired key, Len() = %d", store.Len())
		}
	}
	if !store.Exists("kept") {
		t.Error("sweeper removed a live key")
	}
}

func TestSweeper_Disabled(t *testing.T) {
	store, _ := newTestStore(t)

	var calls atomic.Int32
	sweeper := NewSweeper(store, 0, nil)
	sweeper.OnSweep(func(int) { calls.Add(1) })
	sweeper.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	sweeper.Stop()

	if calls.Load() != 0 {
		t.Errorf("disabled sweeper ran %d times", calls.Load())
	}
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	sweeper := NewSweeper(store, time.Millisecond, nil)
	sweeper.Start(ctx)
	cancel()

	// Stop after cancellation must not block.
	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked after context cancel")
	}

	// A second Stop is a no-op.
	sweeper.Stop()
}
