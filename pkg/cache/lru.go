// Package cache provides a deterministic LRU cache for hot nodes and
// memoized traversal results.
//
// The cache advances an internal logical clock by one tick per Get/Insert
// call instead of reading wall-clock time, so eviction order is reproducible
// across runs and testable without time mocking. Eviction removes a batch of
// the least-recently-accessed entries; ties on the same logical timestamp
// are broken in key order, which requires a total order over keys.
//
// Usage:
//
//	c := cache.New[uint64, string](1000, func(a, b uint64) bool { return a < b })
//
//	c.Insert(1, "value")
//	if v, ok := c.Get(1); ok {
//		_ = v // cache hit
//	}
//
// The cache is not authoritative: a miss must always be resolvable by
// recomputing from the graph store.
package cache

import (
	"math"
	"sort"
	"sync"
)

// Default sizing, shared by the node cache specialization.
const (
	DefaultCapacity      = 1000
	DefaultEvictionBatch = 100
)

// Entry is a cached value with its recency bookkeeping.
type Entry[V any] struct {
	Value       V
	LastAccess  uint64 // logical-clock tick of the last touch
	AccessCount uint64
}

// LRU is a least-recently-used cache over any key type with a caller-supplied
// total order. All operations are safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu            sync.Mutex
	entries       map[K]*Entry[V]
	less          func(a, b K) bool
	capacity      int
	evictionBatch int
	clock         uint64
	hits          uint64
	misses        uint64
}

// New creates a cache holding at most capacity entries. The less function
// must define a total order over keys; it drives deterministic eviction
// tie-breaking and Keys ordering. Capacity is clamped to a minimum of 1.
func New[K comparable, V any](capacity int, less func(a, b K) bool) *LRU[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRU[K, V]{
		entries:       make(map[K]*Entry[V]),
		less:          less,
		capacity:      capacity,
		evictionBatch: DefaultEvictionBatch,
	}
}

// WithEvictionBatch sets how many entries a single eviction removes,
// clamped to a minimum of 1.
func (c *LRU[K, V]) WithEvictionBatch(n int) *LRU[K, V] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 {
		n = 1
	}
	c.evictionBatch = n
	return c
}

// Get returns the cached value for key, recording a hit or miss and touching
// the entry's recency on hit. Every call advances the logical clock.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock = satAdd(c.clock, 1)
	if e, ok := c.entries[key]; ok {
		e.LastAccess = c.clock
		e.AccessCount = satAdd(e.AccessCount, 1)
		c.hits = satAdd(c.hits, 1)
		return e.Value, true
	}

	c.misses = satAdd(c.misses, 1)
	var zero V
	return zero, false
}

// Peek returns the cached value without advancing the clock, touching
// recency, or recording a hit or miss.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.Value, true
	}
	var zero V
	return zero, false
}

// Insert stores value under key. On a full cache a new key first triggers a
// batch eviction of the least-recently-accessed entries. Inserting an
// existing key overwrites its value and touches its recency.
func (c *LRU[K, V]) Insert(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock = satAdd(c.clock, 1)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictLocked()
	}

	if e, ok := c.entries[key]; ok {
		e.Value = value
		e.LastAccess = c.clock
		e.AccessCount = satAdd(e.AccessCount, 1)
		return
	}
	c.entries[key] = &Entry[V]{Value: value, LastAccess: c.clock, AccessCount: 1}
}

// Remove deletes key, returning the value it held.
func (c *LRU[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		return e.Value, true
	}
	var zero V
	return zero, false
}

// Clear drops every entry. The logical clock and the hit/miss counters are
// cumulative for the cache's lifetime and survive a clear.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*Entry[V])
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether key is cached, without any side effects.
func (c *LRU[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Keys returns every cached key in the cache's total order.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return c.less(keys[i], keys[j]) })
	return keys
}

// Stats returns cumulative cache statistics.
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := satAdd(c.hits, c.misses)
	var rate int
	if total > 0 {
		rate = int(c.hits * 100 / total)
	}
	return Stats{
		Size:           len(c.entries),
		Capacity:       c.capacity,
		Hits:           c.hits,
		Misses:         c.misses,
		HitRatePercent: rate,
	}
}

// evictLocked removes up to evictionBatch least-recently-accessed entries.
// Entries sharing a LastAccess tick are removed in key order so eviction is
// reproducible. Caller must hold the lock.
func (c *LRU[K, V]) evictLocked() {
	if len(c.entries) == 0 {
		return
	}

	quota := c.evictionBatch
	if quota > len(c.entries) {
		quota = len(c.entries)
	}

	byAccess := make(map[uint64][]K)
	ticks := make([]uint64, 0)
	for k, e := range c.entries {
		if _, seen := byAccess[e.LastAccess]; !seen {
			ticks = append(ticks, e.LastAccess)
		}
		byAccess[e.LastAccess] = append(byAccess[e.LastAccess], k)
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i] < ticks[j] })

	evicted := 0
	for _, tick := range ticks {
		keys := byAccess[tick]
		sort.Slice(keys, func(i, j int) bool { return c.less(keys[i], keys[j]) })
		for _, k := range keys {
			delete(c.entries, k)
			evicted++
			if evicted >= quota {
				return
			}
		}
	}
}

// Stats holds cumulative cache performance counters.
type Stats struct {
	Size           int    `json:"size"`
	Capacity       int    `json:"capacity"`
	Hits           uint64 `json:"hits"`
	Misses         uint64 `json:"misses"`
	HitRatePercent int    `json:"hitRatePercent"` // floored integer percentage
}

func satAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
