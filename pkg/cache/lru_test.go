package cache

import (
	"testing"

	"github.com/skuld-db/skuld/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intLess(a, b uint64) bool { return a < b }

func TestLRUBasics(t *testing.T) {
	t.Run("insert_and_get", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		c.Insert(1, "a")
		c.Insert(2, "b")

		v, ok := c.Get(1)
		require.True(t, ok)
		assert.Equal(t, "a", v)

		_, ok = c.Get(3)
		assert.False(t, ok)
	})

	t.Run("insert_overwrites_existing", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		c.Insert(1, "old")
		c.Insert(1, "new")

		v, _ := c.Get(1)
		assert.Equal(t, "new", v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		c.Insert(1, "a")

		v, ok := c.Remove(1)
		require.True(t, ok)
		assert.Equal(t, "a", v)
		assert.False(t, c.Contains(1))
	})

	t.Run("capacity_clamped_to_one", func(t *testing.T) {
		c := New[uint64, string](0, intLess)
		c.Insert(1, "a")
		c.Insert(2, "b")
		assert.Equal(t, 1, c.Len())
	})

	t.Run("keys_in_total_order", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		c.Insert(5, "e")
		c.Insert(1, "a")
		c.Insert(3, "c")
		assert.Equal(t, []uint64{1, 3, 5}, c.Keys())
	})
}

func TestLRUEviction(t *testing.T) {
	t.Run("evicts_least_recently_accessed_first", func(t *testing.T) {
		c := New[uint64, string](3, intLess).WithEvictionBatch(1)
		c.Insert(1, "a")
		c.Insert(2, "b")
		c.Insert(3, "c")

		// Touch 1 and 2 so 3 becomes least recently used.
		c.Get(1)
		c.Get(2)

		c.Insert(4, "d")

		assert.True(t, c.Contains(1))
		assert.True(t, c.Contains(2))
		assert.False(t, c.Contains(3))
		assert.True(t, c.Contains(4))
	})

	t.Run("batch_eviction_removes_oldest_group_first", func(t *testing.T) {
		c := New[uint64, string](3, intLess).WithEvictionBatch(2)
		c.Insert(3, "c")
		c.Insert(1, "a")
		c.Insert(2, "b")

		c.Insert(4, "d") // evicts the two oldest: 3 then 1

		assert.False(t, c.Contains(3))
		assert.False(t, c.Contains(1))
		assert.True(t, c.Contains(2))
		assert.True(t, c.Contains(4))
	})

	t.Run("eviction_happens_before_insert", func(t *testing.T) {
		c := New[uint64, string](2, intLess).WithEvictionBatch(1)
		c.Insert(1, "a")
		c.Insert(2, "b")
		c.Insert(3, "c")

		assert.Equal(t, 2, c.Len())
		assert.True(t, c.Contains(3))
	})
}

func TestLRUStats(t *testing.T) {
	t.Run("hits_misses_and_rate", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		c.Insert(1, "a")

		c.Get(1) // hit
		c.Get(2) // miss
		c.Get(1) // hit
		c.Get(3) // miss

		s := c.Stats()
		assert.Equal(t, uint64(2), s.Hits)
		assert.Equal(t, uint64(2), s.Misses)
		assert.Equal(t, 50, s.HitRatePercent)
	})

	t.Run("rate_is_zero_with_no_accesses", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		assert.Equal(t, 0, c.Stats().HitRatePercent)
	})

	t.Run("peek_has_no_side_effects", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		c.Insert(1, "a")
		before := c.Stats()

		v, ok := c.Peek(1)
		require.True(t, ok)
		assert.Equal(t, "a", v)
		_, ok = c.Peek(2)
		assert.False(t, ok)

		after := c.Stats()
		assert.Equal(t, before.Hits, after.Hits)
		assert.Equal(t, before.Misses, after.Misses)
	})

	t.Run("clear_keeps_stats", func(t *testing.T) {
		c := New[uint64, string](10, intLess)
		c.Insert(1, "a")
		c.Get(1)
		c.Get(2)

		c.Clear()

		assert.Equal(t, 0, c.Len())
		s := c.Stats()
		assert.Equal(t, uint64(1), s.Hits)
		assert.Equal(t, uint64(1), s.Misses)
	})
}

func TestLRUDeterminism(t *testing.T) {
	// Two caches fed the same operation sequence must evict identically.
	run := func() []uint64 {
		c := New[uint64, int](4, intLess).WithEvictionBatch(2)
		for i := uint64(0); i < 10; i++ {
			c.Insert(i, int(i))
			if i%3 == 0 {
				c.Get(i / 2)
			}
		}
		return c.Keys()
	}
	assert.Equal(t, run(), run())
}

func TestNodeCache(t *testing.T) {
	c := NewNodeCacheWithSize(2)
	c.Insert(graph.NodeID(1), graph.Node{ID: 1, Entity: 10})
	c.Insert(graph.NodeID(2), graph.Node{ID: 2, Entity: 20})

	n, ok := c.Get(graph.NodeID(1))
	require.True(t, ok)
	assert.Equal(t, graph.EntityID(10), n.Entity)
}

func TestTraversalKeyOrdering(t *testing.T) {
	k1 := NewTraversalKey(graph.NodeID(1), 5)
	k2 := NewTraversalKey(graph.NodeID(2), 5)
	k3 := NewTraversalKey(graph.NodeID(1), 10)
	k4 := NewFilteredTraversalKey(graph.NodeID(1), 5, 3)

	assert.True(t, k1.Less(k2))
	assert.True(t, k1.Less(k3))
	assert.True(t, k1.Less(k4)) // unfiltered sorts before filtered
	assert.False(t, k2.Less(k1))
}

func TestTraversalCache(t *testing.T) {
	c := NewTraversalCache()
	key := NewTraversalKey(graph.NodeID(1), 2)
	art := graph.NewPathArtifact([]graph.NodeID{1, 2})

	c.Insert(key, art)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, art, got)

	_, ok = c.Get(NewFilteredTraversalKey(graph.NodeID(1), 2, 1))
	assert.False(t, ok)
}
