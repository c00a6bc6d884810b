package cache

import "github.com/skuld-db/skuld/pkg/graph"

// NodeCache accelerates repeated node lookups.
type NodeCache = LRU[graph.NodeID, graph.Node]

// NewNodeCache creates a node cache with the default capacity.
func NewNodeCache() *NodeCache {
	return NewNodeCacheWithSize(DefaultCapacity)
}

// NewNodeCacheWithSize creates a node cache holding at most size entries.
func NewNodeCacheWithSize(size int) *NodeCache {
	return New[graph.NodeID, graph.Node](size, func(a, b graph.NodeID) bool { return a < b })
}

// TraversalKey identifies a memoized traversal: start node, depth, and the
// optional minimum-weight filter. Keys order by (start, depth, filter), with
// unfiltered sorting before filtered, so iteration is deterministic.
type TraversalKey struct {
	Start     graph.NodeID
	Depth     int
	Filtered  bool
	MinWeight graph.EdgeWeight
}

// NewTraversalKey builds a key for an unfiltered traversal.
func NewTraversalKey(start graph.NodeID, depth int) TraversalKey {
	return TraversalKey{Start: start, Depth: depth}
}

// NewFilteredTraversalKey builds a key for a minimum-weight traversal.
func NewFilteredTraversalKey(start graph.NodeID, depth int, minWeight graph.EdgeWeight) TraversalKey {
	return TraversalKey{Start: start, Depth: depth, Filtered: true, MinWeight: minWeight}
}

// Less defines the composite total order used by the traversal cache.
func (k TraversalKey) Less(other TraversalKey) bool {
	if k.Start != other.Start {
		return k.Start < other.Start
	}
	if k.Depth != other.Depth {
		return k.Depth < other.Depth
	}
	if k.Filtered != other.Filtered {
		return !k.Filtered
	}
	return k.MinWeight < other.MinWeight
}

// TraversalCache memoizes traversal artifacts, which are larger than nodes,
// so its default capacity is smaller than the node cache's.
type TraversalCache = LRU[TraversalKey, *graph.Artifact]

// DefaultTraversalCapacity bounds the traversal cache.
const DefaultTraversalCapacity = 100

// NewTraversalCache creates a traversal-result cache.
func NewTraversalCache() *TraversalCache {
	return NewTraversalCacheWithSize(DefaultTraversalCapacity)
}

// NewTraversalCacheWithSize creates a traversal cache holding at most size
// entries.
func NewTraversalCacheWithSize(size int) *TraversalCache {
	return New[TraversalKey, *graph.Artifact](size, func(a, b TraversalKey) bool { return a.Less(b) })
}
