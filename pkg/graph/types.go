// Package graph provides the deterministic graph store for Skuld.
//
// The store keeps entity signals as nodes and weighted directed edges between
// them, and answers bounded structural queries: breadth-first and depth-first
// traversal, weight-filtered traversal, neighbor intersection, and
// strongest-path search. Identical input sequences always produce identical
// graphs and identical query results, regardless of platform or the order in
// which concurrent callers are serialized.
//
// Determinism rules followed throughout the package:
//   - All iteration over nodes and edges is in sorted key order.
//   - All arithmetic on weights, identifiers and counters saturates instead
//     of wrapping or panicking.
//   - No wall-clock time and no floating point anywhere.
//
// Example Usage:
//
//	g := graph.New()
//	a := g.InsertNode(graph.EntityID(1))
//	b := g.InsertNode(graph.EntityID(2))
//	g.IncrementEdge(a, b) // weight 1
//	g.IncrementEdge(a, b) // weight 2
//
//	art := g.Traverse(a, 3)
//	fmt.Println(art.Path) // [a b]
package graph

import "math"

// MaxTraversalDepth is the hard bound on traversal depth. Every traversal
// entry point clamps the requested depth to this value, which keeps all
// queries computationally bounded without time-based cutoffs.
const MaxTraversalDepth = 10

// NodeID is the internal identifier for a node. IDs are assigned
// monotonically by the store and are never reused.
type NodeID uint64

// EntityID is the external identifier supplied by signal producers.
// Multiple signals carrying the same EntityID resolve to the same node.
type EntityID uint64

// EdgeWeight is the weight of a directed edge. All weight arithmetic
// saturates at the int64 bounds.
type EdgeWeight int64

// SaturatingAdd returns w+delta, clamped to the int64 range.
func (w EdgeWeight) SaturatingAdd(delta EdgeWeight) EdgeWeight {
	sum := int64(w) + int64(delta)
	switch {
	case delta > 0 && sum < int64(w):
		return EdgeWeight(math.MaxInt64)
	case delta < 0 && sum > int64(w):
		return EdgeWeight(math.MinInt64)
	default:
		return EdgeWeight(sum)
	}
}

// Increment returns w+1 with saturation. This is the operation behind
// repeated signal reinforcement.
func (w EdgeWeight) Increment() EdgeWeight {
	return w.SaturatingAdd(1)
}

// Node is the immutable pairing of an internal NodeID with the external
// EntityID it was created for. Nodes are created only by the store and are
// never mutated afterwards.
type Node struct {
	ID     NodeID   `json:"id"`
	Entity EntityID `json:"entity"`
}

// Neighbor is one outgoing edge as seen from a source node.
type Neighbor struct {
	ID     NodeID     `json:"id"`
	Weight EdgeWeight `json:"weight"`
}

// EdgeRecord is a fully-qualified directed edge. Slices of EdgeRecord are
// always ordered by (From, To) when produced by a Snapshot, and in
// examination order when produced by a traversal.
type EdgeRecord struct {
	From   NodeID     `json:"from"`
	To     NodeID     `json:"to"`
	Weight EdgeWeight `json:"weight"`
}

// Store is the graph storage contract. It is implemented by the in-memory
// Graph in this package and by the persistent Badger-backed store in
// pkg/storage; callers program against the interface and stay
// backend-agnostic.
//
// Absence is never an error: missing nodes, entities and edges are reported
// through ok booleans, nil artifacts and empty slices.
type Store interface {
	// InsertNode returns the node for entity, allocating it on first sight.
	// Idempotent per EntityID.
	InsertNode(entity EntityID) NodeID

	// InsertEdge sets (replaces) the weight of from->to. No-op if either
	// endpoint is absent.
	InsertEdge(from, to NodeID, weight EdgeWeight)

	// IncrementEdge adds 1 (saturating) to the weight of from->to, creating
	// the edge at weight 1 if absent. No-op if either endpoint is absent.
	IncrementEdge(from, to NodeID)

	// Lookup returns the node with the given id.
	Lookup(id NodeID) (Node, bool)

	// NodeByEntity returns the node mapped to entity.
	NodeByEntity(entity EntityID) (NodeID, bool)

	// Edge returns the weight of from->to.
	Edge(from, to NodeID) (EdgeWeight, bool)

	// Neighbors returns the outgoing edges of id, sorted by target NodeID.
	// The sort order is load-bearing: every algorithm above this call relies
	// on it for cross-run determinism.
	Neighbors(id NodeID) []Neighbor

	// Traverse walks breadth-first from start, depth clamped to
	// MaxTraversalDepth. Returns nil only if start does not exist.
	Traverse(start NodeID, depth int) *Artifact

	// TraverseFiltered is Traverse but only follows and records edges with
	// weight >= minWeight.
	TraverseFiltered(start NodeID, depth int, minWeight EdgeWeight) *Artifact

	// TraverseDFS walks depth-first (pre-order) with the same depth clamp
	// and visited-set semantics as Traverse.
	TraverseDFS(start NodeID, depth int) *Artifact

	// Intersect returns the immediate out-neighbors common to every input
	// node, sorted by NodeID. Empty input yields an empty result.
	Intersect(nodes []NodeID) []NodeID

	// StrongestPath returns the path from start to end that maximizes total
	// edge weight, or nil if either endpoint is missing or no path exists.
	StrongestPath(start, end NodeID) []NodeID

	// RelatedSubgraph is currently identical to Traverse. It is a distinct
	// operation so the two can diverge without breaking callers.
	RelatedSubgraph(start NodeID, depth int) *Artifact

	// NodeCount returns the number of nodes.
	NodeCount() int

	// EdgeCount returns the number of edges.
	EdgeCount() int

	// Snapshot returns a consistent point-in-time copy of the whole graph
	// for export. The snapshot is immutable and safe to read while the
	// store keeps mutating.
	Snapshot() *Snapshot
}

// Snapshot is a tear-free point-in-time view of a graph: nodes ordered by
// NodeID, edges ordered by (From, To), plus the next-NodeID counter. It is a
// full copy, so holding one never blocks or observes later mutation.
type Snapshot struct {
	Nodes      []Node       `json:"nodes"`
	Edges      []EdgeRecord `json:"edges"`
	NextNodeID uint64       `json:"nextNodeId"`
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.Nodes) }

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int { return len(s.Edges) }
