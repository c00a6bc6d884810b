package graph

import (
	"math"
	"sort"
	"sync"
)

// Graph is the in-memory Store implementation.
//
// Internally it keeps three mappings that are always mutually consistent:
// the node table (NodeID -> Node), the adjacency table
// (NodeID -> NodeID -> EdgeWeight) and the entity index
// (EntityID -> NodeID), plus the monotonic next-NodeID counter. Nodes are
// append-only within a session; there is no removal.
//
// All methods are safe for concurrent use. The RWMutex serializes writers;
// results are independent of how callers interleave because every read path
// iterates in sorted key order.
type Graph struct {
	mu         sync.RWMutex
	nodes      map[NodeID]Node
	edges      map[NodeID]map[NodeID]EdgeWeight
	entities   map[EntityID]NodeID
	nextNodeID uint64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[NodeID]Node),
		edges:    make(map[NodeID]map[NodeID]EdgeWeight),
		entities: make(map[EntityID]NodeID),
	}
}

// Rebuild reconstructs a graph from an ordered node/edge list, preserving
// the original NodeIDs. The next-NodeID counter is advanced past the highest
// imported id so later inserts never collide. Edges referencing missing
// nodes are dropped.
//
// This is the import half of the canonical export round-trip.
func Rebuild(nodes []Node, edges []EdgeRecord, nextNodeID uint64) *Graph {
	g := New()
	g.nextNodeID = nextNodeID
	for _, n := range nodes {
		g.importNode(n)
	}
	for _, e := range edges {
		g.InsertEdge(e.From, e.To, e.Weight)
	}
	return g
}

// FromSnapshot rebuilds a graph from a snapshot taken earlier.
func FromSnapshot(s *Snapshot) *Graph {
	return Rebuild(s.Nodes, s.Edges, s.NextNodeID)
}

// importNode registers a node under its original id.
func (g *Graph) importNode(n Node) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if uint64(n.ID) >= g.nextNodeID {
		g.nextNodeID = satAddUint64(uint64(n.ID), 1)
	}
	g.nodes[n.ID] = n
	g.entities[n.Entity] = n.ID
}

// InsertNode returns the node for entity, allocating the next NodeID on
// first sight. Calling it again with the same entity returns the same id.
func (g *Graph) InsertNode(entity EntityID) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.entities[entity]; ok {
		return id
	}

	id := NodeID(g.nextNodeID)
	g.nextNodeID = satAddUint64(g.nextNodeID, 1)
	g.nodes[id] = Node{ID: id, Entity: entity}
	g.entities[entity] = id
	return id
}

// InsertEdge sets the weight of from->to, replacing any existing weight.
// Silently does nothing if either endpoint is absent.
func (g *Graph) InsertEdge(from, to NodeID, weight EdgeWeight) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasNodeLocked(from) || !g.hasNodeLocked(to) {
		return
	}
	targets, ok := g.edges[from]
	if !ok {
		targets = make(map[NodeID]EdgeWeight)
		g.edges[from] = targets
	}
	targets[to] = weight
}

// IncrementEdge adds 1 to the weight of from->to with saturation, creating
// the edge at weight 1 if absent. Both endpoints must exist.
func (g *Graph) IncrementEdge(from, to NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasNodeLocked(from) || !g.hasNodeLocked(to) {
		return
	}
	targets, ok := g.edges[from]
	if !ok {
		targets = make(map[NodeID]EdgeWeight)
		g.edges[from] = targets
	}
	targets[to] = targets[to].Increment()
}

// Lookup returns the node with the given id.
func (g *Graph) Lookup(id NodeID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NodeByEntity returns the node id mapped to entity.
func (g *Graph) NodeByEntity(entity EntityID) (NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.entities[entity]
	return id, ok
}

// Edge returns the weight of from->to.
func (g *Graph) Edge(from, to NodeID) (EdgeWeight, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	w, ok := g.edges[from][to]
	return w, ok
}

// Neighbors returns the outgoing edges of id sorted by target NodeID.
func (g *Graph) Neighbors(id NodeID) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.neighborsLocked(id)
}

func (g *Graph) neighborsLocked(id NodeID) []Neighbor {
	targets := g.edges[id]
	if len(targets) == 0 {
		return nil
	}
	out := make([]Neighbor, 0, len(targets))
	for to, w := range targets {
		out = append(out, Neighbor{ID: to, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Contains reports whether the graph has a node with the given id.
func (g *Graph) Contains(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasNodeLocked(id)
}

func (g *Graph) hasNodeLocked(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	count := 0
	for _, targets := range g.edges {
		count += len(targets)
	}
	return count
}

// NextNodeID returns the id the next InsertNode would assign.
func (g *Graph) NextNodeID() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nextNodeID
}

// Snapshot returns a consistent copy of the whole graph: nodes ordered by
// NodeID, edges ordered by (From, To). The copy is taken under the read
// lock, so it can never observe a half-applied mutation; afterwards it is
// fully independent of the live graph.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	var edges []EdgeRecord
	for from, targets := range g.edges {
		for to, w := range targets {
			edges = append(edges, EdgeRecord{From: from, To: to, Weight: w})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	return &Snapshot{Nodes: nodes, Edges: edges, NextNodeID: g.nextNodeID}
}

func satAddUint64(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func satAddInt64(a, b int64) int64 {
	sum := a + b
	switch {
	case b > 0 && sum < a:
		return math.MaxInt64
	case b < 0 && sum > a:
		return math.MinInt64
	default:
		return sum
	}
}
