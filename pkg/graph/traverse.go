package graph

import (
	"math"
	"sort"
)

// clampDepth enforces the shared traversal bound.
func clampDepth(depth int) int {
	if depth < 0 {
		return 0
	}
	if depth > MaxTraversalDepth {
		return MaxTraversalDepth
	}
	return depth
}

// Traverse walks breadth-first from start. The requested depth is clamped to
// MaxTraversalDepth. Returns nil only if start does not exist.
//
// The resulting path is the BFS visitation order. Nodes are marked visited
// when enqueued, so each node appears at most once in the queue and at most
// once in the path. The subgraph records every edge examined, including
// edges to already-visited nodes.
func (g *Graph) Traverse(start NodeID, depth int) *Artifact {
	return g.bfs(start, depth, false, 0)
}

// TraverseFiltered is Traverse restricted to edges with weight >= minWeight.
// Nodes reachable only through sub-threshold edges appear in neither the
// path nor the subgraph.
func (g *Graph) TraverseFiltered(start NodeID, depth int, minWeight EdgeWeight) *Artifact {
	return g.bfs(start, depth, true, minWeight)
}

func (g *Graph) bfs(start NodeID, depth int, filtered bool, minWeight EdgeWeight) *Artifact {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasNodeLocked(start) {
		return nil
	}
	depth = clampDepth(depth)

	type queued struct {
		id    NodeID
		depth int
	}

	visited := map[NodeID]bool{start: true}
	queue := []queued{{id: start}}
	var path []NodeID
	var subgraph []EdgeRecord

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		path = append(path, cur.id)

		if cur.depth >= depth {
			continue
		}

		for _, nb := range g.neighborsLocked(cur.id) {
			if filtered && nb.Weight < minWeight {
				continue
			}
			subgraph = append(subgraph, EdgeRecord{From: cur.id, To: nb.ID, Weight: nb.Weight})

			if !visited[nb.ID] {
				visited[nb.ID] = true
				queue = append(queue, queued{id: nb.ID, depth: cur.depth + 1})
			}
		}
	}

	return NewSubgraphArtifact(path, subgraph)
}

// TraverseDFS walks depth-first (pre-order) from start with the same depth
// clamp and visited-set semantics as Traverse. The path ordering differs
// from BFS by design; determinism still comes from sorted neighbor order.
func (g *Graph) TraverseDFS(start NodeID, depth int) *Artifact {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasNodeLocked(start) {
		return nil
	}
	depth = clampDepth(depth)

	visited := make(map[NodeID]bool)
	var path []NodeID
	var subgraph []EdgeRecord
	g.dfsLocked(start, 0, depth, visited, &path, &subgraph)

	return NewSubgraphArtifact(path, subgraph)
}

func (g *Graph) dfsLocked(current NodeID, depth, maxDepth int, visited map[NodeID]bool, path *[]NodeID, subgraph *[]EdgeRecord) {
	if visited[current] || depth > maxDepth {
		return
	}
	visited[current] = true
	*path = append(*path, current)

	if depth >= maxDepth {
		return
	}
	for _, nb := range g.neighborsLocked(current) {
		*subgraph = append(*subgraph, EdgeRecord{From: current, To: nb.ID, Weight: nb.Weight})
		if !visited[nb.ID] {
			g.dfsLocked(nb.ID, depth+1, maxDepth, visited, path, subgraph)
		}
	}
}

// Intersect returns the immediate out-neighbors common to every input node,
// sorted by NodeID. An empty input or any node without neighbors yields an
// empty result.
func (g *Graph) Intersect(nodes []NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(nodes) == 0 {
		return nil
	}

	common := make(map[NodeID]bool)
	for _, nb := range g.neighborsLocked(nodes[0]) {
		common[nb.ID] = true
	}
	if len(common) == 0 {
		return nil
	}

	for _, node := range nodes[1:] {
		next := make(map[NodeID]bool)
		for _, nb := range g.neighborsLocked(node) {
			if common[nb.ID] {
				next[nb.ID] = true
			}
		}
		common = next
		if len(common) == 0 {
			return nil
		}
	}

	out := make([]NodeID, 0, len(common))
	for id := range common {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StrongestPath returns the path from start to end with the maximum total
// edge weight, or nil if either endpoint is missing or no path exists.
//
// It is Dijkstra with edge cost = MaxInt64 - max(weight, 0): maximizing
// total weight becomes minimizing total cost, and clamping negative weights
// to zero preserves the non-negative-cost invariant the algorithm needs.
// Equal-cost candidates are broken by smallest NodeID, which keeps the
// result deterministic; callers should not rely on the specific tie-break.
func (g *Graph) StrongestPath(start, end NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasNodeLocked(start) || !g.hasNodeLocked(end) {
		return nil
	}
	if start == end {
		return []NodeID{start}
	}

	dist := map[NodeID]int64{start: 0}
	prev := make(map[NodeID]NodeID)
	visited := make(map[NodeID]bool)

	for {
		current, ok := minUnvisited(dist, visited)
		if !ok || current == end {
			break
		}
		visited[current] = true
		currentDist := dist[current]

		for _, nb := range g.neighborsLocked(current) {
			if visited[nb.ID] {
				continue
			}
			clamped := int64(nb.Weight)
			if clamped < 0 {
				clamped = 0
			}
			cost := satAddInt64(currentDist, math.MaxInt64-clamped)

			if old, seen := dist[nb.ID]; !seen || cost < old {
				dist[nb.ID] = cost
				prev[nb.ID] = current
			}
		}
	}

	if _, ok := prev[end]; !ok {
		return nil
	}

	var path []NodeID
	for current := end; current != start; {
		path = append(path, current)
		p, ok := prev[current]
		if !ok {
			return nil
		}
		current = p
	}
	path = append(path, start)
	reverse(path)
	return path
}

// minUnvisited picks the unvisited node with the smallest distance,
// tie-broken by smallest NodeID.
func minUnvisited(dist map[NodeID]int64, visited map[NodeID]bool) (NodeID, bool) {
	var (
		best     NodeID
		bestDist int64
		found    bool
	)
	for id, d := range dist {
		if visited[id] {
			continue
		}
		if !found || d < bestDist || (d == bestDist && id < best) {
			best, bestDist, found = id, d, true
		}
	}
	return best, found
}

func reverse(path []NodeID) {
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
}

// RelatedSubgraph is currently identical to Traverse; it exists as a named
// operation so the semantics can diverge later without an API break.
func (g *Graph) RelatedSubgraph(start NodeID, depth int) *Artifact {
	return g.Traverse(start, depth)
}
