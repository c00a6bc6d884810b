// Package compose assembles query results from the graph store.
//
// The compositor is a stateless façade: it maps query intents onto store
// operations and wraps the outcomes as artifacts. It adds no algorithmic
// behavior of its own, never mutates the graph, and propagates absence
// upward as nil or empty artifacts.
package compose

import "github.com/skuld-db/skuld/pkg/graph"

// Compose traverses breadth-first from start and returns the artifact, or
// nil if start does not exist.
func Compose(store graph.Store, start graph.NodeID, depth int) *graph.Artifact {
	return store.Traverse(start, depth)
}

// ComposeFiltered traverses like Compose but only follows edges with
// weight >= minWeight.
func ComposeFiltered(store graph.Store, start graph.NodeID, depth int, minWeight graph.EdgeWeight) *graph.Artifact {
	return store.TraverseFiltered(start, depth, minWeight)
}

// ExtractPath finds the strongest path between two nodes and resolves the
// weight of each hop, so the artifact carries both the route and its edges.
func ExtractPath(store graph.Store, start, end graph.NodeID) *graph.Artifact {
	path := store.StrongestPath(start, end)
	if path == nil {
		return nil
	}

	var subgraph []graph.EdgeRecord
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		if w, ok := store.Edge(from, to); ok {
			subgraph = append(subgraph, graph.EdgeRecord{From: from, To: to, Weight: w})
		}
	}

	return graph.NewSubgraphArtifact(path, subgraph)
}

// FindIntersection returns the common out-neighbors of the input nodes as a
// path-only artifact. The artifact is empty, never nil, when there is no
// intersection.
func FindIntersection(store graph.Store, nodes []graph.NodeID) *graph.Artifact {
	return graph.NewPathArtifact(store.Intersect(nodes))
}

// RelatedContext extracts the related subgraph around start.
func RelatedContext(store graph.Store, start graph.NodeID, depth int) *graph.Artifact {
	return store.RelatedSubgraph(start, depth)
}
