// Package ground turns raw query outcomes into grounded, confidence-scored
// results.
//
// Every claim leaving the engine passes through here: the query is executed
// against the graph store, and the outcome is wrapped with an integer
// confidence score (0-100), a verified flag, and the evidence path that
// supports it. A query that produces nothing yields an explicitly unverified
// result; this package never fabricates an evidence path, and it is the only
// layer allowed to translate absence into a user-facing "unknown".
package ground

import "github.com/skuld-db/skuld/pkg/graph"

// QueryKind selects which store operation a query dispatches to.
type QueryKind int

const (
	KindLookup QueryKind = iota
	KindTraverse
	KindTraverseFiltered
	KindStrongestPath
	KindIntersect
	KindRelated
	KindTraverseDFS
)

// String returns the wire name of the query kind.
func (k QueryKind) String() string {
	switch k {
	case KindLookup:
		return "lookup"
	case KindTraverse:
		return "traverse"
	case KindTraverseFiltered:
		return "traverse_filtered"
	case KindStrongestPath:
		return "strongest_path"
	case KindIntersect:
		return "intersect"
	case KindRelated:
		return "related"
	case KindTraverseDFS:
		return "traverse_dfs"
	default:
		return "unknown"
	}
}

// Query is a structural question about the graph. Use the constructors;
// only the fields relevant to the kind are read.
type Query struct {
	Kind      QueryKind
	Entity    graph.EntityID
	Start     graph.NodeID
	End       graph.NodeID
	Depth     int
	MinWeight graph.EdgeWeight
	Nodes     []graph.NodeID
}

// Lookup asks whether an entity is present in the graph.
func Lookup(entity graph.EntityID) Query {
	return Query{Kind: KindLookup, Entity: entity}
}

// Traverse asks for the breadth-first neighborhood of start.
func Traverse(start graph.NodeID, depth int) Query {
	return Query{Kind: KindTraverse, Start: start, Depth: depth}
}

// TraverseFiltered asks for the neighborhood reachable over edges with
// weight >= minWeight.
func TraverseFiltered(start graph.NodeID, depth int, minWeight graph.EdgeWeight) Query {
	return Query{Kind: KindTraverseFiltered, Start: start, Depth: depth, MinWeight: minWeight}
}

// StrongestPath asks for the maximum-weight route between two nodes.
func StrongestPath(start, end graph.NodeID) Query {
	return Query{Kind: KindStrongestPath, Start: start, End: end}
}

// Intersect asks for the out-neighbors common to every input node.
func Intersect(nodes []graph.NodeID) Query {
	return Query{Kind: KindIntersect, Nodes: nodes}
}

// Related asks for the related subgraph around start.
func Related(start graph.NodeID, depth int) Query {
	return Query{Kind: KindRelated, Start: start, Depth: depth}
}

// TraverseDFS asks for the depth-first neighborhood of start.
func TraverseDFS(start graph.NodeID, depth int) Query {
	return Query{Kind: KindTraverseDFS, Start: start, Depth: depth}
}
