package graph

// Artifact is the uniform result container produced by every traversal and
// path operation: an ordered node path plus an optional edge subgraph.
// Artifacts are built fresh per query and never mutated afterwards;
// ownership transfers to the caller.
type Artifact struct {
	// Path is the ordered node sequence. For BFS it is first-seen
	// visitation order, for DFS pre-order, for path queries the route
	// itself.
	Path []NodeID `json:"path"`

	// Subgraph holds every edge examined while producing the path. Edges to
	// already-visited nodes are included, so duplicate targets may appear.
	Subgraph []EdgeRecord `json:"subgraph"`
}

// NewPathArtifact builds an artifact that carries only a node path.
func NewPathArtifact(path []NodeID) *Artifact {
	return &Artifact{Path: path}
}

// NewSubgraphArtifact builds an artifact with both a path and the edges
// examined while producing it.
func NewSubgraphArtifact(path []NodeID, subgraph []EdgeRecord) *Artifact {
	return &Artifact{Path: path, Subgraph: subgraph}
}

// Clone returns a copy whose slices are independent of the original.
// Callers that retain an artifact, such as a cache, hand out clones so the
// retained copy cannot be mutated through a previously returned one.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := &Artifact{}
	if a.Path != nil {
		c.Path = append([]NodeID(nil), a.Path...)
	}
	if a.Subgraph != nil {
		c.Subgraph = append([]EdgeRecord(nil), a.Subgraph...)
	}
	return c
}

// IsEmpty reports whether the artifact carries no nodes at all.
func (a *Artifact) IsEmpty() bool {
	return a == nil || len(a.Path) == 0
}
