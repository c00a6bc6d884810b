package ground

import "github.com/skuld-db/skuld/pkg/graph"

// GroundedResult is a query outcome annotated with its evidence.
//
// An unverified result carries no artifact, no evidence path, and zero
// confidence; a populated result's evidence path is always the artifact's
// own path, never synthesized.
type GroundedResult struct {
	Artifact     *graph.Artifact `json:"artifact,omitempty"`
	Confidence   ConfidenceScore `json:"confidence"`
	Verified     bool            `json:"verified"`
	EvidencePath []graph.NodeID  `json:"evidencePath"`
}

// Unverified is the result of a query that produced nothing.
func Unverified() GroundedResult {
	return GroundedResult{Confidence: ZeroConfidence()}
}

// WithArtifact wraps a produced artifact with its confidence assessment.
func WithArtifact(art *graph.Artifact, confidence ConfidenceScore) GroundedResult {
	evidence := make([]graph.NodeID, len(art.Path))
	copy(evidence, art.Path)
	return GroundedResult{
		Artifact:     art,
		Confidence:   confidence,
		Verified:     confidence.Verified(),
		EvidencePath: evidence,
	}
}

// Verifier executes queries and grounds their outcomes. The zero value is
// not usable; NewVerifier installs the default scoring policy.
type Verifier struct {
	scoreArtifact ScoreFunc
	scorePath     PathScoreFunc
}

// NewVerifier creates a verifier with the default confidence curves.
func NewVerifier() *Verifier {
	return &Verifier{scoreArtifact: ScoreArtifact, scorePath: ScorePath}
}

// WithScoring replaces the confidence policy. Nil funcs keep the current
// ones.
func (v *Verifier) WithScoring(artifact ScoreFunc, path PathScoreFunc) *Verifier {
	if artifact != nil {
		v.scoreArtifact = artifact
	}
	if path != nil {
		v.scorePath = path
	}
	return v
}

// Verify executes query against store and grounds the outcome.
//
// Lookup success scores a fixed 100: a direct match is maximal evidence.
// Traversal-derived results are scored from the produced artifact; path
// results use the path-specific curve. Any query that produces nothing
// yields an unverified result, never an error.
func (v *Verifier) Verify(store graph.Store, query Query) GroundedResult {
	switch query.Kind {
	case KindLookup:
		id, ok := store.NodeByEntity(query.Entity)
		if !ok {
			return Unverified()
		}
		art := graph.NewPathArtifact([]graph.NodeID{id})
		return WithArtifact(art, FullConfidence(1))

	case KindTraverse:
		return v.groundArtifact(store, store.Traverse(query.Start, query.Depth))

	case KindTraverseFiltered:
		return v.groundArtifact(store, store.TraverseFiltered(query.Start, query.Depth, query.MinWeight))

	case KindStrongestPath:
		path := store.StrongestPath(query.Start, query.End)
		if path == nil {
			return Unverified()
		}
		confidence := v.scorePath(path, store)
		return WithArtifact(graph.NewPathArtifact(path), confidence)

	case KindIntersect:
		common := store.Intersect(query.Nodes)
		if len(common) == 0 {
			return Unverified()
		}
		art := graph.NewPathArtifact(common)
		return WithArtifact(art, v.scoreArtifact(art, store))

	case KindRelated:
		return v.groundArtifact(store, store.RelatedSubgraph(query.Start, query.Depth))

	case KindTraverseDFS:
		return v.groundArtifact(store, store.TraverseDFS(query.Start, query.Depth))

	default:
		return Unverified()
	}
}

// Grade grounds a previously produced artifact without re-executing the
// query that made it. Cached traversal artifacts take this path.
func (v *Verifier) Grade(store graph.Store, art *graph.Artifact) GroundedResult {
	return v.groundArtifact(store, art)
}

func (v *Verifier) groundArtifact(store graph.Store, art *graph.Artifact) GroundedResult {
	if art == nil {
		return Unverified()
	}
	return WithArtifact(art, v.scoreArtifact(art, store))
}

// Verify executes query with the default scoring policy.
func Verify(store graph.Store, query Query) GroundedResult {
	return NewVerifier().Verify(store, query)
}
