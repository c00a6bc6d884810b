package ground

import "github.com/skuld-db/skuld/pkg/graph"

// Confidence thresholds. A result is verified once its score clears
// VerifiedThreshold; HighConfidenceThreshold marks strong inferences.
const (
	VerifiedThreshold       = 50
	HighConfidenceThreshold = 70
)

// ConfidenceScore is an integer 0-100 plus the evidence it was derived
// from. Computed once per query outcome and immutable afterwards.
type ConfidenceScore struct {
	Score     int `json:"score"`
	PathLen   int `json:"pathLen"`
	EdgeCount int `json:"edgeCount"`
}

// NewConfidenceScore clamps score into 0-100.
func NewConfidenceScore(score, pathLen, edgeCount int) ConfidenceScore {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return ConfidenceScore{Score: score, PathLen: pathLen, EdgeCount: edgeCount}
}

// ZeroConfidence is the score of a query that produced nothing.
func ZeroConfidence() ConfidenceScore {
	return ConfidenceScore{}
}

// FullConfidence is the score of a direct lookup match, which is maximal
// evidence by definition.
func FullConfidence(pathLen int) ConfidenceScore {
	return ConfidenceScore{Score: 100, PathLen: pathLen}
}

// Verified reports whether the score clears the verification threshold.
func (c ConfidenceScore) Verified() bool {
	return c.Score >= VerifiedThreshold
}

// High reports whether the score clears the high-confidence threshold.
func (c ConfidenceScore) High() bool {
	return c.Score >= HighConfidenceThreshold
}

// ScoreFunc is a pluggable confidence policy for traversal-derived
// artifacts. The boundary behavior is fixed (empty artifact scores zero,
// verified is threshold-gated); the curve in between is tunable policy, not
// contract, and only needs to be monotonic in evidence.
type ScoreFunc func(art *graph.Artifact, store graph.Store) ConfidenceScore

// PathScoreFunc is the path-specific scoring variant.
type PathScoreFunc func(path []graph.NodeID, store graph.Store) ConfidenceScore

// ScoreArtifact is the default traversal scoring curve, integer-only:
// 50 base for any evidence at all, plus up to 30 for path length and up to
// 20 for examined edges.
func ScoreArtifact(art *graph.Artifact, store graph.Store) ConfidenceScore {
	if art.IsEmpty() {
		return ZeroConfidence()
	}

	score := 50

	hops := len(art.Path) - 1
	pathBonus := hops * 10
	if pathBonus > 30 {
		pathBonus = 30
	}
	score += pathBonus

	edgeBonus := len(art.Subgraph) * 5
	if edgeBonus > 20 {
		edgeBonus = 20
	}
	score += edgeBonus

	return NewConfidenceScore(score, len(art.Path), len(art.Subgraph))
}

// ScorePath is the default scoring curve for explicit routes: 50 base plus
// up to 30 for length, plus 20 when every consecutive hop is backed by a
// real edge in the store.
func ScorePath(path []graph.NodeID, store graph.Store) ConfidenceScore {
	if len(path) == 0 {
		return ZeroConfidence()
	}

	score := 50

	hops := len(path) - 1
	lengthBonus := hops * 10
	if lengthBonus > 30 {
		lengthBonus = 30
	}
	score += lengthBonus

	backed := 0
	for i := 0; i+1 < len(path); i++ {
		if _, ok := store.Edge(path[i], path[i+1]); ok {
			backed++
		}
	}
	if backed == hops {
		score += 20
	}

	return NewConfidenceScore(score, len(path), backed)
}
