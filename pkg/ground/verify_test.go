package ground

import (
	"testing"

	"github.com/skuld-db/skuld/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyLookup(t *testing.T) {
	t.Run("existing_entity_scores_full", func(t *testing.T) {
		g := graph.New()
		g.InsertNode(graph.EntityID(42))

		result := Verify(g, Lookup(graph.EntityID(42)))

		assert.True(t, result.Verified)
		require.NotNil(t, result.Artifact)
		assert.Equal(t, 100, result.Confidence.Score)
		assert.Len(t, result.EvidencePath, 1)
	})

	t.Run("missing_entity_is_unverified", func(t *testing.T) {
		g := graph.New()
		result := Verify(g, Lookup(graph.EntityID(999)))

		assert.False(t, result.Verified)
		assert.Nil(t, result.Artifact)
		assert.Equal(t, 0, result.Confidence.Score)
		assert.Empty(t, result.EvidencePath)
	})
}

func TestVerifyTraverse(t *testing.T) {
	t.Run("traversal_with_edges_clears_threshold", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))
		b := g.InsertNode(graph.EntityID(2))
		g.InsertEdge(a, b, 5)

		result := Verify(g, Traverse(a, 2))

		require.NotNil(t, result.Artifact)
		assert.GreaterOrEqual(t, result.Confidence.Score, VerifiedThreshold)
		assert.True(t, result.Verified)
	})

	t.Run("missing_start_is_unverified", func(t *testing.T) {
		g := graph.New()
		result := Verify(g, Traverse(graph.NodeID(1), 2))
		assert.False(t, result.Verified)
		assert.Nil(t, result.Artifact)
	})

	t.Run("dfs_variant_grounds_too", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))
		b := g.InsertNode(graph.EntityID(2))
		g.InsertEdge(a, b, 5)

		result := Verify(g, TraverseDFS(a, 2))
		require.NotNil(t, result.Artifact)
		assert.True(t, result.Verified)
	})

	t.Run("filtered_variant_respects_threshold", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))
		b := g.InsertNode(graph.EntityID(2))
		g.InsertEdge(a, b, 2)

		result := Verify(g, TraverseFiltered(a, 2, 5))
		require.NotNil(t, result.Artifact)
		// The weak edge is filtered out: the artifact holds only the start.
		assert.Equal(t, []graph.NodeID{a}, result.EvidencePath)
	})
}

func TestVerifyStrongestPath(t *testing.T) {
	t.Run("existing_route_is_verified", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))
		b := g.InsertNode(graph.EntityID(2))
		c := g.InsertNode(graph.EntityID(3))
		g.InsertEdge(a, b, 10)
		g.InsertEdge(b, c, 10)

		result := Verify(g, StrongestPath(a, c))

		require.NotNil(t, result.Artifact)
		assert.True(t, result.Verified)
		assert.Equal(t, []graph.NodeID{a, b, c}, result.EvidencePath)
	})

	t.Run("no_route_is_unverified", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))
		b := g.InsertNode(graph.EntityID(2))

		result := Verify(g, StrongestPath(a, b))
		assert.False(t, result.Verified)
		assert.Empty(t, result.EvidencePath)
	})
}

func TestVerifyIntersect(t *testing.T) {
	t.Run("common_neighbor_found", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))
		b := g.InsertNode(graph.EntityID(2))
		common := g.InsertNode(graph.EntityID(100))
		g.InsertEdge(a, common, 1)
		g.InsertEdge(b, common, 1)

		result := Verify(g, Intersect([]graph.NodeID{a, b}))

		require.NotNil(t, result.Artifact)
		assert.Equal(t, []graph.NodeID{common}, result.Artifact.Path)
	})

	t.Run("empty_intersection_is_unverified", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))

		result := Verify(g, Intersect([]graph.NodeID{a}))
		assert.False(t, result.Verified)
		assert.Nil(t, result.Artifact)
	})
}

func TestScoringCurves(t *testing.T) {
	t.Run("empty_artifact_scores_zero", func(t *testing.T) {
		g := graph.New()
		assert.Equal(t, 0, ScoreArtifact(graph.NewPathArtifact(nil), g).Score)
	})

	t.Run("more_evidence_scores_higher", func(t *testing.T) {
		g := graph.New()
		small := graph.NewPathArtifact([]graph.NodeID{1})
		big := graph.NewSubgraphArtifact(
			[]graph.NodeID{1, 2, 3},
			[]graph.EdgeRecord{{From: 1, To: 2, Weight: 1}, {From: 2, To: 3, Weight: 1}},
		)
		assert.Greater(t, ScoreArtifact(big, g).Score, ScoreArtifact(small, g).Score)
	})

	t.Run("score_never_exceeds_100", func(t *testing.T) {
		g := graph.New()
		path := make([]graph.NodeID, 50)
		edges := make([]graph.EdgeRecord, 50)
		art := graph.NewSubgraphArtifact(path, edges)
		assert.LessOrEqual(t, ScoreArtifact(art, g).Score, 100)
	})

	t.Run("backed_path_outscores_unbacked", func(t *testing.T) {
		g := graph.New()
		a := g.InsertNode(graph.EntityID(1))
		b := g.InsertNode(graph.EntityID(2))
		g.InsertEdge(a, b, 1)

		backed := ScorePath([]graph.NodeID{a, b}, g)
		unbacked := ScorePath([]graph.NodeID{b, a}, g)
		assert.Greater(t, backed.Score, unbacked.Score)
	})
}

func TestCustomScoring(t *testing.T) {
	g := graph.New()
	a := g.InsertNode(graph.EntityID(1))
	b := g.InsertNode(graph.EntityID(2))
	g.InsertEdge(a, b, 5)

	pessimist := NewVerifier().WithScoring(
		func(art *graph.Artifact, store graph.Store) ConfidenceScore {
			return NewConfidenceScore(10, len(art.Path), len(art.Subgraph))
		},
		nil,
	)

	result := pessimist.Verify(g, Traverse(a, 2))
	assert.False(t, result.Verified)
	assert.Equal(t, 10, result.Confidence.Score)
}
