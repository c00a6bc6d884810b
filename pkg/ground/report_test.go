package ground

import (
	"testing"

	"github.com/skuld-db/skuld/pkg/graph"
	"github.com/stretchr/testify/assert"
)

func TestReportBuilding(t *testing.T) {
	var r Report
	assert.True(t, r.IsEmpty())

	r.AddFact("alice knows bob", []graph.NodeID{1, 2})
	r.AddInference("likely colleagues", 80, "shared neighborhood")
	r.AddUnknown("who is charlie?", "no entity maps to charlie")

	assert.False(t, r.IsEmpty())
	assert.Len(t, r.Facts, 1)
	assert.True(t, r.Facts[0].HasEvidence())
	assert.Len(t, r.Inferences, 1)
	assert.Len(t, r.Unknowns, 1)
}

func TestInferenceThresholds(t *testing.T) {
	high := NewInference("strong", 85, "dense graph")
	low := NewInference("weak", 30, "sparse graph")

	assert.True(t, high.HighConfidence())
	assert.False(t, high.LowConfidence())
	assert.False(t, low.HighConfidence())
	assert.True(t, low.LowConfidence())

	clamped := NewInference("x", 150, "")
	assert.Equal(t, 100, clamped.Confidence)
}

func TestReportRender(t *testing.T) {
	var r Report
	r.AddFact("alice is known", []graph.NodeID{1})
	r.AddInference("likely friends", 75, "shared edges")
	r.AddUnknown("charlie?", "not in graph")

	text := r.Render()

	assert.Contains(t, text, "FACTS")
	assert.Contains(t, text, "INFERENCES")
	assert.Contains(t, text, "UNKNOWN")
	assert.Contains(t, text, "alice is known")
	assert.Contains(t, text, "[path: 1]")
	assert.Contains(t, text, "75% confidence")
	assert.Contains(t, text, "charlie?")
}

func TestReportRenderEmpty(t *testing.T) {
	var r Report
	text := r.Render()
	assert.Contains(t, text, "(none)")
}
