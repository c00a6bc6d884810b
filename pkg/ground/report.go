package ground

import (
	"fmt"
	"strings"

	"github.com/skuld-db/skuld/pkg/graph"
)

// Fact is a statement directly supported by graph structure, with the
// evidence path that backs it.
type Fact struct {
	Statement    string         `json:"statement"`
	EvidencePath []graph.NodeID `json:"evidencePath"`
}

// HasEvidence reports whether the fact carries a supporting path.
func (f Fact) HasEvidence() bool {
	return len(f.EvidencePath) > 0
}

// Inference is a deduction with an explicit confidence percentage and the
// reasoning behind it.
type Inference struct {
	Statement  string `json:"statement"`
	Confidence int    `json:"confidence"` // 0-100, clamped
	Reasoning  string `json:"reasoning"`
}

// NewInference clamps confidence into 0-100.
func NewInference(statement string, confidence int, reasoning string) Inference {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return Inference{Statement: statement, Confidence: confidence, Reasoning: reasoning}
}

// HighConfidence reports whether the inference clears the high threshold.
func (i Inference) HighConfidence() bool {
	return i.Confidence >= HighConfidenceThreshold
}

// LowConfidence reports whether the inference falls below the verification
// threshold.
func (i Inference) LowConfidence() bool {
	return i.Confidence < VerifiedThreshold
}

// Unknown is a question the graph could not answer, with an explanation of
// what structure was missing. Unknowns are stated, never papered over.
type Unknown struct {
	Query       string `json:"query"`
	Explanation string `json:"explanation"`
}

// Report separates everything the engine has to say into facts, inferences
// and unknowns, so a consumer can always tell evidence from deduction from
// absence.
type Report struct {
	Facts      []Fact      `json:"facts"`
	Inferences []Inference `json:"inferences"`
	Unknowns   []Unknown   `json:"unknowns"`
}

// AddFact appends a fact to the report.
func (r *Report) AddFact(statement string, evidence []graph.NodeID) {
	r.Facts = append(r.Facts, Fact{Statement: statement, EvidencePath: evidence})
}

// AddInference appends an inference, clamping its confidence.
func (r *Report) AddInference(statement string, confidence int, reasoning string) {
	r.Inferences = append(r.Inferences, NewInference(statement, confidence, reasoning))
}

// AddUnknown appends an unanswered question with its explanation.
func (r *Report) AddUnknown(query, explanation string) {
	r.Unknowns = append(r.Unknowns, Unknown{Query: query, Explanation: explanation})
}

// IsEmpty reports whether the report carries anything at all.
func (r *Report) IsEmpty() bool {
	return len(r.Facts) == 0 && len(r.Inferences) == 0 && len(r.Unknowns) == 0
}

// Render formats the report as plain text with facts, inferences and
// unknowns in clearly separated sections.
func (r *Report) Render() string {
	var b strings.Builder

	b.WriteString("FACTS (graph evidence)\n")
	if len(r.Facts) == 0 {
		b.WriteString("  - (none)\n")
	}
	for _, f := range r.Facts {
		b.WriteString(fmt.Sprintf("  - %s [path: %s]\n", f.Statement, renderPath(f.EvidencePath)))
	}

	b.WriteString("INFERENCES (deductions)\n")
	if len(r.Inferences) == 0 {
		b.WriteString("  - (none)\n")
	}
	for _, inf := range r.Inferences {
		b.WriteString(fmt.Sprintf("  - %s [%d%% confidence]\n", inf.Statement, inf.Confidence))
	}

	b.WriteString("UNKNOWN (no supporting structure)\n")
	if len(r.Unknowns) == 0 {
		b.WriteString("  - (none)\n")
	}
	for _, u := range r.Unknowns {
		b.WriteString(fmt.Sprintf("  - %s: %s\n", u.Query, u.Explanation))
	}

	return b.String()
}

func renderPath(path []graph.NodeID) string {
	if len(path) == 0 {
		return "no path"
	}
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, "->")
}
