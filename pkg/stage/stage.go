// Package stage assesses how developed a graph is and gates capabilities
// on that assessment.
//
// Assessment is a pure function of graph statistics: node count, edge
// count, and edge density. It uses only integer arithmetic and consults no
// clock, so the same graph state always assesses to the same stage. No
// graph algorithms live here; callers pass in the counts.
package stage

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Stage is a maturity level derived from graph statistics. Stages are
// ordered; a later stage includes every capability of the earlier ones.
type Stage int

const (
	StageNewborn Stage = iota
	StageInfant
	StageJuvenile
	StageAdolescent
	StageMature
)

// String returns the lowercase stage name.
func (s Stage) String() string {
	switch s {
	case StageNewborn:
		return "newborn"
	case StageInfant:
		return "infant"
	case StageJuvenile:
		return "juvenile"
	case StageAdolescent:
		return "adolescent"
	case StageMature:
		return "mature"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Capability is an operation class that may be gated behind a stage.
type Capability int

const (
	CapLookup Capability = iota
	CapTraverse
	CapTraverseFiltered
	CapIntersect
	CapStrongestPath
	CapRelated
	CapExport
	CapImport
)

// String returns the lowercase capability name.
func (c Capability) String() string {
	switch c {
	case CapLookup:
		return "lookup"
	case CapTraverse:
		return "traverse"
	case CapTraverseFiltered:
		return "traverse_filtered"
	case CapIntersect:
		return "intersect"
	case CapStrongestPath:
		return "strongest_path"
	case CapRelated:
		return "related"
	case CapExport:
		return "export"
	case CapImport:
		return "import"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// minStage maps each capability to the earliest stage that may use it.
// Lookup, export and import are always available: export and import are
// how an empty graph gets bootstrapped in the first place.
var minStage = map[Capability]Stage{
	CapLookup:           StageNewborn,
	CapExport:           StageNewborn,
	CapImport:           StageNewborn,
	CapTraverse:         StageInfant,
	CapRelated:          StageInfant,
	CapTraverseFiltered: StageJuvenile,
	CapIntersect:        StageJuvenile,
	CapStrongestPath:    StageAdolescent,
}

// MinStage returns the earliest stage at which a capability is available.
// Unknown capabilities require the mature stage.
func MinStage(c Capability) Stage {
	if s, ok := minStage[c]; ok {
		return s
	}
	return StageMature
}

// Allowed reports whether a capability is available at the given stage.
func Allowed(s Stage, c Capability) bool {
	return s >= MinStage(c)
}

// Stage thresholds. Density is measured in edges per hundred nodes so the
// assessment stays in integer arithmetic.
const (
	infantNodes     = 10
	juvenileNodes   = 100
	adolescentNodes = 1000
	matureDensity   = 100
)

// Assessment is the result of assessing a graph's statistics.
type Assessment struct {
	Stage   Stage `json:"-" yaml:"-"`
	Nodes   int   `json:"nodes" yaml:"nodes"`
	Edges   int   `json:"edges" yaml:"edges"`
	Density int   `json:"density" yaml:"density"`

	StageName string `json:"stage" yaml:"stage"`
}

// Render returns the assessment as YAML, for CLI output.
func (a Assessment) Render() (string, error) {
	out, err := yaml.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("stage: render assessment: %w", err)
	}
	return string(out), nil
}

// Assess derives the stage from node and edge counts. Node count moves a
// graph through the early stages; reaching maturity additionally requires
// the graph to be well connected.
func Assess(nodes, edges int) Assessment {
	density := 0
	if nodes > 0 {
		density = edges * 100 / nodes
	}

	var s Stage
	switch {
	case nodes < infantNodes:
		s = StageNewborn
	case nodes < juvenileNodes:
		s = StageInfant
	case nodes < adolescentNodes:
		s = StageJuvenile
	case density < matureDensity:
		s = StageAdolescent
	default:
		s = StageMature
	}

	return Assessment{
		Stage:     s,
		Nodes:     nodes,
		Edges:     edges,
		Density:   density,
		StageName: s.String(),
	}
}
