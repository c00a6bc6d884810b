// Package ingest turns external signals into graph mutations.
//
// A signal is an (entity, attribute, value) triple. Ingestion validates the
// triple, resolves each part to a node, and strengthens the edges
// entity->attribute and attribute->value by one. Repeated signals therefore
// accumulate edge weight, which is what the traversal and grounding layers
// read as association strength.
//
// Validation happens before any mutation: an invalid signal never leaves a
// half-written node or edge behind.
package ingest

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/skuld-db/skuld/pkg/graph"
)

// Field length bounds, enforced in bytes.
const (
	MaxAttributeBytes = 256
	MaxValueBytes     = 65536
)

// ErrInvalidSignal wraps any validation failure. It is distinct from the
// empty results the graph returns for absent data.
var ErrInvalidSignal = errors.New("ingest: invalid signal")

// signalValidate is the validator instance for signals.
// Initialized in init() with the byte-length validator.
var signalValidate *validator.Validate

func init() {
	signalValidate = validator.New()

	// The builtin min/max tags count runes; these bounds are byte limits.
	_ = signalValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) against the tag
// parameter, so multi-byte input cannot slip past the bound.
func validateMaxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Signal is an observation about an entity: the entity carries the given
// attribute, and the attribute currently holds the given value.
type Signal struct {
	Entity    graph.EntityID `json:"entity"`
	Attribute string         `json:"attribute" validate:"required,maxbytes=256"`
	Value     string         `json:"value" validate:"required,maxbytes=65536"`
}

// Validate checks the length bounds. Attribute must be 1-256 bytes and
// Value 1-65536 bytes.
func (s *Signal) Validate() error {
	if err := signalValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}
	return nil
}

// EntityFor maps a string to a deterministic EntityID using FNV-64a, so
// the same attribute or value text always resolves to the same node.
func EntityFor(s string) graph.EntityID {
	h := fnv.New64a()
	h.Write([]byte(s))
	return graph.EntityID(h.Sum64())
}

// Result reports the nodes touched by one applied signal.
type Result struct {
	EntityNode    graph.NodeID `json:"entityNode"`
	AttributeNode graph.NodeID `json:"attributeNode"`
	ValueNode     graph.NodeID `json:"valueNode"`
}

// Apply validates a signal and records it in the store. Node inserts are
// idempotent; the two association edges are strengthened by one each time
// the same signal arrives.
func Apply(store graph.Store, s Signal) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	entityNode := store.InsertNode(s.Entity)
	attrNode := store.InsertNode(EntityFor(s.Attribute))
	valueNode := store.InsertNode(EntityFor(s.Value))

	store.IncrementEdge(entityNode, attrNode)
	store.IncrementEdge(attrNode, valueNode)

	return Result{
		EntityNode:    entityNode,
		AttributeNode: attrNode,
		ValueNode:     valueNode,
	}, nil
}

// ApplyAll applies signals in order, stopping at the first invalid one.
// Signals before the failure remain applied; the failing signal itself
// writes nothing.
func ApplyAll(store graph.Store, signals []Signal) ([]Result, error) {
	results := make([]Result, 0, len(signals))
	for i, s := range signals {
		r, err := Apply(store, s)
		if err != nil {
			return results, fmt.Errorf("signal %d: %w", i, err)
		}
		results = append(results, r)
	}
	return results, nil
}
