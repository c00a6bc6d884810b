package storage

import (
	"errors"
	"fmt"

	"github.com/skuld-db/skuld/pkg/graph"
)

// ErrImportUnsupported is returned when a store cannot replace its contents
// from a canonical snapshot.
var ErrImportUnsupported = errors.New("storage: canonical import not supported")

// Importer is implemented by stores that can atomically replace their full
// contents from a canonical snapshot.
type Importer interface {
	ImportSnapshot(s *graph.Snapshot) error
}

// Import replaces the contents of store from a canonical snapshot, or
// returns ErrImportUnsupported if the store has no import capability.
func Import(store graph.Store, s *graph.Snapshot) error {
	imp, ok := store.(Importer)
	if !ok {
		return ErrImportUnsupported
	}
	return imp.ImportSnapshot(s)
}

// ImportSnapshot replaces the entire store contents from a canonical
// snapshot. The replacement graph is built and persisted before the visible
// state is swapped, so a failed import leaves the previous in-memory state
// untouched. Callers must serialize imports with writers.
func (s *BadgerStore) ImportSnapshot(snap *graph.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("storage: store is closed")
	}
	if s.readOnly {
		return ErrImportUnsupported
	}

	g := graph.FromSnapshot(snap)

	if err := s.db.DropAll(); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	if err := s.writeSnapshot(g); err != nil {
		return fmt.Errorf("failed to persist import: %w", err)
	}

	s.Graph = g
	s.writeErr = nil
	return nil
}

// writeSnapshot persists the full contents of g in a single write batch.
func (s *BadgerStore) writeSnapshot(g *graph.Graph) error {
	snap := g.Snapshot()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set(metaNextNodeID, u64Value(snap.NextNodeID)); err != nil {
		return err
	}
	for _, n := range snap.Nodes {
		if err := wb.Set(nodeKey(n.ID), u64Value(uint64(n.Entity))); err != nil {
			return err
		}
	}
	for _, e := range snap.Edges {
		if err := wb.Set(edgeKey(e.From, e.To), u64Value(uint64(e.Weight))); err != nil {
			return err
		}
	}
	return wb.Flush()
}

var _ Importer = (*BadgerStore)(nil)
var _ graph.Store = (*BadgerStore)(nil)
