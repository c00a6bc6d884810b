// Package storage provides persistent backends for the graph engine.
//
// BadgerStore keeps the full graph in memory for deterministic reads and
// traversals, and writes every mutation through to BadgerDB so the graph
// survives restarts. On open, the persisted node and edge records are
// loaded back and the in-memory graph is rebuilt from them.
package storage

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/skuld-db/skuld/pkg/graph"
)

// Key prefixes for BadgerDB storage organization.
// Using single-byte prefixes for efficiency.
const (
	prefixMeta = byte(0x00) // meta:name -> uint64
	prefixNode = byte(0x01) // node:nodeID -> entityID
	prefixEdge = byte(0x02) // edge:fromID+toID -> weight
)

// metaNextNodeID stores the node id allocator position.
var metaNextNodeID = []byte{prefixMeta, 'n'}

// BadgerStore provides persistent graph storage using BadgerDB.
//
// All reads and traversals are served from the in-memory graph, so query
// results are identical to the pure in-memory store. Mutations update the
// in-memory graph first and are then written through to disk.
//
// Key Structure:
//   - Meta:  0x00 + name            -> big-endian uint64
//   - Nodes: 0x01 + nodeID          -> big-endian entityID
//   - Edges: 0x02 + fromID + toID   -> big-endian weight
//
// Example:
//
//	store, err := storage.NewBadgerStore("/path/to/data")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	id := store.InsertNode(graph.EntityID(42))
//	path := store.Traverse(id, 3)
type BadgerStore struct {
	*graph.Graph

	db       *badger.DB
	mu       sync.Mutex // serializes write-through and import
	readOnly bool
	writeErr error
	closed   bool
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Required unless InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	// Slower but more durable.
	SyncWrites bool

	// ReadOnly opens the database for reads only. Mutations become no-ops
	// and canonical import is rejected.
	ReadOnly bool

	// Logger for BadgerDB internal logging.
	// If nil, BadgerDB logging is disabled.
	Logger badger.Logger
}

// NewBadgerStore opens a persistent store with default settings.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerStoreInMemory creates an in-memory BadgerDB for testing.
//
// Data is not persisted and is lost when the store is closed. Useful for
// tests that need write-through semantics without disk I/O.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{InMemory: true})
}

// NewBadgerStoreWithOptions opens a BadgerStore with custom configuration
// and rebuilds the in-memory graph from the persisted records.
func NewBadgerStoreWithOptions(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	if opts.ReadOnly {
		badgerOpts = badgerOpts.WithReadOnly(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	// Memory-constrained defaults for containerized deployments.
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}

	g, err := loadGraph(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BadgerStore{
		Graph:    g,
		db:       db,
		readOnly: opts.ReadOnly,
	}, nil
}

// ============================================================================
// Key encoding helpers
// ============================================================================

func nodeKey(id graph.NodeID) []byte {
	key := make([]byte, 0, 9)
	key = append(key, prefixNode)
	return binary.BigEndian.AppendUint64(key, uint64(id))
}

func edgeKey(from, to graph.NodeID) []byte {
	key := make([]byte, 0, 17)
	key = append(key, prefixEdge)
	key = binary.BigEndian.AppendUint64(key, uint64(from))
	return binary.BigEndian.AppendUint64(key, uint64(to))
}

func u64Value(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

// ============================================================================
// Load
// ============================================================================

// loadGraph rebuilds the in-memory graph from persisted records.
func loadGraph(db *badger.DB) (*graph.Graph, error) {
	var (
		nodes []graph.Node
		edges []graph.EdgeRecord
		next  uint64
	)

	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaNextNodeID)
		switch err {
		case nil:
			if err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("corrupt meta record: %d bytes", len(val))
				}
				next = binary.BigEndian.Uint64(val)
				return nil
			}); err != nil {
				return err
			}
		case badger.ErrKeyNotFound:
			// Fresh database.
		default:
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		nodePrefix := []byte{prefixNode}
		for it.Seek(nodePrefix); it.ValidForPrefix(nodePrefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != 9 {
				return fmt.Errorf("corrupt node key: %d bytes", len(key))
			}
			id := graph.NodeID(binary.BigEndian.Uint64(key[1:]))
			if err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("corrupt node record for %d", id)
				}
				nodes = append(nodes, graph.Node{
					ID:     id,
					Entity: graph.EntityID(binary.BigEndian.Uint64(val)),
				})
				return nil
			}); err != nil {
				return err
			}
		}

		edgePrefix := []byte{prefixEdge}
		for it.Seek(edgePrefix); it.ValidForPrefix(edgePrefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if len(key) != 17 {
				return fmt.Errorf("corrupt edge key: %d bytes", len(key))
			}
			from := graph.NodeID(binary.BigEndian.Uint64(key[1:9]))
			to := graph.NodeID(binary.BigEndian.Uint64(key[9:17]))
			if err := item.Value(func(val []byte) error {
				if len(val) != 8 {
					return fmt.Errorf("corrupt edge record %d->%d", from, to)
				}
				edges = append(edges, graph.EdgeRecord{
					From:   from,
					To:     to,
					Weight: graph.EdgeWeight(binary.BigEndian.Uint64(val)),
				})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	return graph.Rebuild(nodes, edges, next), nil
}

// ============================================================================
// Write-through mutations
// ============================================================================

// persist applies entries to BadgerDB. Failures are logged and retained;
// Sync surfaces the first one.
func (s *BadgerStore) persist(entries map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.readOnly {
		return
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for key, val := range entries {
			if err := txn.Set([]byte(key), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("storage: write-through failed: %v", err)
		if s.writeErr == nil {
			s.writeErr = err
		}
	}
}

// InsertNode inserts a node for entity and persists it along with the id
// allocator position.
//
// On a read-only store no node is created: an already-mapped entity yields
// its existing id, and an unmapped entity yields the zero id with nothing
// registered (Lookup distinguishes the two).
func (s *BadgerStore) InsertNode(entity graph.EntityID) graph.NodeID {
	if s.readOnly {
		id, _ := s.Graph.NodeByEntity(entity)
		return id
	}
	id := s.Graph.InsertNode(entity)
	s.persist(map[string][]byte{
		string(nodeKey(id)):    u64Value(uint64(entity)),
		string(metaNextNodeID): u64Value(s.Graph.NextNodeID()),
	})
	return id
}

// InsertEdge sets the weight of from->to and persists the edge record.
// Like the in-memory store, missing endpoints make this a no-op.
func (s *BadgerStore) InsertEdge(from, to graph.NodeID, weight graph.EdgeWeight) {
	if s.readOnly {
		return
	}
	s.Graph.InsertEdge(from, to, weight)
	if w, ok := s.Graph.Edge(from, to); ok && w == weight {
		s.persist(map[string][]byte{
			string(edgeKey(from, to)): u64Value(uint64(weight)),
		})
	}
}

// IncrementEdge bumps the weight of from->to and persists the result.
func (s *BadgerStore) IncrementEdge(from, to graph.NodeID) {
	if s.readOnly {
		return
	}
	s.Graph.IncrementEdge(from, to)
	if w, ok := s.Graph.Edge(from, to); ok {
		s.persist(map[string][]byte{
			string(edgeKey(from, to)): u64Value(uint64(w)),
		})
	}
}

// ============================================================================
// Lifecycle
// ============================================================================

// Sync flushes BadgerDB to disk and returns the first write-through failure
// recorded since the last call.
func (s *BadgerStore) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.writeErr
	s.writeErr = nil
	if err != nil {
		return err
	}
	if s.db.Opts().InMemory || s.readOnly {
		return nil
	}
	return s.db.Sync()
}

// Close flushes and closes the underlying database. The in-memory graph
// remains readable after Close, but mutations stop persisting.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
