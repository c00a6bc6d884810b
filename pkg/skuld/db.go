// Package skuld provides the main API for embedded usage.
//
// A DB owns one graph store (in-memory or Badger-backed), the node and
// traversal caches, and the grounding layer. All mutations funnel through a
// single writer lock; reads run concurrently against the store's own
// read locking.
//
// Every query answer leaves the DB as a grounded result: either verified
// with an evidence path, or explicitly unverified. Queries are additionally
// gated by the graph's developmental stage, so a nearly empty graph refuses
// the operations it cannot yet answer meaningfully.
//
// Example Usage:
//
//	db, err := skuld.Open(config.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	_, err = db.Ingest(ctx, []ingest.Signal{
//		{Entity: 7, Attribute: "color", Value: "red"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := db.Query(ctx, ground.Lookup(7))
package skuld

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/skuld-db/skuld/pkg/cache"
	"github.com/skuld-db/skuld/pkg/compose"
	"github.com/skuld-db/skuld/pkg/config"
	"github.com/skuld-db/skuld/pkg/export"
	"github.com/skuld-db/skuld/pkg/graph"
	"github.com/skuld-db/skuld/pkg/ground"
	"github.com/skuld-db/skuld/pkg/ingest"
	"github.com/skuld-db/skuld/pkg/stage"
	"github.com/skuld-db/skuld/pkg/storage"
)

var (
	// ErrClosed is returned by operations on a closed DB.
	ErrClosed = errors.New("skuld: database is closed")

	// ErrCapabilityUnavailable is returned when the graph's stage does not
	// yet permit the requested operation. It is distinct from an empty
	// result: the query was refused, not answered.
	ErrCapabilityUnavailable = errors.New("skuld: capability not available at current stage")
)

// DB is an embedded instance of the engine.
type DB struct {
	cfg *config.Config

	store  graph.Store
	badger *storage.BadgerStore // non-nil when the badger backend is active

	nodes      *cache.NodeCache
	traversals *cache.TraversalCache
	verifier   *ground.Verifier

	writeMu sync.Mutex // single-writer discipline for mutations and import
	mu      sync.RWMutex
	closed  bool
}

// Open creates a DB from configuration. A nil config uses the defaults.
func Open(cfg *config.Config) (*DB, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db := &DB{
		cfg:      cfg,
		verifier: ground.NewVerifier(),
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		db.store = graph.New()
	case config.BackendBadger:
		bs, err := storage.NewBadgerStoreWithOptions(storage.BadgerOptions{
			DataDir:    cfg.Storage.DataDir,
			SyncWrites: cfg.Storage.SyncWrites,
			ReadOnly:   cfg.Storage.ReadOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		db.store = bs
		db.badger = bs
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}

	db.nodes = cache.NewNodeCacheWithSize(cfg.Cache.NodeCapacity).
		WithEvictionBatch(cfg.Cache.EvictionBatch)
	db.traversals = cache.NewTraversalCacheWithSize(cfg.Cache.TraversalCapacity).
		WithEvictionBatch(cfg.Cache.EvictionBatch)

	return db, nil
}

// OpenInMemory creates a DB on the in-memory backend with default settings.
// Useful for tests and short-lived tooling.
func OpenInMemory() (*DB, error) {
	return Open(config.Default())
}

// WithScoring replaces the confidence policy used to grade query results.
func (db *DB) WithScoring(artifact ground.ScoreFunc, path ground.PathScoreFunc) *DB {
	db.verifier.WithScoring(artifact, path)
	return db
}

func (db *DB) isClosed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}

// ============================================================================
// Writes
// ============================================================================

// Ingest validates and applies signals in order. Traversal caches are
// invalidated afterwards, since any edge change may alter cached artifacts.
// On a validation failure the failing signal writes nothing; earlier
// signals in the batch remain applied and their results are returned with
// the error.
func (db *DB) Ingest(ctx context.Context, signals []ingest.Signal) ([]ingest.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if db.isClosed() {
		return nil, ErrClosed
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	results, err := ingest.ApplyAll(db.store, signals)
	if len(results) > 0 {
		db.traversals.Clear()
	}
	return results, err
}

// ImportCanonical replaces the entire graph from a canonical binary
// export. The previous contents are discarded on success; on failure the
// visible state is unchanged.
func (db *DB) ImportCanonical(data []byte) error {
	if db.isClosed() {
		return ErrClosed
	}

	snap, err := export.DecodeBinary(data)
	if err != nil {
		return err
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	if db.badger != nil {
		if err := db.badger.ImportSnapshot(snap); err != nil {
			return err
		}
	} else {
		db.mu.Lock()
		db.store = graph.FromSnapshot(snap)
		db.mu.Unlock()
	}

	db.nodes.Clear()
	db.traversals.Clear()
	return nil
}

// ============================================================================
// Reads
// ============================================================================

// graphStore returns the current store under the read lock. The store
// pointer only changes during a memory-backend import.
func (db *DB) graphStore() graph.Store {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.store
}

// Node returns the node with the given id, consulting the node cache
// first. Nodes are immutable once created, so cached entries never go
// stale.
func (db *DB) Node(id graph.NodeID) (graph.Node, bool) {
	if n, ok := db.nodes.Get(id); ok {
		return n, true
	}
	n, ok := db.graphStore().Lookup(id)
	if ok {
		db.nodes.Insert(id, n)
	}
	return n, ok
}

// queryCapability maps each query kind to the capability it requires.
func queryCapability(kind ground.QueryKind) stage.Capability {
	switch kind {
	case ground.KindLookup:
		return stage.CapLookup
	case ground.KindTraverse, ground.KindTraverseDFS:
		return stage.CapTraverse
	case ground.KindTraverseFiltered:
		return stage.CapTraverseFiltered
	case ground.KindStrongestPath:
		return stage.CapStrongestPath
	case ground.KindIntersect:
		return stage.CapIntersect
	case ground.KindRelated:
		return stage.CapRelated
	default:
		return stage.Capability(-1)
	}
}

// Query executes a grounded query, enforcing stage gating and reusing
// cached traversal artifacts where possible.
//
// A refused query returns ErrCapabilityUnavailable; a query that simply
// finds nothing returns an unverified result and no error.
func (db *DB) Query(ctx context.Context, q ground.Query) (ground.GroundedResult, error) {
	if err := ctx.Err(); err != nil {
		return ground.Unverified(), err
	}
	if db.isClosed() {
		return ground.Unverified(), ErrClosed
	}

	store := db.graphStore()
	if db.cfg.Features.StageGating {
		current := stage.Assess(store.NodeCount(), store.EdgeCount()).Stage
		needed := queryCapability(q.Kind)
		if !stage.Allowed(current, needed) {
			return ground.Unverified(), fmt.Errorf("%w: %s requires stage %s, graph is %s",
				ErrCapabilityUnavailable, needed, stage.MinStage(needed), current)
		}
	}

	if key, ok := traversalCacheKey(q); ok {
		// The cache keeps its own copy of each artifact and hands out
		// clones, so callers own their result outright and cannot corrupt
		// a later cached answer by mutating it.
		if art, hit := db.traversals.Get(key); hit {
			return db.verifier.Grade(store, art.Clone()), nil
		}
		res := db.verifier.Verify(store, q)
		if res.Artifact != nil {
			db.traversals.Insert(key, res.Artifact.Clone())
		}
		return res, nil
	}

	return db.verifier.Verify(store, q), nil
}

// traversalCacheKey returns the cache key for queries whose artifacts are
// cacheable. Breadth-first traversals and related-subgraph queries share
// the same artifact shape, so they share keys.
func traversalCacheKey(q ground.Query) (cache.TraversalKey, bool) {
	switch q.Kind {
	case ground.KindTraverse, ground.KindRelated:
		return cache.NewTraversalKey(q.Start, q.Depth), true
	case ground.KindTraverseFiltered:
		return cache.NewFilteredTraversalKey(q.Start, q.Depth, q.MinWeight), true
	default:
		return cache.TraversalKey{}, false
	}
}

// Compose returns the raw breadth-first artifact around start, without
// grounding. Use Query for confidence-scored results.
func (db *DB) Compose(start graph.NodeID, depth int) *graph.Artifact {
	return compose.Compose(db.graphStore(), start, depth)
}

// ExtractPath returns the strongest path between two nodes with every hop
// edge resolved, without grounding.
func (db *DB) ExtractPath(start, end graph.NodeID) *graph.Artifact {
	return compose.ExtractPath(db.graphStore(), start, end)
}

// Report assembles a grounded report for a set of queries, splitting the
// outcomes into facts, inferences, and unknowns.
func (db *DB) Report(ctx context.Context, queries []ground.Query) (*ground.Report, error) {
	report := &ground.Report{}
	for _, q := range queries {
		res, err := db.Query(ctx, q)
		if errors.Is(err, ErrCapabilityUnavailable) {
			report.AddUnknown(q.Kind.String(), err.Error())
			continue
		}
		if err != nil {
			return nil, err
		}
		describeOutcome(report, q, res)
	}
	return report, nil
}

func describeOutcome(report *ground.Report, q ground.Query, res ground.GroundedResult) {
	name := q.Kind.String()
	switch {
	case !res.Verified && res.Artifact == nil:
		report.AddUnknown(name, "no supporting evidence in the graph")
	case res.Confidence.High():
		report.AddFact(fmt.Sprintf("%s produced a result", name), res.EvidencePath)
	default:
		report.AddInference(
			fmt.Sprintf("%s produced a partially supported result", name),
			res.Confidence.Score,
			fmt.Sprintf("confidence %d of 100", res.Confidence.Score),
		)
	}
}

// ============================================================================
// Export and stats
// ============================================================================

// ExportCanonical serializes the current graph in the canonical binary
// form. Exports of identical graph states are byte-identical.
func (db *DB) ExportCanonical() ([]byte, error) {
	if db.isClosed() {
		return nil, ErrClosed
	}
	return export.EncodeBinary(db.graphStore().Snapshot()), nil
}

// ExportJSON serializes the current graph as indented JSON.
func (db *DB) ExportJSON() ([]byte, error) {
	if db.isClosed() {
		return nil, ErrClosed
	}
	return export.EncodeJSON(db.graphStore().Snapshot())
}

// DBStats summarizes the database state for monitoring.
type DBStats struct {
	Nodes          int         `json:"nodes"`
	Edges          int         `json:"edges"`
	Stage          string      `json:"stage"`
	NodeCache      cache.Stats `json:"nodeCache"`
	TraversalCache cache.Stats `json:"traversalCache"`
}

// Stats returns current counts, stage, and cache statistics.
func (db *DB) Stats() DBStats {
	store := db.graphStore()
	return DBStats{
		Nodes:          store.NodeCount(),
		Edges:          store.EdgeCount(),
		Stage:          db.Stage().StageName,
		NodeCache:      db.nodes.Stats(),
		TraversalCache: db.traversals.Stats(),
	}
}

// Stage assesses the graph's current developmental stage.
func (db *DB) Stage() stage.Assessment {
	store := db.graphStore()
	return stage.Assess(store.NodeCount(), store.EdgeCount())
}

// Close releases the backing store. Further operations return ErrClosed.
// Closing twice is harmless.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	if db.badger != nil {
		return db.badger.Close()
	}
	return nil
}
