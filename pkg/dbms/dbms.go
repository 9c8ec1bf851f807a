// Package dbms wires storage, indices, the write-ahead log, MVCC and the
// Cypher pipeline behind the embedded API described in the design notes:
// the operations of the storage contract, begin/commit/abort on the
// transaction manager, execute(query) on the query pipeline,
// create_index/drop_index on the index manager, and recover(storage) on
// the recovery manager. Nothing outside this package talks to more than
// one of those subsystems directly.
package dbms

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/orneryd/nornicgraph/pkg/config"
	"github.com/orneryd/nornicgraph/pkg/cypher"
	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/index"
	"github.com/orneryd/nornicgraph/pkg/mvcc"
	"github.com/orneryd/nornicgraph/pkg/storage"
	"github.com/orneryd/nornicgraph/pkg/wal"
)

// Database composes a storage.Engine, an index.Manager, an optional WAL,
// and the MVCC transaction/version/deadlock machinery into the single
// embedded entry point the CLI, importers and algorithms consume.
//
// Two ways to read and write coexist by design. The non-transactional
// methods (AddNode, GetNode, ...) are auto-commit: each call is immediately
// durable and immediately visible, with no isolation boundary of its own —
// suitable for bulk import and ad hoc use. The transactional surface
// (Begin/Txn.*/Commit/Abort) gives snapshot isolation through per-item
// version chains, seeded lazily from the storage engine's current value the
// first time a transaction touches an item that predates any transactional
// history.
type Database struct {
	eng  storage.Engine
	idx  *index.Manager
	wal  *wal.WAL
	txns *mvcc.Manager
	lock *mvcc.Detector
	cfg  *config.Config
	log  *log.Logger

	chains chainStore
}

// Open constructs a Database from cfg: the storage backend named by
// cfg.Storage.Backend, a fresh index manager, and — if cfg.WAL.Enabled — a
// WAL rooted at <data_dir>/wal. It does not run recovery; call Recover
// explicitly against an empty engine if resuming from an existing WAL.
func Open(cfg *config.Config) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var eng storage.Engine
	var err error
	switch cfg.Storage.Backend {
	case "badger":
		eng, err = storage.NewBadgerEngine(cfg.Storage.DataDir)
	default:
		eng = storage.NewMemoryEngine()
	}
	if err != nil {
		return nil, fmt.Errorf("open storage backend: %w", err)
	}

	db := &Database{
		eng:    eng,
		idx:    index.NewManager(),
		txns:   mvcc.NewManager(),
		lock:   mvcc.NewDetector(),
		cfg:    cfg,
		log:    log.Default(),
		chains: newChainStore(),
	}

	if cfg.WAL.Enabled {
		w, err := wal.Open(wal.Config{
			Dir:                 filepath.Join(cfg.Storage.DataDir, "wal"),
			CheckpointThreshold: cfg.WAL.CheckpointThreshold,
			SyncOnWrite:         cfg.WAL.SyncOnWrite,
		})
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("open wal: %w", err)
		}
		db.wal = w
	}

	return db, nil
}

// Close releases the WAL and storage engine, in that order.
func (db *Database) Close() error {
	if db.wal != nil {
		if err := db.wal.Close(); err != nil {
			return err
		}
	}
	return db.eng.Close()
}

// Recover replays the WAL rooted at dir into db's storage engine, which the
// caller must ensure is empty. Mirrors the embedded API's recover(storage).
func (db *Database) Recover(dir string) error {
	if err := wal.Recover(dir, db.eng); err != nil {
		return err
	}
	db.log.Printf("recovery complete from %s", dir)
	return nil
}

// appendWAL is a no-op when the WAL is disabled, so every mutating method
// can call it unconditionally.
func (db *Database) appendWAL(txnID uint64, op wal.Op, body []byte) error {
	if db.wal == nil {
		return nil
	}
	_, err := db.wal.Append(txnID, 0, op, body)
	return err
}

// --- Non-transactional embedded API ---

// AddNode assigns n an id, persists it, updates label/property indices and
// the WAL, and returns the new id.
func (db *Database) AddNode(n *graph.Node) (graph.NodeID, error) {
	id, err := db.eng.AddNode(n)
	if err != nil {
		return graph.NilNodeID, err
	}
	node, err := db.eng.GetNode(id)
	if err != nil {
		return graph.NilNodeID, err
	}
	for _, l := range node.Labels {
		db.idx.InsertLabel(l, id)
	}
	for k, v := range node.Properties {
		if err := db.idx.InsertProperty(k, v, id); err != nil {
			return graph.NilNodeID, err
		}
	}
	if err := db.appendWAL(0, wal.OpInsertNode, wal.EncodeNodeBody(node)); err != nil {
		return graph.NilNodeID, err
	}
	return id, nil
}

func (db *Database) GetNode(id graph.NodeID) (*graph.Node, error) {
	return db.eng.GetNode(id)
}

func (db *Database) UpdateNode(n *graph.Node) error {
	old, err := db.eng.GetNode(n.ID)
	if err != nil {
		return err
	}
	if err := db.eng.UpdateNode(n); err != nil {
		return err
	}
	for _, l := range old.Labels {
		db.idx.RemoveLabel(l, n.ID)
	}
	for k, v := range old.Properties {
		db.idx.RemoveProperty(k, v, n.ID)
	}
	for _, l := range n.Labels {
		db.idx.InsertLabel(l, n.ID)
	}
	for k, v := range n.Properties {
		if err := db.idx.InsertProperty(k, v, n.ID); err != nil {
			return err
		}
	}
	return db.appendWAL(0, wal.OpUpdateNode, wal.EncodeNodeBody(n))
}

func (db *Database) DeleteNode(id graph.NodeID) error {
	node, err := db.eng.GetNode(id)
	if err != nil {
		return err
	}
	if err := db.eng.DeleteNode(id); err != nil {
		return err
	}
	for _, l := range node.Labels {
		db.idx.RemoveLabel(l, id)
	}
	for k, v := range node.Properties {
		db.idx.RemoveProperty(k, v, id)
	}
	return db.appendWAL(0, wal.OpDeleteNode, wal.EncodeIDBody(id.Bytes()))
}

func (db *Database) AddEdge(e *graph.Edge) (graph.EdgeID, error) {
	id, err := db.eng.AddEdge(e)
	if err != nil {
		return graph.NilEdgeID, err
	}
	edge, err := db.eng.GetEdge(id)
	if err != nil {
		return graph.NilEdgeID, err
	}
	return id, db.appendWAL(0, wal.OpInsertEdge, wal.EncodeEdgeBody(edge))
}

func (db *Database) GetEdge(id graph.EdgeID) (*graph.Edge, error) { return db.eng.GetEdge(id) }

func (db *Database) UpdateEdge(e *graph.Edge) error {
	if err := db.eng.UpdateEdge(e); err != nil {
		return err
	}
	return db.appendWAL(0, wal.OpUpdateEdge, wal.EncodeEdgeBody(e))
}

func (db *Database) DeleteEdge(id graph.EdgeID) error {
	if err := db.eng.DeleteEdge(id); err != nil {
		return err
	}
	return db.appendWAL(0, wal.OpDeleteEdge, wal.EncodeIDBody(id.Bytes()))
}

// --- Transactional-commit materialization ---
//
// Txn stages writes into version chains only; these apply the final
// committed state to the storage engine and its indices directly, the same
// way the non-transactional AddNode/UpdateNode/DeleteNode/... methods do,
// so GetNode/Execute see it without waiting on a crash replay.

func (db *Database) materializeAddNode(n *graph.Node) error {
	if _, err := db.eng.AddNode(n); err != nil {
		return err
	}
	for _, l := range n.Labels {
		db.idx.InsertLabel(l, n.ID)
	}
	for k, v := range n.Properties {
		if err := db.idx.InsertProperty(k, v, n.ID); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) materializeUpdateNode(n *graph.Node) error {
	old, err := db.eng.GetNode(n.ID)
	if err != nil {
		// Predates any materialized copy (e.g. updated within the same
		// transaction that created it); fall back to inserting it.
		return db.materializeAddNode(n)
	}
	if err := db.eng.UpdateNode(n); err != nil {
		return err
	}
	for _, l := range old.Labels {
		db.idx.RemoveLabel(l, n.ID)
	}
	for k, v := range old.Properties {
		db.idx.RemoveProperty(k, v, n.ID)
	}
	for _, l := range n.Labels {
		db.idx.InsertLabel(l, n.ID)
	}
	for k, v := range n.Properties {
		if err := db.idx.InsertProperty(k, v, n.ID); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) materializeDeleteNode(id graph.NodeID) error {
	node, err := db.eng.GetNode(id)
	if err != nil {
		return err
	}
	if err := db.eng.DeleteNode(id); err != nil {
		return err
	}
	for _, l := range node.Labels {
		db.idx.RemoveLabel(l, id)
	}
	for k, v := range node.Properties {
		db.idx.RemoveProperty(k, v, id)
	}
	return nil
}

func (db *Database) materializeAddEdge(e *graph.Edge) error {
	_, err := db.eng.AddEdge(e)
	return err
}

func (db *Database) materializeUpdateEdge(e *graph.Edge) error {
	if err := db.eng.UpdateEdge(e); err != nil {
		// Predates any materialized copy; fall back to inserting it.
		return db.materializeAddEdge(e)
	}
	return nil
}

func (db *Database) materializeDeleteEdge(id graph.EdgeID) error {
	return db.eng.DeleteEdge(id)
}

func (db *Database) GetNodesByLabel(label string) ([]*graph.Node, error) {
	return db.eng.GetNodesByLabel(label)
}

func (db *Database) GetNodesByProperty(key string, value graph.PropertyValue) ([]*graph.Node, error) {
	if ids, ok, err := db.idx.LookupProperty(key, value); ok {
		if err != nil {
			return nil, err
		}
		out := make([]*graph.Node, 0, len(ids))
		for _, id := range ids {
			n, err := db.eng.GetNode(id)
			if err != nil {
				continue
			}
			out = append(out, n)
		}
		return out, nil
	}
	return db.eng.GetNodesByProperty(key, value)
}

func (db *Database) GetOutgoingEdges(id graph.NodeID) ([]*graph.Edge, error) {
	return db.eng.GetOutgoingEdges(id)
}

func (db *Database) GetIncomingEdges(id graph.NodeID) ([]*graph.Edge, error) {
	return db.eng.GetIncomingEdges(id)
}

func (db *Database) NodeCount() (int, error) { return db.eng.NodeCount() }
func (db *Database) EdgeCount() (int, error) { return db.eng.EdgeCount() }

// --- Index management (embedded API: create_index / drop_index) ---

func (db *Database) CreateIndex(cfg index.Config) error { return db.idx.CreateIndex(cfg) }
func (db *Database) DropIndex(name string) error        { return db.idx.DropIndex(name) }
func (db *Database) ListIndices() []index.Config        { return db.idx.ListIndices() }

// --- Query pipeline (embedded API: execute) ---

// Execute runs a Cypher statement against the current committed state —
// there is no transactional Execute; a write statement is its own implicit
// transaction at the storage-engine level, logged to the WAL (if enabled)
// the same way the non-transactional AddNode/AddEdge/... methods are.
func (db *Database) Execute(query string, params map[string]graph.PropertyValue) (*cypher.QueryResult, error) {
	var walWriter cypher.WALWriter
	if db.wal != nil {
		walWriter = db.wal
	}
	return cypher.Execute(query, db.eng, db.idx, walWriter, params)
}

// --- Observability (supplemented, not in the distilled core contract) ---

func (db *Database) WALStats() (wal.Stats, bool) {
	if db.wal == nil {
		return wal.Stats{}, false
	}
	return db.wal.Stats(), true
}

func (db *Database) DeadlockStats() mvcc.Stats { return db.lock.Stats() }

// GC discards version-chain entries no longer reachable by any active
// transaction's snapshot, bounding the memory the transactional surface
// retains for long-running processes.
func (db *Database) GC() {
	oldest, ok := db.txns.OldestActiveTimestamp()
	if !ok {
		oldest = mvcc.Timestamp(^uint64(0))
	}
	db.chains.gc(oldest)
}
