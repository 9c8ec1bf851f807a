package dbms

import (
	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/mvcc"
	"github.com/orneryd/nornicgraph/pkg/wal"
)

// Txn is a snapshot-isolated transaction: reads see a stable view fixed at
// Begin time, writes stage into per-item version chains immediately (the
// visibility predicate already hides an active transaction's writes from
// everyone else), and Commit/Abort finalize or unwind that staged state.
// Embeds *mvcc.Transaction for its ID, Snapshot and debugging metadata.
type Txn struct {
	*mvcc.Transaction
	db       *Database
	done     bool
	undo     []func()
	onCommit []func() error
}

// Begin starts a new transaction, snapshotting the current active set.
func (db *Database) Begin() (*Txn, error) {
	id, snap := db.txns.Begin()
	if err := db.appendWAL(uint64(id), wal.OpBeginTxn, nil); err != nil {
		db.txns.Abort(id)
		return nil, err
	}
	return &Txn{Transaction: mvcc.NewTransaction(id, snap), db: db}, nil
}

func (t *Txn) requireActive() error {
	if t.done {
		return graph.InvalidOperation("transaction already finished")
	}
	return nil
}

// Commit finalizes the transaction: its writes become visible to every
// snapshot begun after this point, its locks release, and a CommitTxn
// marker is appended to the WAL. It also materializes every staged write
// into the storage engine and its indices directly, so the non-transactional
// surface (GetNode, Execute, ...) observes the result immediately rather
// than only after a crash replays the WAL — the version chain stays
// authoritative for any transaction still reading an older snapshot.
func (t *Txn) Commit() error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if _, err := t.db.txns.Commit(t.ID); err != nil {
		return err
	}
	for _, materialize := range t.onCommit {
		if err := materialize(); err != nil {
			t.db.log.Printf("txn %d: materializing into storage engine: %v", t.ID, err)
		}
	}
	t.db.lock.ReleaseAllLocks(t.ID)
	t.done = true
	if summary := t.MetadataSummary(); summary != "" {
		t.db.log.Printf("txn %d committed: %s", t.ID, summary)
	}
	return t.db.appendWAL(uint64(t.ID), wal.OpCommitTxn, nil)
}

// Abort unwinds every write this transaction staged, in reverse order,
// then marks it aborted and releases its locks.
func (t *Txn) Abort() error {
	if err := t.requireActive(); err != nil {
		return err
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	err := t.db.txns.Abort(t.ID)
	t.db.lock.ReleaseAllLocks(t.ID)
	t.done = true
	if walErr := t.db.appendWAL(uint64(t.ID), wal.OpAbortTxn, nil); walErr != nil && err == nil {
		err = walErr
	}
	return err
}

func (t *Txn) lockResource(id string) error {
	return t.db.lock.RequestLock(t.ID, mvcc.ResourceID(id))
}

// GetNode reads id as of this transaction's snapshot: through its version
// chain if one exists, or straight from the storage engine if id predates
// any transactional history.
func (t *Txn) GetNode(id graph.NodeID) (*graph.Node, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	vc, ok := t.db.chains.lookupNode(id)
	if !ok {
		return t.db.eng.GetNode(id)
	}
	data, ok := vc.GetVisibleVersion(t.Snapshot)
	if !ok {
		return nil, graph.NotFound("node")
	}
	return data.Clone(), nil
}

// AddNode stages a new node under a fresh or caller-supplied id.
func (t *Txn) AddNode(n *graph.Node) (graph.NodeID, error) {
	if err := t.requireActive(); err != nil {
		return graph.NilNodeID, err
	}
	id := n.ID
	if id == graph.NilNodeID {
		id = graph.NewNodeID()
	}
	if err := t.lockResource(id.String()); err != nil {
		return graph.NilNodeID, err
	}
	node := n.Clone()
	node.ID = id

	vc := t.db.chains.nodeChain(id)
	if err := vc.AddVersion(node, t.ID, t.Snapshot.Timestamp); err != nil {
		return graph.NilNodeID, err
	}
	if err := t.db.appendWAL(uint64(t.ID), wal.OpInsertNode, wal.EncodeNodeBody(node)); err != nil {
		return graph.NilNodeID, err
	}
	t.undo = append(t.undo, func() { t.db.chains.dropNode(id, t.ID) })
	t.onCommit = append(t.onCommit, func() error { return t.db.materializeAddNode(node) })
	return id, nil
}

// UpdateNode stages a replacement for node n.ID, seeding its chain from the
// engine's current value first if no transaction has touched it yet.
func (t *Txn) UpdateNode(n *graph.Node) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if err := t.lockResource(n.ID.String()); err != nil {
		return err
	}
	vc, err := t.db.seedNodeChainFromEngine(n.ID)
	if err != nil {
		return err
	}
	node := n.Clone()
	if err := vc.AddVersion(node, t.ID, t.Snapshot.Timestamp); err != nil {
		return err
	}
	if err := t.db.appendWAL(uint64(t.ID), wal.OpUpdateNode, wal.EncodeNodeBody(node)); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.db.chains.dropNode(n.ID, t.ID) })
	t.onCommit = append(t.onCommit, func() error { return t.db.materializeUpdateNode(node) })
	return nil
}

// DeleteNode stages id's deletion.
func (t *Txn) DeleteNode(id graph.NodeID) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if err := t.lockResource(id.String()); err != nil {
		return err
	}
	vc, err := t.db.seedNodeChainFromEngine(id)
	if err != nil {
		return err
	}
	if err := vc.MarkHeadDeleted(t.ID, t.Snapshot.Timestamp); err != nil {
		return err
	}
	if err := t.db.appendWAL(uint64(t.ID), wal.OpDeleteNode, wal.EncodeIDBody(id.Bytes())); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.db.chains.dropNode(id, t.ID) })
	t.onCommit = append(t.onCommit, func() error { return t.db.materializeDeleteNode(id) })
	return nil
}

// GetEdge, AddEdge, UpdateEdge and DeleteEdge mirror the node methods above
// over edge version chains.

func (t *Txn) GetEdge(id graph.EdgeID) (*graph.Edge, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	vc, ok := t.db.chains.lookupEdge(id)
	if !ok {
		return t.db.eng.GetEdge(id)
	}
	data, ok := vc.GetVisibleVersion(t.Snapshot)
	if !ok {
		return nil, graph.NotFound("edge")
	}
	return data.Clone(), nil
}

func (t *Txn) AddEdge(e *graph.Edge) (graph.EdgeID, error) {
	if err := t.requireActive(); err != nil {
		return graph.NilEdgeID, err
	}
	if _, err := t.GetNode(e.From); err != nil {
		return graph.NilEdgeID, graph.NotFound("edge endpoint (from)")
	}
	if _, err := t.GetNode(e.To); err != nil {
		return graph.NilEdgeID, graph.NotFound("edge endpoint (to)")
	}
	id := e.ID
	if id == graph.NilEdgeID {
		id = graph.NewEdgeID()
	}
	if err := t.lockResource(id.String()); err != nil {
		return graph.NilEdgeID, err
	}
	edge := e.Clone()
	edge.ID = id

	vc := t.db.chains.edgeChain(id)
	if err := vc.AddVersion(edge, t.ID, t.Snapshot.Timestamp); err != nil {
		return graph.NilEdgeID, err
	}
	if err := t.db.appendWAL(uint64(t.ID), wal.OpInsertEdge, wal.EncodeEdgeBody(edge)); err != nil {
		return graph.NilEdgeID, err
	}
	t.undo = append(t.undo, func() { t.db.chains.dropEdge(id, t.ID) })
	t.onCommit = append(t.onCommit, func() error { return t.db.materializeAddEdge(edge) })
	return id, nil
}

func (t *Txn) UpdateEdge(e *graph.Edge) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if err := t.lockResource(e.ID.String()); err != nil {
		return err
	}
	vc, err := t.db.seedEdgeChainFromEngine(e.ID)
	if err != nil {
		return err
	}
	edge := e.Clone()
	if err := vc.AddVersion(edge, t.ID, t.Snapshot.Timestamp); err != nil {
		return err
	}
	if err := t.db.appendWAL(uint64(t.ID), wal.OpUpdateEdge, wal.EncodeEdgeBody(edge)); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.db.chains.dropEdge(e.ID, t.ID) })
	t.onCommit = append(t.onCommit, func() error { return t.db.materializeUpdateEdge(edge) })
	return nil
}

func (t *Txn) DeleteEdge(id graph.EdgeID) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	if err := t.lockResource(id.String()); err != nil {
		return err
	}
	vc, err := t.db.seedEdgeChainFromEngine(id)
	if err != nil {
		return err
	}
	if err := vc.MarkHeadDeleted(t.ID, t.Snapshot.Timestamp); err != nil {
		return err
	}
	if err := t.db.appendWAL(uint64(t.ID), wal.OpDeleteEdge, wal.EncodeIDBody(id.Bytes())); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.db.chains.dropEdge(id, t.ID) })
	t.onCommit = append(t.onCommit, func() error { return t.db.materializeDeleteEdge(id) })
	return nil
}

func (db *Database) seedNodeChainFromEngine(id graph.NodeID) (*mvcc.VersionChain[*graph.Node], error) {
	if vc, ok := db.chains.lookupNode(id); ok {
		return vc, nil
	}
	current, err := db.eng.GetNode(id)
	if err != nil {
		return nil, err
	}
	return seededNodeChain(&db.chains, id, current), nil
}

func (db *Database) seedEdgeChainFromEngine(id graph.EdgeID) (*mvcc.VersionChain[*graph.Edge], error) {
	if vc, ok := db.chains.lookupEdge(id); ok {
		return vc, nil
	}
	current, err := db.eng.GetEdge(id)
	if err != nil {
		return nil, err
	}
	return seededEdgeChain(&db.chains, id, current), nil
}
