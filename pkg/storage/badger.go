package storage

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/orneryd/nornicgraph/pkg/graph"
)

// Key prefixes for the logical sub-trees badger.go multiplexes onto a
// single flat keyspace, matching the "nodes / edges / label_index /
// outgoing_edges / incoming_edges / edge_type_index" layout.
const (
	prefixNode        = "n:"
	prefixEdge        = "e:"
	prefixLabelIndex  = "l:"
	prefixOutgoing    = "o:"
	prefixIncoming    = "i:"
	prefixEdgeTypeIdx = "t:"
)

func nodeKey(id graph.NodeID) []byte { return append([]byte(prefixNode), id.Bytes()...) }
func edgeKey(id graph.EdgeID) []byte { return append([]byte(prefixEdge), id.Bytes()...) }

func labelIndexPrefix(label string) []byte {
	return append([]byte(prefixLabelIndex+label+"\x00"))
}
func labelIndexKey(label string, id graph.NodeID) []byte {
	return append(labelIndexPrefix(label), id.Bytes()...)
}

func outgoingPrefix(id graph.NodeID) []byte {
	return append([]byte(prefixOutgoing), id.Bytes()...)
}
func outgoingKey(from graph.NodeID, eid graph.EdgeID) []byte {
	return append(outgoingPrefix(from), eid.Bytes()...)
}

func incomingPrefix(id graph.NodeID) []byte {
	return append([]byte(prefixIncoming), id.Bytes()...)
}
func incomingKey(to graph.NodeID, eid graph.EdgeID) []byte {
	return append(incomingPrefix(to), eid.Bytes()...)
}

func edgeTypeKey(edgeType string, id graph.EdgeID) []byte {
	return append([]byte(prefixEdgeTypeIdx+edgeType+"\x00"), id.Bytes()...)
}

// BadgerEngine is the disk-backed implementation (C5): an embedded ordered
// key/value store with a logical sub-tree per concern. Every mutation
// writes the primary entry and every affected secondary entry inside a
// single badger transaction, then the transaction's commit flushes — that
// per-mutation flush is this backend's own durability, independent of the
// write-ahead log which exists for cross-backend recovery.
type BadgerEngine struct {
	db *badger.DB
}

// NewBadgerEngine opens (creating if absent) a disk-backed engine rooted at
// dataDir.
func NewBadgerEngine(dataDir string) (*BadgerEngine, error) {
	opts := badger.DefaultOptions(dataDir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, graph.Wrap(graph.KindStorage, "open badger engine", err)
	}
	return &BadgerEngine{db: db}, nil
}

// NewBadgerEngineInMemory opens an ephemeral badger instance backed only by
// memory — useful for tests that want the disk backend's exact semantics
// without touching the filesystem.
func NewBadgerEngineInMemory() (*BadgerEngine, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, graph.Wrap(graph.KindStorage, "open in-memory badger engine", err)
	}
	return &BadgerEngine{db: db}, nil
}

var _ Engine = (*BadgerEngine)(nil)

func (b *BadgerEngine) Close() error {
	if err := b.db.Close(); err != nil {
		return graph.Wrap(graph.KindStorage, "close badger engine", err)
	}
	return nil
}

func (b *BadgerEngine) AddNode(n *graph.Node) (graph.NodeID, error) {
	node := n.Clone()
	if node.ID == graph.NilNodeID {
		node.ID = graph.NewNodeID()
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(nodeKey(node.ID), graph.EncodeNode(node)); err != nil {
			return err
		}
		for _, l := range node.Labels {
			if err := txn.Set(labelIndexKey(l, node.ID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return graph.NilNodeID, graph.Wrap(graph.KindStorage, "add node", err)
	}
	return node.ID, nil
}

func (b *BadgerEngine) getNodeTxn(txn *badger.Txn, id graph.NodeID) (*graph.Node, error) {
	item, err := txn.Get(nodeKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, graph.NotFound("node")
	}
	if err != nil {
		return nil, graph.Wrap(graph.KindStorage, "get node", err)
	}
	var node *graph.Node
	err = item.Value(func(val []byte) error {
		n, err := graph.DecodeNode(val)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	if err != nil {
		return nil, graph.Wrap(graph.KindSerialization, "decode node", err)
	}
	return node, nil
}

func (b *BadgerEngine) GetNode(id graph.NodeID) (*graph.Node, error) {
	var node *graph.Node
	err := b.db.View(func(txn *badger.Txn) error {
		n, err := b.getNodeTxn(txn, id)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	return node, err
}

func (b *BadgerEngine) UpdateNode(n *graph.Node) error {
	return b.db.Update(func(txn *badger.Txn) error {
		old, err := b.getNodeTxn(txn, n.ID)
		if err != nil {
			return err
		}
		for _, l := range old.Labels {
			if err := txn.Delete(labelIndexKey(l, n.ID)); err != nil {
				return err
			}
		}
		if err := txn.Set(nodeKey(n.ID), graph.EncodeNode(n)); err != nil {
			return err
		}
		for _, l := range n.Labels {
			if err := txn.Set(labelIndexKey(l, n.ID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteNode cascades: every edge with id as an endpoint is fully removed
// (primary entry, both adjacency entries, and the edge-type index entry)
// before the node's own entries are deleted.
func (b *BadgerEngine) DeleteNode(id graph.NodeID) error {
	return b.db.Update(func(txn *badger.Txn) error {
		node, err := b.getNodeTxn(txn, id)
		if err != nil {
			return err
		}

		edgeIDs, err := collectAdjacentEdgeIDsTxn(txn, id)
		if err != nil {
			return err
		}
		for _, eid := range edgeIDs {
			e, err := b.getEdgeTxn(txn, eid)
			if err != nil {
				if ge, ok := err.(*graph.Error); ok && ge.Kind == graph.KindNotFound {
					continue
				}
				return err
			}
			if err := deleteEdgeEntriesTxn(txn, e); err != nil {
				return err
			}
		}

		for _, l := range node.Labels {
			if err := txn.Delete(labelIndexKey(l, id)); err != nil {
				return err
			}
		}
		return txn.Delete(nodeKey(id))
	})
}

// collectAdjacentEdgeIDsTxn gathers the union of a node's outgoing and
// incoming edge ids from the adjacency indices.
func collectAdjacentEdgeIDsTxn(txn *badger.Txn, id graph.NodeID) ([]graph.EdgeID, error) {
	seen := make(map[graph.EdgeID]struct{})
	for _, prefix := range [][]byte{outgoingPrefix(id), incomingPrefix(id)} {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			eid, err := graph.EdgeIDFromBytes(key[len(key)-16:])
			if err != nil {
				it.Close()
				return nil, err
			}
			seen[eid] = struct{}{}
		}
		it.Close()
	}
	out := make([]graph.EdgeID, 0, len(seen))
	for eid := range seen {
		out = append(out, eid)
	}
	return out, nil
}

// deleteEdgeEntriesTxn removes an edge's primary entry and every secondary
// entry derived from it.
func deleteEdgeEntriesTxn(txn *badger.Txn, e *graph.Edge) error {
	if err := txn.Delete(outgoingKey(e.From, e.ID)); err != nil {
		return err
	}
	if err := txn.Delete(incomingKey(e.To, e.ID)); err != nil {
		return err
	}
	if err := txn.Delete(edgeTypeKey(e.Type, e.ID)); err != nil {
		return err
	}
	return txn.Delete(edgeKey(e.ID))
}

func (b *BadgerEngine) AddEdge(e *graph.Edge) (graph.EdgeID, error) {
	edge := e.Clone()
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := b.getNodeTxn(txn, e.From); err != nil {
			return graph.NotFound("edge endpoint (from)")
		}
		if _, err := b.getNodeTxn(txn, e.To); err != nil {
			return graph.NotFound("edge endpoint (to)")
		}
		if edge.ID == graph.NilEdgeID {
			edge.ID = graph.NewEdgeID()
		}
		if err := txn.Set(edgeKey(edge.ID), graph.EncodeEdge(edge)); err != nil {
			return err
		}
		if err := txn.Set(outgoingKey(edge.From, edge.ID), []byte{}); err != nil {
			return err
		}
		if err := txn.Set(incomingKey(edge.To, edge.ID), []byte{}); err != nil {
			return err
		}
		return txn.Set(edgeTypeKey(edge.Type, edge.ID), []byte{})
	})
	if err != nil {
		return graph.NilEdgeID, err
	}
	return edge.ID, nil
}

func (b *BadgerEngine) getEdgeTxn(txn *badger.Txn, id graph.EdgeID) (*graph.Edge, error) {
	item, err := txn.Get(edgeKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, graph.NotFound("edge")
	}
	if err != nil {
		return nil, graph.Wrap(graph.KindStorage, "get edge", err)
	}
	var edge *graph.Edge
	err = item.Value(func(val []byte) error {
		e, err := graph.DecodeEdge(val)
		if err != nil {
			return err
		}
		edge = e
		return nil
	})
	if err != nil {
		return nil, graph.Wrap(graph.KindSerialization, "decode edge", err)
	}
	return edge, nil
}

func (b *BadgerEngine) GetEdge(id graph.EdgeID) (*graph.Edge, error) {
	var edge *graph.Edge
	err := b.db.View(func(txn *badger.Txn) error {
		e, err := b.getEdgeTxn(txn, id)
		if err != nil {
			return err
		}
		edge = e
		return nil
	})
	return edge, err
}

func (b *BadgerEngine) UpdateEdge(e *graph.Edge) error {
	return b.db.Update(func(txn *badger.Txn) error {
		old, err := b.getEdgeTxn(txn, e.ID)
		if err != nil {
			return err
		}
		if old.From != e.From || old.To != e.To || old.Type != e.Type {
			if err := txn.Delete(outgoingKey(old.From, e.ID)); err != nil {
				return err
			}
			if err := txn.Delete(incomingKey(old.To, e.ID)); err != nil {
				return err
			}
			if err := txn.Delete(edgeTypeKey(old.Type, e.ID)); err != nil {
				return err
			}
			if err := txn.Set(outgoingKey(e.From, e.ID), []byte{}); err != nil {
				return err
			}
			if err := txn.Set(incomingKey(e.To, e.ID), []byte{}); err != nil {
				return err
			}
			if err := txn.Set(edgeTypeKey(e.Type, e.ID), []byte{}); err != nil {
				return err
			}
		}
		return txn.Set(edgeKey(e.ID), graph.EncodeEdge(e))
	})
}

func (b *BadgerEngine) DeleteEdge(id graph.EdgeID) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e, err := b.getEdgeTxn(txn, id)
		if err != nil {
			return err
		}
		return deleteEdgeEntriesTxn(txn, e)
	})
}

func (b *BadgerEngine) GetNodesByLabel(label string) ([]*graph.Node, error) {
	var out []*graph.Node
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := labelIndexPrefix(label)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			id, err := graph.NodeIDFromBytes(key[len(key)-16:])
			if err != nil {
				return err
			}
			n, err := b.getNodeTxn(txn, id)
			if err != nil {
				return err
			}
			out = append(out, n)
		}
		return nil
	})
	return out, err
}

func (b *BadgerEngine) GetNodesByProperty(key string, value graph.PropertyValue) ([]*graph.Node, error) {
	all, err := b.GetAllNodes()
	if err != nil {
		return nil, err
	}
	var out []*graph.Node
	for _, n := range all {
		if v, ok := n.Properties[key]; ok && v.Equal(value) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (b *BadgerEngine) GetOutgoingEdges(id graph.NodeID) ([]*graph.Edge, error) {
	var out []*graph.Edge
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := b.getNodeTxn(txn, id); err != nil {
			return err
		}
		prefix := outgoingPrefix(id)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			eid, err := graph.EdgeIDFromBytes(key[len(key)-16:])
			if err != nil {
				return err
			}
			e, err := b.getEdgeTxn(txn, eid)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (b *BadgerEngine) GetIncomingEdges(id graph.NodeID) ([]*graph.Edge, error) {
	var out []*graph.Edge
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := b.getNodeTxn(txn, id); err != nil {
			return err
		}
		prefix := incomingPrefix(id)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			eid, err := graph.EdgeIDFromBytes(key[len(key)-16:])
			if err != nil {
				return err
			}
			e, err := b.getEdgeTxn(txn, eid)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (b *BadgerEngine) GetAllNodes() ([]*graph.Node, error) {
	var out []*graph.Node
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixNode)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var node *graph.Node
			err := it.Item().Value(func(val []byte) error {
				n, err := graph.DecodeNode(val)
				if err != nil {
					return err
				}
				node = n
				return nil
			})
			if err != nil {
				return err
			}
			out = append(out, node)
		}
		return nil
	})
	return out, err
}

func (b *BadgerEngine) GetAllEdges() ([]*graph.Edge, error) {
	var out []*graph.Edge
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixEdge)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var edge *graph.Edge
			err := it.Item().Value(func(val []byte) error {
				e, err := graph.DecodeEdge(val)
				if err != nil {
					return err
				}
				edge = e
				return nil
			})
			if err != nil {
				return err
			}
			out = append(out, edge)
		}
		return nil
	})
	return out, err
}

func (b *BadgerEngine) NodeCount() (int, error) {
	nodes, err := b.GetAllNodes()
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (b *BadgerEngine) EdgeCount() (int, error) {
	edges, err := b.GetAllEdges()
	if err != nil {
		return 0, err
	}
	return len(edges), nil
}
