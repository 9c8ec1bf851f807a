package wal

import (
	"path/filepath"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/storage"
)

// Recover implements the two-pass recovery algorithm over every segment
// under dir, replaying committed mutations — in LSN order — into eng,
// which the caller must ensure is empty. A decode error found mid-segment
// is fatal and aborts recovery; a truncated trailing entry is not an error
// and simply ends that segment's contribution.
func Recover(dir string, eng storage.Engine) error {
	segments, err := listSegments(dir)
	if err != nil {
		return err
	}

	// txn id 0 marks an auto-commit write: the embedded API's
	// non-transactional methods log each mutation as its own implicit
	// transaction and never bracket it with Begin/Commit, so there is no
	// OpCommitTxn record to find for it. Treat it as committed unconditionally
	// rather than dropping every auto-commit mutation on replay.
	committed := map[uint64]struct{}{0: {}}
	var all []*Entry
	for _, n := range segments {
		entries, err := ReadSegment(filepath.Join(dir, segmentName(n)))
		if err != nil {
			return err
		}
		all = append(all, entries...)
	}
	for _, e := range all {
		if e.Op == OpCommitTxn {
			committed[e.TxnID] = struct{}{}
		}
	}

	for _, e := range all {
		if !e.Op.IsDataMutation() {
			continue
		}
		if _, ok := committed[e.TxnID]; !ok {
			continue
		}
		if err := replay(eng, e); err != nil {
			return err
		}
	}
	return nil
}

func replay(eng storage.Engine, e *Entry) error {
	switch e.Op {
	case OpInsertNode:
		n, err := graph.DecodeNode(e.Body)
		if err != nil {
			return err
		}
		_, err = eng.AddNode(n)
		return err
	case OpUpdateNode:
		n, err := graph.DecodeNode(e.Body)
		if err != nil {
			return err
		}
		return eng.UpdateNode(n)
	case OpDeleteNode:
		id, err := graph.NodeIDFromBytes(e.Body)
		if err != nil {
			return err
		}
		return eng.DeleteNode(id)
	case OpInsertEdge:
		edge, err := graph.DecodeEdge(e.Body)
		if err != nil {
			return err
		}
		_, err = eng.AddEdge(edge)
		return err
	case OpUpdateEdge:
		edge, err := graph.DecodeEdge(e.Body)
		if err != nil {
			return err
		}
		return eng.UpdateEdge(edge)
	case OpDeleteEdge:
		id, err := graph.EdgeIDFromBytes(e.Body)
		if err != nil {
			return err
		}
		return eng.DeleteEdge(id)
	default:
		return nil
	}
}
