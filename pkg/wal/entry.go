// Package wal implements the write-ahead log (C7) and crash recovery (C8):
// a segmented, append-only, length-prefixed binary log that every mutation
// flows through before (or alongside) being applied to a storage.Engine,
// and a two-pass recovery algorithm that replays only committed
// transactions into an empty backend.
package wal

import (
	"bytes"
	"encoding/binary"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"golang.org/x/crypto/blake2b"
)

// Op tags the kind of mutation or control marker an Entry carries.
type Op byte

const (
	OpBeginTxn Op = iota
	OpCommitTxn
	OpAbortTxn
	OpInsertNode
	OpUpdateNode
	OpDeleteNode
	OpInsertEdge
	OpUpdateEdge
	OpDeleteEdge
	OpCheckpoint
)

// IsDataMutation reports whether this op mutates storage state, as opposed
// to being a transaction/checkpoint control marker. Only data mutations are
// replayed during recovery.
func (o Op) IsDataMutation() bool {
	switch o {
	case OpInsertNode, OpUpdateNode, OpDeleteNode, OpInsertEdge, OpUpdateEdge, OpDeleteEdge:
		return true
	default:
		return false
	}
}

// Entry is a single WAL record: a monotonic LSN, the originating
// transaction id, a timestamp, an operation tag, and — for data-mutating
// ops — the serialized entity (or just the id, for deletes).
type Entry struct {
	LSN       uint64
	TxnID     uint64
	Timestamp uint64
	Op        Op
	Body      []byte
}

// checksumSize is the length of the trailing blake2b-256 digest Encode
// appends after the body — corruption detection independent of the
// length-prefix framing, which only catches truncation, not bit rot within
// an otherwise well-formed entry.
const checksumSize = 32

// checksum computes a blake2b-256 digest over an entry's header and body.
func checksum(b []byte) [checksumSize]byte {
	return blake2b.Sum256(b)
}

// Encode produces the entry's binary payload (everything after the u32-LE
// length prefix that frames it on disk): header, body, then a checksum
// trailer covering both.
func (e *Entry) Encode() []byte {
	out := make([]byte, 0, 25+len(e.Body)+checksumSize)
	var buf8 [8]byte

	binary.LittleEndian.PutUint64(buf8[:], e.LSN)
	out = append(out, buf8[:]...)
	binary.LittleEndian.PutUint64(buf8[:], e.TxnID)
	out = append(out, buf8[:]...)
	binary.LittleEndian.PutUint64(buf8[:], e.Timestamp)
	out = append(out, buf8[:]...)
	out = append(out, byte(e.Op))
	out = append(out, e.Body...)

	sum := checksum(out)
	out = append(out, sum[:]...)
	return out
}

// DecodeEntry is the inverse of Encode. Returns a KindSerialization error if
// the header is too short to contain a checksum trailer, or if the trailer
// doesn't match the recomputed digest — the latter means the segment
// suffered bit rot after being correctly framed, a fatal mid-segment
// condition distinct from the truncation readOneEntry handles separately.
func DecodeEntry(b []byte) (*Entry, error) {
	if len(b) < 25+checksumSize {
		return nil, graph.NewError(graph.KindSerialization, "truncated wal entry header")
	}
	body := b[:len(b)-checksumSize]
	want := b[len(b)-checksumSize:]
	got := checksum(body)
	if !bytes.Equal(got[:], want) {
		return nil, graph.NewError(graph.KindSerialization, "wal entry checksum mismatch")
	}

	e := &Entry{
		LSN:       binary.LittleEndian.Uint64(body[0:8]),
		TxnID:     binary.LittleEndian.Uint64(body[8:16]),
		Timestamp: binary.LittleEndian.Uint64(body[16:24]),
		Op:        Op(body[24]),
	}
	if len(body) > 25 {
		e.Body = append([]byte(nil), body[25:]...)
	}
	return e, nil
}

// EncodeNodeBody serializes a node for InsertNode/UpdateNode entries.
func EncodeNodeBody(n *graph.Node) []byte { return graph.EncodeNode(n) }

// EncodeEdgeBody serializes an edge for InsertEdge/UpdateEdge entries.
func EncodeEdgeBody(e *graph.Edge) []byte { return graph.EncodeEdge(e) }

// EncodeIDBody serializes a bare 16-byte id for DeleteNode/DeleteEdge
// entries.
func EncodeIDBody(id []byte) []byte { return append([]byte(nil), id...) }
