package storage

import (
	"encoding/binary"
	"io"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// ExportSnapshot serializes every node followed by every edge as
// length-prefixed entries, matching the disk backend's backup format. The
// round trip through ImportSnapshot into an empty engine is a testable
// property.
func ExportSnapshot(eng Engine, w io.Writer) error {
	nodes, err := eng.GetAllNodes()
	if err != nil {
		return err
	}
	edges, err := eng.GetAllEdges()
	if err != nil {
		return err
	}
	if err := writeLenPrefixedCount(w, len(nodes)); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := writeLenPrefixed(w, graph.EncodeNode(n)); err != nil {
			return err
		}
	}
	if err := writeLenPrefixedCount(w, len(edges)); err != nil {
		return err
	}
	for _, e := range edges {
		if err := writeLenPrefixed(w, graph.EncodeEdge(e)); err != nil {
			return err
		}
	}
	return nil
}

// ImportSnapshot replays an ExportSnapshot stream into eng, which must be
// empty — nodes are inserted with their original ids preserved so edges
// referencing them resolve.
func ImportSnapshot(eng Engine, r io.Reader) error {
	nodeCount, err := readLenPrefixedCount(r)
	if err != nil {
		return err
	}
	for i := 0; i < nodeCount; i++ {
		buf, err := readLenPrefixed(r)
		if err != nil {
			return err
		}
		n, err := graph.DecodeNode(buf)
		if err != nil {
			return err
		}
		if _, err := eng.AddNode(n); err != nil {
			return err
		}
	}
	edgeCount, err := readLenPrefixedCount(r)
	if err != nil {
		return err
	}
	for i := 0; i < edgeCount; i++ {
		buf, err := readLenPrefixed(r)
		if err != nil {
			return err
		}
		e, err := graph.DecodeEdge(buf)
		if err != nil {
			return err
		}
		if _, err := eng.AddEdge(e); err != nil {
			return err
		}
	}
	return nil
}

func writeLenPrefixedCount(w io.Writer, n int) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(n))
	_, err := w.Write(buf[:])
	return err
}

func readLenPrefixedCount(r io.Reader) (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, graph.Wrap(graph.KindIO, "read count prefix", err)
	}
	return int(binary.LittleEndian.Uint32(buf[:])), nil
}

func writeLenPrefixed(w io.Writer, data []byte) error {
	if err := writeLenPrefixedCount(w, len(data)); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	n, err := readLenPrefixedCount(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, graph.Wrap(graph.KindIO, "read length-prefixed payload", err)
	}
	return buf, nil
}
