package graph

import "encoding/binary"

// EncodeNode produces the compact binary encoding of a Node used by the
// disk backend's primary "nodes" sub-tree.
func EncodeNode(n *Node) []byte {
	var out []byte
	out = append(out, n.ID.Bytes()...)
	var lblCount [4]byte
	binary.LittleEndian.PutUint32(lblCount[:], uint32(len(n.Labels)))
	out = append(out, lblCount[:]...)
	for _, l := range n.Labels {
		out = appendLenPrefixed(out, []byte(l))
	}
	out = appendLenPrefixed(out, EncodeValue(Map(n.Properties)))
	return out
}

// DecodeNode is the inverse of EncodeNode.
func DecodeNode(b []byte) (*Node, error) {
	if len(b) < 20 {
		return nil, NewError(KindSerialization, "truncated node header")
	}
	id, err := NodeIDFromBytes(b[:16])
	if err != nil {
		return nil, err
	}
	off := 16
	count := int(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	labels := make([]string, 0, count)
	for i := 0; i < count; i++ {
		lb, n, err := readLenPrefixed(b[off:])
		if err != nil {
			return nil, err
		}
		off += n
		labels = append(labels, string(lb))
	}
	propBytes, _, err := readLenPrefixed(b[off:])
	if err != nil {
		return nil, err
	}
	propsVal, _, err := DecodeValue(propBytes)
	if err != nil {
		return nil, err
	}
	return &Node{ID: id, Labels: labels, Properties: propsVal.Map}, nil
}

// EncodeEdge produces the compact binary encoding of an Edge used by the
// disk backend's primary "edges" sub-tree.
func EncodeEdge(e *Edge) []byte {
	var out []byte
	out = append(out, e.ID.Bytes()...)
	out = append(out, e.From.Bytes()...)
	out = append(out, e.To.Bytes()...)
	out = appendLenPrefixed(out, []byte(e.Type))
	out = appendLenPrefixed(out, EncodeValue(Map(e.Properties)))
	return out
}

// DecodeEdge is the inverse of EncodeEdge.
func DecodeEdge(b []byte) (*Edge, error) {
	if len(b) < 48 {
		return nil, NewError(KindSerialization, "truncated edge header")
	}
	id, err := EdgeIDFromBytes(b[:16])
	if err != nil {
		return nil, err
	}
	from, err := NodeIDFromBytes(b[16:32])
	if err != nil {
		return nil, err
	}
	to, err := NodeIDFromBytes(b[32:48])
	if err != nil {
		return nil, err
	}
	off := 48
	typeBytes, n, err := readLenPrefixed(b[off:])
	if err != nil {
		return nil, err
	}
	off += n
	propBytes, _, err := readLenPrefixed(b[off:])
	if err != nil {
		return nil, err
	}
	propsVal, _, err := DecodeValue(propBytes)
	if err != nil {
		return nil, err
	}
	return &Edge{ID: id, From: from, To: to, Type: string(typeBytes), Properties: propsVal.Map}, nil
}
