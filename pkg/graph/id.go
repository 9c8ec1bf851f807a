package graph

import "github.com/google/uuid"

// NodeID is an opaque 128-bit identifier for a node. It is generated by the
// storage backend on insert and is immutable for the entity's lifetime.
type NodeID uuid.UUID

// EdgeID is an opaque 128-bit identifier for an edge.
type EdgeID uuid.UUID

// NilNodeID is the zero value, never assigned to a real node.
var NilNodeID = NodeID(uuid.Nil)

// NilEdgeID is the zero value, never assigned to a real edge.
var NilEdgeID = EdgeID(uuid.Nil)

// NewNodeID allocates a fresh, time-ordered node identifier.
func NewNodeID() NodeID {
	return NodeID(uuid.Must(uuid.NewV7()))
}

// NewEdgeID allocates a fresh, time-ordered edge identifier.
func NewEdgeID() EdgeID {
	return EdgeID(uuid.Must(uuid.NewV7()))
}

func (id NodeID) String() string { return uuid.UUID(id).String() }
func (id EdgeID) String() string { return uuid.UUID(id).String() }

// Bytes returns the raw 16-byte representation, used as map/index keys.
func (id NodeID) Bytes() []byte { b := uuid.UUID(id); return b[:] }
func (id EdgeID) Bytes() []byte { b := uuid.UUID(id); return b[:] }

// ParseNodeID parses a canonical UUID string form.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilNodeID, Wrap(KindInvalidID, "parse node id", err)
	}
	return NodeID(u), nil
}

// ParseEdgeID parses a canonical UUID string form.
func ParseEdgeID(s string) (EdgeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilEdgeID, Wrap(KindInvalidID, "parse edge id", err)
	}
	return EdgeID(u), nil
}

// NodeIDFromBytes reconstructs a NodeID from its 16-byte form.
func NodeIDFromBytes(b []byte) (NodeID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return NilNodeID, Wrap(KindInvalidID, "decode node id", err)
	}
	return NodeID(u), nil
}

// EdgeIDFromBytes reconstructs an EdgeID from its 16-byte form.
func EdgeIDFromBytes(b []byte) (EdgeID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return NilEdgeID, Wrap(KindInvalidID, "decode edge id", err)
	}
	return EdgeID(u), nil
}
