// Package storage defines the backend-independent storage contract (C3) and
// provides two implementations: an in-memory engine (C4) for speed and a
// badger-backed disk engine (C5) for durability. Both satisfy the same
// Engine interface; callers above this package never know which one they
// are talking to.
//
// Example usage:
//
//	eng := storage.NewMemoryEngine()
//	id, err := eng.AddNode(graph.NewNode([]string{"Person"}, nil))
//	n, err := eng.GetNode(id)
package storage

import "github.com/orneryd/nornicgraph/pkg/graph"

// Engine is the uniform CRUD + adjacency + scan contract both backends
// satisfy. Every operation is atomic with respect to concurrent callers.
// Iteration order of list-returning operations is unspecified; callers
// needing determinism must sort.
type Engine interface {
	AddNode(n *graph.Node) (graph.NodeID, error)
	GetNode(id graph.NodeID) (*graph.Node, error)
	UpdateNode(n *graph.Node) error
	DeleteNode(id graph.NodeID) error

	AddEdge(e *graph.Edge) (graph.EdgeID, error)
	GetEdge(id graph.EdgeID) (*graph.Edge, error)
	UpdateEdge(e *graph.Edge) error
	DeleteEdge(id graph.EdgeID) error

	GetNodesByLabel(label string) ([]*graph.Node, error)
	GetNodesByProperty(key string, value graph.PropertyValue) ([]*graph.Node, error)
	GetOutgoingEdges(id graph.NodeID) ([]*graph.Edge, error)
	GetIncomingEdges(id graph.NodeID) ([]*graph.Edge, error)

	GetAllNodes() ([]*graph.Node, error)
	GetAllEdges() ([]*graph.Edge, error)

	NodeCount() (int, error)
	EdgeCount() (int, error)

	Close() error
}
