package storage

import (
	"sync"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// MemoryEngine is the in-memory backend (C4): concurrent maps guarded by a
// single read-write lock hold nodes, edges and the two adjacency indices.
// There is no durability; callers that need it wrap writes through the WAL
// themselves (see pkg/dbms).
type MemoryEngine struct {
	mu sync.RWMutex

	nodes map[graph.NodeID]*graph.Node
	edges map[graph.EdgeID]*graph.Edge

	nodesByLabel map[string]map[graph.NodeID]struct{}

	outgoing map[graph.NodeID]map[graph.EdgeID]struct{}
	incoming map[graph.NodeID]map[graph.EdgeID]struct{}
}

// NewMemoryEngine constructs an empty in-memory backend.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes:        make(map[graph.NodeID]*graph.Node),
		edges:        make(map[graph.EdgeID]*graph.Edge),
		nodesByLabel: make(map[string]map[graph.NodeID]struct{}),
		outgoing:     make(map[graph.NodeID]map[graph.EdgeID]struct{}),
		incoming:     make(map[graph.NodeID]map[graph.EdgeID]struct{}),
	}
}

var _ Engine = (*MemoryEngine)(nil)

func (m *MemoryEngine) AddNode(n *graph.Node) (graph.NodeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node := n.Clone()
	if node.ID == graph.NilNodeID {
		node.ID = graph.NewNodeID()
	}
	m.nodes[node.ID] = node
	for _, l := range node.Labels {
		m.indexLabelLocked(l, node.ID)
	}
	m.outgoing[node.ID] = make(map[graph.EdgeID]struct{})
	m.incoming[node.ID] = make(map[graph.EdgeID]struct{})
	return node.ID, nil
}

func (m *MemoryEngine) indexLabelLocked(label string, id graph.NodeID) {
	set, ok := m.nodesByLabel[label]
	if !ok {
		set = make(map[graph.NodeID]struct{})
		m.nodesByLabel[label] = set
	}
	set[id] = struct{}{}
}

func (m *MemoryEngine) unindexLabelLocked(label string, id graph.NodeID) {
	if set, ok := m.nodesByLabel[label]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.nodesByLabel, label)
		}
	}
}

func (m *MemoryEngine) GetNode(id graph.NodeID) (*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, graph.NotFound("node")
	}
	return n.Clone(), nil
}

func (m *MemoryEngine) UpdateNode(n *graph.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.nodes[n.ID]
	if !ok {
		return graph.NotFound("node")
	}
	for _, l := range old.Labels {
		m.unindexLabelLocked(l, n.ID)
	}
	updated := n.Clone()
	m.nodes[n.ID] = updated
	for _, l := range updated.Labels {
		m.indexLabelLocked(l, n.ID)
	}
	return nil
}

func (m *MemoryEngine) DeleteNode(id graph.NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return graph.NotFound("node")
	}

	for eid := range m.outgoing[id] {
		m.removeEdgeLocked(eid)
	}
	for eid := range m.incoming[id] {
		m.removeEdgeLocked(eid)
	}
	delete(m.outgoing, id)
	delete(m.incoming, id)

	for _, l := range n.Labels {
		m.unindexLabelLocked(l, id)
	}
	delete(m.nodes, id)
	return nil
}

// removeEdgeLocked removes an edge from the primary map and both adjacency
// indices. Caller holds m.mu.
func (m *MemoryEngine) removeEdgeLocked(id graph.EdgeID) {
	e, ok := m.edges[id]
	if !ok {
		return
	}
	if set, ok := m.outgoing[e.From]; ok {
		delete(set, id)
	}
	if set, ok := m.incoming[e.To]; ok {
		delete(set, id)
	}
	delete(m.edges, id)
}

func (m *MemoryEngine) AddEdge(e *graph.Edge) (graph.EdgeID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[e.From]; !ok {
		return graph.NilEdgeID, graph.NotFound("edge endpoint (from)")
	}
	if _, ok := m.nodes[e.To]; !ok {
		return graph.NilEdgeID, graph.NotFound("edge endpoint (to)")
	}
	edge := e.Clone()
	if edge.ID == graph.NilEdgeID {
		edge.ID = graph.NewEdgeID()
	}
	m.edges[edge.ID] = edge
	if m.outgoing[edge.From] == nil {
		m.outgoing[edge.From] = make(map[graph.EdgeID]struct{})
	}
	m.outgoing[edge.From][edge.ID] = struct{}{}
	if m.incoming[edge.To] == nil {
		m.incoming[edge.To] = make(map[graph.EdgeID]struct{})
	}
	m.incoming[edge.To][edge.ID] = struct{}{}
	return edge.ID, nil
}

func (m *MemoryEngine) GetEdge(id graph.EdgeID) (*graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.edges[id]
	if !ok {
		return nil, graph.NotFound("edge")
	}
	return e.Clone(), nil
}

func (m *MemoryEngine) UpdateEdge(e *graph.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.edges[e.ID]
	if !ok {
		return graph.NotFound("edge")
	}
	if old.From != e.From || old.To != e.To {
		if set, ok := m.outgoing[old.From]; ok {
			delete(set, e.ID)
		}
		if set, ok := m.incoming[old.To]; ok {
			delete(set, e.ID)
		}
		if m.outgoing[e.From] == nil {
			m.outgoing[e.From] = make(map[graph.EdgeID]struct{})
		}
		m.outgoing[e.From][e.ID] = struct{}{}
		if m.incoming[e.To] == nil {
			m.incoming[e.To] = make(map[graph.EdgeID]struct{})
		}
		m.incoming[e.To][e.ID] = struct{}{}
	}
	m.edges[e.ID] = e.Clone()
	return nil
}

func (m *MemoryEngine) DeleteEdge(id graph.EdgeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.edges[id]; !ok {
		return graph.NotFound("edge")
	}
	m.removeEdgeLocked(id)
	return nil
}

func (m *MemoryEngine) GetNodesByLabel(label string) ([]*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.nodesByLabel[label]
	out := make([]*graph.Node, 0, len(set))
	for id := range set {
		out = append(out, m.nodes[id].Clone())
	}
	return out, nil
}

func (m *MemoryEngine) GetNodesByProperty(key string, value graph.PropertyValue) ([]*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*graph.Node
	for _, n := range m.nodes {
		if v, ok := n.Properties[key]; ok && v.Equal(value) {
			out = append(out, n.Clone())
		}
	}
	return out, nil
}

func (m *MemoryEngine) GetOutgoingEdges(id graph.NodeID) ([]*graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.nodes[id]; !ok {
		return nil, graph.NotFound("node")
	}
	set := m.outgoing[id]
	out := make([]*graph.Edge, 0, len(set))
	for eid := range set {
		out = append(out, m.edges[eid].Clone())
	}
	return out, nil
}

func (m *MemoryEngine) GetIncomingEdges(id graph.NodeID) ([]*graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.nodes[id]; !ok {
		return nil, graph.NotFound("node")
	}
	set := m.incoming[id]
	out := make([]*graph.Edge, 0, len(set))
	for eid := range set {
		out = append(out, m.edges[eid].Clone())
	}
	return out, nil
}

func (m *MemoryEngine) GetAllNodes() ([]*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*graph.Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n.Clone())
	}
	return out, nil
}

func (m *MemoryEngine) GetAllEdges() ([]*graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*graph.Edge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (m *MemoryEngine) NodeCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), nil
}

func (m *MemoryEngine) EdgeCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.edges), nil
}

func (m *MemoryEngine) Close() error { return nil }
