package dbms

import (
	"sync"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/mvcc"
)

// chainStore holds the per-item version chains the transactional surface
// consults for snapshot visibility. An id with no entry here has never
// been touched by a transaction — it either doesn't exist, or its value
// is exactly what the storage engine holds and is visible to everyone.
type chainStore struct {
	mu    sync.Mutex
	nodes map[graph.NodeID]*mvcc.VersionChain[*graph.Node]
	edges map[graph.EdgeID]*mvcc.VersionChain[*graph.Edge]
}

func newChainStore() chainStore {
	return chainStore{
		nodes: make(map[graph.NodeID]*mvcc.VersionChain[*graph.Node]),
		edges: make(map[graph.EdgeID]*mvcc.VersionChain[*graph.Edge]),
	}
}

func (c *chainStore) lookupNode(id graph.NodeID) (*mvcc.VersionChain[*graph.Node], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vc, ok := c.nodes[id]
	return vc, ok
}

func (c *chainStore) lookupEdge(id graph.EdgeID) (*mvcc.VersionChain[*graph.Edge], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vc, ok := c.edges[id]
	return vc, ok
}

// nodeChain returns the chain for id, creating an empty one if absent —
// used when staging a brand new node whose id has no prior history.
func (c *chainStore) nodeChain(id graph.NodeID) *mvcc.VersionChain[*graph.Node] {
	c.mu.Lock()
	defer c.mu.Unlock()
	vc, ok := c.nodes[id]
	if !ok {
		vc = mvcc.NewVersionChain[*graph.Node]()
		c.nodes[id] = vc
	}
	return vc
}

func (c *chainStore) edgeChain(id graph.EdgeID) *mvcc.VersionChain[*graph.Edge] {
	c.mu.Lock()
	defer c.mu.Unlock()
	vc, ok := c.edges[id]
	if !ok {
		vc = mvcc.NewVersionChain[*graph.Edge]()
		c.edges[id] = vc
	}
	return vc
}

// seededNodeChain returns id's chain, first seeding it from eng's current
// value (as an always-visible version with Xmin 0) if this is the first
// transaction ever to touch id — otherwise a transaction updating or
// deleting a node that predates all transactional history would find an
// empty chain and incorrectly report NotFound.
func seededNodeChain(c *chainStore, id graph.NodeID, current *graph.Node) *mvcc.VersionChain[*graph.Node] {
	c.mu.Lock()
	vc, ok := c.nodes[id]
	if !ok {
		vc = mvcc.NewVersionChain[*graph.Node]()
		c.nodes[id] = vc
	}
	c.mu.Unlock()
	if !ok {
		vc.AddVersion(current, 0, 0)
	}
	return vc
}

func seededEdgeChain(c *chainStore, id graph.EdgeID, current *graph.Edge) *mvcc.VersionChain[*graph.Edge] {
	c.mu.Lock()
	vc, ok := c.edges[id]
	if !ok {
		vc = mvcc.NewVersionChain[*graph.Edge]()
		c.edges[id] = vc
	}
	c.mu.Unlock()
	if !ok {
		vc.AddVersion(current, 0, 0)
	}
	return vc
}

func (c *chainStore) dropNode(id graph.NodeID, txnID mvcc.TxnID) {
	if vc, ok := c.lookupNode(id); ok {
		vc.Rollback(txnID)
	}
}

func (c *chainStore) dropEdge(id graph.EdgeID, txnID mvcc.TxnID) {
	if vc, ok := c.lookupEdge(id); ok {
		vc.Rollback(txnID)
	}
}

// gc prunes every chain against the given horizon, the oldest timestamp
// still active across all transactions.
func (c *chainStore) gc(oldest mvcc.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, vc := range c.nodes {
		vc.GC(oldest)
	}
	for _, vc := range c.edges {
		vc.GC(oldest)
	}
}
