package cypher

import (
	"math"

	"github.com/orneryd/nornicgraph/pkg/index"
	"github.com/orneryd/nornicgraph/pkg/storage"
)

// LogicalPlan is the pre-lowering query shape: NodeScan/IndexLookup leaves
// composed with Filter/Project/Limit/Join. It exists mainly to separate "what
// the query asks for" from "how the physical plan executes it" — today the
// lowering to PhysicalPlan is one-to-one, the seam the planner uses for
// future predicate pushdown and index selection.
type LogicalPlan interface {
	logicalNode()
}

type LogicalNodeScan struct {
	Var    string
	Labels []string
}

type LogicalIndexLookup struct {
	Var, Label, Key string
	Value           Expr
}

type LogicalFilter struct {
	Child LogicalPlan
	Expr  Expr
}

type LogicalProject struct {
	Child LogicalPlan
	Items []ReturnItem
}

type LogicalLimit struct {
	Child LogicalPlan
	N     int64
}

type LogicalJoin struct {
	Left, Right LogicalPlan
}

func (*LogicalNodeScan) logicalNode()    {}
func (*LogicalIndexLookup) logicalNode() {}
func (*LogicalFilter) logicalNode()      {}
func (*LogicalProject) logicalNode()     {}
func (*LogicalLimit) logicalNode()       {}
func (*LogicalJoin) logicalNode()        {}

// PhysicalPlan is the executable operator tree. Lowering from LogicalPlan is
// one-to-one except NodeScan, which additionally carries the pattern's edge
// constraints so the executor can filter joined rows for connectivity.
type PhysicalPlan interface {
	physicalNode()
	Cost(est Cardinality) float64
}

// Cardinality gives the planner dataset-size estimates it can't derive from
// the plan tree alone.
type Cardinality struct {
	NodeCount int
}

type PhysicalScan struct {
	Label string // empty means get_all_nodes
}

type PhysicalHashIndexScan struct {
	IndexName string
	Key       string
	Value     Expr
}

type PhysicalBTreeRangeScan struct {
	IndexName  string
	Start, End Expr
}

type PhysicalFilter struct {
	Child PhysicalPlan
	Pred  Expr
}

type PhysicalProject struct {
	Child PhysicalPlan
	Cols  []ReturnItem
}

type PhysicalLimit struct {
	Child PhysicalPlan
	N     int64
}

// PhysicalJoin is a nested-loop cross product, narrowed to connected rows by
// a wrapping PhysicalFilter carrying the pattern's edge predicates. Not named
// in the logical/physical operator lists of the query subset grammar, but
// required to execute multi-node patterns and comma-separated pattern
// lists at all — its cost follows the Join formula given alongside them.
type PhysicalJoin struct {
	Left, Right PhysicalPlan
}

// PhysicalExpand walks the adjacency index from an already-bound node
// variable to follow one relationship step of a pattern chain — e.g.
// (a)-[r:KNOWS]->(b). Also not in the grammar's named operator lists; it is
// to connected node-edge-node chains what PhysicalJoin is to independent,
// comma-separated patterns, and is the reason GetOutgoingEdges/
// GetIncomingEdges exist as adjacency-indexed lookups rather than full scans.
type PhysicalExpand struct {
	Child     PhysicalPlan
	FromVar   string
	EdgeVar   string
	EdgeType  string
	Direction EdgeDirection
	ToVar     string
	ToLabels  []string
}

func (p *PhysicalScan) physicalNode()           {}
func (p *PhysicalHashIndexScan) physicalNode()  {}
func (p *PhysicalBTreeRangeScan) physicalNode() {}
func (p *PhysicalFilter) physicalNode()         {}
func (p *PhysicalProject) physicalNode()        {}
func (p *PhysicalLimit) physicalNode()          {}
func (p *PhysicalJoin) physicalNode()           {}
func (p *PhysicalExpand) physicalNode()         {}

func (p *PhysicalExpand) Cost(est Cardinality) float64 {
	return p.Child.Cost(est) + logCost(est.NodeCount)
}

// Cost implements the cost model of the design: used to break ties between
// plan shapes (e.g. index lookup vs. full scan); correctness never depends
// on it; purely additive heuristic estimates, not a unit of real time.
func (p *PhysicalScan) Cost(est Cardinality) float64 {
	return float64(est.NodeCount)
}

func (p *PhysicalHashIndexScan) Cost(est Cardinality) float64 {
	return logCost(est.NodeCount)
}

func (p *PhysicalBTreeRangeScan) Cost(est Cardinality) float64 {
	return logCost(est.NodeCount)
}

func (p *PhysicalFilter) Cost(est Cardinality) float64 {
	return p.Child.Cost(est) + 0.1*float64(est.NodeCount)
}

func (p *PhysicalProject) Cost(est Cardinality) float64 {
	return p.Child.Cost(est) + 1
}

func (p *PhysicalLimit) Cost(est Cardinality) float64 {
	c := p.Child.Cost(est)
	n := float64(p.N)
	if n < c {
		return n
	}
	return c
}

func (p *PhysicalJoin) Cost(est Cardinality) float64 {
	return p.Left.Cost(est) * p.Right.Cost(est)
}

func logCost(n int) float64 {
	if n < 2 {
		return 1
	}
	return math.Log2(float64(n))
}

// planningContext carries the pieces of schema the planner needs that
// aren't in the AST: index availability and dataset size for cost
// estimates.
type planningContext struct {
	eng      storage.Engine
	indexMgr *index.Manager
	est      Cardinality
}

func newPlanningContext(eng storage.Engine, indexMgr *index.Manager) (*planningContext, error) {
	n, err := eng.NodeCount()
	if err != nil {
		return nil, err
	}
	return &planningContext{eng: eng, indexMgr: indexMgr, est: Cardinality{NodeCount: n}}, nil
}
