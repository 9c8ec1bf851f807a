package cypher

import (
	"fmt"
	"sort"
	"time"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/index"
	"github.com/orneryd/nornicgraph/pkg/storage"
)

// QueryResult is the uniform shape every executed statement returns.
type QueryResult struct {
	Columns         []string
	Rows            []Row
	RowCount        int
	ExecutionTimeMs int64
}

// iterator is the pull interface every physical operator implements: Next
// returns the next row, or ok=false once exhausted.
type iterator interface {
	Next() (Row, bool, error)
}

// Execute parses, plans (for reads) or directly interprets (for writes) src
// against eng/indexMgr, returning the resulting QueryResult. walWriter logs
// every write statement's mutations so they survive a crash and replay the
// same way the embedded API's own AddNode/AddEdge/... methods do; pass nil
// to run without a log.
func Execute(src string, eng storage.Engine, indexMgr *index.Manager, walWriter WALWriter, params map[string]graph.PropertyValue) (*QueryResult, error) {
	start := time.Now()
	stmt, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]graph.PropertyValue{}
	}

	var result *QueryResult
	if stmt.Read != nil {
		result, err = executeRead(stmt.Read, eng, indexMgr, params)
	} else {
		result, err = executeWrite(stmt.Write, eng, indexMgr, walWriter, params)
	}
	if err != nil {
		return nil, err
	}
	result.ExecutionTimeMs = time.Since(start).Milliseconds()
	return result, nil
}

func executeRead(rq *ReadQuery, eng storage.Engine, indexMgr *index.Manager, params map[string]graph.PropertyValue) (*QueryResult, error) {
	plan, err := Plan(rq, eng, indexMgr)
	if err != nil {
		return nil, err
	}
	it, err := build(plan, eng, indexMgr, params)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		row, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}

	columns := make([]string, len(rq.Return.Items))
	for i, item := range rq.Return.Items {
		columns[i] = returnColumnName(item)
	}

	if len(rq.Return.OrderBy) > 0 {
		if err := sortRows(rows, rq.Return.OrderBy, params); err != nil {
			return nil, err
		}
	}
	if rq.Return.Distinct {
		rows = distinctRows(rows, columns)
	}
	if rq.Return.Skip != nil {
		rows = skipRows(rows, *rq.Return.Skip)
	}
	if rq.Return.Limit != nil && len(rq.Return.OrderBy) == 0 {
		// Already pushed into the physical plan as PhysicalLimit.
	} else if rq.Return.Limit != nil {
		rows = limitRows(rows, *rq.Return.Limit)
	}

	return &QueryResult{Columns: columns, Rows: rows, RowCount: len(rows)}, nil
}

func returnColumnName(item ReturnItem) string {
	if item.Alias != "" {
		return item.Alias
	}
	switch e := item.Expr.(type) {
	case *Variable:
		return e.Name
	case *Property:
		return e.Variable + "." + e.Key
	case *FunctionCallExpr:
		return e.Name + "(...)"
	default:
		return "expr"
	}
}

func sortRows(rows []Row, order []OrderItem, params map[string]graph.PropertyValue) error {
	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			vi, err := Eval(o.Expr, rows[i], params)
			if err != nil {
				sortErr = err
				return false
			}
			vj, err := Eval(o.Expr, rows[j], params)
			if err != nil {
				sortErr = err
				return false
			}
			cmp := compareForSort(vi, vj)
			if cmp == 0 {
				continue
			}
			if o.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return sortErr
}

func compareForSort(a, b graph.PropertyValue) int {
	if isNumeric(a) && isNumeric(b) {
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func distinctRows(rows []Row, columns []string) []Row {
	seen := make(map[string]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		key := rowKey(r, columns)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func rowKey(r Row, columns []string) string {
	key := ""
	for _, c := range columns {
		key += c + "=" + r[c].String() + "\x1f"
	}
	return key
}

func skipRows(rows []Row, n int64) []Row {
	if n < 0 {
		n = 0
	}
	if n >= int64(len(rows)) {
		return nil
	}
	return rows[n:]
}

func limitRows(rows []Row, n int64) []Row {
	if n < 0 {
		n = 0
	}
	if n >= int64(len(rows)) {
		return rows
	}
	return rows[:n]
}

// build constructs the pull iterator for a physical plan tree.
func build(plan PhysicalPlan, eng storage.Engine, indexMgr *index.Manager, params map[string]graph.PropertyValue) (iterator, error) {
	switch p := plan.(type) {
	case *PhysicalScan:
		return newScanIter(p, eng)
	case *PhysicalHashIndexScan:
		return newHashIndexScanIter(p, eng, indexMgr, params)
	case *PhysicalBTreeRangeScan:
		return newBTreeRangeScanIter(p, eng, indexMgr, params)
	case *PhysicalExpand:
		child, err := build(p.Child, eng, indexMgr, params)
		if err != nil {
			return nil, err
		}
		return &expandIter{p: p, child: child, eng: eng}, nil
	case *PhysicalJoin:
		left, err := build(p.Left, eng, indexMgr, params)
		if err != nil {
			return nil, err
		}
		right, err := build(p.Right, eng, indexMgr, params)
		if err != nil {
			return nil, err
		}
		return newJoinIter(left, right)
	case *PhysicalFilter:
		child, err := build(p.Child, eng, indexMgr, params)
		if err != nil {
			return nil, err
		}
		return &filterIter{child: child, pred: p.Pred, params: params}, nil
	case *PhysicalProject:
		child, err := build(p.Child, eng, indexMgr, params)
		if err != nil {
			return nil, err
		}
		return &projectIter{child: child, items: p.Cols, params: params}, nil
	case *PhysicalLimit:
		child, err := build(p.Child, eng, indexMgr, params)
		if err != nil {
			return nil, err
		}
		return &limitIter{child: child, n: p.N}, nil
	default:
		return nil, graph.InvalidOperation(fmt.Sprintf("no iterator for physical operator %T", plan))
	}
}

// nodeToRow flattens a node's properties into the row under their bare key
// and binds the pattern variable itself to a Map carrying "_id", "_labels"
// and the properties, so both Property(var,key) and RETURN var work.
func nodeToRow(varName string, n *graph.Node) Row {
	row := make(Row, len(n.Properties)+2)
	for k, v := range n.Properties {
		row[k] = v
	}
	row["_node_id"] = graph.String(n.ID.String())
	if varName != "" {
		labels := make([]graph.PropertyValue, len(n.Labels))
		for i, l := range n.Labels {
			labels[i] = graph.String(l)
		}
		bound := graph.CloneProperties(n.Properties)
		if bound == nil {
			bound = map[string]graph.PropertyValue{}
		}
		bound["_id"] = graph.String(n.ID.String())
		bound["_labels"] = graph.List(labels...)
		row[varName] = graph.Map(bound)
	}
	return row
}

func edgeToRow(varName string, e *graph.Edge) Row {
	bound := graph.CloneProperties(e.Properties)
	if bound == nil {
		bound = map[string]graph.PropertyValue{}
	}
	bound["_id"] = graph.String(e.ID.String())
	bound["_type"] = graph.String(e.Type)
	row := Row{}
	if varName != "" {
		row[varName] = graph.Map(bound)
	}
	return row
}

func mergeRows(a, b Row) Row {
	out := make(Row, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

type scanIter struct {
	nodes []*graph.Node
	pos   int
	label string
}

func newScanIter(p *PhysicalScan, eng storage.Engine) (*scanIter, error) {
	var nodes []*graph.Node
	var err error
	if p.Label != "" {
		nodes, err = eng.GetNodesByLabel(p.Label)
	} else {
		nodes, err = eng.GetAllNodes()
	}
	if err != nil {
		return nil, err
	}
	return &scanIter{nodes: nodes}, nil
}

func (s *scanIter) Next() (Row, bool, error) {
	if s.pos >= len(s.nodes) {
		return nil, false, nil
	}
	n := s.nodes[s.pos]
	s.pos++
	return nodeToRow("", n), true, nil
}

type hashIndexScanIter struct {
	nodes []*graph.Node
	pos   int
}

func newHashIndexScanIter(p *PhysicalHashIndexScan, eng storage.Engine, indexMgr *index.Manager, params map[string]graph.PropertyValue) (*hashIndexScanIter, error) {
	value, err := Eval(p.Value, Row{}, params)
	if err != nil {
		return nil, err
	}
	ids, found, err := indexMgr.LookupProperty(p.Key, value)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, graph.NotFound("index " + p.IndexName)
	}
	nodes := make([]*graph.Node, 0, len(ids))
	for _, id := range ids {
		n, err := eng.GetNode(id)
		if err != nil {
			continue
		}
		nodes = append(nodes, n)
	}
	return &hashIndexScanIter{nodes: nodes}, nil
}

func (s *hashIndexScanIter) Next() (Row, bool, error) {
	if s.pos >= len(s.nodes) {
		return nil, false, nil
	}
	n := s.nodes[s.pos]
	s.pos++
	return nodeToRow("", n), true, nil
}

type btreeRangeScanIter struct {
	nodes []*graph.Node
	pos   int
}

func newBTreeRangeScanIter(p *PhysicalBTreeRangeScan, eng storage.Engine, indexMgr *index.Manager, params map[string]graph.PropertyValue) (*btreeRangeScanIter, error) {
	start, err := Eval(p.Start, Row{}, params)
	if err != nil {
		return nil, err
	}
	end, err := Eval(p.End, Row{}, params)
	if err != nil {
		return nil, err
	}
	ids, found, err := indexMgr.RangeProperty(p.IndexName, start, end)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, graph.NotFound("index " + p.IndexName)
	}
	nodes := make([]*graph.Node, 0, len(ids))
	for _, id := range ids {
		n, err := eng.GetNode(id)
		if err != nil {
			continue
		}
		nodes = append(nodes, n)
	}
	return &btreeRangeScanIter{nodes: nodes}, nil
}

func (s *btreeRangeScanIter) Next() (Row, bool, error) {
	if s.pos >= len(s.nodes) {
		return nil, false, nil
	}
	n := s.nodes[s.pos]
	s.pos++
	return nodeToRow("", n), true, nil
}

// expandIter walks one relationship step per input row, binding the new
// edge and destination node variables onto it.
type expandIter struct {
	p     *PhysicalExpand
	child iterator
	eng   storage.Engine

	pending []Row
	pendPos int
}

func (it *expandIter) Next() (Row, bool, error) {
	for {
		if it.pendPos < len(it.pending) {
			row := it.pending[it.pendPos]
			it.pendPos++
			return row, true, nil
		}

		row, ok, err := it.child.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}

		expanded, err := it.expand(row)
		if err != nil {
			return nil, false, err
		}
		it.pending = expanded
		it.pendPos = 0
	}
}

func (it *expandIter) expand(row Row) ([]Row, error) {
	bound, ok := row[it.p.FromVar]
	if !ok || bound.Kind != graph.KindMap {
		return nil, nil
	}
	idVal, ok := bound.Map["_id"]
	if !ok {
		return nil, nil
	}
	fromID, err := graph.ParseNodeID(idVal.Str)
	if err != nil {
		return nil, err
	}

	var candidates []*graph.Edge
	switch it.p.Direction {
	case DirRight:
		candidates, err = it.eng.GetOutgoingEdges(fromID)
	case DirLeft:
		candidates, err = it.eng.GetIncomingEdges(fromID)
	default:
		out, errOut := it.eng.GetOutgoingEdges(fromID)
		if errOut != nil {
			return nil, errOut
		}
		in, errIn := it.eng.GetIncomingEdges(fromID)
		if errIn != nil {
			return nil, errIn
		}
		candidates = append(out, in...)
	}
	if err != nil {
		return nil, err
	}

	var out []Row
	for _, e := range candidates {
		if it.p.EdgeType != "" && e.Type != it.p.EdgeType {
			continue
		}
		var neighborID graph.NodeID
		switch it.p.Direction {
		case DirRight:
			neighborID = e.To
		case DirLeft:
			neighborID = e.From
		default:
			if e.From == fromID {
				neighborID = e.To
			} else {
				neighborID = e.From
			}
		}
		neighbor, err := it.eng.GetNode(neighborID)
		if err != nil {
			continue
		}
		if !hasAllLabels(neighbor, it.p.ToLabels) {
			continue
		}
		merged := mergeRows(row, nodeToRow(it.p.ToVar, neighbor))
		merged = mergeRows(merged, edgeToRow(it.p.EdgeVar, e))
		out = append(out, merged)
	}
	return out, nil
}

func hasAllLabels(n *graph.Node, want []string) bool {
	if len(want) == 0 {
		return true
	}
	have := make(map[string]bool, len(n.Labels))
	for _, l := range n.Labels {
		have[l] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// joinIter is a nested-loop cross product between two independent,
// comma-separated patterns.
type joinIter struct {
	left      iterator
	rightRows []Row
	leftRow   Row
	haveLeft  bool
	rightPos  int
}

func newJoinIter(left, right iterator) (*joinIter, error) {
	var rightRows []Row
	for {
		row, ok, err := right.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rightRows = append(rightRows, row)
	}
	return &joinIter{left: left, rightRows: rightRows}, nil
}

func (it *joinIter) Next() (Row, bool, error) {
	for {
		if !it.haveLeft {
			row, ok, err := it.left.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			it.leftRow = row
			it.haveLeft = true
			it.rightPos = 0
		}
		if it.rightPos >= len(it.rightRows) {
			it.haveLeft = false
			continue
		}
		r := it.rightRows[it.rightPos]
		it.rightPos++
		return mergeRows(it.leftRow, r), true, nil
	}
}

type filterIter struct {
	child  iterator
	pred   Expr
	params map[string]graph.PropertyValue
}

func (it *filterIter) Next() (Row, bool, error) {
	for {
		row, ok, err := it.child.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		v, err := Eval(it.pred, row, it.params)
		if err != nil {
			// Filter swallows per-row expression errors: the row is dropped.
			continue
		}
		if v.Kind == graph.KindBool && v.B {
			return row, true, nil
		}
	}
}

type projectIter struct {
	child  iterator
	items  []ReturnItem
	params map[string]graph.PropertyValue
}

func (it *projectIter) Next() (Row, bool, error) {
	row, ok, err := it.child.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make(Row, len(it.items))
	for _, item := range it.items {
		v, err := Eval(item.Expr, row, it.params)
		if err != nil {
			return nil, false, err
		}
		out[returnColumnName(item)] = v
	}
	return out, true, nil
}

type limitIter struct {
	child iterator
	n     int64
	count int64
}

func (it *limitIter) Next() (Row, bool, error) {
	if it.count >= it.n {
		return nil, false, nil
	}
	row, ok, err := it.child.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	it.count++
	return row, true, nil
}
