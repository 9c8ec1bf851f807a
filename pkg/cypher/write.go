package cypher

import (
	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/index"
	"github.com/orneryd/nornicgraph/pkg/storage"
	"github.com/orneryd/nornicgraph/pkg/wal"
)

// WALWriter is the subset of *wal.WAL that write statements log through,
// satisfied directly by *wal.WAL. Execute accepts a nil WALWriter to run
// against a bare engine with no log, e.g. engine-semantics tests.
type WALWriter interface {
	Append(txnID uint64, timestamp uint64, op wal.Op, body []byte) (uint64, error)
}

// logMutation appends a data-mutation entry as its own implicit, already
// "committed" transaction (txn id 0 — see wal.Recover) when w is non-nil,
// and is a no-op otherwise.
func logMutation(w WALWriter, op wal.Op, body []byte) error {
	if w == nil {
		return nil
	}
	_, err := w.Append(0, 0, op, body)
	return err
}

// executeWrite interprets CREATE/DELETE/SET/MERGE directly against the
// storage engine and index manager — there is no logical/physical plan for
// writes, only variable bindings threaded through the statement's clauses.
// Every mutation it applies is also appended to walWriter so auto-commit
// Cypher writes are as durable and recoverable as the non-transactional
// embedded API's own AddNode/AddEdge/... methods.
func executeWrite(wq *WriteQuery, eng storage.Engine, indexMgr *index.Manager, walWriter WALWriter, params map[string]graph.PropertyValue) (*QueryResult, error) {
	bindings, err := matchPrefixBindings(wq.MatchPatterns, wq.MatchWhere, eng, indexMgr, params)
	if err != nil {
		return nil, err
	}

	switch wq.Kind {
	case WriteCreate:
		return executeCreate(wq, eng, indexMgr, walWriter, params, bindings)
	case WriteDelete:
		return executeDelete(wq, eng, walWriter, bindings)
	case WriteSet:
		return executeSet(wq, eng, walWriter, params, bindings)
	case WriteMerge:
		return executeMerge(wq, eng, indexMgr, walWriter, params, bindings)
	}
	return nil, graph.InvalidOperation("unknown write query kind")
}

// matchPrefixBindings runs an optional preceding MATCH and returns one
// variable-bound Row per match, or a single empty Row if there was none —
// CREATE with no prefix still needs one iteration to run its pattern once.
func matchPrefixBindings(patterns []Pattern, where Expr, eng storage.Engine, indexMgr *index.Manager, params map[string]graph.PropertyValue) ([]Row, error) {
	if len(patterns) == 0 {
		return []Row{{}}, nil
	}
	rq := &ReadQuery{Patterns: patterns, Where: where, Return: ReturnClause{Items: []ReturnItem{{Expr: &Literal{Value: graph.Int(1)}}}}}
	plan, err := Plan(rq, eng, indexMgr)
	if err != nil {
		return nil, err
	}
	// Rebuild without the Project wrapper Plan added, so we get the raw
	// bound rows rather than the single projected literal column.
	raw, ok := plan.(*PhysicalProject)
	if !ok {
		return nil, graph.InvalidOperation("unexpected plan shape for match prefix")
	}
	it, err := build(raw.Child, eng, indexMgr, params)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for {
		row, more, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func executeCreate(wq *WriteQuery, eng storage.Engine, indexMgr *index.Manager, walWriter WALWriter, params map[string]graph.PropertyValue, bindings []Row) (*QueryResult, error) {
	var createdIDs []string
	for _, base := range bindings {
		row := make(Row, len(base))
		for k, v := range base {
			row[k] = v
		}
		nodeIDs := make(map[string]graph.NodeID)

		for _, pat := range wq.Patterns {
			for _, np := range pat.Nodes {
				props, err := evalProps(np.Properties, row, params)
				if err != nil {
					return nil, err
				}
				n := graph.NewNode(np.Labels, props)
				id, err := eng.AddNode(n)
				if err != nil {
					return nil, err
				}
				for _, l := range n.Labels {
					indexMgr.InsertLabel(l, id)
				}
				for k, v := range props {
					if err := indexMgr.InsertProperty(k, v, id); err != nil {
						return nil, err
					}
				}
				if err := logMutation(walWriter, wal.OpInsertNode, wal.EncodeNodeBody(n)); err != nil {
					return nil, err
				}
				if np.Variable != "" {
					nodeIDs[np.Variable] = id
					row[np.Variable] = nodeToRow(np.Variable, n)[np.Variable]
				}
				createdIDs = append(createdIDs, id.String())
			}
			for i, ep := range pat.Edges {
				fromVar := pat.Nodes[i].Variable
				toVar := pat.Nodes[i+1].Variable
				from, ok := nodeIDs[fromVar]
				if !ok {
					return nil, graph.InvalidOperation("relationship endpoint not created in this pattern: " + fromVar)
				}
				to, ok := nodeIDs[toVar]
				if !ok {
					return nil, graph.InvalidOperation("relationship endpoint not created in this pattern: " + toVar)
				}
				if ep.Direction == DirLeft {
					from, to = to, from
				}
				props, err := evalProps(ep.Properties, row, params)
				if err != nil {
					return nil, err
				}
				e := graph.NewEdge(from, to, ep.Type, props)
				if _, err := eng.AddEdge(e); err != nil {
					return nil, err
				}
				if err := logMutation(walWriter, wal.OpInsertEdge, wal.EncodeEdgeBody(e)); err != nil {
					return nil, err
				}
			}
		}
	}
	return &QueryResult{Columns: []string{"created"}, Rows: []Row{{"created": graph.Int(int64(len(createdIDs)))}}, RowCount: 1}, nil
}

func executeDelete(wq *WriteQuery, eng storage.Engine, walWriter WALWriter, bindings []Row) (*QueryResult, error) {
	deleted := 0
	seen := make(map[string]bool)
	for _, row := range bindings {
		for _, varName := range wq.DeleteVars {
			bound, ok := row[varName]
			if !ok || bound.Kind != graph.KindMap {
				continue
			}
			idVal, ok := bound.Map["_id"]
			if !ok || seen[idVal.Str] {
				continue
			}
			seen[idVal.Str] = true

			if _, hasType := bound.Map["_type"]; hasType {
				id, err := graph.ParseEdgeID(idVal.Str)
				if err != nil {
					return nil, err
				}
				if err := eng.DeleteEdge(id); err != nil {
					return nil, err
				}
				if err := logMutation(walWriter, wal.OpDeleteEdge, wal.EncodeIDBody(id.Bytes())); err != nil {
					return nil, err
				}
				deleted++
				continue
			}

			id, err := graph.ParseNodeID(idVal.Str)
			if err != nil {
				return nil, err
			}
			if !wq.Detach {
				out, err := eng.GetOutgoingEdges(id)
				if err != nil {
					return nil, err
				}
				in, err := eng.GetIncomingEdges(id)
				if err != nil {
					return nil, err
				}
				if len(out)+len(in) > 0 {
					return nil, graph.InvalidOperation("node has incident edges; use DETACH DELETE")
				}
			}
			if err := eng.DeleteNode(id); err != nil {
				return nil, err
			}
			if err := logMutation(walWriter, wal.OpDeleteNode, wal.EncodeIDBody(id.Bytes())); err != nil {
				return nil, err
			}
			deleted++
		}
	}
	return &QueryResult{Columns: []string{"deleted"}, Rows: []Row{{"deleted": graph.Int(int64(deleted))}}, RowCount: 1}, nil
}

func executeSet(wq *WriteQuery, eng storage.Engine, walWriter WALWriter, params map[string]graph.PropertyValue, bindings []Row) (*QueryResult, error) {
	updated := 0
	for _, row := range bindings {
		nodes := make(map[string]*graph.Node)
		for _, item := range wq.SetItems {
			bound, ok := row[item.Variable]
			if !ok || bound.Kind != graph.KindMap {
				return nil, graph.NotFound("variable " + item.Variable)
			}
			idVal := bound.Map["_id"]
			id, err := graph.ParseNodeID(idVal.Str)
			if err != nil {
				return nil, err
			}
			n, ok := nodes[item.Variable]
			if !ok {
				n, err = eng.GetNode(id)
				if err != nil {
					return nil, err
				}
				nodes[item.Variable] = n
			}
			value, err := Eval(item.Value, row, params)
			if err != nil {
				return nil, err
			}
			if n.Properties == nil {
				n.Properties = map[string]graph.PropertyValue{}
			}
			n.Properties[item.Property] = value
		}
		for _, n := range nodes {
			if err := eng.UpdateNode(n); err != nil {
				return nil, err
			}
			if err := logMutation(walWriter, wal.OpUpdateNode, wal.EncodeNodeBody(n)); err != nil {
				return nil, err
			}
			updated++
		}
	}
	return &QueryResult{Columns: []string{"updated"}, Rows: []Row{{"updated": graph.Int(int64(updated))}}, RowCount: 1}, nil
}

// executeMerge matches the pattern and creates it only if no match exists —
// no ON CREATE/ON MATCH SET support, a supported-subset simplification.
func executeMerge(wq *WriteQuery, eng storage.Engine, indexMgr *index.Manager, walWriter WALWriter, params map[string]graph.PropertyValue, matchBindings []Row) (*QueryResult, error) {
	rq := &ReadQuery{Patterns: wq.Patterns, Return: ReturnClause{Items: []ReturnItem{{Expr: &Literal{Value: graph.Int(1)}}}}}
	plan, err := Plan(rq, eng, indexMgr)
	if err != nil {
		return nil, err
	}
	raw := plan.(*PhysicalProject).Child
	it, err := build(raw, eng, indexMgr, params)
	if err != nil {
		return nil, err
	}
	_, exists, err := it.Next()
	if err != nil {
		return nil, err
	}
	if exists {
		return &QueryResult{Columns: []string{"merged"}, Rows: []Row{{"merged": graph.Bool(false)}}, RowCount: 1}, nil
	}
	create := &WriteQuery{Kind: WriteCreate, Patterns: wq.Patterns}
	return executeCreate(create, eng, indexMgr, walWriter, params, []Row{{}})
}

func evalProps(props map[string]Expr, row Row, params map[string]graph.PropertyValue) (map[string]graph.PropertyValue, error) {
	if props == nil {
		return nil, nil
	}
	out := make(map[string]graph.PropertyValue, len(props))
	for k, expr := range props {
		v, err := Eval(expr, row, params)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
