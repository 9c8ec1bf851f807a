package cypher

import (
	"github.com/orneryd/nornicgraph/pkg/index"
	"github.com/orneryd/nornicgraph/pkg/storage"
)

// Plan lowers a ReadQuery straight to a PhysicalPlan: MATCH patterns become
// a chain of Scan/IndexLookup + Expand steps, comma-separated patterns join
// with PhysicalJoin, WHERE becomes a Filter on top, RETURN becomes Project,
// and LIMIT becomes Limit when there is no ORDER BY to materialize first.
func Plan(rq *ReadQuery, eng storage.Engine, indexMgr *index.Manager) (PhysicalPlan, error) {
	ctx, err := newPlanningContext(eng, indexMgr)
	if err != nil {
		return nil, err
	}

	var plan PhysicalPlan
	pred := rq.Where
	for i, pat := range rq.Patterns {
		patPlan, err := planPattern(pat, rq.Where, ctx)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			plan = patPlan
		} else {
			plan = &PhysicalJoin{Left: plan, Right: patPlan}
		}
		pred = andExpr(pred, patternPropertyPredicate(pat))
	}

	if pred != nil {
		plan = &PhysicalFilter{Child: plan, Pred: pred}
	}

	plan = &PhysicalProject{Child: plan, Cols: rq.Return.Items}

	if rq.Return.Limit != nil && len(rq.Return.OrderBy) == 0 {
		plan = &PhysicalLimit{Child: plan, N: *rq.Return.Limit}
	}
	return plan, nil
}

// planPattern lowers one NodePat (RelPat NodePat)* chain to a Scan/IndexLookup
// root followed by one Expand per relationship.
func planPattern(pat Pattern, where Expr, ctx *planningContext) (PhysicalPlan, error) {
	root := planNodeScan(pat.Nodes[0], where, ctx)
	var plan PhysicalPlan = root

	for i, edge := range pat.Edges {
		to := pat.Nodes[i+1]
		plan = &PhysicalExpand{
			Child:     plan,
			FromVar:   pat.Nodes[i].Variable,
			EdgeVar:   edge.Variable,
			EdgeType:  edge.Type,
			Direction: edge.Direction,
			ToVar:     to.Variable,
			ToLabels:  to.Labels,
		}
	}
	return plan, nil
}

// planNodeScan picks IndexLookup over Scan when WHERE, or the node pattern's
// own inline properties, carry a top-level (or AND-joined) equality on an
// indexed property of this node's variable — the "eligible equality on an
// indexed property" test named in the design.
func planNodeScan(np NodePattern, where Expr, ctx *planningContext) PhysicalPlan {
	label := ""
	if len(np.Labels) > 0 {
		label = np.Labels[0]
	}

	candidates := equalityTerms(where)
	for key, expr := range np.Properties {
		candidates = append(candidates, equalityTerm{Variable: np.Variable, Key: key, Value: expr})
	}
	for _, eq := range candidates {
		if eq.Variable != np.Variable {
			continue
		}
		if ctx.indexMgr.HasPropertyIndex(eq.Key) {
			return &PhysicalHashIndexScan{IndexName: eq.Key, Key: eq.Key, Value: eq.Value}
		}
	}
	return &PhysicalScan{Label: label}
}

// andExpr combines a and b with AND, omitting either side that is nil.
func andExpr(a, b Expr) Expr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &BinaryExpr{Op: "AND", Left: a, Right: b}
}

// patternPropertyPredicate turns every inline `{key: value}` map on pat's
// nodes and relationships into an equality predicate against the bound
// variable, ANDed together — inline pattern properties are implicit filters
// in every real Cypher dialect, not just a RETURN/display hint.
func patternPropertyPredicate(pat Pattern) Expr {
	var pred Expr
	for _, np := range pat.Nodes {
		if np.Variable == "" {
			continue
		}
		for key, expr := range np.Properties {
			pred = andExpr(pred, &BinaryExpr{Op: "=", Left: &Property{Variable: np.Variable, Key: key}, Right: expr})
		}
	}
	for _, ep := range pat.Edges {
		if ep.Variable == "" {
			continue
		}
		for key, expr := range ep.Properties {
			pred = andExpr(pred, &BinaryExpr{Op: "=", Left: &Property{Variable: ep.Variable, Key: key}, Right: expr})
		}
	}
	return pred
}

// equalityTerm is one `var.key = value` term found at the top of a WHERE
// expression's AND-chain.
type equalityTerm struct {
	Variable, Key string
	Value         Expr
}

// equalityTerms walks the top-level AND-chain of expr (not descending into
// OR, since an equality under OR isn't unconditionally eligible) collecting
// `Property(var,key) = literal/parameter` terms.
func equalityTerms(expr Expr) []equalityTerm {
	bin, ok := expr.(*BinaryExpr)
	if !ok {
		return nil
	}
	if bin.Op == "AND" {
		return append(equalityTerms(bin.Left), equalityTerms(bin.Right)...)
	}
	if bin.Op != "=" {
		return nil
	}
	if prop, ok := bin.Left.(*Property); ok {
		return []equalityTerm{{Variable: prop.Variable, Key: prop.Key, Value: bin.Right}}
	}
	if prop, ok := bin.Right.(*Property); ok {
		return []equalityTerm{{Variable: prop.Variable, Key: prop.Key, Value: bin.Left}}
	}
	return nil
}
