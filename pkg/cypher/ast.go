package cypher

import "github.com/orneryd/nornicgraph/pkg/graph"

// Statement is a parsed query: exactly one of Read or Write is set.
type Statement struct {
	Read  *ReadQuery
	Write *WriteQuery
}

// ReadQuery is MATCH Pattern (',' Pattern)* (WHERE Expr)? ReturnClause.
type ReadQuery struct {
	Patterns []Pattern
	Where    Expr
	Return   ReturnClause
}

// WriteQueryKind distinguishes the four write-query forms.
type WriteQueryKind int

const (
	WriteCreate WriteQueryKind = iota
	WriteDelete
	WriteSet
	WriteMerge
)

// WriteQuery covers CREATE, DELETE, SET and MERGE. Only the fields relevant
// to Kind are populated. DELETE and SET are only useful bound to a
// preceding MATCH, so WriteQuery carries an optional match prefix the way
// every real Cypher dialect structures "MATCH (n) DELETE n" — the subset
// grammar names Delete/Set standalone, but a standalone DELETE has nothing
// to delete without a prior binding.
type WriteQuery struct {
	Kind WriteQueryKind

	// Optional preceding MATCH, binding variables DELETE/SET/MERGE use.
	MatchPatterns []Pattern
	MatchWhere    Expr

	// CREATE / MERGE
	Patterns []Pattern

	// DELETE
	DeleteVars []string
	Detach     bool

	// SET
	SetItems []SetItem
}

// SetItem is one `var.prop = expr` assignment in a SET clause.
type SetItem struct {
	Variable string
	Property string
	Value    Expr
}

// Pattern is NodePat (RelPat NodePat)*: an alternating chain of node and
// relationship patterns. len(Edges) == len(Nodes)-1.
type Pattern struct {
	Nodes []NodePattern
	Edges []EdgePattern
}

// NodePattern is '(' Var? (':' Label)* Props? ')'.
type NodePattern struct {
	Variable   string
	Labels     []string
	Properties map[string]Expr
}

// EdgeDirection is the arrow direction of a relationship pattern.
type EdgeDirection int

const (
	DirRight EdgeDirection = iota // (a)-[r]->(b)
	DirLeft                       // (a)<-[r]-(b)
	DirEither                     // (a)-[r]-(b)
)

// EdgePattern is ('-'|'<-') '[' Var? (':' Type)? Props? ']' ('->'|'-').
type EdgePattern struct {
	Variable   string
	Type       string
	Direction  EdgeDirection
	Properties map[string]Expr
}

// ReturnClause is 'RETURN' DISTINCT? Item (',' Item)* (ORDER BY ...)? (LIMIT n)?.
type ReturnClause struct {
	Distinct bool
	Items    []ReturnItem
	OrderBy  []OrderItem
	Skip     *int64
	Limit    *int64
}

// ReturnItem is one projected expression, optionally aliased with AS.
type ReturnItem struct {
	Expr  Expr
	Alias string
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       Expr
	Descending bool
}

// Expr is the expression ADT: exactly one concrete type below.
type Expr interface {
	exprNode()
}

// Literal is a constant PropertyValue.
type Literal struct {
	Value graph.PropertyValue
}

// Variable references a pattern-bound name in the current row.
type Variable struct {
	Name string
}

// Property is `Variable.Key` property access.
type Property struct {
	Variable string
	Key      string
}

// Parameter is a `$name` query parameter reference.
type Parameter struct {
	Name string
}

// UnaryExpr is NOT or unary minus applied to Operand.
type UnaryExpr struct {
	Op      string // "NOT" | "-"
	Operand Expr
}

// BinaryExpr is a binary operator application. Op is one of:
// "OR","AND","=","<>","<","<=",">",">=","+","-","*","/".
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

// FunctionCallExpr is `name(arg, ...)`.
type FunctionCallExpr struct {
	Name string
	Args []Expr
}

func (*Literal) exprNode()          {}
func (*Variable) exprNode()         {}
func (*Property) exprNode()         {}
func (*Parameter) exprNode()        {}
func (*UnaryExpr) exprNode()        {}
func (*BinaryExpr) exprNode()       {}
func (*FunctionCallExpr) exprNode() {}
