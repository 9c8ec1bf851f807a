package cypher

import "testing"

func TestParseSimpleMatchReturn(t *testing.T) {
	stmt, err := Parse("MATCH (n:Person) WHERE n.age > 25 RETURN n.name AS name")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stmt.Read == nil {
		t.Fatal("expected a ReadQuery")
	}
	rq := stmt.Read
	if len(rq.Patterns) != 1 || len(rq.Patterns[0].Nodes) != 1 {
		t.Fatalf("got patterns %+v", rq.Patterns)
	}
	if rq.Patterns[0].Nodes[0].Variable != "n" || rq.Patterns[0].Nodes[0].Labels[0] != "Person" {
		t.Fatalf("got node pattern %+v", rq.Patterns[0].Nodes[0])
	}
	if rq.Where == nil {
		t.Fatal("expected a WHERE expression")
	}
	if len(rq.Return.Items) != 1 || rq.Return.Items[0].Alias != "name" {
		t.Fatalf("got return items %+v", rq.Return.Items)
	}
}

func TestParseRelationshipPattern(t *testing.T) {
	stmt, err := Parse("MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN a, r, b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	pat := stmt.Read.Patterns[0]
	if len(pat.Nodes) != 2 || len(pat.Edges) != 1 {
		t.Fatalf("got pattern %+v", pat)
	}
	if pat.Edges[0].Type != "KNOWS" || pat.Edges[0].Direction != DirRight {
		t.Fatalf("got edge %+v", pat.Edges[0])
	}
	if len(stmt.Read.Return.Items) != 3 {
		t.Fatalf("expected 3 return items, got %d", len(stmt.Read.Return.Items))
	}
}

func TestParseCreateWithProperties(t *testing.T) {
	stmt, err := Parse(`CREATE (n:Person {name: 'Alice', age: 30})`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if stmt.Write == nil || stmt.Write.Kind != WriteCreate {
		t.Fatalf("expected a CREATE WriteQuery, got %+v", stmt.Write)
	}
	np := stmt.Write.Patterns[0].Nodes[0]
	if np.Labels[0] != "Person" || len(np.Properties) != 2 {
		t.Fatalf("got node pattern %+v", np)
	}
}

func TestParseMatchDeleteWithMatchPrefix(t *testing.T) {
	stmt, err := Parse("MATCH (n:Person) WHERE n.age > 100 DELETE n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wq := stmt.Write
	if wq == nil || wq.Kind != WriteDelete {
		t.Fatalf("expected a DELETE WriteQuery, got %+v", stmt.Write)
	}
	if len(wq.MatchPatterns) != 1 || wq.MatchWhere == nil {
		t.Fatalf("expected match prefix bindings, got %+v", wq)
	}
	if len(wq.DeleteVars) != 1 || wq.DeleteVars[0] != "n" {
		t.Fatalf("got delete vars %+v", wq.DeleteVars)
	}
}

func TestParseDetachDelete(t *testing.T) {
	stmt, err := Parse("MATCH (n) DETACH DELETE n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !stmt.Write.Detach {
		t.Fatal("expected Detach to be true")
	}
}

func TestParseSetClause(t *testing.T) {
	stmt, err := Parse("MATCH (n:Person) WHERE n.name = 'Bob' SET n.age = 31")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wq := stmt.Write
	if wq.Kind != WriteSet || len(wq.SetItems) != 1 {
		t.Fatalf("got %+v", wq)
	}
	if wq.SetItems[0].Variable != "n" || wq.SetItems[0].Property != "age" {
		t.Fatalf("got set item %+v", wq.SetItems[0])
	}
}

func TestParseReturnRequiresMatch(t *testing.T) {
	if _, err := Parse("RETURN 1"); err == nil {
		t.Fatal("expected an error for RETURN with no preceding MATCH")
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	// a OR b AND NOT c = d + e * f  -- AND binds tighter than OR, NOT tighter
	// than comparison, * tighter than +, and = is non-associative.
	stmt, err := Parse("MATCH (n) WHERE n.a OR n.b AND NOT n.c = n.d + n.e * n.f RETURN n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	or, ok := stmt.Read.Where.(*BinaryExpr)
	if !ok || or.Op != "OR" {
		t.Fatalf("expected top-level OR, got %+v", stmt.Read.Where)
	}
	and, ok := or.Right.(*BinaryExpr)
	if !ok || and.Op != "AND" {
		t.Fatalf("expected AND as OR's right operand, got %+v", or.Right)
	}
	not, ok := and.Right.(*UnaryExpr)
	if !ok || not.Op != "NOT" {
		t.Fatalf("expected NOT inside AND, got %+v", and.Right)
	}
	eq, ok := not.Operand.(*BinaryExpr)
	if !ok || eq.Op != "=" {
		t.Fatalf("expected = inside NOT, got %+v", not.Operand)
	}
	plus, ok := eq.Right.(*BinaryExpr)
	if !ok || plus.Op != "+" {
		t.Fatalf("expected + on right of =, got %+v", eq.Right)
	}
	mul, ok := plus.Right.(*BinaryExpr)
	if !ok || mul.Op != "*" {
		t.Fatalf("expected * binding tighter than +, got %+v", plus.Right)
	}
}

func TestParseCommaSeparatedPatterns(t *testing.T) {
	stmt, err := Parse("MATCH (a:Person), (b:Company) RETURN a, b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(stmt.Read.Patterns) != 2 {
		t.Fatalf("expected 2 independent patterns, got %d", len(stmt.Read.Patterns))
	}
}

func TestParseOrderBySkipLimit(t *testing.T) {
	stmt, err := Parse("MATCH (n:Person) RETURN n.name ORDER BY n.age DESC SKIP 1 LIMIT 2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rc := stmt.Read.Return
	if len(rc.OrderBy) != 1 || !rc.OrderBy[0].Descending {
		t.Fatalf("got order by %+v", rc.OrderBy)
	}
	if rc.Skip == nil || *rc.Skip != 1 {
		t.Fatalf("got skip %+v", rc.Skip)
	}
	if rc.Limit == nil || *rc.Limit != 2 {
		t.Fatalf("got limit %+v", rc.Limit)
	}
}
