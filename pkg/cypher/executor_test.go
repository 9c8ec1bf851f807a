package cypher

import (
	"testing"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/orneryd/nornicgraph/pkg/index"
	"github.com/orneryd/nornicgraph/pkg/storage"
)

func newTestEngine(t *testing.T) (storage.Engine, *index.Manager) {
	t.Helper()
	eng := storage.NewMemoryEngine()
	idx := index.NewManager()
	if err := idx.CreateIndex(index.PropertyConfig("age_idx", "age", index.KindBTree)); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	return eng, idx
}

func seedPerson(t *testing.T, eng storage.Engine, idx *index.Manager, name string, age int64) graph.NodeID {
	t.Helper()
	n := graph.NewNode([]string{"Person"}, map[string]graph.PropertyValue{
		"name": graph.String(name),
		"age":  graph.Int(age),
	})
	id, err := eng.AddNode(n)
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	idx.InsertLabel("Person", id)
	if err := idx.InsertProperty("age", graph.Int(age), id); err != nil {
		t.Fatalf("InsertProperty: %v", err)
	}
	return id
}

// TestExecuteCreateQueryByLabel mirrors the "create, query by label" scenario:
// three Person nodes, then MATCH (n) RETURN n returns all three and
// MATCH (n:Person) WHERE n.age > 25 RETURN n returns exactly the older two.
func TestExecuteCreateQueryByLabel(t *testing.T) {
	eng, idx := newTestEngine(t)
	seedPerson(t, eng, idx, "Alice", 30)
	seedPerson(t, eng, idx, "Bob", 20)
	seedPerson(t, eng, idx, "Charlie", 40)

	res, err := Execute("MATCH (n) RETURN n", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RowCount != 3 {
		t.Fatalf("expected 3 rows, got %d", res.RowCount)
	}

	res, err = Execute("MATCH (n:Person) WHERE n.age > 25 RETURN n.name AS name", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RowCount != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", res.RowCount, res.Rows)
	}
	names := map[string]bool{}
	for _, row := range res.Rows {
		names[row["name"].Str] = true
	}
	if !names["Alice"] || !names["Charlie"] || names["Bob"] {
		t.Fatalf("got names %+v", names)
	}
}

func TestExecuteCreateStatement(t *testing.T) {
	eng, idx := newTestEngine(t)
	res, err := Execute(`CREATE (n:Person {name: 'Dana', age: 22})`, eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Rows[0]["created"].I != 1 {
		t.Fatalf("got %+v", res.Rows)
	}
	nodes, err := eng.GetNodesByLabel("Person")
	if err != nil {
		t.Fatalf("GetNodesByLabel: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Properties["name"].Str != "Dana" {
		t.Fatalf("got %+v", nodes)
	}
}

func TestExecuteCreateRelationship(t *testing.T) {
	eng, idx := newTestEngine(t)
	_, err := Execute(`CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})`, eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, err := Execute("MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN a.name AS a, b.name AS b", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RowCount != 1 {
		t.Fatalf("expected 1 row, got %d", res.RowCount)
	}
	if res.Rows[0]["a"].Str != "Alice" || res.Rows[0]["b"].Str != "Bob" {
		t.Fatalf("got %+v", res.Rows[0])
	}
}

func TestExecuteSetUpdatesProperty(t *testing.T) {
	eng, idx := newTestEngine(t)
	seedPerson(t, eng, idx, "Eve", 25)

	_, err := Execute("MATCH (n:Person) WHERE n.name = 'Eve' SET n.age = 26", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	res, err := Execute("MATCH (n:Person) WHERE n.name = 'Eve' RETURN n.age AS age", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Rows[0]["age"].I != 26 {
		t.Fatalf("got %+v", res.Rows[0])
	}
}

func TestExecuteDeleteRequiresDetachWithEdges(t *testing.T) {
	eng, idx := newTestEngine(t)
	_, err := Execute(`CREATE (a:Person {name: 'Alice'})-[:KNOWS]->(b:Person {name: 'Bob'})`, eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := Execute("MATCH (n:Person) WHERE n.name = 'Alice' DELETE n", eng, idx, nil, nil); err == nil {
		t.Fatal("expected an error deleting a node with incident edges")
	}

	res, err := Execute("MATCH (n:Person) WHERE n.name = 'Alice' DETACH DELETE n", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Rows[0]["deleted"].I != 1 {
		t.Fatalf("got %+v", res.Rows[0])
	}
	nodes, err := eng.GetNodesByLabel("Person")
	if err != nil {
		t.Fatalf("GetNodesByLabel: %v", err)
	}
	if len(nodes) != 1 || nodes[0].Properties["name"].Str != "Bob" {
		t.Fatalf("got %+v", nodes)
	}
}

func TestExecuteMergeCreatesOnlyOnce(t *testing.T) {
	eng, idx := newTestEngine(t)
	for i := 0; i < 2; i++ {
		if _, err := Execute(`MERGE (n:Person {name: 'Frank'})`, eng, idx, nil, nil); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	nodes, err := eng.GetNodesByLabel("Person")
	if err != nil {
		t.Fatalf("GetNodesByLabel: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected MERGE to create exactly once, got %d nodes", len(nodes))
	}
}

func TestExecuteParameterizedQuery(t *testing.T) {
	eng, idx := newTestEngine(t)
	seedPerson(t, eng, idx, "Grace", 33)

	params := map[string]graph.PropertyValue{"minAge": graph.Int(30)}
	res, err := Execute("MATCH (n:Person) WHERE n.age > $minAge RETURN n.name AS name", eng, idx, nil, params)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RowCount != 1 || res.Rows[0]["name"].Str != "Grace" {
		t.Fatalf("got %+v", res.Rows)
	}
}

func TestExecuteOrderByLimitSkip(t *testing.T) {
	eng, idx := newTestEngine(t)
	seedPerson(t, eng, idx, "A", 10)
	seedPerson(t, eng, idx, "B", 30)
	seedPerson(t, eng, idx, "C", 20)

	res, err := Execute("MATCH (n:Person) RETURN n.name AS name ORDER BY n.age DESC SKIP 1 LIMIT 1", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RowCount != 1 || res.Rows[0]["name"].Str != "C" {
		t.Fatalf("got %+v", res.Rows)
	}
}

func TestExecuteDistinct(t *testing.T) {
	eng, idx := newTestEngine(t)
	seedPerson(t, eng, idx, "Same", 18)
	seedPerson(t, eng, idx, "Same", 19)

	res, err := Execute("MATCH (n:Person) RETURN DISTINCT n.name AS name", eng, idx, nil, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.RowCount != 1 {
		t.Fatalf("expected DISTINCT to collapse to 1 row, got %d", res.RowCount)
	}
}
