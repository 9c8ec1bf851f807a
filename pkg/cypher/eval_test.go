package cypher

import (
	"testing"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

func mustEval(t *testing.T, expr Expr, row Row, params map[string]graph.PropertyValue) graph.PropertyValue {
	t.Helper()
	v, err := Eval(expr, row, params)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	return v
}

func TestEvalArithmeticIntFloatPromotion(t *testing.T) {
	expr := &BinaryExpr{Op: "+", Left: &Literal{Value: graph.Int(1)}, Right: &Literal{Value: graph.Float(2.5)}}
	v := mustEval(t, expr, Row{}, nil)
	if v.Kind != graph.KindFloat || v.F != 3.5 {
		t.Fatalf("got %+v", v)
	}
}

func TestEvalIntDivisionStaysInt(t *testing.T) {
	expr := &BinaryExpr{Op: "/", Left: &Literal{Value: graph.Int(7)}, Right: &Literal{Value: graph.Int(2)}}
	v := mustEval(t, expr, Row{}, nil)
	if v.Kind != graph.KindInt || v.I != 3 {
		t.Fatalf("got %+v", v)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	expr := &BinaryExpr{Op: "/", Left: &Literal{Value: graph.Int(1)}, Right: &Literal{Value: graph.Int(0)}}
	if _, err := Eval(expr, Row{}, nil); err == nil {
		t.Fatal("expected division by zero error")
	}
}

func TestEvalStringConcatenation(t *testing.T) {
	expr := &BinaryExpr{Op: "+", Left: &Literal{Value: graph.String("foo")}, Right: &Literal{Value: graph.String("bar")}}
	v := mustEval(t, expr, Row{}, nil)
	if v.Kind != graph.KindString || v.Str != "foobar" {
		t.Fatalf("got %+v", v)
	}
}

func TestEvalTruthiness(t *testing.T) {
	cases := []struct {
		name string
		v    graph.PropertyValue
		want bool
	}{
		{"bool true", graph.Bool(true), true},
		{"bool false", graph.Bool(false), false},
		{"null", graph.Null(), false},
		{"nonzero int", graph.Int(5), true},
		{"string", graph.String("x"), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("%s: Truthy() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestEvalAndShortCircuits(t *testing.T) {
	// Division by zero on the right must never execute since the left is false.
	expr := &BinaryExpr{
		Op:   "AND",
		Left: &Literal{Value: graph.Bool(false)},
		Right: &BinaryExpr{Op: "/", Left: &Literal{Value: graph.Int(1)}, Right: &Literal{Value: graph.Int(0)}},
	}
	v := mustEval(t, expr, Row{}, nil)
	if v.Kind != graph.KindBool || v.B {
		t.Fatalf("got %+v", v)
	}
}

func TestEvalPropertyLookupViaBoundVariable(t *testing.T) {
	bound := graph.Map(map[string]graph.PropertyValue{"_id": graph.String("n1"), "age": graph.Int(30)})
	row := Row{"n": bound}
	expr := &Property{Variable: "n", Key: "age"}
	v := mustEval(t, expr, row, nil)
	if v.Kind != graph.KindInt || v.I != 30 {
		t.Fatalf("got %+v", v)
	}
}

func TestEvalPropertyLookupFlatKeyTakesPrecedence(t *testing.T) {
	bound := graph.Map(map[string]graph.PropertyValue{"age": graph.Int(99)})
	row := Row{"n": bound, "age": graph.Int(30)}
	v := mustEval(t, &Property{Variable: "n", Key: "age"}, row, nil)
	if v.I != 30 {
		t.Fatalf("flat key should win, got %+v", v)
	}
}

func TestEvalMissingPropertyIsNull(t *testing.T) {
	row := Row{"n": graph.Map(map[string]graph.PropertyValue{"_id": graph.String("n1")})}
	v := mustEval(t, &Property{Variable: "n", Key: "missing"}, row, nil)
	if !v.IsNull() {
		t.Fatalf("got %+v", v)
	}
}

func TestEvalParameterReference(t *testing.T) {
	params := map[string]graph.PropertyValue{"minAge": graph.Int(18)}
	v := mustEval(t, &Parameter{Name: "minAge"}, Row{}, params)
	if v.I != 18 {
		t.Fatalf("got %+v", v)
	}
	if _, err := Eval(&Parameter{Name: "missing"}, Row{}, params); err == nil {
		t.Fatal("expected error for unbound parameter")
	}
}

func TestEvalFunctions(t *testing.T) {
	up := mustEval(t, &FunctionCallExpr{Name: "toUpper", Args: []Expr{&Literal{Value: graph.String("ab")}}}, Row{}, nil)
	if up.Str != "AB" {
		t.Fatalf("got %+v", up)
	}
	co := mustEval(t, &FunctionCallExpr{Name: "coalesce", Args: []Expr{&Literal{Value: graph.Null()}, &Literal{Value: graph.Int(5)}}}, Row{}, nil)
	if co.I != 5 {
		t.Fatalf("got %+v", co)
	}
	sz := mustEval(t, &FunctionCallExpr{Name: "size", Args: []Expr{&Literal{Value: graph.String("hello")}}}, Row{}, nil)
	if sz.I != 5 {
		t.Fatalf("got %+v", sz)
	}
}

func TestEvalOrderedComparisonRejectsIncompatibleTypes(t *testing.T) {
	expr := &BinaryExpr{Op: "<", Left: &Literal{Value: graph.Int(1)}, Right: &Literal{Value: graph.String("x")}}
	if _, err := Eval(expr, Row{}, nil); err == nil {
		t.Fatal("expected an error comparing int to string")
	}
}
