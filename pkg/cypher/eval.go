package cypher

import (
	"strings"

	"github.com/orneryd/nornicgraph/pkg/graph"
)

// Row is one intermediate result: a flat mapping from column name to value.
// Scan flattens each bound node/edge's own properties into the row under
// their bare key, and additionally binds the pattern variable itself to a
// Map value (an "_id" entry plus its properties) so RETURN of the whole
// variable and chained joins both work without ambiguity.
type Row map[string]graph.PropertyValue

// Eval evaluates expr against row and the query's bound parameters.
func Eval(expr Expr, row Row, params map[string]graph.PropertyValue) (graph.PropertyValue, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, nil

	case *Variable:
		if v, ok := row[e.Name]; ok {
			return v, nil
		}
		return graph.Null(), nil

	case *Property:
		if v, ok := row[e.Key]; ok {
			return v, nil
		}
		if bound, ok := row[e.Variable]; ok && bound.Kind == graph.KindMap {
			if v, ok := bound.Map[e.Key]; ok {
				return v, nil
			}
		}
		return graph.Null(), nil

	case *Parameter:
		v, ok := params[e.Name]
		if !ok {
			return graph.PropertyValue{}, graph.InvalidOperation("parameter $" + e.Name + " not provided")
		}
		return v, nil

	case *UnaryExpr:
		return evalUnary(e, row, params)

	case *BinaryExpr:
		return evalBinary(e, row, params)

	case *FunctionCallExpr:
		return evalFunction(e, row, params)
	}
	return graph.PropertyValue{}, graph.InvalidOperation("unknown expression node")
}

func evalUnary(e *UnaryExpr, row Row, params map[string]graph.PropertyValue) (graph.PropertyValue, error) {
	operand, err := Eval(e.Operand, row, params)
	if err != nil {
		return graph.PropertyValue{}, err
	}
	switch e.Op {
	case "NOT":
		return graph.Bool(!operand.Truthy()), nil
	case "-":
		switch operand.Kind {
		case graph.KindInt:
			return graph.Int(-operand.I), nil
		case graph.KindFloat:
			return graph.Float(-operand.F), nil
		default:
			return graph.PropertyValue{}, graph.InvalidOperation("unary minus on non-numeric value")
		}
	}
	return graph.PropertyValue{}, graph.InvalidOperation("unknown unary operator " + e.Op)
}

func evalBinary(e *BinaryExpr, row Row, params map[string]graph.PropertyValue) (graph.PropertyValue, error) {
	switch e.Op {
	case "AND":
		left, err := Eval(e.Left, row, params)
		if err != nil {
			return graph.PropertyValue{}, err
		}
		if !left.Truthy() {
			return graph.Bool(false), nil
		}
		right, err := Eval(e.Right, row, params)
		if err != nil {
			return graph.PropertyValue{}, err
		}
		return graph.Bool(right.Truthy()), nil

	case "OR":
		left, err := Eval(e.Left, row, params)
		if err != nil {
			return graph.PropertyValue{}, err
		}
		if left.Truthy() {
			return graph.Bool(true), nil
		}
		right, err := Eval(e.Right, row, params)
		if err != nil {
			return graph.PropertyValue{}, err
		}
		return graph.Bool(right.Truthy()), nil
	}

	left, err := Eval(e.Left, row, params)
	if err != nil {
		return graph.PropertyValue{}, err
	}
	right, err := Eval(e.Right, row, params)
	if err != nil {
		return graph.PropertyValue{}, err
	}

	switch e.Op {
	case "=", "<>":
		eq := valuesEqual(left, right)
		if e.Op == "<>" {
			return graph.Bool(!eq), nil
		}
		return graph.Bool(eq), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(e.Op, left, right)
	case "+", "-", "*", "/":
		return arithmetic(e.Op, left, right)
	}
	return graph.PropertyValue{}, graph.InvalidOperation("unknown binary operator " + e.Op)
}

func valuesEqual(a, b graph.PropertyValue) bool {
	if a.Kind == graph.KindInt && b.Kind == graph.KindFloat {
		return float64(a.I) == b.F
	}
	if a.Kind == graph.KindFloat && b.Kind == graph.KindInt {
		return a.F == float64(b.I)
	}
	return a.Equal(b)
}

func compareOrdered(op string, a, b graph.PropertyValue) (graph.PropertyValue, error) {
	var cmp int
	switch {
	case isNumeric(a) && isNumeric(b):
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			cmp = -1
		case af > bf:
			cmp = 1
		default:
			cmp = 0
		}
	case a.Kind == graph.KindString && b.Kind == graph.KindString:
		cmp = strings.Compare(a.Str, b.Str)
	default:
		return graph.PropertyValue{}, graph.InvalidOperation("ordering comparison on incompatible types")
	}

	switch op {
	case "<":
		return graph.Bool(cmp < 0), nil
	case "<=":
		return graph.Bool(cmp <= 0), nil
	case ">":
		return graph.Bool(cmp > 0), nil
	case ">=":
		return graph.Bool(cmp >= 0), nil
	}
	return graph.PropertyValue{}, graph.InvalidOperation("unknown comparison operator " + op)
}

func isNumeric(v graph.PropertyValue) bool {
	return v.Kind == graph.KindInt || v.Kind == graph.KindFloat
}

func asFloat(v graph.PropertyValue) float64 {
	if v.Kind == graph.KindInt {
		return float64(v.I)
	}
	return v.F
}

func arithmetic(op string, a, b graph.PropertyValue) (graph.PropertyValue, error) {
	if op == "+" && a.Kind == graph.KindString && b.Kind == graph.KindString {
		return graph.String(a.Str + b.Str), nil
	}
	if !isNumeric(a) || !isNumeric(b) {
		return graph.PropertyValue{}, graph.InvalidOperation("arithmetic on non-numeric operand")
	}

	if a.Kind == graph.KindInt && b.Kind == graph.KindInt {
		switch op {
		case "+":
			return graph.Int(a.I + b.I), nil
		case "-":
			return graph.Int(a.I - b.I), nil
		case "*":
			return graph.Int(a.I * b.I), nil
		case "/":
			if b.I == 0 {
				return graph.PropertyValue{}, graph.InvalidOperation("division by zero")
			}
			return graph.Int(a.I / b.I), nil
		}
	}

	af, bf := asFloat(a), asFloat(b)
	switch op {
	case "+":
		return graph.Float(af + bf), nil
	case "-":
		return graph.Float(af - bf), nil
	case "*":
		return graph.Float(af * bf), nil
	case "/":
		if bf == 0 {
			return graph.PropertyValue{}, graph.InvalidOperation("division by zero")
		}
		return graph.Float(af / bf), nil
	}
	return graph.PropertyValue{}, graph.InvalidOperation("unknown arithmetic operator " + op)
}

// evalFunction implements the small built-in function set queries in this
// subset rely on: scalar helpers, not a full APOC-style function library.
func evalFunction(e *FunctionCallExpr, row Row, params map[string]graph.PropertyValue) (graph.PropertyValue, error) {
	args := make([]graph.PropertyValue, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(a, row, params)
		if err != nil {
			return graph.PropertyValue{}, err
		}
		args[i] = v
	}

	switch strings.ToLower(e.Name) {
	case "toupper":
		if len(args) != 1 || args[0].Kind != graph.KindString {
			return graph.PropertyValue{}, graph.InvalidOperation("toUpper expects one string argument")
		}
		return graph.String(strings.ToUpper(args[0].Str)), nil
	case "tolower":
		if len(args) != 1 || args[0].Kind != graph.KindString {
			return graph.PropertyValue{}, graph.InvalidOperation("toLower expects one string argument")
		}
		return graph.String(strings.ToLower(args[0].Str)), nil
	case "coalesce":
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return graph.Null(), nil
	case "size":
		if len(args) != 1 {
			return graph.PropertyValue{}, graph.InvalidOperation("size expects one argument")
		}
		switch args[0].Kind {
		case graph.KindList:
			return graph.Int(int64(len(args[0].List))), nil
		case graph.KindString:
			return graph.Int(int64(len([]rune(args[0].Str)))), nil
		default:
			return graph.PropertyValue{}, graph.InvalidOperation("size expects a list or string")
		}
	default:
		return graph.PropertyValue{}, graph.InvalidOperation("unknown function " + e.Name)
	}
}
