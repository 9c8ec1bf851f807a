package graph

import "fmt"

// ValueKind tags the variant held by a PropertyValue.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindNull
	KindList
	KindMap
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// PropertyValue is the tagged union every node and edge property is stored
// as: a string, a signed 64-bit integer, an IEEE-754 float, a bool, null, an
// ordered list of PropertyValue, or a string-keyed map of PropertyValue.
//
// Only one of the typed fields is meaningful at a time, selected by Kind.
// Construct values with the String/Int/Float/Bool/Null/List/Map helpers
// rather than the struct literal directly.
type PropertyValue struct {
	Kind ValueKind
	Str  string
	I    int64
	F    float64
	B    bool
	List []PropertyValue
	Map  map[string]PropertyValue
}

func String(s string) PropertyValue { return PropertyValue{Kind: KindString, Str: s} }
func Int(i int64) PropertyValue     { return PropertyValue{Kind: KindInt, I: i} }
func Float(f float64) PropertyValue { return PropertyValue{Kind: KindFloat, F: f} }
func Bool(b bool) PropertyValue     { return PropertyValue{Kind: KindBool, B: b} }
func Null() PropertyValue           { return PropertyValue{Kind: KindNull} }
func List(vs ...PropertyValue) PropertyValue {
	return PropertyValue{Kind: KindList, List: vs}
}
func Map(m map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: KindMap, Map: m}
}

func (v PropertyValue) IsNull() bool { return v.Kind == KindNull }

// Truthy implements the truthiness rule used by the executor and filter
// evaluation: booleans yield themselves, null is false, everything else
// (including zero/empty values) is true.
func (v PropertyValue) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindNull:
		return false
	default:
		return true
	}
}

// Equal compares two PropertyValues structurally. Int and Float never
// compare equal to each other even when numerically identical — only the
// executor's comparison operators promote across int/float.
func (v PropertyValue) Equal(o PropertyValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F
	case KindBool:
		return v.B == o.B
	case KindNull:
		return true
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, val := range v.Map {
			ov, ok := o.Map[k]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

func (v PropertyValue) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindFloat:
		return fmt.Sprintf("%g", v.F)
	case KindBool:
		return fmt.Sprintf("%t", v.B)
	case KindNull:
		return "null"
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindMap:
		return fmt.Sprintf("%v", v.Map)
	default:
		return "<invalid>"
	}
}

// CloneProperties deep-copies a property map so callers cannot mutate stored
// state through a returned reference — mirrored by copyNode/copyEdge in the
// storage backends.
func CloneProperties(m map[string]PropertyValue) map[string]PropertyValue {
	if m == nil {
		return nil
	}
	out := make(map[string]PropertyValue, len(m))
	for k, v := range m {
		out[k] = v.clone()
	}
	return out
}

func (v PropertyValue) clone() PropertyValue {
	switch v.Kind {
	case KindList:
		l := make([]PropertyValue, len(v.List))
		for i, e := range v.List {
			l[i] = e.clone()
		}
		return PropertyValue{Kind: KindList, List: l}
	case KindMap:
		return PropertyValue{Kind: KindMap, Map: CloneProperties(v.Map)}
	default:
		return v
	}
}
