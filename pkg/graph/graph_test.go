package graph

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeLabelDedup(t *testing.T) {
	n := NewNode([]string{"Person", "Person", "Employee"}, nil)
	assert.Equal(t, []string{"Person", "Employee"}, n.Labels)
	assert.True(t, n.HasLabel("Person"))
	assert.False(t, n.HasLabel("Ghost"))
}

func TestNodeCloneIsIndependent(t *testing.T) {
	n := NewNode([]string{"Person"}, map[string]PropertyValue{"age": Int(30)})
	c := n.Clone()
	c.Properties["age"] = Int(99)
	c.Labels[0] = "Other"
	assert.Equal(t, int64(30), n.Properties["age"].I)
	assert.Equal(t, "Person", n.Labels[0])
}

func TestPropertyValueEqual(t *testing.T) {
	assert.True(t, Int(5).Equal(Int(5)))
	assert.False(t, Int(5).Equal(Float(5)))
	assert.True(t, List(Int(1), String("a")).Equal(List(Int(1), String("a"))))
	assert.False(t, List(Int(1)).Equal(List(Int(2))))
}

func TestPropertyValueTruthy(t *testing.T) {
	assert.True(t, Bool(true).Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.False(t, Null().Truthy())
	assert.True(t, Int(0).Truthy())
	assert.True(t, String("").Truthy())
}

func TestEncodeIndexKeyOrderPreservingIntegers(t *testing.T) {
	values := []int64{-100, -1, 0, 1, 100, 1 << 40}
	keys := make([][]byte, len(values))
	for i, v := range values {
		k, err := EncodeIndexKey(Int(v))
		require.NoError(t, err)
		keys[i] = k
	}
	sorted := make([][]byte, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i]) < string(sorted[j])
	})
	for i := range keys {
		assert.Equal(t, keys[i], sorted[i], "byte-lexicographic order must match numeric order")
	}
}

func TestEncodeIndexKeyOrderPreservingFloats(t *testing.T) {
	values := []float64{-10.5, -0.1, 0.0, 0.1, 10.5}
	keys := make([][]byte, len(values))
	for i, v := range values {
		k, err := EncodeIndexKey(Float(v))
		require.NoError(t, err)
		keys[i] = k
	}
	for i := 1; i < len(keys); i++ {
		assert.True(t, string(keys[i-1]) < string(keys[i]))
	}
}

func TestNodeCodecRoundTrip(t *testing.T) {
	n := NewNode([]string{"Person"}, map[string]PropertyValue{
		"name": String("Alice"),
		"age":  Int(30),
		"tags": List(String("a"), String("b")),
	})
	decoded, err := DecodeNode(EncodeNode(n))
	require.NoError(t, err)
	assert.Equal(t, n.ID, decoded.ID)
	assert.Equal(t, n.Labels, decoded.Labels)
	assert.True(t, Map(n.Properties).Equal(Map(decoded.Properties)))
}

func TestEdgeCodecRoundTrip(t *testing.T) {
	e := NewEdge(NewNodeID(), NewNodeID(), "KNOWS", map[string]PropertyValue{"since": Int(2020)})
	decoded, err := DecodeEdge(EncodeEdge(e))
	require.NoError(t, err)
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, e.From, decoded.From)
	assert.Equal(t, e.To, decoded.To)
	assert.Equal(t, e.Type, decoded.Type)
}
