package index

import (
	"testing"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashIndexEqualityOnly(t *testing.T) {
	h := NewHashIndex()
	id := graph.NewNodeID()
	h.Insert([]byte("key"), id)
	assert.Equal(t, []graph.NodeID{id}, h.Lookup([]byte("key")))

	_, err := h.Range([]byte("a"), []byte("z"))
	require.Error(t, err)
}

func TestOrderedIndexRange(t *testing.T) {
	o := NewOrderedIndex()
	ages := map[int64]graph.NodeID{25: graph.NewNodeID(), 30: graph.NewNodeID(), 35: graph.NewNodeID()}
	for age, id := range ages {
		key, err := graph.EncodeIndexKey(graph.Int(age))
		require.NoError(t, err)
		o.Insert(key, id)
	}

	startKey, _ := graph.EncodeIndexKey(graph.Int(28))
	endKey, _ := graph.EncodeIndexKey(graph.Int(32))
	got, err := o.Range(startKey, endKey)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ages[30], got[0])
}

func TestManagerRangeRejectedOnHashIndex(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.CreateIndex(PropertyConfig("age_idx", "age", KindHash)))
	require.NoError(t, m.InsertProperty("age", graph.Int(30), graph.NewNodeID()))

	_, found, err := m.RangeProperty("age", graph.Int(20), graph.Int(40))
	assert.True(t, found)
	require.Error(t, err)
}

func TestManagerLabelLookup(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.CreateIndex(LabelConfig("person_idx", "Person", KindHash)))
	id := graph.NewNodeID()
	m.InsertLabel("Person", id)

	ids, found := m.LookupLabel("Person")
	assert.True(t, found)
	assert.Equal(t, []graph.NodeID{id}, ids)

	m.RemoveLabel("Person", id)
	ids, _ = m.LookupLabel("Person")
	assert.Empty(t, ids)
}

func TestManagerPropertyRangeBTree(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.CreateIndex(PropertyConfig("age_idx", "age", KindBTree)))
	a, b, c := graph.NewNodeID(), graph.NewNodeID(), graph.NewNodeID()
	require.NoError(t, m.InsertProperty("age", graph.Int(25), a))
	require.NoError(t, m.InsertProperty("age", graph.Int(30), b))
	require.NoError(t, m.InsertProperty("age", graph.Int(35), c))

	ids, found, err := m.RangeProperty("age", graph.Int(28), graph.Int(32))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []graph.NodeID{b}, ids)
}
