package storage

import (
	"bytes"
	"testing"

	"github.com/orneryd/nornicgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engineFactories lets every contract test run against both backends so the
// "semantics identical across backends" requirement is actually exercised.
func engineFactories(t *testing.T) map[string]func() Engine {
	return map[string]func() Engine{
		"memory": func() Engine { return NewMemoryEngine() },
		"badger": func() Engine {
			eng, err := NewBadgerEngineInMemory()
			require.NoError(t, err)
			return eng
		},
	}
}

func TestEntityRoundTrip(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			eng := factory()
			defer eng.Close()

			n := graph.NewNode([]string{"Person"}, map[string]graph.PropertyValue{"name": graph.String("Alice")})
			id, err := eng.AddNode(n)
			require.NoError(t, err)

			got, err := eng.GetNode(id)
			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
			assert.True(t, graph.Map(n.Properties).Equal(graph.Map(got.Properties)))

			e := graph.NewEdge(id, id, "SELF", map[string]graph.PropertyValue{"weight": graph.Float(1.5)})
			eid, err := eng.AddEdge(e)
			require.NoError(t, err)
			gotEdge, err := eng.GetEdge(eid)
			require.NoError(t, err)
			assert.Equal(t, eid, gotEdge.ID)
		})
	}
}

func TestCascadeInvariant(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			eng := factory()
			defer eng.Close()

			a, _ := eng.AddNode(graph.NewNode([]string{"N"}, nil))
			b, _ := eng.AddNode(graph.NewNode([]string{"N"}, nil))
			c, _ := eng.AddNode(graph.NewNode([]string{"N"}, nil))

			_, err := eng.AddEdge(graph.NewEdge(a, b, "KNOWS", nil))
			require.NoError(t, err)
			_, err = eng.AddEdge(graph.NewEdge(a, c, "KNOWS", nil))
			require.NoError(t, err)
			bc, err := eng.AddEdge(graph.NewEdge(b, c, "KNOWS", nil))
			require.NoError(t, err)

			require.NoError(t, eng.DeleteNode(a))

			nc, err := eng.NodeCount()
			require.NoError(t, err)
			assert.Equal(t, 2, nc)

			ecount, err := eng.EdgeCount()
			require.NoError(t, err)
			assert.Equal(t, 1, ecount)

			remaining, err := eng.GetEdge(bc)
			require.NoError(t, err)
			assert.Equal(t, b, remaining.From)
			assert.Equal(t, c, remaining.To)

			outB, err := eng.GetOutgoingEdges(b)
			require.NoError(t, err)
			assert.Len(t, outB, 1)

			inC, err := eng.GetIncomingEdges(c)
			require.NoError(t, err)
			assert.Len(t, inC, 1)
		})
	}
}

func TestLabelIndexConsistency(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			eng := factory()
			defer eng.Close()

			p1, _ := eng.AddNode(graph.NewNode([]string{"Person"}, nil))
			p2, _ := eng.AddNode(graph.NewNode([]string{"Person", "Employee"}, nil))
			_, _ = eng.AddNode(graph.NewNode([]string{"Company"}, nil))

			people, err := eng.GetNodesByLabel("Person")
			require.NoError(t, err)
			ids := map[graph.NodeID]bool{}
			for _, n := range people {
				ids[n.ID] = true
			}
			assert.True(t, ids[p1])
			assert.True(t, ids[p2])
			assert.Len(t, people, 2)
		})
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			src := factory()
			defer src.Close()

			a, _ := src.AddNode(graph.NewNode([]string{"Person"}, map[string]graph.PropertyValue{"name": graph.String("Alice")}))
			b, _ := src.AddNode(graph.NewNode([]string{"Person"}, map[string]graph.PropertyValue{"name": graph.String("Bob")}))
			_, err := src.AddEdge(graph.NewEdge(a, b, "KNOWS", nil))
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, ExportSnapshot(src, &buf))

			dst := NewMemoryEngine()
			defer dst.Close()
			require.NoError(t, ImportSnapshot(dst, &buf))

			dstNodeCount, _ := dst.NodeCount()
			srcNodeCount, _ := src.NodeCount()
			assert.Equal(t, srcNodeCount, dstNodeCount)

			dstEdgeCount, _ := dst.EdgeCount()
			srcEdgeCount, _ := src.EdgeCount()
			assert.Equal(t, srcEdgeCount, dstEdgeCount)

			restored, err := dst.GetNode(a)
			require.NoError(t, err)
			assert.Equal(t, "Alice", restored.Properties["name"].Str)
		})
	}
}

func TestAddEdgeMissingEndpoint(t *testing.T) {
	for name, factory := range engineFactories(t) {
		t.Run(name, func(t *testing.T) {
			eng := factory()
			defer eng.Close()
			a, _ := eng.AddNode(graph.NewNode(nil, nil))
			_, err := eng.AddEdge(graph.NewEdge(a, graph.NewNodeID(), "KNOWS", nil))
			require.Error(t, err)
		})
	}
}
