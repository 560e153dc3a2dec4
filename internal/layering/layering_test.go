package layering

import (
	"context"
	"testing"

	"symplan/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, nodes []int64, edges [][2]int64) *graph.Graph {
	t.Helper()
	g := graph.NewGraph(nodes)
	for _, e := range edges {
		require.True(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestPeel_Chain(t *testing.T) {
	// A depends on B, B depends on C; nothing references A.
	g := buildGraph(t, []int64{1, 2, 3}, [][2]int64{{1, 2}, {2, 3}})

	result := Peel(g)

	require.Len(t, result.Layers, 3)
	assert.Equal(t, []int64{1}, result.Layers[0])
	assert.Equal(t, []int64{2}, result.Layers[1])
	assert.Equal(t, []int64{3}, result.Layers[2])
	assert.Zero(t, result.CycleResidue)
}

func TestPeel_ThreeCycle(t *testing.T) {
	g := buildGraph(t, []int64{10, 20, 30}, [][2]int64{{10, 20}, {20, 30}, {30, 10}})

	result := Peel(g)

	require.Len(t, result.Layers, 1)
	assert.Equal(t, []int64{10, 20, 30}, result.Layers[0])
	assert.Equal(t, 3, result.CycleResidue)
}

func TestPeel_CycleWithAcyclicPrefix(t *testing.T) {
	// 1 -> 2 -> 3 -> 2 (2 and 3 form a cycle reachable from 1).
	g := buildGraph(t, []int64{1, 2, 3}, [][2]int64{{1, 2}, {2, 3}, {3, 2}})

	result := Peel(g)

	require.Len(t, result.Layers, 2)
	assert.Equal(t, []int64{1}, result.Layers[0])
	assert.Equal(t, []int64{2, 3}, result.Layers[1])
	assert.Equal(t, 2, result.CycleResidue)
}

func TestPeel_PartitionInvariant(t *testing.T) {
	nodes := []int64{1, 2, 3, 4, 5, 6}
	g := buildGraph(t, nodes, [][2]int64{
		{1, 3}, {2, 3}, {3, 4}, {5, 6}, {6, 5}, // cycle 5<->6 plus a diamond-ish DAG
	})

	result := Peel(g)

	seen := make(map[int64]int)
	for _, layer := range result.Layers {
		for _, id := range layer {
			seen[id]++
		}
	}
	assert.Len(t, seen, len(nodes), "every node appears")
	for id, count := range seen {
		assert.Equal(t, 1, count, "node %d assigned exactly once", id)
	}
}

func TestPeel_AcyclicEdgeOrdering(t *testing.T) {
	// For acyclic graphs every edge (a,b) must satisfy layer(a) <= layer(b):
	// callers surface at or before their callees.
	nodes := []int64{1, 2, 3, 4, 5}
	edges := [][2]int64{{1, 2}, {1, 3}, {2, 4}, {3, 4}, {4, 5}, {1, 5}}
	g := buildGraph(t, nodes, edges)

	result := Peel(g)
	require.Zero(t, result.CycleResidue)

	layerOf := make(map[int64]int)
	for i, layer := range result.Layers {
		for _, id := range layer {
			layerOf[id] = i
		}
	}
	for _, e := range edges {
		assert.LessOrEqual(t, layerOf[e[0]], layerOf[e[1]],
			"edge (%d,%d) violates peeling order", e[0], e[1])
	}
}

func TestPeel_EmptyGraph(t *testing.T) {
	g := graph.NewGraph(nil)
	result := Peel(g)
	assert.Empty(t, result.Layers)
	assert.Zero(t, result.CycleResidue)
}

func TestPeel_IsolatedNodesShareFirstLayer(t *testing.T) {
	g := buildGraph(t, []int64{3, 1, 2}, nil)

	result := Peel(g)

	require.Len(t, result.Layers, 1)
	assert.Equal(t, []int64{1, 2, 3}, result.Layers[0], "members sorted by id")
}

type captureWriter struct {
	layers [][]int64
}

func (w *captureWriter) UpdateLayers(ctx context.Context, layers [][]int64) error {
	w.layers = layers
	return nil
}

func TestRun_PersistsLayers(t *testing.T) {
	g := buildGraph(t, []int64{1, 2}, [][2]int64{{1, 2}})
	w := &captureWriter{}

	result, err := Run(context.Background(), g, w)
	require.NoError(t, err)
	assert.Equal(t, result.Layers, w.layers)
}
