package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraph_AdjacencySymmetry(t *testing.T) {
	g := NewGraph([]int64{1, 2, 3})

	assert.True(t, g.AddEdge(1, 2))
	assert.True(t, g.AddEdge(1, 3))
	assert.True(t, g.AddEdge(2, 3))

	for _, from := range g.NodeIDs() {
		for _, to := range g.OutNeighbors(from) {
			assert.Contains(t, g.InNeighbors(to), from,
				"forward edge (%d,%d) must have a reverse entry", from, to)
		}
	}

	assert.Equal(t, []int64{2, 3}, g.OutNeighbors(1))
	assert.Equal(t, []int64{1, 2}, g.InNeighbors(3))
	assert.Equal(t, 2, g.InDegree(3))
	assert.Equal(t, 0, g.InDegree(1))
}

func TestGraph_DuplicateEdgesCollapse(t *testing.T) {
	g := NewGraph([]int64{1, 2})

	assert.True(t, g.AddEdge(1, 2))
	assert.True(t, g.AddEdge(1, 2))
	assert.True(t, g.AddEdge(1, 2))

	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, []int64{1}, g.InNeighbors(2))
}

func TestGraph_RefusesUnknownEndpoints(t *testing.T) {
	g := NewGraph([]int64{1, 2})

	assert.False(t, g.AddEdge(1, 99))
	assert.False(t, g.AddEdge(99, 1))
	assert.Equal(t, 0, g.EdgeCount())
}

func TestGraph_EveryNodeHasEntries(t *testing.T) {
	g := NewGraph([]int64{5, 7})

	assert.Equal(t, 2, g.Len())
	assert.Empty(t, g.OutNeighbors(5))
	assert.Empty(t, g.InNeighbors(7))
	assert.True(t, g.HasNode(5))
	assert.False(t, g.HasNode(6))
}
