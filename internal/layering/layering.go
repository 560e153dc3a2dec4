// Package layering partitions the symbol graph into ordered processing
// layers. Peeling runs on dependent count, so symbols nothing references
// (the graph's roots) surface first and their callees follow — callers are
// documented before the things they call.
package layering

import (
	"context"
	"sort"

	"symplan/internal/graph"
)

// LayerWriter persists the layer index of every symbol.
type LayerWriter interface {
	UpdateLayers(ctx context.Context, layers [][]int64) error
}

// Result describes one peeling run.
type Result struct {
	// Layers is an ordered partition of the node set. Members within a
	// layer are sorted by id for reproducible output.
	Layers [][]int64

	// CycleResidue is the number of nodes swept into the final catch-all
	// layer because they kept a nonzero dependent count after the queue
	// drained. Zero for acyclic graphs.
	CycleResidue int
}

// Peel computes the layer partition of g. Each round releases every node
// whose remaining dependent count is zero, then decrements the count of the
// nodes it depends on. Nodes still held back after the queue empties are in
// (or only reachable through) a cycle; they form one final layer so the
// partition stays total.
func Peel(g *graph.Graph) *Result {
	nodes := g.NodeIDs()

	indeg := make(map[int64]int, len(nodes))
	var queue []int64
	for _, n := range nodes {
		indeg[n] = g.InDegree(n)
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}

	var layers [][]int64
	processed := 0

	for len(queue) > 0 {
		layer := make([]int64, 0, len(queue))
		var next []int64

		for _, n := range queue {
			layer = append(layer, n)
			processed++

			for _, m := range g.OutNeighbors(n) {
				indeg[m]--
				if indeg[m] == 0 {
					next = append(next, m)
				}
			}
		}

		sort.Slice(layer, func(i, j int) bool { return layer[i] < layer[j] })
		layers = append(layers, layer)
		queue = next
	}

	residue := 0
	if processed < len(nodes) {
		var remaining []int64
		for _, n := range nodes {
			if indeg[n] > 0 {
				remaining = append(remaining, n)
			}
		}
		residue = len(remaining)
		layers = append(layers, remaining)
	}

	return &Result{Layers: layers, CycleResidue: residue}
}

// Run peels the graph and persists the resulting layer assignment.
func Run(ctx context.Context, g *graph.Graph, w LayerWriter) (*Result, error) {
	result := Peel(g)
	if err := w.UpdateLayers(ctx, result.Layers); err != nil {
		return nil, err
	}
	return result, nil
}
