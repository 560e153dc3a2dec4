package graph

import (
	"context"
	"strings"
)

// DefaultModule is assigned when no path segment yields a module name.
const DefaultModule = "core"

// Source supplies raw symbol rows and reference edges from a persisted index.
type Source interface {
	LoadSymbols(ctx context.Context) ([]*Symbol, error)
	LoadReferences(ctx context.Context) ([]Edge, error)
}

// LoadResult is the in-memory view produced from a source store.
type LoadResult struct {
	Symbols map[int64]*Symbol
	Graph   *Graph
	Edges   []Edge // deduplicated, both endpoints known, sorted (from, to)

	// DanglingDropped counts reference rows whose endpoints were not both
	// present in the loaded symbol set. Dropping them is tolerated, not an
	// error; the count is kept for observability.
	DanglingDropped int
}

// Load reads all symbols and references from the source and builds the
// adjacency graph. References to unknown symbol ids are dropped and counted.
func Load(ctx context.Context, src Source) (*LoadResult, error) {
	symbols, err := src.LoadSymbols(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Symbol, len(symbols))
	ids := make([]int64, 0, len(symbols))
	for _, s := range symbols {
		if s.Module == "" {
			s.Module = DeriveModule(s.FilePath)
		}
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}

	g := NewGraph(ids)

	refs, err := src.LoadReferences(ctx)
	if err != nil {
		return nil, err
	}

	dangling := 0
	for _, ref := range refs {
		if !g.AddEdge(ref.From, ref.To) {
			dangling++
		}
	}

	result := &LoadResult{
		Symbols:         byID,
		Graph:           g,
		DanglingDropped: dangling,
	}
	for _, from := range g.NodeIDs() {
		for _, to := range g.OutNeighbors(from) {
			result.Edges = append(result.Edges, Edge{From: from, To: to})
		}
	}
	return result, nil
}

// DeriveModule picks a coarse namespace label from a file path: the segment
// after "backend" when present, otherwise the first segment. Purely an
// organizational aid.
func DeriveModule(filePath string) string {
	if !strings.Contains(filePath, "/") {
		return DefaultModule
	}
	parts := strings.Split(filePath, "/")
	for i, part := range parts {
		if part == "backend" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if parts[0] != "" {
		return parts[0]
	}
	return DefaultModule
}
