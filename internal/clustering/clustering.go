// Package clustering groups layered symbols into bounded units of work.
// Clusters follow file boundaries, not layer boundaries; the layer tag on a
// cluster is advisory ordering metadata for the batch generator.
package clustering

import (
	"context"
	"fmt"

	"symplan/internal/graph"
)

// Cluster is a bounded group of symbols emitted as one unit of work.
type Cluster struct {
	ID              int     `json:"cluster_id"`
	Type            string  `json:"cluster_type"`
	Layer           int     `json:"layer"`
	SymbolIDs       []int64 `json:"symbol_ids"`
	EstimatedTokens int     `json:"estimated_tokens"`
}

// Store is what the clusterer needs from the metadata store. Symbols must
// come back ordered by (file_path, symbol_type, id); SaveCluster persists
// the cluster definition and back-writes the cluster id onto every member
// symbol.
type Store interface {
	Symbols(ctx context.Context) ([]*graph.Symbol, error)
	SaveCluster(ctx context.Context, c *Cluster) error
}

// Config carries the sizing knobs.
type Config struct {
	// SmallFileLimit is the largest symbol count handled as a single
	// whole-file cluster.
	SmallFileLimit int

	// ChunkSize caps cluster size on the oversized-file path.
	ChunkSize int

	// UnitTokenCost is the per-symbol workload estimate.
	UnitTokenCost int
}

// DefaultConfig matches the tuning the documentation pipeline runs with.
func DefaultConfig() Config {
	return Config{SmallFileLimit: 8, ChunkSize: 5, UnitTokenCost: 3000}
}

// Result summarizes one clustering run.
type Result struct {
	Clusters int

	// Unclustered counts symbols in oversized files whose type falls
	// outside the recognized split set. They receive no cluster and are
	// never scheduled; surfaced for observability.
	Unclustered int
}

// Run groups all stored symbols into clusters and persists them. Cluster ids
// form a dense 1-based sequence in file, then type, then symbol-id order.
func Run(ctx context.Context, store Store, cfg Config) (*Result, error) {
	if cfg.SmallFileLimit <= 0 || cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("invalid clustering config: small_file_limit=%d chunk_size=%d", cfg.SmallFileLimit, cfg.ChunkSize)
	}

	symbols, err := store.Symbols(ctx)
	if err != nil {
		return nil, err
	}

	// Symbols arrive ordered by (file_path, symbol_type, id), so file
	// groups are contiguous and internally ordered already.
	var fileOrder []string
	groups := make(map[string][]*graph.Symbol)
	for _, s := range symbols {
		if _, seen := groups[s.FilePath]; !seen {
			fileOrder = append(fileOrder, s.FilePath)
		}
		groups[s.FilePath] = append(groups[s.FilePath], s)
	}

	result := &Result{}
	nextID := 0

	for _, file := range fileOrder {
		members := groups[file]
		if len(members) == 0 {
			continue
		}

		if len(members) <= cfg.SmallFileLimit {
			nextID++
			if err := save(ctx, store, nextID, "file", members, cfg.UnitTokenCost); err != nil {
				return nil, err
			}
			result.Clusters++
			continue
		}

		clustered := 0
		for _, symType := range graph.RecognizedTypes {
			var typed []*graph.Symbol
			for _, s := range members {
				if s.Type == symType {
					typed = append(typed, s)
				}
			}
			for start := 0; start < len(typed); start += cfg.ChunkSize {
				end := start + cfg.ChunkSize
				if end > len(typed) {
					end = len(typed)
				}
				nextID++
				clusterType := fmt.Sprintf("file_%s", symType)
				if err := save(ctx, store, nextID, clusterType, typed[start:end], cfg.UnitTokenCost); err != nil {
					return nil, err
				}
				result.Clusters++
			}
			clustered += len(typed)
		}
		result.Unclustered += len(members) - clustered
	}

	return result, nil
}

func save(ctx context.Context, store Store, id int, clusterType string, members []*graph.Symbol, unitCost int) error {
	c := &Cluster{
		ID:              id,
		Type:            clusterType,
		Layer:           averageLayer(members),
		SymbolIDs:       make([]int64, 0, len(members)),
		EstimatedTokens: len(members) * unitCost,
	}
	for _, s := range members {
		c.SymbolIDs = append(c.SymbolIDs, s.ID)
	}
	if err := store.SaveCluster(ctx, c); err != nil {
		return fmt.Errorf("failed to save cluster %d: %w", id, err)
	}
	return nil
}

// averageLayer is the floored mean of the members' assigned layers. Members
// without a layer are ignored; if none have one the cluster sits at layer 0.
func averageLayer(members []*graph.Symbol) int {
	sum, count := 0, 0
	for _, s := range members {
		if s.Layer != nil {
			sum += *s.Layer
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / count
}
