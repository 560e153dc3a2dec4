package storage

import (
	"context"
	"errors"

	"symplan/internal/clustering"
	"symplan/internal/graph"
)

// ErrSourceUnavailable marks a source database that cannot be opened or
// read. It is the only fatal condition in the pipeline's error taxonomy;
// everything else is recovered locally and counted.
var ErrSourceUnavailable = errors.New("source database unavailable")

// SourceStore reads the externally produced symbol index.
type SourceStore interface {
	graph.Source
	Close() error
}

// MetaStore persists layer and cluster assignments for downstream consumers.
// A run owns the store exclusively: Reset clears all prior state so stale
// assignments never bleed into a new computation.
type MetaStore interface {
	Reset(ctx context.Context) error
	SaveSymbols(ctx context.Context, symbols []*graph.Symbol) error
	SaveDependencies(ctx context.Context, edges []graph.Edge) error
	UpdateLayers(ctx context.Context, layers [][]int64) error

	// Symbols returns all stored symbols ordered by (file_path,
	// symbol_type, id), the iteration order clustering depends on.
	Symbols(ctx context.Context) ([]*graph.Symbol, error)

	// SaveCluster persists the cluster and back-writes its id onto every
	// member symbol.
	SaveCluster(ctx context.Context, c *clustering.Cluster) error

	// Clusters returns all clusters ordered by (layer, cluster_id).
	Clusters(ctx context.Context) ([]*clustering.Cluster, error)

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats summarizes a populated metadata store.
type Stats struct {
	TotalSymbols        int
	TotalClusters       int
	TotalLayers         int
	AvgTokensPerCluster float64
}
