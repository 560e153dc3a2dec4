// Package batch turns persisted clusters into the ordered processing plan
// consumed by the external documentation orchestrator.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"symplan/internal/clustering"
)

// Batch is the externally visible projection of one cluster.
type Batch struct {
	BatchID         int     `json:"batch_id"`
	Type            string  `json:"type"`
	Layer           int     `json:"layer"`
	SymbolIDs       []int64 `json:"symbol_ids"`
	EstimatedTokens int     `json:"estimated_tokens"`
	SymbolCount     int     `json:"symbol_count"`
}

// ClusterSource reads back all persisted clusters.
type ClusterSource interface {
	Clusters(ctx context.Context) ([]*clustering.Cluster, error)
}

// Generate flattens all clusters into batches ordered by (layer, batch id).
// Consumers must process the plan in this exact order: it is the contract
// that preserves the approximate dependency ordering from layering.
func Generate(ctx context.Context, src ClusterSource) ([]Batch, error) {
	clusters, err := src.Clusters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clusters: %w", err)
	}

	batches := make([]Batch, 0, len(clusters))
	for _, c := range clusters {
		batches = append(batches, Batch{
			BatchID:         c.ID,
			Type:            c.Type,
			Layer:           c.Layer,
			SymbolIDs:       c.SymbolIDs,
			EstimatedTokens: c.EstimatedTokens,
			SymbolCount:     len(c.SymbolIDs),
		})
	}

	sort.Slice(batches, func(i, j int) bool {
		if batches[i].Layer == batches[j].Layer {
			return batches[i].BatchID < batches[j].BatchID
		}
		return batches[i].Layer < batches[j].Layer
	})

	return batches, nil
}

// WritePlan serializes the batch list to path, creating the directory if
// needed. When a plan schema is found next to the output or under docs/,
// the serialized plan is validated against it before being written.
func WritePlan(path string, batches []Batch) error {
	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch plan: %w", err)
	}
	data = append(data, '\n')

	if schemaPath := resolvePlanSchemaPath(path); schemaPath != "" {
		if err := validatePlan(schemaPath, data); err != nil {
			return fmt.Errorf("batch plan schema validation failed: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create plan directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func resolvePlanSchemaPath(planPath string) string {
	candidates := []string{
		filepath.Join(filepath.Dir(planPath), "processing_batches.schema.json"),
		filepath.Join("docs", "processing_batches.schema.json"),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
