package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"symplan/internal/clustering"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClusters struct {
	clusters []*clustering.Cluster
}

func (f *fakeClusters) Clusters(ctx context.Context) ([]*clustering.Cluster, error) {
	return f.clusters, nil
}

func TestGenerate_OrdersByLayerThenID(t *testing.T) {
	src := &fakeClusters{clusters: []*clustering.Cluster{
		{ID: 3, Type: "file", Layer: 0, SymbolIDs: []int64{7}, EstimatedTokens: 3000},
		{ID: 1, Type: "file", Layer: 2, SymbolIDs: []int64{1, 2}, EstimatedTokens: 6000},
		{ID: 2, Type: "file_function", Layer: 0, SymbolIDs: []int64{5}, EstimatedTokens: 3000},
	}}

	batches, err := Generate(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, batches, 3)
	assert.Equal(t, 2, batches[0].BatchID)
	assert.Equal(t, 3, batches[1].BatchID)
	assert.Equal(t, 1, batches[2].BatchID)

	for i := 1; i < len(batches); i++ {
		prev, cur := batches[i-1], batches[i]
		ordered := prev.Layer < cur.Layer ||
			(prev.Layer == cur.Layer && prev.BatchID < cur.BatchID)
		assert.True(t, ordered, "batches %d and %d out of order", i-1, i)
	}
}

func TestGenerate_CarriesClusterFields(t *testing.T) {
	src := &fakeClusters{clusters: []*clustering.Cluster{
		{ID: 1, Type: "file_struct", Layer: 4, SymbolIDs: []int64{9, 11, 13}, EstimatedTokens: 9000},
	}}

	batches, err := Generate(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, batches, 1)
	b := batches[0]
	assert.Equal(t, 1, b.BatchID)
	assert.Equal(t, "file_struct", b.Type)
	assert.Equal(t, 4, b.Layer)
	assert.Equal(t, []int64{9, 11, 13}, b.SymbolIDs)
	assert.Equal(t, 3, b.SymbolCount)
	assert.Equal(t, 9000, b.EstimatedTokens)
}

func TestWritePlan_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "data", "processing_batches.json")

	batches := []Batch{
		{BatchID: 1, Type: "file", Layer: 0, SymbolIDs: []int64{1, 2}, EstimatedTokens: 6000, SymbolCount: 2},
	}
	require.NoError(t, WritePlan(path, batches))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded []Batch
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, batches, loaded)
}

func TestWritePlan_ValidatesAgainstJSONSchema(t *testing.T) {
	tmp := t.TempDir()
	_, currentFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	schemaSrc := filepath.Join(filepath.Dir(currentFile), "..", "..", "docs", "processing_batches.schema.json")
	schemaBytes, err := os.ReadFile(schemaSrc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "processing_batches.schema.json"), schemaBytes, 0644))

	valid := []Batch{
		{BatchID: 1, Type: "file", Layer: 0, SymbolIDs: []int64{1}, EstimatedTokens: 3000, SymbolCount: 1},
	}
	require.NoError(t, WritePlan(filepath.Join(tmp, "plan.json"), valid))

	invalid := []Batch{
		{BatchID: 0, Type: "not-a-batch-type", Layer: 0, SymbolIDs: []int64{1}, EstimatedTokens: 3000, SymbolCount: 1},
	}
	err = WritePlan(filepath.Join(tmp, "bad_plan.json"), invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}
