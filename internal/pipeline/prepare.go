// Package pipeline wires the load → layer → cluster → batch phases into one
// sequential run against a single metadata store.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"symplan/internal/batch"
	"symplan/internal/clustering"
	"symplan/internal/config"
	"symplan/internal/graph"
	"symplan/internal/layering"
	"symplan/internal/storage"
)

// Prepare runs the full planning pipeline. Phases execute sequentially; the
// metadata store is cleared up front so a re-run never inherits stale layer
// or cluster assignments.
type Prepare struct {
	Config *config.Config
}

// Outcome collects the run's headline numbers.
type Outcome struct {
	Symbols      int
	Edges        int
	Dangling     int
	Layers       int
	CycleResidue int
	Clusters     int
	Unclustered  int
	Batches      int
}

func NewPrepare(cfg *config.Config) *Prepare {
	return &Prepare{Config: cfg}
}

func (p *Prepare) Run(ctx context.Context) (*Outcome, error) {
	report := NewReport()
	defer func() {
		if err := report.Save(p.Config.Batch.ReportPath); err != nil {
			log.Printf("Warning: failed to save pipeline report: %v", err)
		}
	}()

	outcome := &Outcome{}

	loaded, err := p.loadStage(ctx, report, outcome)
	if err != nil {
		return nil, err
	}

	meta, err := p.metaStage(ctx, report, loaded)
	if err != nil {
		return nil, err
	}
	defer meta.Close()

	if err := p.layerStage(ctx, report, loaded.Graph, meta, outcome); err != nil {
		return nil, err
	}

	if err := p.clusterStage(ctx, report, meta, outcome); err != nil {
		return nil, err
	}

	if err := p.batchStage(ctx, report, meta, outcome); err != nil {
		return nil, err
	}

	return outcome, nil
}

func (p *Prepare) loadStage(ctx context.Context, report *Report, outcome *Outcome) (*graph.LoadResult, error) {
	h := report.BeginStage("load")

	src, err := storage.OpenSource(p.Config.Source.DB, p.sourceFilter())
	if err != nil {
		report.EndStage(h, nil, err)
		return nil, err
	}
	defer src.Close()

	loaded, err := graph.Load(ctx, src)
	if err != nil {
		report.EndStage(h, nil, err)
		return nil, err
	}

	outcome.Symbols = len(loaded.Symbols)
	outcome.Edges = len(loaded.Edges)
	outcome.Dangling = loaded.DanglingDropped

	fmt.Printf("📥 Loaded %d symbols, %d references (%d dangling dropped).\n",
		outcome.Symbols, outcome.Edges, outcome.Dangling)

	if loaded.DanglingDropped > 0 {
		report.AddSignal("dangling_reference_dropped", "load", "info",
			fmt.Sprintf("%d references pointed at unknown symbol ids and were dropped", loaded.DanglingDropped),
			float64(loaded.DanglingDropped))
	}
	report.EndStage(h, map[string]float64{
		"symbols":          float64(outcome.Symbols),
		"edges":            float64(outcome.Edges),
		"dangling_dropped": float64(outcome.Dangling),
	}, nil)

	return loaded, nil
}

func (p *Prepare) metaStage(ctx context.Context, report *Report, loaded *graph.LoadResult) (*storage.SQLiteMeta, error) {
	h := report.BeginStage("populate_metadata")

	meta, err := storage.OpenMeta(p.Config.Metadata.DB)
	if err != nil {
		report.EndStage(h, nil, err)
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	if err := meta.Reset(ctx); err != nil {
		meta.Close()
		report.EndStage(h, nil, err)
		return nil, err
	}

	symbols := make([]*graph.Symbol, 0, len(loaded.Symbols))
	for _, id := range loaded.Graph.NodeIDs() {
		symbols = append(symbols, loaded.Symbols[id])
	}
	if err := meta.SaveSymbols(ctx, symbols); err != nil {
		meta.Close()
		report.EndStage(h, nil, err)
		return nil, fmt.Errorf("failed to save symbols: %w", err)
	}
	if err := meta.SaveDependencies(ctx, loaded.Edges); err != nil {
		meta.Close()
		report.EndStage(h, nil, err)
		return nil, fmt.Errorf("failed to save dependencies: %w", err)
	}

	fmt.Printf("💾 Metadata store populated: %s\n", p.Config.Metadata.DB)
	report.EndStage(h, map[string]float64{"symbols": float64(len(symbols))}, nil)
	return meta, nil
}

func (p *Prepare) layerStage(ctx context.Context, report *Report, g *graph.Graph, meta storage.MetaStore, outcome *Outcome) error {
	h := report.BeginStage("layering")

	result, err := layering.Run(ctx, g, meta)
	if err != nil {
		report.EndStage(h, nil, err)
		return fmt.Errorf("layering failed: %w", err)
	}

	outcome.Layers = len(result.Layers)
	outcome.CycleResidue = result.CycleResidue

	fmt.Printf("🧭 Created %d dependency layers.\n", outcome.Layers)
	if result.CycleResidue > 0 {
		log.Printf("Warning: circular dependency detected involving %d symbols. Grouping them into the last layer.", result.CycleResidue)
		report.AddSignal("cycle_residue", "layering", "warning",
			fmt.Sprintf("%d symbols are part of cycles and share the final layer", result.CycleResidue),
			float64(result.CycleResidue))
	}
	report.EndStage(h, map[string]float64{
		"layers":        float64(outcome.Layers),
		"cycle_residue": float64(result.CycleResidue),
	}, nil)
	return nil
}

func (p *Prepare) clusterStage(ctx context.Context, report *Report, meta storage.MetaStore, outcome *Outcome) error {
	h := report.BeginStage("clustering")

	result, err := clustering.Run(ctx, meta, clustering.Config{
		SmallFileLimit: p.Config.Clustering.SmallFileLimit,
		ChunkSize:      p.Config.Clustering.ChunkSize,
		UnitTokenCost:  p.Config.Clustering.UnitTokenCost,
	})
	if err != nil {
		report.EndStage(h, nil, err)
		return fmt.Errorf("clustering failed: %w", err)
	}

	outcome.Clusters = result.Clusters
	outcome.Unclustered = result.Unclustered

	fmt.Printf("📦 Created %d clusters.\n", result.Clusters)
	if result.Unclustered > 0 {
		report.AddSignal("unclustered_symbols", "clustering", "info",
			fmt.Sprintf("%d symbols in oversized files have unrecognized types and were not clustered", result.Unclustered),
			float64(result.Unclustered))
	}
	report.EndStage(h, map[string]float64{
		"clusters":    float64(result.Clusters),
		"unclustered": float64(result.Unclustered),
	}, nil)
	return nil
}

func (p *Prepare) batchStage(ctx context.Context, report *Report, meta storage.MetaStore, outcome *Outcome) error {
	h := report.BeginStage("batch_plan")

	batches, err := batch.Generate(ctx, meta)
	if err != nil {
		report.EndStage(h, nil, err)
		return err
	}
	if err := batch.WritePlan(p.Config.Batch.PlanPath, batches); err != nil {
		report.EndStage(h, nil, err)
		return err
	}

	outcome.Batches = len(batches)
	fmt.Printf("🗒️  Wrote %d processing batches to %s.\n", len(batches), p.Config.Batch.PlanPath)
	report.EndStage(h, map[string]float64{"batches": float64(len(batches))}, nil)
	return nil
}

func (p *Prepare) sourceFilter() storage.SourceFilter {
	filter := storage.DefaultSourceFilter()
	if len(p.Config.Source.IncludeTypes) > 0 {
		filter.Types = filter.Types[:0]
		for _, raw := range p.Config.Source.IncludeTypes {
			filter.Types = append(filter.Types, graph.NormalizeType(raw))
		}
	}
	if p.Config.Source.ExcludePrefixes != nil {
		filter.ExcludePrefixes = p.Config.Source.ExcludePrefixes
	}
	return filter
}
