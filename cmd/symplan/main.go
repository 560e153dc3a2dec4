package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"symplan/internal/batch"
	"symplan/internal/config"
	"symplan/internal/pipeline"
	"symplan/internal/storage"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "symplan",
		Short: "Dependency-aware batch planner for documentation generation",
	}
	configPath string
	sourceDB   string
	metaDB     string
	planPath   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "symplan.yaml", "Path to the config file")
	rootCmd.PersistentFlags().StringVar(&sourceDB, "source", "", "Path to the symbol index database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metaDB, "meta", "", "Path to the metadata database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&planPath, "out", "", "Path for the batch plan JSON (overrides config)")

	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(batchesCmd)
	rootCmd.AddCommand(statsCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if sourceDB != "" {
		cfg.Source.DB = sourceDB
	}
	if metaDB != "" {
		cfg.Metadata.DB = metaDB
	}
	if planPath != "" {
		cfg.Batch.PlanPath = planPath
	}
	return cfg
}

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Layer and cluster the symbol graph, then emit the batch plan",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		fmt.Printf("📂 Reading symbol index: %s\n", cfg.Source.DB)

		p := pipeline.NewPrepare(cfg)
		outcome, err := p.Run(ctx)
		if err != nil {
			log.Fatalf("Pipeline failed: %v", err)
		}

		fmt.Println("\nStatistics:")
		fmt.Printf("  Total symbols:  %d\n", outcome.Symbols)
		fmt.Printf("  Total layers:   %d\n", outcome.Layers)
		fmt.Printf("  Total clusters: %d\n", outcome.Clusters)
		fmt.Printf("  Total batches:  %d\n", outcome.Batches)
		fmt.Printf("🎉 Plan ready: %s\n", cfg.Batch.PlanPath)
	},
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Regenerate the batch plan from persisted clusters",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		meta, err := storage.OpenMeta(cfg.Metadata.DB)
		if err != nil {
			log.Fatalf("Failed to open metadata store: %v", err)
		}
		defer meta.Close()

		batches, err := batch.Generate(ctx, meta)
		if err != nil {
			log.Fatalf("Failed to generate batches: %v", err)
		}
		if err := batch.WritePlan(cfg.Batch.PlanPath, batches); err != nil {
			log.Fatalf("Failed to write batch plan: %v", err)
		}

		fmt.Printf("🗒️  Wrote %d batches to %s.\n", len(batches), cfg.Batch.PlanPath)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the metadata store",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx := context.Background()

		meta, err := storage.OpenMeta(cfg.Metadata.DB)
		if err != nil {
			log.Fatalf("Failed to open metadata store: %v", err)
		}
		defer meta.Close()

		stats, err := meta.Stats(ctx)
		if err != nil {
			log.Fatalf("Failed to compute stats: %v", err)
		}

		fmt.Println("Statistics:")
		fmt.Printf("  Total symbols:          %d\n", stats.TotalSymbols)
		fmt.Printf("  Total clusters:         %d\n", stats.TotalClusters)
		fmt.Printf("  Total layers:           %d\n", stats.TotalLayers)
		fmt.Printf("  Avg tokens per cluster: %.0f\n", stats.AvgTokensPerCluster)
	},
}
