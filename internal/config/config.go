package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Source struct {
		DB              string   `yaml:"db"`
		IncludeTypes    []string `yaml:"include_types"`
		ExcludePrefixes []string `yaml:"exclude_prefixes"`
	} `yaml:"source"`
	Metadata struct {
		DB string `yaml:"db"`
	} `yaml:"metadata"`
	Batch struct {
		PlanPath   string `yaml:"plan_path"`
		ReportPath string `yaml:"report_path"`
	} `yaml:"batch"`
	Clustering struct {
		SmallFileLimit int `yaml:"small_file_limit"`
		ChunkSize      int `yaml:"chunk_size"`
		UnitTokenCost  int `yaml:"unit_token_cost"`
	} `yaml:"clustering"`
}

// Default returns a config that makes the tool runnable with no config file.
func Default() *Config {
	cfg := &Config{}
	cfg.Source.DB = "global_symbols.db"
	cfg.Source.IncludeTypes = []string{"function", "struct", "typedef"}
	cfg.Source.ExcludePrefixes = []string{"contrib/"}
	cfg.Metadata.DB = "data/metadata.db"
	cfg.Batch.PlanPath = "data/processing_batches.json"
	cfg.Batch.ReportPath = "data/pipeline_report.json"
	cfg.Clustering.SmallFileLimit = 8
	cfg.Clustering.ChunkSize = 5
	cfg.Clustering.UnitTokenCost = 3000
	return cfg
}

// LoadConfig reads the YAML config at path, falling back to defaults when the
// file does not exist, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if sourceDB := os.Getenv("SYMPLAN_SOURCE_DB"); sourceDB != "" {
		cfg.Source.DB = sourceDB
	}
	if metaDB := os.Getenv("SYMPLAN_META_DB"); metaDB != "" {
		cfg.Metadata.DB = metaDB
	}
	if planPath := os.Getenv("SYMPLAN_PLAN_PATH"); planPath != "" {
		cfg.Batch.PlanPath = planPath
	}

	return cfg, nil
}
