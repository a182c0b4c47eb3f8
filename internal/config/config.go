// Package config provides configuration loading and structs for the
// ingestion pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Ingestion  IngestionConfig  `yaml:"ingestion"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Cache      CacheConfig      `yaml:"cache"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Watch      WatchConfig      `yaml:"watch"`
}

// IngestionConfig holds the run parameters: what to ingest and how to chunk.
type IngestionConfig struct {
	// DataPath is a local directory or a blob container URL.
	DataPath      string `yaml:"data_path"`
	StagingPath   string `yaml:"staging_path"`
	URLPrefix     string `yaml:"url_prefix"`
	ChunkSize     int    `yaml:"chunk_size"`
	TokenOverlap  int    `yaml:"token_overlap"`
	Workers       int    `yaml:"workers"`
	Language      string `yaml:"language"`
	RetrievalType string `yaml:"retrieval_type"`
}

// LedgerConfig holds the ingestion ledger store settings.
type LedgerConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CacheConfig holds the optional remote cache settings. An empty RedisURL
// means the in-process cache is used.
type CacheConfig struct {
	RedisURL   string `yaml:"redis_url"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// ExtractionConfig holds the remote document-extraction service settings.
// An empty endpoint disables remote extraction; documents are parsed locally.
type ExtractionConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	Mode       string `yaml:"mode"`
	APIVersion string `yaml:"api_version"`
}

// EmbeddingConfig holds the embedding service settings. An empty endpoint
// disables embeddings; documents are indexed for keyword search only.
type EmbeddingConfig struct {
	Endpoint          string  `yaml:"endpoint"`
	APIKey            string  `yaml:"api_key"`
	Deployment        string  `yaml:"deployment"`
	APIVersion        string  `yaml:"api_version"`
	Dimensions        int     `yaml:"dimensions"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// IndexConfig selects and parameterizes the index backend. Kind decides
// which of the remaining fields apply.
type IndexConfig struct {
	Kind string `yaml:"kind"`

	// kind: search
	Endpoint           string `yaml:"endpoint"`
	APIKey             string `yaml:"api_key"`
	APIVersion         string `yaml:"api_version"`
	Name               string `yaml:"name"`
	SemanticConfigName string `yaml:"semantic_config_name"`
	VectorConfigName   string `yaml:"vector_config_name"`

	// kind: mongo
	ConnectionString string `yaml:"connection_string"`
	DatabaseName     string `yaml:"database_name"`
	CollectionName   string `yaml:"collection_name"`
	VectorField      string `yaml:"vector_field"`

	// kind: bleve
	Path string `yaml:"path"`

	BatchSize          int `yaml:"batch_size"`
	ValidationRetries  int `yaml:"validation_retries"`
	ValidationWaitSecs int `yaml:"validation_wait_seconds"`
}

// WatchConfig holds watch-mode settings.
type WatchConfig struct {
	Enabled         bool     `yaml:"enabled"`
	DebounceSeconds int      `yaml:"debounce_seconds"`
	Extensions      []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if !isRemotePath(cfg.Ingestion.DataPath) {
		cfg.Ingestion.DataPath = expandPath(cfg.Ingestion.DataPath, configDir)
	}
	cfg.Ingestion.StagingPath = expandPath(cfg.Ingestion.StagingPath, configDir)
	cfg.Ledger.DatabasePath = expandPath(cfg.Ledger.DatabasePath, configDir)
	cfg.Index.Path = expandPath(cfg.Index.Path, configDir)

	return &cfg, nil
}

// isRemotePath reports whether path refers to a remote container rather than
// the local filesystem.
func isRemotePath(path string) bool {
	return strings.Contains(path, "://")
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
