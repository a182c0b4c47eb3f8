package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/config"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/index"
)

func TestLoadConfigExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := "ingestion:\n  data_path: \"/data/docs\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %s, want %s", resolved, path)
	}
	if cfg.Ingestion.DataPath != "/data/docs" {
		t.Errorf("data_path = %s", cfg.Ingestion.DataPath)
	}
}

func TestIndexConfigMapping(t *testing.T) {
	cfg := &config.Config{}
	cfg.Ingestion.Language = "en"
	cfg.Embedding.Dimensions = 1536
	cfg.Index = config.IndexConfig{
		Kind:               "search",
		Endpoint:           "https://search.example.com",
		APIKey:             "secret",
		Name:               "kb-index",
		SemanticConfigName: "default",
		VectorConfigName:   "vector-profile",
		BatchSize:          50,
		ValidationRetries:  5,
		ValidationWaitSecs: 60,
	}

	got := indexConfig(cfg)
	want := index.Config{
		Kind:               "search",
		Endpoint:           "https://search.example.com",
		APIKey:             "secret",
		IndexName:          "kb-index",
		SemanticConfigName: "default",
		VectorConfigName:   "vector-profile",
		Language:           "en",
		Dimensions:         1536,
		BatchSize:          50,
		ValidationRetries:  5,
		ValidationWait:     60 * time.Second,
	}
	if got != want {
		t.Errorf("indexConfig() = %+v, want %+v", got, want)
	}
}
