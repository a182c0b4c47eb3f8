// Package main is the akb (AI knowledge base) CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/cache"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/chunker"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/cli"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/config"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/docintel"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/embedding"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/index"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/ingest"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/ledger"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/watcher"
	"github.com/zjiaksmc/gen-ai-knowledge-base/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/akb/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ingest":
		runIngest()
	case "validate":
		runValidate()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("akb version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`akb - document ingestion and indexing pipeline

Usage:
  akb <command> [flags]

Commands:
  ingest      Run one ingestion pass: ensure schema, chunk, upload, validate
  validate    Check an existing index without ingesting
  watch       Ingest, then re-ingest whenever the data path changes
  version     Print version
  help        Print this help

Common flags:
  -config string   config file path (default ` + defaultConfigPath + `)
  -debug           enable debug logging`)
}

// setup loads configuration and builds the logger shared by all commands.
func setup(fs *flag.FlagSet) (*config.Config, *zap.Logger, cli.OutputFormat) {
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	workers := fs.Int("workers", 0, "worker pool size (1-32, overrides config)")
	jsonOut := fs.Bool("json", false, "print the run report as JSON")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workers != 0 {
		cfg.Ingestion.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedPath),
		zap.Bool("debug", debugMode),
	)
	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}
	return cfg, logger, format
}

// components holds the wired pipeline pieces for one process.
type components struct {
	Ledger       ledger.Ledger
	Cache        cache.Cache
	Index        index.Index
	Chunker      *chunker.Chunker
	Orchestrator *ingest.Orchestrator
}

func (c *components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Ledger != nil {
		_ = c.Ledger.Close()
	}
}

// indexConfig maps the file config onto the index backend config.
func indexConfig(cfg *config.Config) index.Config {
	return index.Config{
		Kind:               cfg.Index.Kind,
		Endpoint:           cfg.Index.Endpoint,
		APIKey:             cfg.Index.APIKey,
		APIVersion:         cfg.Index.APIVersion,
		IndexName:          cfg.Index.Name,
		SemanticConfigName: cfg.Index.SemanticConfigName,
		VectorConfigName:   cfg.Index.VectorConfigName,
		Language:           cfg.Ingestion.Language,
		Dimensions:         cfg.Embedding.Dimensions,
		ConnectionString:   cfg.Index.ConnectionString,
		DatabaseName:       cfg.Index.DatabaseName,
		CollectionName:     cfg.Index.CollectionName,
		VectorField:        cfg.Index.VectorField,
		Path:               cfg.Index.Path,
		BatchSize:          cfg.Index.BatchSize,
		ValidationRetries:  cfg.Index.ValidationRetries,
		ValidationWait:     time.Duration(cfg.Index.ValidationWaitSecs) * time.Second,
	}
}

// initializeComponents wires the ledger, cache, service clients, chunker,
// index backend, and orchestrator from cfg.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*components, error) {
	c := &components{}

	led, err := ledger.NewSQLiteLedger(cfg.Ledger.DatabasePath)
	if err != nil {
		// A dead ledger store only costs the dedup optimization.
		logger.Warn("ledger unavailable, ingestion history disabled", zap.Error(err))
	} else {
		c.Ledger = led
	}

	c.Cache = cache.New(ctx, cfg.Cache.RedisURL, logger)

	var docService docintel.Service
	if cfg.Extraction.Endpoint != "" {
		opts := []docintel.ClientOption{}
		if cfg.Extraction.APIVersion != "" {
			opts = append(opts, docintel.WithAPIVersion(cfg.Extraction.APIVersion))
		}
		docService, err = docintel.NewClient(
			cfg.Extraction.Endpoint, cfg.Extraction.APIKey, docintel.Mode(cfg.Extraction.Mode), opts...)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("document extraction client: %w", err)
		}
	}

	var embedder embedding.Embedder
	if cfg.Embedding.Endpoint != "" {
		opts := []embedding.ClientOption{
			embedding.WithCache(c.Cache, time.Duration(cfg.Cache.TTLSeconds)*time.Second),
		}
		if cfg.Embedding.APIVersion != "" {
			opts = append(opts, embedding.WithAPIVersion(cfg.Embedding.APIVersion))
		}
		if cfg.Embedding.RequestsPerSecond > 0 {
			opts = append(opts, embedding.WithRateLimit(cfg.Embedding.RequestsPerSecond))
		}
		client, err := embedding.NewClient(
			cfg.Embedding.Endpoint, cfg.Embedding.APIKey, cfg.Embedding.Deployment,
			cfg.Embedding.Dimensions, opts...)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("embedding client: %w", err)
		}
		embedder = client
	}

	idx, err := index.New(indexConfig(cfg), logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("index backend: %w", err)
	}
	c.Index = idx

	chk, err := chunker.New(chunker.Options{
		NumTokens:    cfg.Ingestion.ChunkSize,
		TokenOverlap: cfg.Ingestion.TokenOverlap,
		Concurrency:  cfg.Ingestion.Workers,
		DocService:   docService,
		Embedder:     embedder,
		Ledger:       c.Ledger,
		Logger:       logger,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("chunker: %w", err)
	}
	c.Chunker = chk

	orchestrator, err := ingest.New(ingest.Options{
		Language:      cfg.Ingestion.Language,
		RetrievalType: cfg.Ingestion.RetrievalType,
		Chunker:       chk,
		Index:         idx,
		Logger:        logger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Orchestrator = orchestrator
	return c, nil
}

// runOnce resolves the source and executes one full ingestion run.
func runOnce(ctx context.Context, cfg *config.Config, c *components, logger *zap.Logger, format cli.OutputFormat) error {
	source, err := chunker.Resolve(
		cfg.Ingestion.DataPath, cfg.Ingestion.StagingPath, cfg.Ingestion.URLPrefix)
	if err != nil {
		return err
	}
	stats, err := c.Orchestrator.Run(ctx, source)
	_ = cli.WriteRunReport(os.Stdout, stats, format)
	if err != nil {
		logger.Error("ingestion failed",
			zap.String("state", stats.State.String()), zap.Error(err))
		return err
	}
	logger.Info("ingestion finished", zap.String("state", stats.State.String()))
	return nil
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	cfg, logger, format := setup(fs)
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	if err := runOnce(ctx, cfg, c, logger, format); err != nil {
		os.Exit(1)
	}
}

func runValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfg, logger, _ := setup(fs)
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	idx, err := index.New(indexConfig(cfg), logger)
	if err != nil {
		logger.Fatal("Failed to initialize index backend", zap.Error(err))
	}
	defer idx.Close()

	if cfg.Index.Kind == index.KindBleve {
		// The embedded index must be opened before stats can be read.
		if _, err := idx.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to open index", zap.Error(err))
		}
	}

	report := idx.Validate(ctx)
	fmt.Printf("status: %s\n", report.Status)
	fmt.Printf("documents: %d\n", report.DocumentCount)
	if report.DocumentCount > 0 && report.StorageSize > 0 {
		fmt.Printf("average chunk size: %d bytes\n", report.AverageChunkSize())
	}
	if report.Message != "" {
		fmt.Printf("message: %s\n", report.Message)
	}
	if !report.OK() {
		os.Exit(1)
	}
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfg, logger, format := setup(fs)
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	if err := runOnce(ctx, cfg, c, logger, format); err != nil {
		os.Exit(1)
	}

	// Runs are serialized; a change arriving mid-run queues at the mutex and
	// re-ingests with fresh checksums afterwards.
	var runMu sync.Mutex
	trigger := func() {
		runMu.Lock()
		defer runMu.Unlock()
		if err := runOnce(ctx, cfg, c, logger, format); err != nil {
			logger.Error("re-ingestion failed", zap.Error(err))
		}
	}

	watchOpts := []watcher.Option{
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceSeconds) * time.Second),
	}
	w := watcher.New(cfg.Ingestion.DataPath, cfg.Watch.Extensions, trigger, watchOpts...)
	if err := w.Start(ctx); err != nil {
		logger.Fatal("Failed to start watch", zap.Error(err))
	}
	defer w.Stop()

	logger.Info("watching for changes", zap.String("data_path", cfg.Ingestion.DataPath))
	<-ctx.Done()
	logger.Info("shutting down")
}

// signalContext returns a context cancelled by SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
