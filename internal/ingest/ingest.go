// Package ingest coordinates a full ingestion run: schema reconciliation,
// chunking, batched upload, and index validation.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/chunker"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/index"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// Retrieval strategies. Only the proprietary search strategy needs a local
// ingestion run; everything else short-circuits to a no-op success.
const (
	RetrievalProprietarySearch = "PROPRIETARY_SEARCH"
	RetrievalWebSearch         = "WEB_SEARCH"
)

// ErrNoChunks means the run produced an empty chunk set, which signals a
// data-path or chunk-size misconfiguration rather than a legitimate empty
// corpus.
var ErrNoChunks = errors.New("no chunks found, check the data path and chunk size")

// State tracks how far a run progressed.
type State int

const (
	StateConfigured State = iota
	StateSchemaReady
	StateChunked
	StateUploaded
	StateValidated
	StateSkipped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateSchemaReady:
		return "schema-ready"
	case StateChunked:
		return "chunked"
	case StateUploaded:
		return "uploaded"
	case StateValidated:
		return "validated"
	case StateSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Stats is the aggregate outcome of a run, emitted on success and failure
// alike.
type Stats struct {
	State      State
	Schema     index.SchemaResult
	Chunking   *models.ChunkingResult
	Validation *index.ValidationReport
}

// Chunker produces the chunk set for a source. Satisfied by
// *chunker.Chunker.
type Chunker interface {
	Chunk(ctx context.Context, source chunker.Source) (*models.ChunkingResult, error)
}

// Options configures an Orchestrator.
type Options struct {
	Language      string
	RetrievalType string

	Chunker Chunker
	Index   index.Index
	Logger  *zap.Logger
}

// Orchestrator drives one ingestion run end to end.
type Orchestrator struct {
	language      string
	retrievalType string
	chunker       Chunker
	index         index.Index
	logger        *zap.Logger
}

// New validates the run configuration and returns an Orchestrator. An
// unsupported language is rejected here, before any network or filesystem
// work.
func New(opts Options) (*Orchestrator, error) {
	if err := ValidateLanguage(opts.Language); err != nil {
		return nil, err
	}
	if opts.RetrievalType == "" {
		opts.RetrievalType = RetrievalProprietarySearch
	}
	if opts.RetrievalType == RetrievalProprietarySearch {
		if opts.Chunker == nil {
			return nil, fmt.Errorf("ingest: chunker is required")
		}
		if opts.Index == nil {
			return nil, fmt.Errorf("ingest: index is required")
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		language:      opts.Language,
		retrievalType: opts.RetrievalType,
		chunker:       opts.Chunker,
		index:         opts.Index,
		logger:        logger,
	}, nil
}

// Run executes schema-ensure, chunking, upload, and validation against
// source. Stats are populated on every return path. Schema, empty-chunk-set,
// and upload failures are fatal; a non-populated validation is logged as a
// warning only.
func (o *Orchestrator) Run(ctx context.Context, source chunker.Source) (*Stats, error) {
	stats := &Stats{State: StateConfigured}

	if o.retrievalType != RetrievalProprietarySearch {
		o.logger.Info("no ingestion needed for retrieval type",
			zap.String("retrieval_type", o.retrievalType))
		stats.State = StateSkipped
		return stats, nil
	}

	schema, err := o.index.EnsureSchema(ctx)
	if err != nil {
		stats.State = StateFailed
		return stats, fmt.Errorf("ensure index schema: %w", err)
	}
	stats.State = StateSchemaReady
	stats.Schema = schema

	o.logger.Info("chunking source")
	result, err := o.chunker.Chunk(ctx, source)
	if err != nil {
		stats.State = StateFailed
		return stats, fmt.Errorf("chunk source: %w", err)
	}
	stats.Chunking = result
	o.logStats(result)
	if len(result.Chunks) == 0 {
		stats.State = StateFailed
		return stats, ErrNoChunks
	}
	stats.State = StateChunked

	o.logger.Info("uploading documents to index", zap.Int("chunks", len(result.Chunks)))
	if err := o.index.UploadBatch(ctx, result.Chunks); err != nil {
		stats.State = StateFailed
		return stats, fmt.Errorf("upload documents: %w", err)
	}
	stats.State = StateUploaded

	o.logger.Info("validating index")
	report := o.index.Validate(ctx)
	stats.Validation = report
	if !report.OK() {
		o.logger.Warn("index validation did not confirm a populated index",
			zap.String("status", report.Status.String()),
			zap.Int("polls", report.Polls),
			zap.String("message", report.Message))
	}
	stats.State = StateValidated
	return stats, nil
}

func (o *Orchestrator) logStats(result *models.ChunkingResult) {
	o.logger.Info("chunking finished",
		zap.Int("total_files", result.TotalFiles),
		zap.Int("unsupported_format_files", result.UnsupportedFormatFiles),
		zap.Int("files_with_errors", result.FilesWithErrors),
		zap.Int("files_skipped", result.FilesSkipped),
		zap.Int("skipped_chunks", result.SkippedChunks),
		zap.Int("chunks", len(result.Chunks)))
}
