package chunker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/docintel"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/embedding"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/extract"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/ledger"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
	"github.com/zjiaksmc/gen-ai-knowledge-base/pkg/utils"
)

// Worker pool bounds. The pool size is caller-configured within this range.
const (
	MinWorkers = 1
	MaxWorkers = 32
)

// ErrInvalidConcurrency is returned when the worker count is outside [1, 32].
var ErrInvalidConcurrency = errors.New("worker concurrency must be between 1 and 32")

// TextExtractor extracts text from a local file.
type TextExtractor interface {
	Extract(path string) (string, error)
}

// Options configures a Chunker. Embedder, DocService, and Ledger are optional;
// when absent, embedding, remote extraction, and dedup are skipped
// respectively.
type Options struct {
	NumTokens    int
	TokenOverlap int
	Concurrency  int

	Tokenizer  Tokenizer // defaults to tiktoken DefaultEncoding
	Extractor  TextExtractor
	DocService docintel.Service
	Embedder   embedding.Embedder
	Ledger     ledger.Ledger
	Logger     *zap.Logger
}

// Chunker turns a source into a ChunkingResult using a bounded worker pool.
type Chunker struct {
	splitter    *Splitter
	extractor   TextExtractor
	docService  docintel.Service
	embedder    embedding.Embedder
	ledger      ledger.Ledger
	concurrency int
	logger      *zap.Logger
}

// New validates opts and returns a Chunker. Configuration errors (overlap,
// concurrency) are reported here, before any processing starts.
func New(opts Options) (*Chunker, error) {
	if opts.Concurrency < MinWorkers || opts.Concurrency > MaxWorkers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, opts.Concurrency)
	}
	tok := opts.Tokenizer
	if tok == nil {
		var err error
		tok, err = NewTiktokenTokenizer(DefaultEncoding)
		if err != nil {
			return nil, err
		}
	}
	splitter, err := NewSplitter(tok, opts.NumTokens, opts.TokenOverlap)
	if err != nil {
		return nil, err
	}
	extractor := opts.Extractor
	if extractor == nil {
		extractor = extract.NewExtractor()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{
		splitter:    splitter,
		extractor:   extractor,
		docService:  opts.DocService,
		embedder:    opts.Embedder,
		ledger:      opts.Ledger,
		concurrency: opts.Concurrency,
		logger:      logger,
	}, nil
}

// Chunk processes every file in source and returns the merged result.
// Files are distributed over the worker pool; each worker produces an
// independent per-file result, merged after the pool drains. Chunk order
// within a document is preserved; order across documents is not.
func (c *Chunker) Chunk(ctx context.Context, source Source) (*models.ChunkingResult, error) {
	pool, err := ants.NewPool(c.concurrency)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []*models.ChunkingResult
	)
	walkErr := source.Walk(ctx, func(ref FileRef) error {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			res := c.processFile(ctx, source, ref)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			return fmt.Errorf("submit file %s: %w", ref.RelPath, submitErr)
		}
		return nil
	})
	wg.Wait()
	if walkErr != nil {
		return nil, walkErr
	}

	merged := &models.ChunkingResult{}
	for _, res := range results {
		merged.Merge(res)
	}
	return merged, nil
}

// processFile runs the per-file pipeline: classify, stage, checksum, consult
// ledger, extract, split, embed. All failures are absorbed into counters; a
// single bad file never aborts the run.
func (c *Chunker) processFile(ctx context.Context, source Source, ref FileRef) *models.ChunkingResult {
	res := &models.ChunkingResult{TotalFiles: 1}

	if !extract.Supported(ref.RelPath) {
		c.logger.Debug("skipping unsupported format", zap.String("file", ref.RelPath))
		res.UnsupportedFormatFiles++
		return res
	}

	staged, err := source.Stage(ctx, ref)
	if err != nil {
		c.logger.Warn("staging failed", zap.String("file", ref.RelPath), zap.Error(err))
		res.FilesWithErrors++
		return res
	}
	defer source.Discard(staged)

	rec, err := models.NewIngestionRecord(ref.URL, staged)
	if err != nil {
		c.logger.Warn("checksum failed", zap.String("file", ref.RelPath), zap.Error(err))
		res.FilesWithErrors++
		return res
	}
	rec.ExtractionServiceChecksum = c.extractionChecksum()
	if c.embedder != nil {
		rec.EmbeddingServiceChecksum = c.embedder.Checksum()
	}

	text, cachedVectors, reused := c.consultLedger(ctx, rec)
	if !reused {
		text, err = c.extractText(ctx, staged)
		if err != nil {
			c.logger.Warn("extraction failed", zap.String("file", ref.RelPath), zap.Error(err))
			res.FilesWithErrors++
			rec.Status = models.StatusFailure
			rec.Error = utils.Truncate(err.Error(), 2048)
			c.upsertLedger(ctx, rec)
			return res
		}
	} else {
		res.FilesSkipped++
	}

	texts := c.splitter.Split(text)
	vectors, skipped := c.embedChunks(ctx, ref, texts, cachedVectors)
	res.SkippedChunks += skipped

	rec.Status = models.StatusSuccess
	rec.Error = ""
	rec.StructuredContent = text
	if c.embedder != nil {
		if payload, encErr := models.EncodeEmbeddings(vectors); encErr == nil {
			rec.Embedding = payload
		}
	}
	c.upsertLedger(ctx, rec)

	title := filepath.Base(ref.RelPath)
	for i, chunkText := range texts {
		if c.embedder != nil && vectors[i] == nil {
			continue // embedding failed for this chunk; already counted
		}
		doc := &models.Document{
			Title:    title,
			Content:  chunkText,
			Filepath: filepath.ToSlash(ref.RelPath),
			URL:      ref.URL,
			Metadata: map[string]interface{}{
				"chunk_index": i,
				"source_url":  ref.URL,
			},
		}
		if c.embedder != nil {
			doc.ContentVector = vectors[i]
		}
		res.Chunks = append(res.Chunks, doc)
	}
	return res
}

// consultLedger looks up (url, checksum) and, when a reusable record exists,
// returns the cached text and vectors. Ledger unavailability degrades to "no
// history": it is logged and ingestion continues.
func (c *Chunker) consultLedger(ctx context.Context, rec *models.IngestionRecord) (string, [][]float32, bool) {
	if c.ledger == nil {
		return "", nil, false
	}
	prev, err := c.ledger.Lookup(ctx, rec.URL, rec.Checksum)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			c.logger.Warn("ledger unavailable, no ingestion history", zap.Error(err))
		}
		return "", nil, false
	}
	if !ledger.Reusable(prev, rec.ExtractionServiceChecksum, rec.EmbeddingServiceChecksum, c.embedder != nil) {
		return "", nil, false
	}
	vectors, decErr := models.DecodeEmbeddings(prev.Embedding)
	if decErr != nil {
		c.logger.Warn("cached embeddings malformed, re-embedding", zap.String("url", rec.URL), zap.Error(decErr))
		vectors = nil
	}
	c.logger.Debug("reusing ingestion record", zap.String("url", rec.URL), zap.String("checksum", rec.Checksum))
	return prev.StructuredContent, vectors, true
}

func (c *Chunker) upsertLedger(ctx context.Context, rec *models.IngestionRecord) {
	if c.ledger == nil {
		return
	}
	if err := c.ledger.Upsert(ctx, rec); err != nil {
		c.logger.Warn("ledger unavailable, ingestion history not persisted", zap.Error(err))
	}
}

// extractText routes PDF through the remote extraction service when one is
// configured; everything else is parsed locally.
func (c *Chunker) extractText(ctx context.Context, staged string) (string, error) {
	if c.docService != nil && extract.NeedsDocumentService(staged) {
		content, err := os.ReadFile(staged)
		if err != nil {
			return "", fmt.Errorf("read staged file: %w", err)
		}
		return c.docService.Analyze(ctx, content, filepath.Base(staged))
	}
	return c.extractor.Extract(staged)
}

// embedChunks embeds each chunk individually, reusing cached vectors when
// their count matches. A per-chunk failure leaves a nil vector and increments
// the skipped count; it never aborts the file.
func (c *Chunker) embedChunks(ctx context.Context, ref FileRef, texts []string, cached [][]float32) ([][]float32, int) {
	if c.embedder == nil {
		return nil, 0
	}
	if len(cached) == len(texts) && len(cached) > 0 {
		// A cached set can carry nil holes where embedding failed on an
		// earlier run. Those chunks are re-embedded here so they reach the
		// index once the service recovers, instead of being dropped until
		// the document content changes.
		skipped := 0
		for i, vec := range cached {
			if vec != nil {
				continue
			}
			retried, err := c.embedder.Embed(ctx, texts[i])
			if err != nil {
				c.logger.Warn("embedding failed, skipping chunk",
					zap.String("file", ref.RelPath), zap.Int("chunk", i), zap.Error(err))
				skipped++
				continue
			}
			cached[i] = retried
		}
		return cached, skipped
	}
	vectors := make([][]float32, len(texts))
	skipped := 0
	for i, text := range texts {
		vec, err := c.embedder.Embed(ctx, text)
		if err != nil {
			c.logger.Warn("embedding failed, skipping chunk",
				zap.String("file", ref.RelPath), zap.Int("chunk", i), zap.Error(err))
			skipped++
			continue
		}
		vectors[i] = vec
	}
	return vectors, skipped
}

func (c *Chunker) extractionChecksum() string {
	if c.docService != nil {
		return c.docService.Checksum()
	}
	return models.ServiceChecksum("local-extractor")
}
