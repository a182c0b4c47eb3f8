package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"go.uber.org/zap"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// bleveIndex is an embedded on-disk index for local and air-gapped runs. It
// indexes the text fields only; embeddings are not stored.
type bleveIndex struct {
	cfg    Config
	index  bleve.Index
	logger *zap.Logger
}

func newBleveIndex(cfg Config, logger *zap.Logger) (*bleveIndex, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("bleve index: path is required")
	}
	return &bleveIndex{cfg: cfg, logger: logger}, nil
}

// EnsureSchema creates the index directory with the document mapping, or
// opens an existing one. Changing the mapping requires removing the index
// directory to force a rebuild.
func (b *bleveIndex) EnsureSchema(ctx context.Context) (SchemaResult, error) {
	if b.index != nil {
		return SchemaUpdated, nil
	}

	if _, err := os.Stat(b.cfg.Path); err == nil {
		idx, openErr := bleve.Open(b.cfg.Path)
		if openErr != nil {
			return 0, fmt.Errorf("open index: %w", openErr)
		}
		b.index = idx
		b.logger.Info("opened existing local index", zap.String("path", b.cfg.Path))
		return SchemaUpdated, nil
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase + tokenize, no stemming
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("filepath", textFieldMapping)
	docMapping.AddFieldMappingsAt("url", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	idx, err := bleve.New(b.cfg.Path, im)
	if err != nil {
		return 0, fmt.Errorf("create index: %w", err)
	}
	b.index = idx
	b.logger.Info("created local index", zap.String("path", b.cfg.Path))
	return SchemaCreated, nil
}

// indexedDoc is the stored form of a chunk. Embeddings are dropped here.
type indexedDoc struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Filepath string `json:"filepath"`
	URL      string `json:"url"`
	Metadata string `json:"metadata"`
}

// UploadBatch indexes documents in fixed-size batches with sequential ids.
func (b *bleveIndex) UploadBatch(ctx context.Context, docs []*models.Document) error {
	if b.index == nil {
		return fmt.Errorf("upload: schema not ensured")
	}

	uploadErr := newUploadError()
	for start := 0; start < len(docs); start += b.cfg.BatchSize {
		end := start + b.cfg.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := b.index.NewBatch()
		for i := start; i < end; i++ {
			doc := docs[i]
			metadata := ""
			if doc.Metadata != nil {
				if encoded, err := json.Marshal(doc.Metadata); err == nil {
					metadata = string(encoded)
				}
			}
			id := strconv.Itoa(i)
			if err := batch.Index(id, indexedDoc{
				ID:       id,
				Title:    doc.Title,
				Content:  doc.Content,
				Filepath: doc.Filepath,
				URL:      doc.URL,
				Metadata: metadata,
			}); err != nil {
				uploadErr.add(err.Error())
			}
		}
		if err := b.index.Batch(batch); err != nil {
			return fmt.Errorf("index batch: %w", err)
		}
	}
	if uploadErr.Failures > 0 {
		return uploadErr
	}
	return nil
}

// Validate reads the document count, polling while the index stays empty.
func (b *bleveIndex) Validate(ctx context.Context) *ValidationReport {
	report := &ValidationReport{}
	if b.index == nil {
		report.Status = ValidationNotFound
		report.Message = "index not opened"
		return report
	}
	for attempt := 0; attempt < b.cfg.ValidationRetries; attempt++ {
		report.Polls = attempt + 1
		count, err := b.index.DocCount()
		if err != nil {
			report.Status = ValidationUnavailable
			report.Message = err.Error()
			return report
		}
		if count > 0 {
			report.Status = ValidationPopulated
			report.DocumentCount = int64(count)
			return report
		}
		if attempt < b.cfg.ValidationRetries-1 {
			select {
			case <-ctx.Done():
				report.Status = ValidationUnavailable
				report.Message = ctx.Err().Error()
				return report
			case <-time.After(b.cfg.ValidationWait):
			}
		}
	}
	report.Status = ValidationEmpty
	report.Message = "index is still empty, investigate and re-index"
	return report
}

func (b *bleveIndex) Close() error {
	if b.index == nil {
		return nil
	}
	return b.index.Close()
}
