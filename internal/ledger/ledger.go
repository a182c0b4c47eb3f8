// Package ledger provides the checksum-keyed record of previously ingested
// documents used to skip redundant extraction and embedding work.
package ledger

import (
	"context"
	"errors"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

var (
	// ErrNotFound is returned by Lookup when no record exists for (url, checksum).
	ErrNotFound = errors.New("ingestion record not found")

	// ErrUnavailable is returned when the backing store cannot be reached.
	// Callers treat it as "no history available" and continue without dedup.
	ErrUnavailable = errors.New("ledger store unavailable")
)

// Ledger persists ingestion records keyed by the unique (url, checksum) pair.
type Ledger interface {
	// Lookup returns the record for (url, checksum), ErrNotFound when absent,
	// or ErrUnavailable when the store cannot be reached.
	Lookup(ctx context.Context, url, checksum string) (*models.IngestionRecord, error)

	// Upsert inserts the record, or on (url, checksum) conflict overwrites the
	// mutable fields only. The identity fields are never changed.
	Upsert(ctx context.Context, rec *models.IngestionRecord) error

	Close() error
}

// Reusable reports whether a looked-up record allows skipping extraction (and,
// when embeddings are requested, embedding) for an unchanged document.
func Reusable(rec *models.IngestionRecord, extractionChecksum, embeddingChecksum string, wantEmbeddings bool) bool {
	if rec == nil || rec.Status != models.StatusSuccess {
		return false
	}
	if rec.ExtractionServiceChecksum != extractionChecksum || rec.StructuredContent == "" {
		return false
	}
	if wantEmbeddings {
		if rec.EmbeddingServiceChecksum != embeddingChecksum || rec.Embedding == "" {
			return false
		}
	}
	return true
}
