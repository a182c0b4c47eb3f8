// Package models defines core data structures for documents, chunking results,
// and ledger ingestion records.
package models

import "time"

// Document is a single searchable chunk produced by the chunker and uploaded to
// the index. The ID is assigned sequentially at upload time, not at creation.
type Document struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Content       string                 `json:"content"`
	Filepath      string                 `json:"filepath"`
	URL           string                 `json:"url"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	ContentVector []float32              `json:"contentVector,omitempty"`
}

// ChunkingResult is the aggregate output of one chunking run.
type ChunkingResult struct {
	Chunks                 []*Document
	TotalFiles             int
	UnsupportedFormatFiles int
	FilesWithErrors        int
	FilesSkipped           int
	SkippedChunks          int
}

// Merge folds another result's chunks and counters into r.
// Chunk order within a single source document is preserved because each
// per-file result carries its own chunks in document order.
func (r *ChunkingResult) Merge(other *ChunkingResult) {
	r.Chunks = append(r.Chunks, other.Chunks...)
	r.TotalFiles += other.TotalFiles
	r.UnsupportedFormatFiles += other.UnsupportedFormatFiles
	r.FilesWithErrors += other.FilesWithErrors
	r.FilesSkipped += other.FilesSkipped
	r.SkippedChunks += other.SkippedChunks
}

// Ingestion record status values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// IngestionRecord is one ledger row per (URL, checksum) pair. A new checksum for
// the same URL is a new record, never an update to the old one.
type IngestionRecord struct {
	URL                       string
	Checksum                  string
	Size                      int64
	StagingPath               string
	ExtractionServiceChecksum string
	StructuredContent         string
	EmbeddingServiceChecksum  string
	Embedding                 string
	Status                    string
	Error                     string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}
