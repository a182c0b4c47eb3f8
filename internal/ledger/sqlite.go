// Package ledger: SQLite implementation of the Ledger interface.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

// SQLiteLedger implements Ledger using SQLite. The unique index on
// (url, checksum) makes Upsert an atomic insert-or-update at the storage layer,
// safe under concurrent upserts from independent chunking workers.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens or creates the ledger database at dbPath and
// initializes the schema. Parent directories are created if missing.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	// Serialize writers instead of failing fast when workers collide.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS document_ingestion (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		checksum TEXT NOT NULL,
		size INTEGER,
		staging_path TEXT,
		extraction_service_checksum TEXT,
		structured_content TEXT,
		embedding_service_checksum TEXT,
		embedding TEXT,
		status TEXT,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_document_ingestion_url_checksum
		ON document_ingestion(url, checksum);
	`
	_, err := db.Exec(schema)
	return err
}

// Lookup returns the record for (url, checksum).
func (l *SQLiteLedger) Lookup(ctx context.Context, url, checksum string) (*models.IngestionRecord, error) {
	var rec models.IngestionRecord
	var updatedAt sql.NullTime
	err := l.db.QueryRowContext(ctx,
		`SELECT url, checksum, size, staging_path,
		        extraction_service_checksum, structured_content,
		        embedding_service_checksum, embedding,
		        status, error, created_at, updated_at
		 FROM document_ingestion WHERE url = ? AND checksum = ?`,
		url, checksum,
	).Scan(
		&rec.URL, &rec.Checksum, &rec.Size, &rec.StagingPath,
		&rec.ExtractionServiceChecksum, &rec.StructuredContent,
		&rec.EmbeddingServiceChecksum, &rec.Embedding,
		&rec.Status, &rec.Error, &rec.CreatedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup: %v", ErrUnavailable, err)
	}
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}
	return &rec, nil
}

// Upsert inserts the record or, on (url, checksum) conflict, overwrites the
// mutable fields. created_at is kept from the original row on conflict.
func (l *SQLiteLedger) Upsert(ctx context.Context, rec *models.IngestionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO document_ingestion (
			url, checksum, size, staging_path,
			extraction_service_checksum, structured_content,
			embedding_service_checksum, embedding,
			status, error, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url, checksum) DO UPDATE SET
			size = excluded.size,
			staging_path = excluded.staging_path,
			extraction_service_checksum = excluded.extraction_service_checksum,
			structured_content = excluded.structured_content,
			embedding_service_checksum = excluded.embedding_service_checksum,
			embedding = excluded.embedding,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at`,
		rec.URL, rec.Checksum, rec.Size, rec.StagingPath,
		rec.ExtractionServiceChecksum, rec.StructuredContent,
		rec.EmbeddingServiceChecksum, rec.Embedding,
		rec.Status, rec.Error, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrUnavailable, err)
	}
	return nil
}

// Count returns the total number of ingestion records.
func (l *SQLiteLedger) Count(ctx context.Context) (int64, error) {
	var count int64
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_ingestion`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
