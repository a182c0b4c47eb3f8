package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	l, err := NewSQLiteLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteLedger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func testRecord(url, checksum string) *models.IngestionRecord {
	return &models.IngestionRecord{
		URL:         url,
		Checksum:    checksum,
		Size:        42,
		StagingPath: "/tmp/staged/a.txt",
		Status:      models.StatusSuccess,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestLookupAbsent(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Lookup(context.Background(), "https://x/a", "abc")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertThenLookup(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := testRecord("https://x/a", "abc")
	rec.StructuredContent = "extracted text"
	if err := l.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := l.Lookup(ctx, "https://x/a", "abc")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.StructuredContent != "extracted text" || got.Size != 42 {
		t.Errorf("got = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at should be set")
	}
}

func TestUpsertIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	rec := testRecord("https://x/a", "abc")
	rec.Status = models.StatusFailure
	rec.Error = "extraction timed out"
	if err := l.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Status = models.StatusSuccess
	rec.Error = ""
	rec.StructuredContent = "second pass content"
	if err := l.Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}

	count, err := l.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want exactly 1", count)
	}
	got, err := l.Lookup(ctx, "https://x/a", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusSuccess || got.Error != "" || got.StructuredContent != "second pass content" {
		t.Errorf("latest field values not stored: %+v", got)
	}
}

func TestNewChecksumIsNewRecord(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	if err := l.Upsert(ctx, testRecord("https://x/a", "v1")); err != nil {
		t.Fatal(err)
	}
	if err := l.Upsert(ctx, testRecord("https://x/a", "v2")); err != nil {
		t.Fatal(err)
	}
	count, err := l.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("row count = %d, want 2 (append-mostly log, not URL-keyed cache)", count)
	}
	// The old version remains visible.
	if _, err := l.Lookup(ctx, "https://x/a", "v1"); err != nil {
		t.Errorf("old record should remain: %v", err)
	}
}

func TestConcurrentUpsert(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := testRecord("https://x/shared", "same")
			if err := l.Upsert(ctx, rec); err != nil {
				t.Errorf("concurrent Upsert: %v", err)
			}
		}()
	}
	wg.Wait()
	count, err := l.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1 after concurrent upserts of same key", count)
	}
}

func TestReusable(t *testing.T) {
	base := &models.IngestionRecord{
		Status:                    models.StatusSuccess,
		ExtractionServiceChecksum: "ext1",
		StructuredContent:         "text",
		EmbeddingServiceChecksum:  "emb1",
		Embedding:                 "[[0.1]]",
	}
	if !Reusable(base, "ext1", "emb1", true) {
		t.Error("matching record should be reusable")
	}
	if !Reusable(base, "ext1", "", false) {
		t.Error("embedding checksum should be ignored when embeddings not requested")
	}
	if Reusable(base, "ext2", "emb1", true) {
		t.Error("changed extraction service should invalidate")
	}
	if Reusable(base, "ext1", "emb2", true) {
		t.Error("changed embedding service should invalidate when embeddings requested")
	}
	failed := *base
	failed.Status = models.StatusFailure
	if Reusable(&failed, "ext1", "emb1", true) {
		t.Error("failed record should not be reusable")
	}
	if Reusable(nil, "ext1", "emb1", true) {
		t.Error("nil record should not be reusable")
	}
}
