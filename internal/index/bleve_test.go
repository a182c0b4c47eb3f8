package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestBleveIndex(t *testing.T, path string) Index {
	t.Helper()
	idx, err := New(Config{
		Kind:              KindBleve,
		Path:              path,
		ValidationRetries: 2,
		ValidationWait:    time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func TestBleveSchemaCreateThenReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.bleve")
	ctx := context.Background()

	idx := newTestBleveIndex(t, path)
	result, err := idx.EnsureSchema(ctx)
	if err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if result != SchemaCreated {
		t.Errorf("result = %v, want created", result)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := newTestBleveIndex(t, path)
	defer reopened.Close()
	result, err = reopened.EnsureSchema(ctx)
	if err != nil {
		t.Fatalf("EnsureSchema reopen: %v", err)
	}
	if result != SchemaUpdated {
		t.Errorf("reopen result = %v, want updated", result)
	}
}

func TestBleveUploadAndValidate(t *testing.T) {
	ctx := context.Background()
	idx := newTestBleveIndex(t, filepath.Join(t.TempDir(), "kb.bleve"))
	defer idx.Close()
	if _, err := idx.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	if err := idx.UploadBatch(ctx, makeDocs(7)); err != nil {
		t.Fatalf("UploadBatch: %v", err)
	}
	report := idx.Validate(ctx)
	if report.Status != ValidationPopulated {
		t.Fatalf("status = %v (%s), want populated", report.Status, report.Message)
	}
	if report.DocumentCount != 7 {
		t.Errorf("DocumentCount = %d, want 7", report.DocumentCount)
	}
}

func TestBleveValidateEmpty(t *testing.T) {
	ctx := context.Background()
	idx := newTestBleveIndex(t, filepath.Join(t.TempDir(), "kb.bleve"))
	defer idx.Close()
	if _, err := idx.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	report := idx.Validate(ctx)
	if report.Status != ValidationEmpty {
		t.Errorf("status = %v, want empty", report.Status)
	}
	if report.Polls != 2 {
		t.Errorf("polls = %d, want 2", report.Polls)
	}
}

func TestBleveUploadBeforeSchema(t *testing.T) {
	idx := newTestBleveIndex(t, filepath.Join(t.TempDir(), "kb.bleve"))
	defer idx.Close()
	if err := idx.UploadBatch(context.Background(), makeDocs(1)); err == nil {
		t.Fatal("upload before EnsureSchema must fail")
	}
}
