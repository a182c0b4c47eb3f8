package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/index"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/ingest"
	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/models"
)

func sampleStats() *ingest.Stats {
	return &ingest.Stats{
		State:  ingest.StateValidated,
		Schema: index.SchemaCreated,
		Chunking: &models.ChunkingResult{
			Chunks:                 []*models.Document{{Content: "a"}, {Content: "b"}},
			TotalFiles:             3,
			UnsupportedFormatFiles: 1,
		},
		Validation: &index.ValidationReport{
			Status:        index.ValidationPopulated,
			DocumentCount: 2,
			Polls:         1,
		},
	}
}

func TestWriteRunReportText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, sampleStats(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"state \"validated\"",
		"Processed 3 files",
		"Unsupported formats: 1 files",
		"Found 2 chunks",
		"Validation: populated (2 documents)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteRunReportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRunReport(&buf, sampleStats(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var report map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if report["state"] != "validated" {
		t.Errorf("state = %v", report["state"])
	}
	if report["total_files"] != float64(3) {
		t.Errorf("total_files = %v", report["total_files"])
	}
	if report["validation_status"] != "populated" {
		t.Errorf("validation_status = %v", report["validation_status"])
	}
}

func TestWriteRunReportSkipped(t *testing.T) {
	var buf bytes.Buffer
	stats := &ingest.Stats{State: ingest.StateSkipped}
	if err := WriteRunReport(&buf, stats, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No ingestion needed") {
		t.Errorf("skipped report unexpected:\n%s", buf.String())
	}
}
