// Package cli provides CLI output formatting for ingestion runs.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/zjiaksmc/gen-ai-knowledge-base/internal/ingest"
)

// OutputFormat is the format for run report output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// runReport is the JSON shape of a run report.
type runReport struct {
	State                  string `json:"state"`
	Schema                 string `json:"schema,omitempty"`
	TotalFiles             int    `json:"total_files"`
	UnsupportedFormatFiles int    `json:"unsupported_format_files"`
	FilesWithErrors        int    `json:"files_with_errors"`
	FilesSkipped           int    `json:"files_skipped"`
	SkippedChunks          int    `json:"skipped_chunks"`
	Chunks                 int    `json:"chunks"`
	ValidationStatus       string `json:"validation_status,omitempty"`
	ValidationDocuments    int64  `json:"validation_documents,omitempty"`
	ValidationMessage      string `json:"validation_message,omitempty"`
}

// WriteRunReport writes the outcome of an ingestion run to w in the given
// format. Use OutputJSON for parseable output consumable by other tooling.
func WriteRunReport(w io.Writer, stats *ingest.Stats, format OutputFormat) error {
	report := runReport{State: stats.State.String()}
	if stats.State != ingest.StateConfigured && stats.State != ingest.StateSkipped {
		report.Schema = stats.Schema.String()
	}
	if stats.Chunking != nil {
		report.TotalFiles = stats.Chunking.TotalFiles
		report.UnsupportedFormatFiles = stats.Chunking.UnsupportedFormatFiles
		report.FilesWithErrors = stats.Chunking.FilesWithErrors
		report.FilesSkipped = stats.Chunking.FilesSkipped
		report.SkippedChunks = stats.Chunking.SkippedChunks
		report.Chunks = len(stats.Chunking.Chunks)
	}
	if stats.Validation != nil {
		report.ValidationStatus = stats.Validation.Status.String()
		report.ValidationDocuments = stats.Validation.DocumentCount
		report.ValidationMessage = stats.Validation.Message
	}

	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		writeRunReportText(w, stats, &report)
		return nil
	}
}

func writeRunReportText(w io.Writer, stats *ingest.Stats, report *runReport) {
	fmt.Fprintf(w, "\nRun finished in state %q\n", report.State)
	if stats.State == ingest.StateSkipped {
		fmt.Fprintln(w, "No ingestion needed for the configured retrieval type.")
		return
	}
	if stats.Chunking != nil {
		fmt.Fprintf(w, "Processed %d files\n", report.TotalFiles)
		fmt.Fprintf(w, "Unsupported formats: %d files\n", report.UnsupportedFormatFiles)
		fmt.Fprintf(w, "Files with errors: %d files\n", report.FilesWithErrors)
		if report.FilesSkipped > 0 {
			fmt.Fprintf(w, "Unchanged (skipped): %d files\n", report.FilesSkipped)
		}
		if report.SkippedChunks > 0 {
			fmt.Fprintf(w, "Chunks without embeddings: %d\n", report.SkippedChunks)
		}
		fmt.Fprintf(w, "Found %d chunks\n", report.Chunks)
	}
	if stats.Validation != nil {
		fmt.Fprintf(w, "Validation: %s", report.ValidationStatus)
		if report.ValidationDocuments > 0 {
			fmt.Fprintf(w, " (%d documents)", report.ValidationDocuments)
		}
		if report.ValidationMessage != "" {
			fmt.Fprintf(w, " - %s", report.ValidationMessage)
		}
		fmt.Fprintln(w)
	}
}
