// Package extract provides file-format classification and local text
// extraction for formats that do not need the remote extraction service.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file formats the pipeline does not
// ingest. Callers count these files and skip them; it is not a failure.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// supportedFormats maps ingestable extensions (lowercase, with dot) to the
// extraction path used for them.
var supportedFormats = map[string]bool{
	".txt":  true,
	".md":   true,
	".rst":  true,
	".json": true,
	".csv":  true,
	".py":   true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
	".pptx": true,
	".xlsx": true,
}

// Supported reports whether the file at path has an ingestable format.
func Supported(path string) bool {
	return supportedFormats[strings.ToLower(filepath.Ext(path))]
}

// NeedsDocumentService reports whether the format should go through the remote
// extraction service (OCR / layout analysis) when one is configured. PDF is
// the only such format; everything else is parsed locally.
func NeedsDocumentService(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf"
}

// Extractor extracts plain text (or HTML for spreadsheets) from local files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
// Spreadsheets are rendered as HTML tables so structure survives chunking.
// Returns ErrUnsupportedFormat for formats outside the supported set.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedFormats[ext] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext must include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".pptx":
		return extractPPTX(content)
	case ".xlsx":
		return spreadsheetToHTML(content)
	case ".html", ".htm":
		return extractHTML(content)
	case ".txt", ".md", ".rst", ".json", ".csv", ".py":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}
