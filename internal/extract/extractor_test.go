package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSupported(t *testing.T) {
	cases := map[string]bool{
		"notes.txt":    true,
		"README.md":    true,
		"page.HTML":    true,
		"report.pdf":   true,
		"deck.pptx":    true,
		"sheet.xlsx":   true,
		"image.png":    false,
		"archive.bin":  false,
		"binary":       false,
		"program.exe":  false,
	}
	for name, want := range cases {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNeedsDocumentService(t *testing.T) {
	if !NeedsDocumentService("scan.pdf") {
		t.Error("PDF should route through the document service")
	}
	if NeedsDocumentService("notes.txt") {
		t.Error("plain text should not route through the document service")
	}
}

func TestExtractUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte{0x00, 0x01}, 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewExtractor().Extract(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractPlain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("plain content here"), 0644); err != nil {
		t.Fatal(err)
	}
	text, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "plain content here" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractHTML(t *testing.T) {
	html := `<html><head><style>body{color:red}</style></head>
<body><h1>Title</h1><p>First &amp; second.</p><script>alert(1)</script></body></html>`
	text, err := NewExtractor().ExtractBytes([]byte(html), ".html")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !strings.Contains(text, "Title") || !strings.Contains(text, "First & second.") {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Errorf("script/style content leaked: %q", text)
	}
}

func TestExtractDOCX(t *testing.T) {
	docXML := `<?xml version="1.0"?><w:document><w:body>
<w:p w:rsidR="00A"><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve">from docx</w:t></w:r></w:p>
</w:body></w:document>`
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(docXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	text, err := NewExtractor().ExtractBytes(buf.Bytes(), ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if text != "Hello from docx" {
		t.Errorf("text = %q, want %q", text, "Hello from docx")
	}
}

func TestSpreadsheetToHTML(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetCellValue("Sheet1", "A1", "Region"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B1", "Revenue"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "A2", "EMEA"); err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellValue("Sheet1", "B2", 1200); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	html, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !strings.Contains(html, "<h1>Sheet1</h1>") {
		t.Errorf("sheet heading missing: %q", html)
	}
	if !strings.Contains(html, "<td>Region</td><td>Revenue</td>") {
		t.Errorf("header row missing: %q", html)
	}
	if !strings.Contains(html, "<td>EMEA</td><td>1200</td>") {
		t.Errorf("data row missing: %q", html)
	}
}
