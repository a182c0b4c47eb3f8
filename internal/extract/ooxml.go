package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Office Open XML text nodes. DOCX body text lives in <w:t> elements inside
// word/document.xml; PPTX slide text lives in <a:t> elements inside
// ppt/slides/slideN.xml. Matching the text nodes directly (attributes allowed
// on the tag) works on real-world documents where paragraph and run elements
// carry revision attributes.
var (
	wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
)

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}

func joinMatches(re *regexp.Regexp, xml string, b *strings.Builder) {
	for _, m := range re.FindAllStringSubmatch(xml, -1) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(m[1]))
	}
}

// extractDOCX extracts text from .docx bytes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	docXML, err := readZipEntry(zr, "word/document.xml")
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	var b strings.Builder
	joinMatches(wtTag, string(docXML), &b)
	return strings.TrimSpace(b.String()), nil
}

// extractPPTX extracts text from .pptx bytes, slide by slide.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	var b strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("extract PPTX: open %s: %w", f.Name, err)
		}
		slideXML, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("extract PPTX: read %s: %w", f.Name, err)
		}
		joinMatches(atTag, string(slideXML), &b)
	}
	return strings.TrimSpace(b.String()), nil
}
