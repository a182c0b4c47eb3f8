package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string. Invalid UTF-8 sequences are
// replaced with the replacement character so downstream tokenization is safe.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}

var (
	htmlScript = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTag    = regexp.MustCompile(`<[^>]+>`)
	htmlSpace  = regexp.MustCompile(`[ \t]+`)
)

// extractHTML strips markup from HTML content, leaving readable text.
// Script and style bodies are removed entirely.
func extractHTML(content []byte) (string, error) {
	text, err := extractPlain(content)
	if err != nil {
		return "", err
	}
	text = htmlScript.ReplaceAllString(text, " ")
	text = htmlTag.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(text)
	text = htmlSpace.ReplaceAllString(text, " ")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n"), nil
}
