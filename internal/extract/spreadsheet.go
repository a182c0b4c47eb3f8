package extract

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/xuri/excelize/v2"
)

// spreadsheetToHTML renders xlsx content as HTML: each sheet becomes an
// <h1> with the sheet title followed by a <table> of its formatted cell
// values. Indexing the HTML keeps row/column structure visible to retrieval
// instead of flattening tables into word soup.
func spreadsheetToHTML(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		b.WriteString("<h1>")
		b.WriteString(html.EscapeString(sheet))
		b.WriteString("</h1>\n")
		renderTable(rows, &b)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String()), nil
}

func renderTable(rows [][]string, b *strings.Builder) {
	b.WriteString("<table>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
}
