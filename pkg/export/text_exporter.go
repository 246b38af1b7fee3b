package export

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// TextExporter renders aligned plain-text tables for terminals.
type TextExporter struct{}

// NewTextExporter builds a plain-text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

func (e *TextExporter) ContentType() string { return "text/plain; charset=utf-8" }
func (e *TextExporter) Extension() string   { return "txt" }

// Render lays out the title, each sheet and the summary.
func (e *TextExporter) Render(doc Document) ([]byte, error) {
	if err := checkSheets(doc); err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	rule := strings.Repeat("=", 80)
	buf := &bytes.Buffer{}

	if doc.Title != "" {
		fmt.Fprintln(buf, rule)
		fmt.Fprintln(buf, center(doc.Title, 80))
		fmt.Fprintln(buf, rule)
	}

	for _, sheet := range doc.Sheets {
		fmt.Fprintf(buf, "\n%s:\n%s\n", sheet.Title, strings.Repeat("-", 80))
		tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(sheet.Data.Headers, "\t"))
		for _, row := range sheet.Data.Rows {
			fmt.Fprintln(tw, strings.Join(record(sheet.Data, row), "\t"))
		}
		if err := tw.Flush(); err != nil {
			return nil, fmt.Errorf("flush table: %w", err)
		}
	}

	if len(doc.Summary) > 0 {
		fmt.Fprintf(buf, "\n%s\n", strings.Repeat("-", 80))
		for _, line := range doc.Summary {
			fmt.Fprintln(buf, line)
		}
		fmt.Fprintln(buf, rule)
	}
	return buf.Bytes(), nil
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}
