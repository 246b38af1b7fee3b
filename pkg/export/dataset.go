package export

import (
	"fmt"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Sheet is one titled table of a document.
type Sheet struct {
	Title string
	Data  Dataset
}

// Document is what every renderer consumes. History is only drawn by the
// chart renderer.
type Document struct {
	Title   string
	Summary []string
	Sheets  []Sheet
	History []int
}

// Renderer turns a document into file bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

// Formats lists the accepted export formats.
var Formats = []string{"csv", "pdf", "xlsx", "html", "txt"}

// ForFormat returns the renderer for a format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "csv":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	case "xlsx":
		return NewXLSXExporter(), nil
	case "html":
		return NewChartExporter(), nil
	case "txt", "table":
		return NewTextExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func checkSheets(doc Document) error {
	if len(doc.Sheets) == 0 {
		return fmt.Errorf("document has no sheets")
	}
	for _, s := range doc.Sheets {
		if len(s.Data.Headers) == 0 {
			return fmt.Errorf("sheet %q requires at least one header", s.Title)
		}
	}
	return nil
}

func record(data Dataset, row map[string]string) []string {
	out := make([]string, len(data.Headers))
	for i, header := range data.Headers {
		out[i] = row[header]
	}
	return out
}
