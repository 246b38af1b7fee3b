package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders one landscape page per sheet, the summary on the first.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }
func (e *PDFExporter) Extension() string   { return "pdf" }

// Render creates the PDF document.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if err := checkSheets(doc); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, sheet := range doc.Sheets {
		pdf.AddPage()
		if i == 0 && doc.Title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 9, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
			pdf.SetFont("Arial", "", 9)
			for _, line := range doc.Summary {
				pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
			}
			pdf.Ln(3)
		}

		if sheet.Title != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, tr(sheet.Title), "", 1, "L", false, 0, "")
		}

		pdf.SetFont("Arial", "B", 9)
		colWidth := 277.0 / float64(len(sheet.Data.Headers))
		for _, header := range sheet.Data.Headers {
			pdf.CellFormat(colWidth, 7, tr(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		for _, row := range sheet.Data.Rows {
			for _, value := range record(sheet.Data, row) {
				pdf.CellFormat(colWidth, 7, tr(value), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
