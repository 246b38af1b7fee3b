package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const summarySheet = "Summary"

// XLSXExporter writes a summary sheet followed by one worksheet per sheet.
type XLSXExporter struct{}

// NewXLSXExporter builds a spreadsheet exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render builds the workbook.
func (e *XLSXExporter) Render(doc Document) ([]byte, error) {
	if err := checkSheets(doc); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := f.SetCellValue(summarySheet, "A1", doc.Title); err != nil {
		return nil, fmt.Errorf("write title: %w", err)
	}
	for i, line := range doc.Summary {
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+3), line); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}

	used := map[string]int{summarySheet: 1}
	for _, sheet := range doc.Sheets {
		name := sheetName(sheet.Title, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
		for col, header := range sheet.Data.Headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(name, cell, header); err != nil {
				return nil, fmt.Errorf("write header: %w", err)
			}
		}
		for r, row := range sheet.Data.Rows {
			for col, value := range record(sheet.Data, row) {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				if err := f.SetCellValue(name, cell, value); err != nil {
					return nil, fmt.Errorf("write cell %s: %w", cell, err)
				}
			}
		}
		if err := f.SetColWidth(name, "A", columnName(len(sheet.Data.Headers)), 22); err != nil {
			return nil, fmt.Errorf("size columns: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetName strips characters Excel rejects, truncates to 31 runes and
// de-duplicates.
func sheetName(title string, used map[string]int) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Sheet"
	}
	if runes := []rune(name); len(runes) > 28 {
		name = string(runes[:28])
	}
	used[name]++
	if n := used[name]; n > 1 {
		name = fmt.Sprintf("%s %d", name, n)
	}
	return name
}

func columnName(n int) string {
	if n < 1 {
		n = 1
	}
	name, _ := excelize.ColumnNumberToName(n)
	return name
}
