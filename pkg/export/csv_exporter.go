package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders sheets into CSV bytes. Formulas are written verbatim so a
// spreadsheet evaluates them on import.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the sheet, padding every row to the
// sheet's width.
func (e *CSVExporter) Render(sheet *Sheet) ([]byte, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("csv requires at least one row")
	}
	width := sheet.Width()
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, row := range sheet.Rows {
		record := make([]string, width)
		copy(record, row.Cells)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
