package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders sheets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with one table cell per sheet cell. Rows that
// carry a Display variant print it in place of their formulas.
func (e *PDFExporter) Render(sheet *Sheet) ([]byte, error) {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("pdf requires at least one row")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if sheet.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(sheet.Title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	width := sheet.Width()
	if width == 0 {
		width = 1
	}
	colWidth := 277.0 / float64(width)
	for _, row := range sheet.Rows {
		cells := row.Cells
		if row.Display != nil {
			cells = row.Display
		}
		switch row.Kind {
		case RowBlank:
			pdf.Ln(4)
			continue
		case RowTitle:
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 9, strings.Join(nonEmpty(cells), " "), "", 1, "", false, 0, "")
			continue
		case RowHeader:
			pdf.SetFont("Arial", "B", 10)
		default:
			pdf.SetFont("Arial", "", 9)
		}
		for i := 0; i < width; i++ {
			value := ""
			if i < len(cells) {
				value = cells[i]
			}
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func nonEmpty(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
