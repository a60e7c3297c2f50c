package service

import (
	"fmt"
	"strconv"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/pkg/export"
)

// Default sheet markers.
const (
	DefaultDropMarker = "drop"
	DefaultOmitMarker = "Omit"
)

var (
	reportHeadings  = []string{"Group", "Assignment", "Possible", "Actual", "Drop", "Use"}
	summaryHeadings = []string{"Group", "Weight", "Average", "Weighted Avg."}
)

// summaryOffset is the column index of G, where the summary block starts.
const summaryOffset = 6

// SheetMarkers are the literal cell values that tag a dropped item and an
// omitted score.
type SheetMarkers struct {
	Drop string
	Omit string
}

func (m SheetMarkers) withDefaults() SheetMarkers {
	if m.Drop == "" {
		m.Drop = DefaultDropMarker
	}
	if m.Omit == "" {
		m.Omit = DefaultOmitMarker
	}
	return m
}

// BuildSheet appends one student's report to sheet. Item rows sit in columns
// A-F; the per-category summary follows a blank row in columns G-J. Averages
// and weighting are left to spreadsheet formulas.
func BuildSheet(sheet *export.Sheet, grades *models.StudentGrades, markers SheetMarkers) {
	markers = markers.withDefaults()
	name := grades.StudentName
	if name == "" {
		name = grades.StudentID
	}
	if sheet.Title == "" {
		sheet.Title = name
	}

	sheet.Append(export.RowTitle, "Student", name)
	sheet.Append(export.RowBlank)
	sheet.Append(export.RowHeader, reportHeadings...)

	type span struct{ first, last int }
	spans := make([]span, len(grades.Categories))

	for i, category := range grades.Categories {
		sheet.Append(export.RowData, category.Name)
		spans[i] = span{first: sheet.NextRow()}
		for _, item := range category.Items {
			row := sheet.NextRow()
			drop := ""
			use := formatNumber(item.Score)
			if item.Dropped {
				drop = markers.Drop
				use = markers.Omit
			}
			cells := []string{
				"",
				item.Name,
				formatNumber(item.PointsPossible),
				formatNumber(item.Score),
				drop,
				fmt.Sprintf(`=IF(E%d<>"%s", D%d, "%s")`, row, markers.Drop, row, markers.Omit),
			}
			display := append(append([]string(nil), cells[:5]...), use)
			sheet.AppendDisplay(cells, display)
		}
		spans[i].last = sheet.NextRow() - 1
	}

	sheet.Append(export.RowBlank)
	sheet.Append(export.RowHeader, summaryCells(summaryHeadings...)...)
	for i, category := range grades.Categories {
		row := sheet.NextRow()
		weight := formatNumber(category.Weight / 100)

		average := "=NA()"
		if s := spans[i]; s.last >= s.first {
			average = fmt.Sprintf(`=IFERROR(SUM(F%d:F%d)/SUMIF(F%d:F%d,"<>%s",C%d:C%d),NA())`,
				s.first, s.last, s.first, s.last, markers.Omit, s.first, s.last)
		}
		weighted := fmt.Sprintf("=IF(ISNA(I%d),NA(),H%d*I%d)", row, row, row)

		sheet.AppendDisplay(
			summaryCells(category.Name, weight, average, weighted),
			summaryCells(category.Name, weight, "", ""),
		)
	}
}

func summaryCells(values ...string) []string {
	cells := make([]string, summaryOffset, summaryOffset+len(values))
	return append(cells, values...)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
