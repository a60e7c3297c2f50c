package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

func newExportFixture(t *testing.T) (*ExportService, *CourseService) {
	t.Helper()
	api, structures := fetchedFixture(t)
	grades := NewGradeService(api, structures, nil, "", nil, nil)
	courses := NewCourseService(api, structures, "", nil, nil)
	return NewExportService(grades, SheetMarkers{}, nil, nil, nil), courses
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportServiceRenderStudentCSV(t *testing.T) {
	svc, _ := newExportFixture(t)

	report, err := svc.RenderStudent(context.Background(), GradeRequest{
		CourseID:     "1234",
		StudentID:    "77",
		NotYetGraded: floatPtr(0),
		Token:        "tok",
	}, models.ReportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", report.ContentType)
	assert.True(t, strings.HasPrefix(report.Filename, "1234_77_"))
	assert.True(t, strings.HasSuffix(report.Filename, ".csv"))

	records := readCSV(t, report.Data)
	assert.Equal(t, "Lovelace, Ada", records[0][1])
	assert.Equal(t, reportHeadings, records[2][:6])
	// HW3 sits on sheet row 7 and is dropped.
	assert.Equal(t, "HW3", records[6][1])
	assert.Equal(t, "drop", records[6][4])
	assert.Equal(t, `=IF(E7<>"drop", D7, "Omit")`, records[6][5])
}

func TestExportServiceRenderStudentPDF(t *testing.T) {
	svc, _ := newExportFixture(t)

	report, err := svc.RenderStudent(context.Background(), GradeRequest{
		CourseID:     "1234",
		StudentID:    "78",
		NotYetGraded: floatPtr(0),
		Token:        "tok",
	}, models.ReportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, bytes.HasPrefix(report.Data, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportFixture(t)
	_, err := svc.RenderStudent(context.Background(), GradeRequest{}, models.ReportFormat("xlsx"))
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))
}

func TestExportServiceRenderRoster(t *testing.T) {
	svc, courses := newExportFixture(t)
	roster, err := courses.Roster(context.Background(), "1234")
	require.NoError(t, err)

	var progress []int
	report, err := svc.RenderRoster(context.Background(), "1234", roster, 0, "tok", models.ReportFormatCSV, func(done, total int) {
		assert.Equal(t, 2, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, progress)

	records := readCSV(t, report.Data)
	var students []string
	for _, r := range records {
		if r[0] == "Student" {
			students = append(students, r[1])
		}
	}
	assert.Equal(t, []string{"Lovelace, Ada", "Turing, Alan"}, students)
}

func TestExportServiceRenderRosterEmpty(t *testing.T) {
	svc, _ := newExportFixture(t)
	_, err := svc.RenderRoster(context.Background(), "1234", nil, 0, "tok", models.ReportFormatCSV, nil)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report", sanitizeFilename(""))
	assert.Equal(t, "a_b-c-d", sanitizeFilename("a b/c:d"))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 150)), 100)
}
