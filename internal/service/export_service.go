package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
	"github.com/noah-isme/canvas-gradebook/pkg/export"
)

type gradeRunner interface {
	StudentGrades(ctx context.Context, req GradeRequest) (*models.StudentGrades, error)
}

type sheetRenderer interface {
	Render(sheet *export.Sheet) ([]byte, error)
}

// RenderedReport is a finished report file.
type RenderedReport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// RosterProgress is called after each student of a roster render.
type RosterProgress func(done, total int)

// ExportService lays out graded students as sheets and renders them to CSV or PDF.
type ExportService struct {
	grades  gradeRunner
	csv     sheetRenderer
	pdf     sheetRenderer
	markers SheetMarkers
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// pkg/export implementations.
func NewExportService(grades gradeRunner, markers SheetMarkers, logger *zap.Logger, csv, pdf sheetRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		grades:  grades,
		csv:     csv,
		pdf:     pdf,
		markers: markers.withDefaults(),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RenderStudent grades one student and renders the report.
func (s *ExportService) RenderStudent(ctx context.Context, req GradeRequest, format models.ReportFormat) (*RenderedReport, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "unsupported report format")
	}
	grades, err := s.grades.StudentGrades(ctx, req)
	if err != nil {
		return nil, err
	}
	sheet := &export.Sheet{}
	BuildSheet(sheet, grades, s.markers)
	return s.render(sheet, format, req.CourseID+"_"+req.StudentID)
}

// RenderRoster grades every student in turn and stacks their reports in one
// sheet, separated by a blank row. The first failing student aborts the run.
func (s *ExportService) RenderRoster(ctx context.Context, courseID string, students []models.Student, nyg float64, token string, format models.ReportFormat, progress RosterProgress) (*RenderedReport, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "unsupported report format")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course roster is empty")
	}
	sheet := &export.Sheet{Title: "Course " + courseID}
	for i, student := range students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grades, err := s.grades.StudentGrades(ctx, GradeRequest{
			CourseID:     courseID,
			StudentID:    fmt.Sprintf("%d", student.ID),
			NotYetGraded: &nyg,
			Token:        token,
		})
		if err != nil {
			return nil, err
		}
		if i > 0 {
			sheet.Append(export.RowBlank)
		}
		BuildSheet(sheet, grades, s.markers)
		if progress != nil {
			progress(i+1, len(students))
		}
	}
	s.logger.Info("roster rendered", zap.String("course_id", courseID), zap.Int("students", len(students)), zap.String("format", string(format)))
	return s.render(sheet, format, courseID+"_roster")
}

func (s *ExportService) render(sheet *export.Sheet, format models.ReportFormat, stem string) (*RenderedReport, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case models.ReportFormatPDF:
		data, err = s.pdf.Render(sheet)
	default:
		data, err = s.csv.Render(sheet)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &RenderedReport{
		Filename:    buildFilename(stem, s.now(), format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func buildFilename(stem string, at time.Time, format models.ReportFormat) string {
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(stem), at.Format("20060102_150405"), format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "report"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
