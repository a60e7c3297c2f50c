package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/internal/service"
	"github.com/noah-isme/canvas-gradebook/pkg/response"
)

type gradeService interface {
	StudentGrades(ctx context.Context, req service.GradeRequest) (*models.StudentGrades, error)
	NotYetGraded(raw string) (float64, error)
}

type reportRenderer interface {
	RenderStudent(ctx context.Context, req service.GradeRequest, format models.ReportFormat) (*service.RenderedReport, error)
}

// GradeHandler exposes per-student grading endpoints.
type GradeHandler struct {
	grades  gradeService
	reports reportRenderer
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeService, reports reportRenderer) *GradeHandler {
	return &GradeHandler{grades: grades, reports: reports}
}

// StudentGrades godoc
// @Summary Graded items for one student
// @Description Fetches each submission and applies category drop rules. nyg is a number or "Use Zero"; the configured default applies when omitted.
// @Tags Grades
// @Produce json
// @Param courseId path string true "Canvas course ID"
// @Param studentId path string true "Canvas user ID"
// @Param nyg query string false "Not-yet-graded fallback"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{courseId}/students/{studentId}/grades [get]
func (h *GradeHandler) StudentGrades(c *gin.Context) {
	req, err := h.gradeRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	grades, err := h.grades.StudentGrades(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades)
}

// StudentReport godoc
// @Summary Student grade report file
// @Description Renders the grade sheet with spreadsheet formulas for averages and weighting.
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Canvas course ID"
// @Param studentId path string true "Canvas user ID"
// @Param nyg query string false "Not-yet-graded fallback"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{courseId}/students/{studentId}/report [get]
func (h *GradeHandler) StudentReport(c *gin.Context) {
	req, err := h.gradeRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.reports.RenderStudent(c.Request.Context(), req, reportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, report.Filename, report.ContentType, report.Data)
}

func (h *GradeHandler) gradeRequest(c *gin.Context) (service.GradeRequest, error) {
	nyg, err := h.grades.NotYetGraded(c.Query("nyg"))
	if err != nil {
		return service.GradeRequest{}, err
	}
	return service.GradeRequest{
		CourseID:     c.Param("courseId"),
		StudentID:    c.Param("studentId"),
		NotYetGraded: &nyg,
		Token:        canvasToken(c),
	}, nil
}
