package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/canvas-gradebook/internal/dto"
	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/internal/service"
	"github.com/noah-isme/canvas-gradebook/pkg/response"
)

type courseService interface {
	FetchCourse(ctx context.Context, req service.FetchCourseRequest) (*models.CourseStructure, error)
	Structure(ctx context.Context, courseID string) (*models.CourseStructure, error)
	Roster(ctx context.Context, courseID string) ([]models.Student, error)
}

// CourseHandler exposes course structure endpoints.
type CourseHandler struct {
	courses courseService
}

// NewCourseHandler constructs handler.
func NewCourseHandler(courses courseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// Fetch godoc
// @Summary Fetch course structure from Canvas
// @Description Reads assignment groups, counted assignments and the student roster, replacing the stored structure.
// @Tags Courses
// @Produce json
// @Param courseId path string true "Canvas course ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /courses/{courseId}/fetch [post]
func (h *CourseHandler) Fetch(c *gin.Context) {
	structure, err := h.courses.FetchCourse(c.Request.Context(), service.FetchCourseRequest{
		CourseID: c.Param("courseId"),
		Token:    canvasToken(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewCourseFetchResponse(structure))
}

// Structure godoc
// @Summary Stored course structure
// @Tags Courses
// @Produce json
// @Param courseId path string true "Canvas course ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{courseId}/structure [get]
func (h *CourseHandler) Structure(c *gin.Context) {
	structure, err := h.courses.Structure(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure)
}

// Students godoc
// @Summary Fetched student roster
// @Tags Courses
// @Produce json
// @Param courseId path string true "Canvas course ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{courseId}/students [get]
func (h *CourseHandler) Students(c *gin.Context) {
	roster, err := h.courses.Roster(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, map[string]interface{}{"total": len(roster)})
}
