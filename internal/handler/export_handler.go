package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/canvas-gradebook/internal/dto"
	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/internal/service"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
	"github.com/noah-isme/canvas-gradebook/pkg/response"
)

type exportService interface {
	CreateJob(ctx context.Context, req service.CreateExportRequest) (*models.ExportJob, error)
	GetStatus(ctx context.Context, id string) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, id string) (*service.RenderedReport, error)
}

type notYetGradedResolver interface {
	NotYetGraded(raw string) (float64, error)
}

// ExportHandler exposes roster export endpoints. A nil service means exports are disabled.
type ExportHandler struct {
	exports   exportService
	nyg       notYetGradedResolver
	apiPrefix string
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportService, nyg notYetGradedResolver, apiPrefix string) *ExportHandler {
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &ExportHandler{exports: exports, nyg: nyg, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// Create godoc
// @Summary Queue a roster export
// @Tags Exports
// @Accept json
// @Produce json
// @Param courseId path string true "Canvas course ID"
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /courses/{courseId}/exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "exports are disabled"))
		return
	}
	var req dto.ExportRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export payload"))
			return
		}
	}
	nyg, err := h.nyg.NotYetGraded(req.NotYetGraded)
	if err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), service.CreateExportRequest{
		CourseID:     c.Param("courseId"),
		Format:       reportFormat(string(req.Format)),
		NotYetGraded: &nyg,
		Token:        canvasToken(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.NewExportJobResponse(job, h.downloadURL(job.ID)))
}

// Status godoc
// @Summary Roster export status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "exports are disabled"))
		return
	}
	job, err := h.exports.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewExportJobResponse(job, h.downloadURL(job.ID)))
}

// Download godoc
// @Summary Download a finished roster export
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Export job ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exports/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, "exports are disabled"))
		return
	}
	report, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, report.Filename, report.ContentType, report.Data)
}

func (h *ExportHandler) downloadURL(id string) string {
	return h.apiPrefix + "/exports/" + id + "/download"
}
