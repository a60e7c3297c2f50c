package dto

import (
	"time"

	"github.com/noah-isme/canvas-gradebook/internal/models"
)

// ExportRequest captures POST /courses/:courseId/exports payload.
type ExportRequest struct {
	Format       models.ReportFormat `json:"format"`
	NotYetGraded string              `json:"not_yet_graded"`
}

// ExportJobResponse exposes roster export progress.
type ExportJobResponse struct {
	ID          string              `json:"id"`
	CourseID    string              `json:"course_id"`
	Format      models.ReportFormat `json:"format"`
	Status      models.ReportStatus `json:"status"`
	Progress    int                 `json:"progress"`
	Students    int                 `json:"students"`
	DownloadURL *string             `json:"download_url,omitempty"`
	Error       *string             `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}

// NewExportJobResponse maps a job record; downloadURL is only attached once
// the job has finished.
func NewExportJobResponse(job *models.ExportJob, downloadURL string) ExportJobResponse {
	resp := ExportJobResponse{
		ID:         job.ID,
		CourseID:   job.CourseID,
		Format:     job.Format,
		Status:     job.Status,
		Progress:   job.Progress,
		Students:   job.Students,
		Error:      job.ErrorMessage,
		CreatedAt:  job.CreatedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.Status == models.ReportStatusFinished && downloadURL != "" {
		resp.DownloadURL = &downloadURL
	}
	return resp
}
