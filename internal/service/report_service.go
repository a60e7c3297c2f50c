package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
	"github.com/noah-isme/canvas-gradebook/pkg/jobs"
)

// JobTypeRosterExport tags roster export jobs on the queue.
const JobTypeRosterExport = "roster_export"

type rosterSource interface {
	Roster(ctx context.Context, courseID string) ([]models.Student, error)
}

type rosterRenderer interface {
	RenderRoster(ctx context.Context, courseID string, students []models.Student, nyg float64, token string, format models.ReportFormat, progress RosterProgress) (*RenderedReport, error)
}

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// CreateExportRequest asks for a roster-wide report.
type CreateExportRequest struct {
	CourseID     string              `validate:"required"`
	Format       models.ReportFormat `validate:"required"`
	NotYetGraded *float64
	Token        string
}

// exportPayload travels with the queued job; it never reaches the job record.
type exportPayload struct {
	NotYetGraded float64
	Token        string
}

// ReportServiceConfig governs export retention.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportService manages the lifecycle of roster export jobs. Job records are
// held in memory and shared with the queue worker.
type ReportService struct {
	roster   rosterSource
	renderer rosterRenderer
	storage  fileStore
	queue    jobDispatcher
	logger   *zap.Logger
	cfg      ReportServiceConfig
	now      func() time.Time

	mu   sync.RWMutex
	jobs map[string]*models.ExportJob
}

// NewReportService constructs the report service. The queue is usually set
// afterwards via SetQueue since the queue's handler is this service.
func NewReportService(roster rosterSource, renderer rosterRenderer, storage fileStore, queue jobDispatcher, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		roster:   roster,
		renderer: renderer,
		storage:  storage,
		queue:    queue,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		jobs:     make(map[string]*models.ExportJob),
	}
}

// SetQueue attaches the dispatcher used by CreateJob.
func (s *ReportService) SetQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateJob validates the request, records a queued job and dispatches it.
func (s *ReportService) CreateJob(ctx context.Context, req CreateExportRequest) (*models.ExportJob, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.CourseID == "" {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "course id required")
	}
	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "unsupported report format")
	}
	if req.NotYetGraded == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "supply a value for not-yet-graded")
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "canvas token required")
	}
	students, err := s.roster.Roster(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		ID:        uuid.NewString(),
		CourseID:  req.CourseID,
		Format:    req.Format,
		Status:    models.ReportStatusQueued,
		Students:  len(students),
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	payload := exportPayload{NotYetGraded: *req.NotYetGraded, Token: req.Token}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeRosterExport, Payload: payload}); err != nil {
		s.finish(job.ID, "", fmt.Errorf("enqueue: %w", err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return s.snapshot(job.ID)
}

// GetStatus returns a copy of the job record.
func (s *ReportService) GetStatus(_ context.Context, id string) (*models.ExportJob, error) {
	return s.snapshot(id)
}

// ResolveDownload returns the rendered file of a finished job.
func (s *ReportService) ResolveDownload(_ context.Context, id string) (*RenderedReport, error) {
	job, err := s.snapshot(id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrConflict, "export not ready")
	}
	data, err := s.storage.Read(job.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &RenderedReport{
		Filename:    path.Base(job.FilePath),
		ContentType: job.Format.ContentType(),
		Data:        data,
	}, nil
}

// HandleJob is the queue handler. It renders the roster and stores the file.
// Returning an error lets the queue retry.
func (s *ReportService) HandleJob(ctx context.Context, queued jobs.Job) error {
	payload, ok := queued.Payload.(exportPayload)
	if !ok {
		s.finish(queued.ID, "", fmt.Errorf("unexpected payload %T", queued.Payload))
		return nil
	}
	job, err := s.snapshot(queued.ID)
	if err != nil {
		return nil
	}
	s.update(job.ID, func(j *models.ExportJob) {
		j.Status = models.ReportStatusProcessing
		j.Progress = 0
	})

	students, err := s.roster.Roster(ctx, job.CourseID)
	if err != nil {
		return s.fail(job.ID, err)
	}
	report, err := s.renderer.RenderRoster(ctx, job.CourseID, students, payload.NotYetGraded, payload.Token, job.Format,
		func(done, total int) {
			s.update(job.ID, func(j *models.ExportJob) {
				j.Students = total
				j.Progress = done * 100 / total
			})
		})
	if err != nil {
		return s.fail(job.ID, err)
	}
	relPath, err := s.storage.Save(path.Join(job.ID, report.Filename), report.Data)
	if err != nil {
		return s.fail(job.ID, err)
	}
	s.finish(job.ID, relPath, nil)
	s.logger.Info("export finished", zap.String("job_id", job.ID), zap.String("course_id", job.CourseID), zap.String("path", relPath))
	return nil
}

// StartCleanup purges expired export files and job records until ctx is done.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired()
			}
		}
	}()
}

// CleanupExpired removes jobs finished longer than ResultTTL ago and their files.
func (s *ReportService) CleanupExpired() int {
	cutoff := s.now().Add(-s.cfg.ResultTTL)
	var expired []*models.ExportJob
	s.mu.Lock()
	for id, job := range s.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			expired = append(expired, job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		if job.FilePath == "" {
			continue
		}
		if err := s.storage.Delete(job.FilePath); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
	return len(expired)
}

// fail records a processing error. The job goes back to QUEUED so a retry can
// pick it up; the last error stays visible.
func (s *ReportService) fail(id string, err error) error {
	msg := err.Error()
	s.update(id, func(j *models.ExportJob) {
		j.Status = models.ReportStatusQueued
		j.ErrorMessage = &msg
	})
	s.logger.Warn("export attempt failed", zap.String("job_id", id), zap.Error(err))
	return err
}

// MarkFailed marks a job as permanently failed, e.g. once retries are exhausted.
func (s *ReportService) MarkFailed(id string, err error) {
	s.finish(id, "", err)
}

func (s *ReportService) finish(id, relPath string, err error) {
	now := s.now()
	s.update(id, func(j *models.ExportJob) {
		j.FinishedAt = &now
		j.Progress = 100
		if err != nil {
			msg := err.Error()
			j.Status = models.ReportStatusFailed
			j.ErrorMessage = &msg
			return
		}
		j.Status = models.ReportStatusFinished
		j.FilePath = relPath
		j.ErrorMessage = nil
	})
}

func (s *ReportService) update(id string, fn func(*models.ExportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

func (s *ReportService) snapshot(id string) (*models.ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	copied := *job
	return &copied, nil
}
