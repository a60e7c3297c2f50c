package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

// StructureRepository persists the fetched course structure between the fetch
// and grading operations. Load returns appErrors.ErrStructureMissing when the
// course has never been fetched.
type StructureRepository interface {
	Save(ctx context.Context, structure *models.CourseStructure) (int64, error)
	Load(ctx context.Context, courseID string) (*models.CourseStructure, error)
	Backend() string
}

// StructureService wraps a StructureRepository with metrics and error mapping.
type StructureService struct {
	repo    StructureRepository
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStructureService constructs a StructureService.
func NewStructureService(repo StructureRepository, metrics *MetricsService, logger *zap.Logger) *StructureService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StructureService{repo: repo, metrics: metrics, logger: logger}
}

// Save stores the structure and returns the version assigned to it.
func (s *StructureService) Save(ctx context.Context, structure *models.CourseStructure) (int64, error) {
	start := time.Now()
	version, err := s.repo.Save(ctx, structure)
	s.metrics.ObserveStoreOperation(s.repo.Backend(), "save", err, time.Since(start))
	if err != nil {
		s.logger.Error("course structure save failed", zap.String("course_id", structure.CourseID), zap.Error(err))
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist course structure")
	}
	return version, nil
}

// Load returns the stored structure. A missing structure is reported as ErrStructureMissing.
func (s *StructureService) Load(ctx context.Context, courseID string) (*models.CourseStructure, error) {
	start := time.Now()
	structure, err := s.repo.Load(ctx, courseID)
	s.metrics.ObserveStoreOperation(s.repo.Backend(), "load", err, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrStructureMissing) {
			return nil, appErrors.Clone(appErrors.ErrStructureMissing, "course "+courseID+" has not been fetched; run fetch course first")
		}
		s.logger.Error("course structure load failed", zap.String("course_id", courseID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course structure")
	}
	return structure, nil
}
