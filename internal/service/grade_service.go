package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/pkg/canvas"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

// UseZero is the not-yet-graded setting that substitutes 0 for missing scores.
const UseZero = "Use Zero"

type submissionAPI interface {
	GetSubmission(ctx context.Context, courseID string, assignmentID int64, studentID, token string) (*canvas.Submission, error)
}

// GradeRequest identifies one student grading run.
type GradeRequest struct {
	CourseID     string   `json:"course_id" validate:"required"`
	StudentID    string   `json:"student_id" validate:"required"`
	NotYetGraded *float64 `json:"not_yet_graded"`
	Token        string   `json:"-"`
}

// GradeService assembles a student's graded items per category and applies
// each category's drop rules.
type GradeService struct {
	submissions         submissionAPI
	structures          *StructureService
	metrics             *MetricsService
	validator           *validator.Validate
	logger              *zap.Logger
	defaultNotYetGraded string
	now                 func() time.Time
}

// NewGradeService constructs GradeService. defaultNotYetGraded is used when a
// caller does not supply its own fallback.
func NewGradeService(submissions submissionAPI, structures *StructureService, metrics *MetricsService, defaultNotYetGraded string, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		submissions:         submissions,
		structures:          structures,
		metrics:             metrics,
		validator:           validate,
		logger:              logger,
		defaultNotYetGraded: defaultNotYetGraded,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

// ParseNotYetGraded converts a configured fallback into a score. "Use Zero"
// maps to 0; anything else must be numeric.
func ParseNotYetGraded(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, appErrors.Clone(appErrors.ErrConfiguration, "supply a value for not-yet-graded")
	}
	if strings.EqualFold(raw, UseZero) {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "not-yet-graded must be a number or \""+UseZero+"\"")
	}
	return v, nil
}

// NotYetGraded resolves the caller's fallback, using the configured default when raw is empty.
func (s *GradeService) NotYetGraded(raw string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		raw = s.defaultNotYetGraded
	}
	return ParseNotYetGraded(raw)
}

// StudentGrades grades one student against the stored course structure. Each
// submission is fetched in turn; a missing or non-numeric score takes the
// not-yet-graded value.
func (s *GradeService) StudentGrades(ctx context.Context, req GradeRequest) (result *models.StudentGrades, err error) {
	defer func() {
		dropped := 0
		if result != nil {
			for _, c := range result.Categories {
				dropped += c.DroppedCount()
			}
		}
		s.metrics.RecordGradingRun(err, dropped)
	}()

	req.CourseID = strings.TrimSpace(req.CourseID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "course id and student id required")
	}
	if req.NotYetGraded == nil {
		return nil, appErrors.Clone(appErrors.ErrConfiguration, "supply a value for not-yet-graded")
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "canvas token required")
	}

	structure, err := s.structures.Load(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	nyg := *req.NotYetGraded
	grades := &models.StudentGrades{
		CourseID:         req.CourseID,
		StudentID:        req.StudentID,
		NotYetGraded:     nyg,
		Categories:       make([]models.CategoryGrades, 0, len(structure.Categories)),
		StructureVersion: structure.Version,
	}
	if id, convErr := strconv.ParseInt(req.StudentID, 10, 64); convErr == nil {
		if student, ok := structure.FindStudent(id); ok {
			grades.StudentName = student.SortableName
		}
	}

	for _, category := range structure.Categories {
		items := make([]models.GradedItem, 0, len(category.Assignments))
		for _, assignment := range category.Assignments {
			sub, err := s.submissions.GetSubmission(ctx, req.CourseID, assignment.ID, req.StudentID, req.Token)
			if err != nil {
				return nil, upstreamError(err, "failed to fetch submission for "+assignment.Name)
			}
			score := nyg
			if sub != nil && sub.Score.Valid {
				score = sub.Score.Value
			}
			items = append(items, models.GradedItem{
				ID:             assignment.ID,
				Name:           assignment.Name,
				Score:          score,
				PointsPossible: assignment.PointsPossible,
				NeverDrop:      category.Rules.IsNeverDrop(assignment.ID),
			})
		}

		grades.Categories = append(grades.Categories, models.CategoryGrades{
			ID:     category.ID,
			Name:   category.Name,
			Weight: category.Weight,
			Items:  ApplyDropRules(category.Rules, items),
		})
	}

	grades.GeneratedAt = s.now()
	s.logger.Info("student graded",
		zap.String("course_id", req.CourseID),
		zap.String("student_id", req.StudentID),
		zap.Int("categories", len(grades.Categories)),
		zap.Int64("structure_version", structure.Version),
	)
	return grades, nil
}
