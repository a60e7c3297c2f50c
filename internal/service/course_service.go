package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	"github.com/noah-isme/canvas-gradebook/pkg/canvas"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

// DefaultAttendanceAssignment is the placeholder assignment Canvas creates for roll call.
const DefaultAttendanceAssignment = "Roll Call Attendance"

type courseAPI interface {
	ListAssignmentGroups(ctx context.Context, courseID, token string) ([]canvas.AssignmentGroup, error)
	ListAssignments(ctx context.Context, courseID string, groupID int64, token string) ([]canvas.Assignment, error)
	ListStudents(ctx context.Context, courseID, token string) ([]canvas.User, error)
}

// FetchCourseRequest identifies the course to fetch.
type FetchCourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
	Token    string `json:"-"`
}

// CourseService fetches a course's grading structure and roster and stores the
// structure for later grading runs.
type CourseService struct {
	api            courseAPI
	structures     *StructureService
	validator      *validator.Validate
	logger         *zap.Logger
	attendanceName string
	now            func() time.Time
}

// NewCourseService constructs CourseService.
func NewCourseService(api courseAPI, structures *StructureService, attendanceName string, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if attendanceName == "" {
		attendanceName = DefaultAttendanceAssignment
	}
	return &CourseService{
		api:            api,
		structures:     structures,
		validator:      validate,
		logger:         logger,
		attendanceName: attendanceName,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// FetchCourse retrieves grading categories, their counted assignments and the
// student roster, then overwrites the stored structure for the course.
func (s *CourseService) FetchCourse(ctx context.Context, req FetchCourseRequest) (*models.CourseStructure, error) {
	req.CourseID = strings.TrimSpace(req.CourseID)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, "course id required")
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "canvas token required")
	}

	groups, err := s.api.ListAssignmentGroups(ctx, req.CourseID, req.Token)
	if err != nil {
		return nil, upstreamError(err, "failed to list assignment groups")
	}

	categories := make([]models.GradingCategory, 0, len(groups))
	for _, group := range groups {
		assignments, err := s.api.ListAssignments(ctx, req.CourseID, group.ID, req.Token)
		if err != nil {
			return nil, upstreamError(err, "failed to list assignments for group "+group.Name)
		}
		categories = append(categories, models.GradingCategory{
			ID:          group.ID,
			Name:        group.Name,
			Weight:      group.GroupWeight,
			Rules:       toDropRules(canvas.DecodeRules(group.Rules)),
			Assignments: s.countedAssignments(assignments),
		})
	}

	users, err := s.api.ListStudents(ctx, req.CourseID, req.Token)
	if err != nil {
		return nil, upstreamError(err, "failed to list students")
	}
	roster := make([]models.Student, 0, len(users))
	for _, u := range users {
		roster = append(roster, models.Student{ID: u.ID, Name: u.Name, SortableName: u.SortableName})
	}

	structure := &models.CourseStructure{
		CourseID:   req.CourseID,
		Categories: categories,
		Roster:     roster,
		FetchedAt:  s.now(),
	}
	version, err := s.structures.Save(ctx, structure)
	if err != nil {
		return nil, err
	}
	structure.Version = version

	s.logger.Info("course fetched",
		zap.String("course_id", req.CourseID),
		zap.Int("categories", len(categories)),
		zap.Int("students", len(roster)),
		zap.Int64("version", version),
	)
	return structure, nil
}

// Structure returns the stored structure for a course.
func (s *CourseService) Structure(ctx context.Context, courseID string) (*models.CourseStructure, error) {
	return s.structures.Load(ctx, strings.TrimSpace(courseID))
}

// Roster returns the students captured by the last fetch.
func (s *CourseService) Roster(ctx context.Context, courseID string) ([]models.Student, error) {
	structure, err := s.Structure(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return structure.Roster, nil
}

// countedAssignments drops assignments omitted from the final grade and the
// roll call placeholder.
func (s *CourseService) countedAssignments(assignments []canvas.Assignment) []models.AssignmentDefinition {
	result := make([]models.AssignmentDefinition, 0, len(assignments))
	for _, a := range assignments {
		if a.OmitFromFinalGrade || a.Name == s.attendanceName {
			continue
		}
		var points float64
		if a.PointsPossible != nil {
			points = *a.PointsPossible
		}
		result = append(result, models.AssignmentDefinition{ID: a.ID, Name: a.Name, PointsPossible: points})
	}
	return result
}

func toDropRules(r canvas.Rules) models.DropRules {
	return models.DropRules{DropLowest: r.DropLowest, DropHighest: r.DropHighest, NeverDrop: r.NeverDrop}
}

// upstreamError maps Canvas failures onto the application's error taxonomy.
func upstreamError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, canvas.ErrMissingToken) {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "canvas token required")
	}
	var apiErr *canvas.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized) {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "canvas rejected the token; reauthorize")
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, message)
}
