package dto

import (
	"time"

	"github.com/noah-isme/canvas-gradebook/internal/models"
)

// CategorySummary describes one fetched grading category.
type CategorySummary struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Weight      float64          `json:"weight"`
	Rules       models.DropRules `json:"rules"`
	Assignments int              `json:"assignments"`
}

// CourseFetchResponse is returned by POST /courses/:courseId/fetch.
type CourseFetchResponse struct {
	CourseID   string            `json:"course_id"`
	Version    int64             `json:"version"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Categories []CategorySummary `json:"categories"`
	Students   int               `json:"students"`
}

// NewCourseFetchResponse summarises a stored structure.
func NewCourseFetchResponse(s *models.CourseStructure) CourseFetchResponse {
	categories := make([]CategorySummary, 0, len(s.Categories))
	for _, c := range s.Categories {
		categories = append(categories, CategorySummary{
			ID:          c.ID,
			Name:        c.Name,
			Weight:      c.Weight,
			Rules:       c.Rules,
			Assignments: len(c.Assignments),
		})
	}
	return CourseFetchResponse{
		CourseID:   s.CourseID,
		Version:    s.Version,
		FetchedAt:  s.FetchedAt,
		Categories: categories,
		Students:   len(s.Roster),
	}
}
