package models

import (
	"math"
	"time"
)

// GradedItem is one student's result on one assignment during a grading run.
type GradedItem struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Score          float64 `json:"score"`
	PointsPossible float64 `json:"points_possible"`
	NeverDrop      bool    `json:"never_drop"`
	Dropped        bool    `json:"dropped"`
}

// Ratio returns score over points possible. Items worth no points rank above
// everything when they carry a positive score and at zero otherwise.
func (g GradedItem) Ratio() float64 {
	if g.PointsPossible <= 0 {
		if g.Score > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return g.Score / g.PointsPossible
}

// CategoryGrades holds a category's items with drop flags applied.
type CategoryGrades struct {
	ID     int64        `json:"id"`
	Name   string       `json:"name"`
	Weight float64      `json:"weight"`
	Items  []GradedItem `json:"items"`
}

// DroppedCount returns how many items are excluded from the category.
func (c CategoryGrades) DroppedCount() int {
	n := 0
	for _, item := range c.Items {
		if item.Dropped {
			n++
		}
	}
	return n
}

// StudentGrades is the result of grading one student in one course.
type StudentGrades struct {
	CourseID         string           `json:"course_id"`
	StudentID        string           `json:"student_id"`
	StudentName      string           `json:"student_name,omitempty"`
	NotYetGraded     float64          `json:"not_yet_graded"`
	Categories       []CategoryGrades `json:"categories"`
	StructureVersion int64            `json:"structure_version"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
