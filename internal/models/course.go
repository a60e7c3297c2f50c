package models

import "time"

// AssignmentDefinition describes one assignment that counts toward the final grade.
type AssignmentDefinition struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	PointsPossible float64 `json:"points_possible"`
}

// DropRules configures which items of a category may be excluded from its average.
// A nil count means the rule is not set.
type DropRules struct {
	DropLowest  *int    `json:"drop_lowest,omitempty"`
	DropHighest *int    `json:"drop_highest,omitempty"`
	NeverDrop   []int64 `json:"never_drop,omitempty"`
}

// HasDropRule reports whether either drop count is configured.
func (r DropRules) HasDropRule() bool {
	return r.DropLowest != nil || r.DropHighest != nil
}

// IsNeverDrop reports whether the assignment is protected from dropping.
func (r DropRules) IsNeverDrop(assignmentID int64) bool {
	for _, id := range r.NeverDrop {
		if id == assignmentID {
			return true
		}
	}
	return false
}

// GradingCategory is a weighted bucket of assignments (a Canvas assignment group).
type GradingCategory struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Weight      float64                `json:"weight"`
	Rules       DropRules              `json:"rules"`
	Assignments []AssignmentDefinition `json:"assignments"`
}

// Student is a roster entry.
type Student struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name"`
}

// CourseStructure is the handoff between fetching a course and grading its students.
type CourseStructure struct {
	CourseID   string            `json:"course_id"`
	Categories []GradingCategory `json:"categories"`
	Roster     []Student         `json:"roster"`
	Version    int64             `json:"version"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// FindStudent returns the roster entry with the given id.
func (c *CourseStructure) FindStudent(id int64) (Student, bool) {
	if c == nil {
		return Student{}, false
	}
	for _, s := range c.Roster {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}
