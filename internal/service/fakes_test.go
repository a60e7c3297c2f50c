package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/noah-isme/canvas-gradebook/internal/repository"
	"github.com/noah-isme/canvas-gradebook/pkg/canvas"
)

type fakeCanvas struct {
	mu          sync.Mutex
	groups      []canvas.AssignmentGroup
	assignments map[int64][]canvas.Assignment
	students    []canvas.User
	// scores is keyed by "studentID/assignmentID".
	scores map[string]canvas.Score
	err    error
	calls  []string
}

func (f *fakeCanvas) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCanvas) ListAssignmentGroups(_ context.Context, courseID, _ string) ([]canvas.AssignmentGroup, error) {
	f.record("groups:" + courseID)
	if f.err != nil {
		return nil, f.err
	}
	return f.groups, nil
}

func (f *fakeCanvas) ListAssignments(_ context.Context, _ string, groupID int64, _ string) ([]canvas.Assignment, error) {
	f.record(fmt.Sprintf("assignments:%d", groupID))
	return f.assignments[groupID], nil
}

func (f *fakeCanvas) ListStudents(_ context.Context, _ string, _ string) ([]canvas.User, error) {
	f.record("students")
	return f.students, nil
}

func (f *fakeCanvas) GetSubmission(_ context.Context, _ string, assignmentID int64, studentID, _ string) (*canvas.Submission, error) {
	f.record(fmt.Sprintf("submission:%s/%d", studentID, assignmentID))
	if f.err != nil {
		return nil, f.err
	}
	return &canvas.Submission{AssignmentID: assignmentID, Score: f.scores[fmt.Sprintf("%s/%d", studentID, assignmentID)]}, nil
}

func floatPtr(v float64) *float64 {
	return &v
}

func score(v float64) canvas.Score {
	return canvas.Score{Value: v, Valid: true}
}

// newCourseFixture is a two group course: homework drops its lowest but never
// drops assignment 12; exams has no rules.
func newCourseFixture() *fakeCanvas {
	return &fakeCanvas{
		groups: []canvas.AssignmentGroup{
			{ID: 1, Name: "Homework", GroupWeight: 40, Rules: []byte(`{"drop_lowest":1,"never_drop":[12]}`)},
			{ID: 2, Name: "Exams", GroupWeight: 60, Rules: []byte(`{}`)},
		},
		assignments: map[int64][]canvas.Assignment{
			1: {
				{ID: 11, Name: "HW1", PointsPossible: floatPtr(10)},
				{ID: 12, Name: "HW2", PointsPossible: floatPtr(10)},
				{ID: 13, Name: "HW3", PointsPossible: floatPtr(10)},
				{ID: 14, Name: "Extra", PointsPossible: floatPtr(5), OmitFromFinalGrade: true},
				{ID: 15, Name: DefaultAttendanceAssignment, PointsPossible: floatPtr(1)},
			},
			2: {
				{ID: 21, Name: "Midterm", PointsPossible: floatPtr(100)},
				{ID: 22, Name: "Final"},
			},
		},
		students: []canvas.User{
			{ID: 77, Name: "Ada Lovelace", SortableName: "Lovelace, Ada"},
			{ID: 78, Name: "Alan Turing", SortableName: "Turing, Alan"},
		},
		scores: map[string]canvas.Score{
			"77/11": score(9),
			"77/12": score(1),
			"77/13": score(6),
			"77/21": score(80),
			"78/11": score(10),
			"78/12": score(10),
			"78/13": score(0),
			"78/21": score(90),
			"78/22": score(0),
		},
	}
}

func newTestStructures() *StructureService {
	return NewStructureService(repository.NewMemoryStructureRepository(), nil, nil)
}
