package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

func fetchedFixture(t *testing.T) (*fakeCanvas, *StructureService) {
	t.Helper()
	api := newCourseFixture()
	structures := newTestStructures()
	_, err := NewCourseService(api, structures, "", nil, nil).FetchCourse(context.Background(), FetchCourseRequest{CourseID: "1234", Token: "tok"})
	require.NoError(t, err)
	api.calls = nil
	return api, structures
}

func itemsByName(c models.CategoryGrades) map[string]models.GradedItem {
	out := make(map[string]models.GradedItem, len(c.Items))
	for _, item := range c.Items {
		out[item.Name] = item
	}
	return out
}

func TestGradeServiceStudentGrades(t *testing.T) {
	api, structures := fetchedFixture(t)
	metrics := NewMetricsService()
	svc := NewGradeService(api, structures, metrics, "", nil, nil)

	grades, err := svc.StudentGrades(context.Background(), GradeRequest{
		CourseID:     "1234",
		StudentID:    "77",
		NotYetGraded: floatPtr(0),
		Token:        "tok",
	})
	require.NoError(t, err)

	assert.Equal(t, "Lovelace, Ada", grades.StudentName)
	assert.Equal(t, int64(1), grades.StructureVersion)
	require.Len(t, grades.Categories, 2)

	homework := itemsByName(grades.Categories[0])
	assert.False(t, homework["HW1"].Dropped)
	assert.True(t, homework["HW2"].NeverDrop)
	assert.False(t, homework["HW2"].Dropped, "never-drop item must survive despite lowest score")
	assert.True(t, homework["HW3"].Dropped)

	exams := itemsByName(grades.Categories[1])
	assert.Equal(t, 80.0, exams["Midterm"].Score)
	assert.Equal(t, 0.0, exams["Final"].Score, "ungraded takes the not-yet-graded value")
	assert.Equal(t, 0, grades.Categories[1].DroppedCount())

	assert.Equal(t, []string{"submission:77/11", "submission:77/12", "submission:77/13", "submission:77/21", "submission:77/22"}, api.calls)

	assert.Equal(t, 1.0, counterValue(t, metrics, "grading_runs_total", map[string]string{"result": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, metrics, "dropped_items_total", nil))
}

func TestGradeServiceNotYetGradedSubstitution(t *testing.T) {
	api, structures := fetchedFixture(t)
	svc := NewGradeService(api, structures, nil, "", nil, nil)

	grades, err := svc.StudentGrades(context.Background(), GradeRequest{
		CourseID:     "1234",
		StudentID:    "77",
		NotYetGraded: floatPtr(75),
		Token:        "tok",
	})
	require.NoError(t, err)

	exams := itemsByName(grades.Categories[1])
	assert.Equal(t, 75.0, exams["Final"].Score)
	assert.Equal(t, 75.0, grades.NotYetGraded)
}

func TestGradeServiceZeroScoreIsKept(t *testing.T) {
	api, structures := fetchedFixture(t)
	svc := NewGradeService(api, structures, nil, "", nil, nil)

	grades, err := svc.StudentGrades(context.Background(), GradeRequest{
		CourseID:     "1234",
		StudentID:    "78",
		NotYetGraded: floatPtr(50),
		Token:        "tok",
	})
	require.NoError(t, err)

	homework := itemsByName(grades.Categories[0])
	assert.Equal(t, 0.0, homework["HW3"].Score)
	assert.True(t, homework["HW3"].Dropped)
	assert.Equal(t, 0.0, itemsByName(grades.Categories[1])["Final"].Score)
}

func TestGradeServiceStructureMissing(t *testing.T) {
	api := newCourseFixture()
	svc := NewGradeService(api, newTestStructures(), nil, "", nil, nil)

	_, err := svc.StudentGrades(context.Background(), GradeRequest{
		CourseID:     "1234",
		StudentID:    "77",
		NotYetGraded: floatPtr(0),
		Token:        "tok",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStructureMissing))
	assert.Empty(t, api.calls)
}

func TestGradeServiceRequiresInputs(t *testing.T) {
	api, structures := fetchedFixture(t)
	svc := NewGradeService(api, structures, nil, "", nil, nil)

	_, err := svc.StudentGrades(context.Background(), GradeRequest{CourseID: "1234", StudentID: "77", Token: "tok"})
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))

	_, err = svc.StudentGrades(context.Background(), GradeRequest{CourseID: "1234", NotYetGraded: floatPtr(0), Token: "tok"})
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))

	_, err = svc.StudentGrades(context.Background(), GradeRequest{CourseID: "1234", StudentID: "77", NotYetGraded: floatPtr(0)})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestGradeServiceUpstreamFailureAbortsRun(t *testing.T) {
	api, structures := fetchedFixture(t)
	api.err = errors.New("timeout")
	metrics := NewMetricsService()
	svc := NewGradeService(api, structures, metrics, "", nil, nil)

	grades, err := svc.StudentGrades(context.Background(), GradeRequest{
		CourseID:     "1234",
		StudentID:    "77",
		NotYetGraded: floatPtr(0),
		Token:        "tok",
	})
	assert.Nil(t, grades)
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Len(t, api.calls, 1)
	assert.Equal(t, 1.0, counterValue(t, metrics, "grading_runs_total", map[string]string{"result": "error"}))
}

func TestParseNotYetGraded(t *testing.T) {
	cases := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: "Use Zero", want: 0},
		{raw: "use zero", want: 0},
		{raw: "85", want: 85},
		{raw: " 72.5 ", want: 72.5},
		{raw: "0", want: 0},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseNotYetGraded(tc.raw)
		if tc.wantErr {
			assert.True(t, errors.Is(err, appErrors.ErrConfiguration), tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestGradeServiceNotYetGradedDefault(t *testing.T) {
	svc := NewGradeService(nil, nil, nil, "Use Zero", nil, nil)
	v, err := svc.NotYetGraded("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	v, err = svc.NotYetGraded("60")
	require.NoError(t, err)
	assert.Equal(t, 60.0, v)

	_, err = NewGradeService(nil, nil, nil, "", nil, nil).NotYetGraded("")
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))
}
