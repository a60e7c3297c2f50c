package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-gradebook/pkg/canvas"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

func TestCourseServiceFetchCourse(t *testing.T) {
	api := newCourseFixture()
	structures := newTestStructures()
	svc := NewCourseService(api, structures, "", nil, nil)

	structure, err := svc.FetchCourse(context.Background(), FetchCourseRequest{CourseID: " 1234 ", Token: "tok"})
	require.NoError(t, err)

	assert.Equal(t, "1234", structure.CourseID)
	assert.Equal(t, int64(1), structure.Version)
	require.Len(t, structure.Categories, 2)

	homework := structure.Categories[0]
	assert.Equal(t, "Homework", homework.Name)
	assert.Equal(t, 40.0, homework.Weight)
	require.NotNil(t, homework.Rules.DropLowest)
	assert.Equal(t, 1, *homework.Rules.DropLowest)
	assert.Nil(t, homework.Rules.DropHighest)
	assert.Equal(t, []int64{12}, homework.Rules.NeverDrop)

	names := make([]string, 0, len(homework.Assignments))
	for _, a := range homework.Assignments {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"HW1", "HW2", "HW3"}, names)

	exams := structure.Categories[1]
	assert.False(t, exams.Rules.HasDropRule())
	require.Len(t, exams.Assignments, 2)
	assert.Equal(t, 0.0, exams.Assignments[1].PointsPossible)

	require.Len(t, structure.Roster, 2)
	assert.Equal(t, "Lovelace, Ada", structure.Roster[0].SortableName)

	assert.Equal(t, []string{"groups:1234", "assignments:1", "assignments:2", "students"}, api.calls)

	stored, err := svc.Structure(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, structure.Categories, stored.Categories)
}

func TestCourseServiceFetchOverwritesWithNewVersion(t *testing.T) {
	api := newCourseFixture()
	svc := NewCourseService(api, newTestStructures(), "", nil, nil)

	_, err := svc.FetchCourse(context.Background(), FetchCourseRequest{CourseID: "1234", Token: "tok"})
	require.NoError(t, err)

	api.groups = api.groups[:1]
	second, err := svc.FetchCourse(context.Background(), FetchCourseRequest{CourseID: "1234", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	stored, err := svc.Structure(context.Background(), "1234")
	require.NoError(t, err)
	assert.Len(t, stored.Categories, 1)
	assert.Equal(t, int64(2), stored.Version)
}

func TestCourseServiceCustomAttendanceName(t *testing.T) {
	api := newCourseFixture()
	svc := NewCourseService(api, newTestStructures(), "HW3", nil, nil)

	structure, err := svc.FetchCourse(context.Background(), FetchCourseRequest{CourseID: "1234", Token: "tok"})
	require.NoError(t, err)

	names := []string{}
	for _, a := range structure.Categories[0].Assignments {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"HW1", "HW2", DefaultAttendanceAssignment}, names)
}

func TestCourseServiceFetchRequiresInputs(t *testing.T) {
	svc := NewCourseService(newCourseFixture(), newTestStructures(), "", nil, nil)

	_, err := svc.FetchCourse(context.Background(), FetchCourseRequest{Token: "tok"})
	assert.True(t, errors.Is(err, appErrors.ErrConfiguration))

	_, err = svc.FetchCourse(context.Background(), FetchCourseRequest{CourseID: "1234"})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestCourseServiceFetchMapsUpstreamErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want *appErrors.Error
	}{
		{"rejected token", &canvas.APIError{StatusCode: http.StatusUnauthorized}, appErrors.ErrUnauthorized},
		{"missing token", canvas.ErrMissingToken, appErrors.ErrUnauthorized},
		{"server error", &canvas.APIError{StatusCode: http.StatusInternalServerError}, appErrors.ErrUpstream},
		{"transport", errors.New("connection reset"), appErrors.ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newCourseFixture()
			api.err = tc.err
			structures := newTestStructures()
			svc := NewCourseService(api, structures, "", nil, nil)

			_, err := svc.FetchCourse(context.Background(), FetchCourseRequest{CourseID: "1234", Token: "tok"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())

			_, err = structures.Load(context.Background(), "1234")
			assert.True(t, errors.Is(err, appErrors.ErrStructureMissing), "failed fetch must not store a structure")
		})
	}
}

func TestCourseServiceStructureMissing(t *testing.T) {
	svc := NewCourseService(newCourseFixture(), newTestStructures(), "", nil, nil)

	_, err := svc.Roster(context.Background(), "999")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusPreconditionFailed, appErr.Status)
	assert.Contains(t, appErr.Message, "fetch course")
}
