package linkheader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{
			name:   "canvas first page",
			header: `<https://canvas.test/api/v1/courses/1/users?page=1&per_page=10>; rel="current",<https://canvas.test/api/v1/courses/1/users?page=2&per_page=10>; rel="next",<https://canvas.test/api/v1/courses/1/users?page=1&per_page=10>; rel="first",<https://canvas.test/api/v1/courses/1/users?page=3&per_page=10>; rel="last"`,
			want:   "https://canvas.test/api/v1/courses/1/users?page=2&per_page=10",
			ok:     true,
		},
		{
			name:   "last page has no next",
			header: `<https://canvas.test/x?page=3>; rel="current", <https://canvas.test/x?page=1>; rel="first", <https://canvas.test/x?page=3>; rel="last"`,
			ok:     false,
		},
		{
			name:   "unquoted relation",
			header: `<https://canvas.test/x?page=2>; rel=next`,
			want:   "https://canvas.test/x?page=2",
			ok:     true,
		},
		{
			name:   "multiple relation values",
			header: `<https://canvas.test/x?page=2>; rel="next last"`,
			want:   "https://canvas.test/x?page=2",
			ok:     true,
		},
		{
			name:   "empty header",
			header: "",
			ok:     false,
		},
		{
			name:   "malformed target",
			header: `https://canvas.test/x?page=2; rel="next"`,
			ok:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Next(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse(t *testing.T) {
	links, err := Parse(`<https://canvas.test/x?page=2>; rel="next", <https://canvas.test/x?page=9>; rel="last"`)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://canvas.test/x?page=9", links[1].URL)
	assert.True(t, links[1].HasRel("last"))

	last, ok := Find(links, "last")
	assert.True(t, ok)
	assert.Equal(t, "https://canvas.test/x?page=9", last)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse(`<https://canvas.test/x?page=2>; rel`)
	require.Error(t, err)

	_, err = Parse(`<>; rel="next"`)
	require.Error(t, err)
}
