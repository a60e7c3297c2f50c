package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-gradebook/pkg/config"
)

func newCanvasServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(path, body string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer cli-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	reply("/courses/5/assignment_groups", `[{"id":1,"name":"Quizzes","group_weight":100,"rules":{"drop_lowest":1}}]`)
	reply("/courses/5/assignment_groups/1/assignments", `[{"id":11,"name":"Q1","points_possible":10},{"id":12,"name":"Q2","points_possible":10}]`)
	reply("/courses/5/users", `[{"id":77,"name":"Ada Lovelace","sortable_name":"Lovelace, Ada"}]`)
	reply("/courses/5/assignments/11/submissions/77", `{"id":1,"assignment_id":11,"user_id":77,"score":9}`)
	reply("/courses/5/assignments/12/submissions/77", `{"id":2,"assignment_id":12,"user_id":77,"score":null}`)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Canvas: config.CanvasConfig{BaseURL: baseURL, Token: "cli-token", PerPage: 10},
		Store:  config.StoreConfig{Backend: config.StoreBackendMemory},
	}
}

func TestRunReportWithFetch(t *testing.T) {
	srv := newCanvasServer(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), testConfig(srv.URL), zap.NewNop(),
		[]string{"report", "-course", "5", "-student", "77", "-nyg", "Use Zero", "-fetch", "-out", "-"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	records, err := csv.NewReader(&stdout).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "Lovelace, Ada", records[0][1])
	assert.Equal(t, "Quizzes", records[3][0])
	// Q2 is ungraded, scores 0 and is the dropped lowest.
	assert.Equal(t, []string{"", "Q2", "10", "0", "drop", `=IF(E6<>"drop", D6, "Omit")`}, records[5][:6])
}

func TestRunReportWritesFile(t *testing.T) {
	srv := newCanvasServer(t)
	out := filepath.Join(t.TempDir(), "ada.pdf")
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), testConfig(srv.URL), zap.NewNop(),
		[]string{"report", "-course", "5", "-student", "77", "-nyg", "0", "-fetch", "-format", "pdf", "-out", out}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Contains(t, stdout.String(), out)
}

func TestRunGradesWithoutFetch(t *testing.T) {
	srv := newCanvasServer(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), testConfig(srv.URL), zap.NewNop(),
		[]string{"grades", "-course", "5", "-student", "77", "-nyg", "0"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "STRUCTURE_MISSING")
}

func TestRunFetchCourseRejectedToken(t *testing.T) {
	srv := newCanvasServer(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), testConfig(srv.URL), zap.NewNop(),
		[]string{"fetch-course", "-course", "5", "-token", "stale"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "UNAUTHORIZED")
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), testConfig(""), zap.NewNop(), nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "fetch-course")

	stderr.Reset()
	assert.Equal(t, 2, run(context.Background(), testConfig(""), zap.NewNop(), []string{"bogus"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "bogus"`)
}
