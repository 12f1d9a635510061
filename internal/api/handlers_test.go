package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heredity/internal/concurrency"
	"heredity/internal/executor"
	"heredity/internal/heredity"
	"heredity/internal/report"
	"heredity/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const potterJSON = `{"individuals":[
	{"id":"Harry","mother":"Lily","father":"James","trait":null},
	{"id":"James","trait":true},
	{"id":"Lily","trait":false}
]}`

type testServer struct {
	router  *gin.Engine
	store   *storage.SQLiteStorage
	limiter *concurrency.RateLimiter
}

func newTestServer(t *testing.T, withStore bool) *testServer {
	t.Helper()

	var store *storage.SQLiteStorage
	var st storage.Storage
	if withStore {
		var err error
		store, err = storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		st = store
	}

	exec := executor.NewExecutor(heredity.NewDefaultEngine(), executor.Options{MaxIndividuals: 8, Store: st})
	t.Cleanup(func() { exec.Close() })

	limiter := concurrency.NewRateLimiter(2)
	router := gin.New()
	SetupRoutes(router, exec, st, limiter)
	return &testServer{router: router, store: store, limiter: limiter}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck_ReturnsOK(t *testing.T) {
	srv := newTestServer(t, false)
	w := srv.do("GET", "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Status string `json:"status"`
		Slots  int    `json:"inference_slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, srv.limiter.Capacity(), response.Slots)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, false)
	srv.do("POST", "/v1/infer", potterJSON)

	w := srv.do("GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "heredity_worlds_evaluated_total")
}

func TestHandleInfer_JSON(t *testing.T) {
	srv := newTestServer(t, false)
	w := srv.do("POST", "/v1/infer?run_id=api-run", potterJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary report.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "api-run", summary.RunID)
	assert.EqualValues(t, 54, summary.Worlds)
	require.Len(t, summary.Posteriors, 3)
	assert.InDelta(t, 1, summary.Posteriors["James"].Trait.P(true), 1e-12)
	assert.InDelta(t, 1, summary.Posteriors["Harry"].Gene.Sum(), 1e-9)
}

func TestHandleInfer_Text(t *testing.T) {
	srv := newTestServer(t, false)
	w := srv.do("POST", "/v1/infer?format=text", potterJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "Harry:\n  Gene:\n    2: "), body)
	assert.Contains(t, body, "James:\n")
	assert.Contains(t, body, "    True: 1.0000\n")
}

func TestHandleInfer_Errors(t *testing.T) {
	tooBig := `{"individuals":[` +
		`{"id":"a"},{"id":"b"},{"id":"c"},{"id":"d"},{"id":"e"},{"id":"f"},{"id":"g"},{"id":"h"},{"id":"i"}]}`

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"Malformed JSON", "/v1/infer", `{"individuals": [`, http.StatusBadRequest},
		{"Unknown field", "/v1/infer", `{"people": []}`, http.StatusBadRequest},
		{"Unknown parent", "/v1/infer", `{"individuals":[{"id":"A","mother":"M","father":"F"}]}`, http.StatusBadRequest},
		{"Empty pedigree", "/v1/infer", `{"individuals":[]}`, http.StatusBadRequest},
		{"Too many individuals", "/v1/infer", tooBig, http.StatusBadRequest},
		{"Bad format", "/v1/infer?format=xml", potterJSON, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, false)
			w := srv.do("POST", tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestHandleInfer_RateLimited(t *testing.T) {
	srv := newTestServer(t, false)
	require.True(t, srv.limiter.TryAcquire())
	require.True(t, srv.limiter.TryAcquire())
	defer srv.limiter.Release()
	defer srv.limiter.Release()

	w := srv.do("POST", "/v1/infer", potterJSON)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRunsEndpoints(t *testing.T) {
	srv := newTestServer(t, true)

	w := srv.do("POST", "/v1/infer?run_id=stored", potterJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Stored run ids are not reused
	w = srv.do("POST", "/v1/infer?run_id=stored", potterJSON)
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = srv.do("GET", "/v1/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs []RunResponse `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "stored", list.Runs[0].ID)
	assert.Equal(t, "SUCCEEDED", list.Runs[0].Status)

	w = srv.do("GET", "/v1/runs/stored", "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Run         RunResponse                   `json:"run"`
		Individuals []heredity.Individual         `json:"individuals"`
		Posteriors  map[string]heredity.Posterior `json:"posteriors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.EqualValues(t, 54, detail.Run.Worlds)
	assert.Len(t, detail.Individuals, 3)
	assert.Len(t, detail.Posteriors, 3)

	w = srv.do("DELETE", "/v1/runs/stored", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do("GET", "/v1/runs/stored", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do("DELETE", "/v1/runs/stored", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do("GET", "/v1/runs?limit=0", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = srv.do("GET", "/v1/runs?limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunsEndpointsWithoutStorage(t *testing.T) {
	srv := newTestServer(t, false)
	for _, req := range [][2]string{{"GET", "/v1/runs"}, {"GET", "/v1/runs/x"}, {"DELETE", "/v1/runs/x"}} {
		w := srv.do(req[0], req[1], "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, req[1])
	}
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, statusForError(heredity.ErrDivisionUndefined))
	assert.Equal(t, http.StatusConflict, statusForError(executor.ErrRunInProgress))
	assert.Equal(t, http.StatusConflict, statusForError(executor.ErrRunExists))
	assert.Equal(t, http.StatusBadRequest, statusForError(&heredity.PedigreeError{Issues: []string{"x"}}))
	assert.Equal(t, http.StatusInternalServerError, statusForError(assert.AnError))
}
