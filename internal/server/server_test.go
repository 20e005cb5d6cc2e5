package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/recorder"
	"SectorSentinel/internal/store"
)

func newTestServer(t *testing.T, rec recorder.Recorder) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return New(st, rec, logging.Discard()), st
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListFiles(t *testing.T) {
	s, st := newTestServer(t, nil)
	require.NoError(t, store.WriteJSON(st.DailyPath("2026-02-05"), map[string]int{}))
	require.NoError(t, store.WriteJSON(st.BaselinePath(), map[string]int{}))
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir, "notes.txt"), []byte("x"), 0o644))

	w := get(t, s, "/api/data")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct{ Files []string }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"2026-02-05.json", "baseline.json"}, body.Files)
}

func TestListFilesMissingDir(t *testing.T) {
	s, st := newTestServer(t, nil)
	require.NoError(t, os.RemoveAll(st.Dir))

	w := get(t, s, "/api/data")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"files":[]}`, w.Body.String())
}

func TestGetFile(t *testing.T) {
	s, st := newTestServer(t, nil)
	require.NoError(t, store.WriteJSON(st.BaselinePath(), map[string]string{"date": "2026-02-03"}))

	w := get(t, s, "/api/data/baseline.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"date":"2026-02-03"}`, w.Body.String())

	for _, path := range []string{"/api/data/missing.json", "/api/data/..%2Fsecret.json", "/api/data/notes.txt"} {
		assert.Equal(t, http.StatusNotFound, get(t, s, path).Code, path)
	}
}

func TestHealth(t *testing.T) {
	s, st := newTestServer(t, nil)
	require.NoError(t, store.WriteJSON(st.DailyPath("2026-02-04"), map[string]int{}))
	require.NoError(t, store.WriteJSON(st.DailyPath("2026-02-05"), map[string]int{}))

	w := get(t, s, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","latest_daily":"2026-02-05","baseline":false,"ltm_high":false}`, w.Body.String())
}

func TestRuns(t *testing.T) {
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), logging.Discard())
	require.NoError(t, err)
	defer rec.Close()
	report := model.NewRunReport(model.RunDaily, "2026-02-05", time.Date(2026, 2, 5, 22, 0, 0, 0, time.UTC))
	report.Add("AAA", model.OutcomePrimary, "fmp", "2026-02-05")
	require.NoError(t, rec.RecordRun(report))

	s, _ := newTestServer(t, rec)
	w := get(t, s, "/api/runs?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Runs []runJSON `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, report.ID, body.Runs[0].ID)
	assert.Equal(t, 1, body.Runs[0].Resolved)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/runs?limit=abc").Code)
}
