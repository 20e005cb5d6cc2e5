package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "test.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordRunAndRecentRuns(t *testing.T) {
	r := openTestRecorder(t)
	start := time.Date(2026, 2, 5, 22, 0, 0, 0, time.UTC)

	first := model.NewRunReport(model.RunDaily, "2026-02-05", start)
	first.Add("AAA", model.OutcomePrimary, "fmp", "2026-02-05")
	first.Add("BBB", model.OutcomeFallback, "yahoo", "2026-02-05")
	first.Add("CCC", model.OutcomeMissing, "", "")
	first.FinishedAt = start.Add(time.Minute)
	require.NoError(t, r.RecordRun(first))

	second := model.NewRunReport(model.RunRepair, "2026-02-05", start.Add(time.Hour))
	second.Add("CCC", model.OutcomeHistorical, "yahoo", "2026-02-05")
	require.NoError(t, r.RecordRun(second))

	runs, err := r.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, model.RunRepair, runs[0].Kind)
	assert.True(t, runs[0].FinishedAt.IsZero())

	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 2, runs[1].Resolved)
	assert.Equal(t, 1, runs[1].Missing)
	assert.Equal(t, start.Unix(), runs[1].StartedAt.Unix())

	var outcomes int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM symbol_outcomes WHERE run_id = ?`, first.ID).Scan(&outcomes))
	assert.Equal(t, 3, outcomes)
}

func TestRecordRunDuplicateID(t *testing.T) {
	r := openTestRecorder(t)
	report := model.NewRunReport(model.RunBaseline, "2026-02-03", time.Now())
	require.NoError(t, r.RecordRun(report))
	assert.Error(t, r.RecordRun(report))
}

func TestRecentRunsLimit(t *testing.T) {
	r := openTestRecorder(t)
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, r.RecordRun(model.NewRunReport(model.RunDaily, "", base.Add(time.Duration(i)*time.Hour))))
	}
	runs, err := r.RecentRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRecordValidation(t *testing.T) {
	r := openTestRecorder(t)
	require.NoError(t, r.RecordValidation(&ValidationEvent{
		LatestDaily: "2026-02-05",
		Gaps:        []string{"baseline.json missing tickers: CCC"},
	}))

	var ok bool
	var gaps string
	require.NoError(t, r.db.QueryRow(`SELECT ok, gaps FROM validations`).Scan(&ok, &gaps))
	assert.False(t, ok)
	assert.Equal(t, "baseline.json missing tickers: CCC", gaps)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordRun(model.NewRunReport(model.RunDaily, "", time.Now())))
	runs, err := r.RecentRuns(5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
}
