package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/config"
	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/news"
)

const testUniverse = `
instruments:
  - {symbol: AAA, name: Alpha, sector: s}
  - {symbol: BBB, name: Beta, sector: s}
sectors:
  - {id: s, name: Sector S, tickers: [AAA, BBB]}
private_companies: [Acme]
`

// chartServer serves the same two daily bars for every symbol.
func chartServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts4 := time.Date(2026, 2, 4, 21, 0, 0, 0, time.UTC).Unix()
	ts5 := time.Date(2026, 2, 5, 21, 0, 0, 0, time.UTC).Unix()
	body := fmt.Sprintf(`{"chart":{"result":[{"meta":{"gmtoffset":-18000},"timestamp":[%d,%d],
		"indicators":{"quote":[{"open":[99,101],"high":[101,111],"low":[98,100],"close":[100,110]}]}}],"error":null}}`, ts4, ts5)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	universePath := filepath.Join(dir, "universe.yaml")
	require.NoError(t, os.WriteFile(universePath, []byte(testUniverse), 0o644))

	cfg, err := config.Load("missing.yaml")
	require.NoError(t, err)
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.UniversePath = universePath
	cfg.ZeroDate = "2026-02-04"
	cfg.Providers.FMP.APIKey = ""
	cfg.Providers.Yahoo.Disabled = false
	cfg.Providers.Yahoo.BaseURL = chartServer(t).URL
	cfg.Providers.Yahoo.RateLimit = -1
	zero := 0
	cfg.Providers.MaxRetries = &zero
	cfg.Providers.RetryDelay = time.Millisecond
	cfg.Providers.SymbolDelay = time.Millisecond
	cfg.Database.SQLitePath = filepath.Join(dir, "runs.db")
	cfg.Telegram.BotToken, cfg.Telegram.ChatID = "", ""
	require.NoError(t, cfg.Validate())

	a, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestEndToEnd(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	date := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)

	report, err := a.FetchDaily(ctx, date, false)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Resolved())

	snap, err := a.Store.LoadDaily("2026-02-05")
	require.NoError(t, err)
	assert.Equal(t, 110.0, snap.Tickers["AAA"].Close)
	assert.Equal(t, 10.0, snap.Tickers["AAA"].DailyPct)
	assert.Equal(t, 10.0, snap.Sectors["s"].AvgDailyPct)

	// Second run leaves the snapshot alone.
	again, err := a.FetchDaily(ctx, date, false)
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	_, err = a.Validate(ctx)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = a.BuildBaseline(ctx, false, false)
	require.NoError(t, err)
	_, err = a.BuildTrailingHigh(ctx, false, false)
	require.NoError(t, err)

	base, err := a.Store.LoadBaseline()
	require.NoError(t, err)
	assert.Equal(t, 100.0, base.Tickers["BBB"].Price)
	assert.Equal(t, model.SourceHistorical, base.Tickers["BBB"].Source)

	cov, err := a.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, cov.OK())
	assert.Equal(t, "2026-02-05", cov.LatestDaily)

	runs, err := a.Recorder.RecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

func TestFetchIntradayRejectsBadLabel(t *testing.T) {
	a := newTestApp(t)
	_, err := a.FetchIntraday(context.Background(), time.Now(), "../x", false)
	assert.Error(t, err)
}

func TestPrivateHealthNeedsKey(t *testing.T) {
	a := newTestApp(t)
	a.Config.News.APIKey = ""
	_, err := a.PrivateHealth(context.Background())
	assert.ErrorIs(t, err, news.ErrMissingAPIKey)
}

func TestRepairWithNothingPersisted(t *testing.T) {
	a := newTestApp(t)
	reports, err := a.Repair(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reports)
}
