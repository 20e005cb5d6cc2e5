package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/model"
)

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newFMP(t *testing.T, h http.HandlerFunc) *FMPProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	p, err := NewFMPProvider("test-key", WithBaseURL(srv.URL), WithRateLimit(0))
	require.NoError(t, err)
	return p
}

func newYahoo(t *testing.T, h http.HandlerFunc) *YahooProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewYahooProvider(WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestNewFMPProvider_MissingKey(t *testing.T) {
	_, err := NewFMPProvider("")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFMPQuote(t *testing.T) {
	p := newFMP(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "CRM", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, `[{"symbol":"CRM","price":110.5,"previousClose":100,"change":10.5,"changesPercentage":10.5}]`)
	})

	res := p.Quote(context.Background(), "CRM")
	require.Equal(t, StatusOK, res.Status, res.Err)
	assert.Equal(t, 110.5, res.Quote.Price.Float64)
	assert.Equal(t, 100.0, res.Quote.PreviousClose.Float64)
	assert.Equal(t, 10.5, res.Quote.ChangePercent.Float64)
}

func TestFMPQuote_Statuses(t *testing.T) {
	cases := []struct {
		name   string
		code   int
		body   string
		status Status
	}{
		{"empty list", 200, `[]`, StatusAbsent},
		{"plan upgrade", 402, `{}`, StatusAbsent},
		{"forbidden", 403, `{}`, StatusAbsent},
		{"not found", 404, `{}`, StatusAbsent},
		{"rate limited", 429, `{}`, StatusTransient},
		{"server error", 503, `oops`, StatusTransient},
		{"error envelope", 200, `{"Error Message":"Premium Query Parameter: upgrade required"}`, StatusAbsent},
		{"limit envelope", 200, `{"Error Message":"Limit Reach . Please upgrade your plan"}`, StatusTransient},
		{"garbage", 200, `<html>`, StatusTransient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newFMP(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				fmt.Fprint(w, tc.body)
			})
			res := p.Quote(context.Background(), "X")
			assert.Equal(t, tc.status, res.Status)
			assert.Error(t, res.Err)
			assert.Nil(t, res.Quote)
		})
	}
}

func TestFMPQuote_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	p, err := NewFMPProvider("k", WithBaseURL(srv.URL), WithRateLimit(0))
	require.NoError(t, err)

	res := p.Quote(context.Background(), "X")
	assert.Equal(t, StatusTransient, res.Status)
}

func TestFMPHistorical_FlatAndLegacy(t *testing.T) {
	flat := `[{"date":"2026-02-03","open":9,"close":10},{"date":"2026-02-04","open":10,"close":11}]`
	legacy := `{"symbol":"X","historical":[{"date":"2026-02-04","close":11},{"date":"2026-02-03","close":10}]}`

	for name, body := range map[string]string{"flat": flat, "legacy": legacy} {
		t.Run(name, func(t *testing.T) {
			p := newFMP(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/historical-price-eod/full", r.URL.Path)
				assert.Equal(t, "2026-02-01", r.URL.Query().Get("from"))
				assert.Equal(t, "2026-02-06", r.URL.Query().Get("to"))
				fmt.Fprint(w, body)
			})
			res := p.HistoricalBars(context.Background(), "X", date("2026-02-01"), date("2026-02-06"))
			require.Equal(t, StatusOK, res.Status, res.Err)
			require.Len(t, res.Bars, 2)
			assert.Equal(t, date("2026-02-04"), res.Bars[0].Date, "newest first")
			assert.Equal(t, 11.0, res.Bars[0].Close.Float64)
		})
	}
}

func TestFMPHistorical_Empty(t *testing.T) {
	p := newFMP(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	res := p.HistoricalBars(context.Background(), "X", date("2026-02-01"), date("2026-02-06"))
	assert.Equal(t, StatusAbsent, res.Status)
}

const yahooBody = `{"chart":{"result":[{"meta":{"gmtoffset":32400},
"timestamp":[%d,%d,%d],
"indicators":{"quote":[{"open":[99,null,104],"high":[101,null,106],"low":[98,null,103],"close":[100,null,105]}]}}],"error":null}}`

func TestYahooQuote_LastTwoCloses(t *testing.T) {
	// 23:30 UTC is 08:30 the next day in Tokyo.
	d1 := time.Date(2026, 2, 2, 23, 30, 0, 0, time.UTC).Unix()
	d2 := time.Date(2026, 2, 3, 23, 30, 0, 0, time.UTC).Unix()
	d3 := time.Date(2026, 2, 4, 23, 30, 0, 0, time.UTC).Unix()
	y := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/4478.T", r.URL.Path)
		assert.Equal(t, "5d", r.URL.Query().Get("range"))
		fmt.Fprintf(w, yahooBody, d1, d2, d3)
	})

	res := y.Quote(context.Background(), "4478.T")
	require.Equal(t, StatusOK, res.Status, res.Err)
	assert.Equal(t, 105.0, res.Quote.Price.Float64)
	assert.Equal(t, 100.0, res.Quote.PreviousClose.Float64)
	assert.Equal(t, 5.0, res.Quote.ChangePercent.Float64)
}

func TestYahooHistorical_ExchangeLocalDates(t *testing.T) {
	d1 := time.Date(2026, 2, 2, 23, 30, 0, 0, time.UTC).Unix()
	d2 := time.Date(2026, 2, 3, 23, 30, 0, 0, time.UTC).Unix()
	d3 := time.Date(2026, 2, 4, 23, 30, 0, 0, time.UTC).Unix()
	y := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprint(date("2026-02-03").Unix()), r.URL.Query().Get("period1"))
		assert.Equal(t, fmt.Sprint(date("2026-02-06").Unix()), r.URL.Query().Get("period2"))
		fmt.Fprintf(w, yahooBody, d1, d2, d3)
	})

	res := y.HistoricalBars(context.Background(), "4478.T", date("2026-02-03"), date("2026-02-05"))
	require.Equal(t, StatusOK, res.Status, res.Err)
	require.Len(t, res.Bars, 2, "null bar dropped")
	assert.Equal(t, date("2026-02-05"), res.Bars[0].Date)
	assert.Equal(t, date("2026-02-03"), res.Bars[1].Date)
}

func TestYahoo_AbsentHeuristics(t *testing.T) {
	cases := map[string]struct {
		code int
		body string
		want Status
	}{
		"delisted 404": {404, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, StatusAbsent},
		"timezone":     {200, `{"chart":{"result":null,"error":{"code":"Bad Request","description":"No timezone found"}}}`, StatusAbsent},
		"rate limited": {429, `Too Many Requests`, StatusTransient},
		"server error": {500, `{}`, StatusTransient},
		"empty result": {200, `{"chart":{"result":[],"error":null}}`, StatusAbsent},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			y := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				fmt.Fprint(w, tc.body)
			})
			res := y.Quote(context.Background(), "SMAR")
			assert.Equal(t, tc.want, res.Status)
			assert.Error(t, res.Err)
		})
	}
}

func TestMockProvider_QueueAndWindow(t *testing.T) {
	m := NewMockProvider("mock").
		SetQuote("A", TransientQuote(), OKQuote("A", 10, 9)).
		SetBars("A", OKBars(
			model.Bar{Date: date("2026-01-01")},
			model.Bar{Date: date("2026-01-10")},
		))

	ctx := context.Background()
	assert.Equal(t, StatusTransient, m.Quote(ctx, "A").Status)
	assert.Equal(t, StatusOK, m.Quote(ctx, "A").Status)
	assert.Equal(t, StatusOK, m.Quote(ctx, "A").Status, "last result repeats")
	assert.Equal(t, StatusAbsent, m.Quote(ctx, "B").Status)

	res := m.HistoricalBars(ctx, "A", date("2026-01-05"), date("2026-01-12"))
	require.Equal(t, StatusOK, res.Status)
	assert.Len(t, res.Bars, 1)

	assert.Equal(t, 3, m.CallCount("quote", "A"))
	assert.Equal(t, 1, m.CallCount("historical", "A"))
}
