package calculator

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorSentinel/internal/model"
)

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}

func closeBar(d time.Time, c float64) model.Bar {
	return model.Bar{Date: d, Close: null.FloatFrom(c)}
}

func testUniverse(t *testing.T) *model.Universe {
	t.Helper()
	u, err := model.NewUniverse(
		[]model.Instrument{
			{Symbol: "AAA", Name: "Alpha", Sector: "s"},
			{Symbol: "BBB", Name: "Beta", Sector: "s"},
			{Symbol: "CCC", Name: "Gamma", Sector: "s"},
			{Symbol: "DDD", Name: "Delta", Sector: "t"},
		},
		[]model.Sector{
			{ID: "s", Name: "Sector S", Tickers: []string{"AAA", "BBB", "CCC"}},
			{ID: "t", Name: "Sector T", Tickers: []string{"DDD", "AAA"}},
		},
		model.ProviderOrder{}, nil,
	)
	require.NoError(t, err)
	return u
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, -1.24, Round2(-1.235))
	assert.Equal(t, 50.0, Round2(50))
	assert.Equal(t, 0.0, Round2(0))
}

func TestPercentChange_ZeroBase(t *testing.T) {
	assert.Equal(t, 0.0, PercentChange(0, 10))
	assert.Equal(t, 50.0, PercentChange(100, 150))
	assert.Equal(t, -25.0, PercentChange(200, 150))
}

func TestTickerRecordFromQuote(t *testing.T) {
	in := model.Instrument{Symbol: "X", Name: "Xco", Sector: "s"}

	t.Run("previous close present", func(t *testing.T) {
		q := &model.Quote{Symbol: "X", Price: null.FloatFrom(150), PreviousClose: null.FloatFrom(100)}
		rec := TickerRecordFromQuote(in, q)
		assert.Equal(t, 150.0, rec.Close)
		assert.Equal(t, 100.0, rec.PrevClose.Float64)
		assert.Equal(t, 50.0, rec.DailyPct)
		assert.Equal(t, "Xco", rec.Name)
	})

	t.Run("previous close derived from change", func(t *testing.T) {
		q := &model.Quote{Price: null.FloatFrom(110), Change: null.FloatFrom(10), ChangePercent: null.FloatFrom(99)}
		rec := TickerRecordFromQuote(in, q)
		assert.Equal(t, 100.0, rec.PrevClose.Float64)
		assert.Equal(t, 10.0, rec.DailyPct)
	})

	t.Run("degraded to provider change percent", func(t *testing.T) {
		q := &model.Quote{Price: null.FloatFrom(42), PreviousClose: null.FloatFrom(0), ChangePercent: null.FloatFrom(3.456)}
		rec := TickerRecordFromQuote(in, q)
		assert.False(t, rec.PrevClose.Valid)
		assert.Equal(t, 3.46, rec.DailyPct)
	})

	t.Run("zero previous close ignores change", func(t *testing.T) {
		q := &model.Quote{
			Price:         null.FloatFrom(110),
			PreviousClose: null.FloatFrom(0),
			Change:        null.FloatFrom(10),
			ChangePercent: null.FloatFrom(7.5),
		}
		rec := TickerRecordFromQuote(in, q)
		assert.False(t, rec.PrevClose.Valid)
		assert.Equal(t, 7.5, rec.DailyPct)
	})

	t.Run("percentage uses rounded prices", func(t *testing.T) {
		q := &model.Quote{Price: null.FloatFrom(10.006), PreviousClose: null.FloatFrom(9.994)}
		rec := TickerRecordFromQuote(in, q)
		assert.Equal(t, PercentChange(rec.PrevClose.Float64, rec.Close), rec.DailyPct)
	})
}

func TestQuoteFromBars(t *testing.T) {
	bars := model.Bars{closeBar(day(7), 12), closeBar(day(6), 11), {Date: day(5)}, closeBar(day(2), 10)}

	q, ok := QuoteFromBars("X", bars, day(6))
	require.True(t, ok)
	assert.Equal(t, 11.0, q.Price.Float64)
	assert.Equal(t, 10.0, q.PreviousClose.Float64)
	assert.Equal(t, 10.0, q.ChangePercent.Float64)

	q, ok = QuoteFromBars("X", bars, day(2))
	require.True(t, ok)
	assert.Equal(t, 10.0, q.PreviousClose.Float64, "first bar falls back to its own close")

	_, ok = QuoteFromBars("X", bars, day(5))
	assert.False(t, ok, "bar without close does not match")

	_, ok = QuoteFromBars("X", bars, day(3))
	assert.False(t, ok)
}

func TestSectorAverages_ExcludesAbsentMembers(t *testing.T) {
	u := testUniverse(t)
	tickers := map[string]model.TickerRecord{
		"AAA": {DailyPct: 10.0},
		"BBB": {DailyPct: -2.0},
	}
	got := SectorAverages(u, tickers)

	s := got["s"]
	assert.Equal(t, 4.0, s.AvgDailyPct)
	assert.Equal(t, 2, s.TickersTracked)
	assert.Equal(t, 3, s.TickersTotal)
	assert.Equal(t, "Sector S", s.Name)

	tt := got["t"]
	assert.Equal(t, 10.0, tt.AvgDailyPct, "cross-listed member counts in both sectors")
	assert.Equal(t, 1, tt.TickersTracked)
	assert.Equal(t, 2, tt.TickersTotal)
}

func TestSectorAverages_OmitsEmptySector(t *testing.T) {
	u := testUniverse(t)
	got := SectorAverages(u, map[string]model.TickerRecord{"BBB": {DailyPct: 1}})
	_, ok := got["t"]
	assert.False(t, ok)
	assert.Len(t, got, 1)
}

func TestTrailingHigh_ExcludesAfterZero(t *testing.T) {
	bars := model.Bars{closeBar(day(9), 90), closeBar(day(5), 130), closeBar(day(1), 100)}

	res, err := TrailingHigh(bars, day(1), day(6))
	require.NoError(t, err)
	assert.Equal(t, 130.0, res.ZeroPrice)
	assert.Equal(t, 130.0, res.HighPrice)
	assert.Equal(t, day(5), res.HighDate)
	assert.Equal(t, 0.0, res.Pct)
}

func TestTrailingHigh_TieKeepsEarliestDate(t *testing.T) {
	bars := model.Bars{closeBar(day(8), 100), closeBar(day(6), 150), closeBar(day(3), 150), closeBar(day(2), 120)}

	res, err := TrailingHigh(bars, day(1), day(10))
	require.NoError(t, err)
	assert.Equal(t, day(3), res.HighDate)
	assert.Equal(t, 100.0, res.ZeroPrice)
	assert.Equal(t, 50.0, res.Pct)
}

func TestTrailingHigh_WindowStart(t *testing.T) {
	bars := model.Bars{closeBar(day(5), 100), closeBar(day(1), 500)}

	res, err := TrailingHigh(bars, day(2), day(6))
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.HighPrice)
	assert.False(t, res.HighDate.Before(day(2)))
}

func TestTrailingHigh_NothingOnOrBefore(t *testing.T) {
	_, err := TrailingHigh(model.Bars{closeBar(day(9), 90)}, day(1), day(6))
	assert.ErrorIs(t, err, ErrNoBarOnOrBefore)
}

func TestPickBaselineBar(t *testing.T) {
	bars := model.Bars{closeBar(day(8), 3), closeBar(day(6), 2), closeBar(day(4), 1)}

	b, ok := PickBaselineBar(bars, day(7))
	require.True(t, ok)
	assert.Equal(t, day(6), b.Date)

	b, ok = PickBaselineBar(bars, day(1))
	require.True(t, ok)
	assert.Equal(t, day(4), b.Date, "zero date before the window picks the oldest bar")

	_, ok = PickBaselineBar(nil, day(1))
	assert.False(t, ok)
}

func TestBaselinePrice_FallsBackToOpen(t *testing.T) {
	p, ok := BaselinePrice(model.Bar{Open: null.FloatFrom(12.345)})
	require.True(t, ok)
	assert.Equal(t, 12.35, p)

	_, ok = BaselinePrice(model.Bar{})
	assert.False(t, ok)
}

func TestSectorHighs(t *testing.T) {
	u := testUniverse(t)
	tickers := map[string]model.HighEntry{
		"AAA": {LTMHighPct: 20, HighDate: "2025-06-01"},
		"BBB": {LTMHighPct: 40, HighDate: "2025-09-01"},
		"CCC": {LTMHighPct: 40, HighDate: "2025-10-01"},
	}
	got := SectorHighs(u, tickers)

	s := got["s"]
	assert.Equal(t, 33.33, s.LTMHighPct)
	assert.Equal(t, "BBB", s.PeakTicker)
	assert.Equal(t, "2025-09-01", s.HighDate)
	assert.Equal(t, 3, s.TickersTracked)

	assert.Equal(t, "AAA", got["t"].PeakTicker)
}
