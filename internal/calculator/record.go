package calculator

import (
	"time"

	"github.com/guregu/null/v6"

	"SectorSentinel/internal/model"
)

// TickerRecordFromQuote turns a usable quote into a snapshot record. Close and
// previous close are rounded first and the daily percentage is derived from the
// rounded values. Without a positive previous close the provider's change
// percentage is used as-is and prev_close is left null.
func TickerRecordFromQuote(in model.Instrument, q *model.Quote) model.TickerRecord {
	rec := model.TickerRecord{
		Name:   in.Name,
		Sector: in.Sector,
		Close:  Round2(q.Price.Float64),
	}
	if prev, ok := previousClose(q); ok {
		if p := Round2(prev); p > 0 {
			rec.PrevClose = null.FloatFrom(p)
			rec.DailyPct = PercentChange(p, rec.Close)
			return rec
		}
	}
	rec.DailyPct = Round2(q.ChangePercent.ValueOrZero())
	return rec
}

// previousClose derives from the absolute change only when the provider sent
// no previous close. A reported zero is not usable.
func previousClose(q *model.Quote) (float64, bool) {
	if q.PreviousClose.Valid {
		return q.PreviousClose.Float64, q.PreviousClose.Float64 > 0
	}
	if q.Change.Valid {
		return q.Price.Float64 - q.Change.Float64, true
	}
	return 0, false
}

// QuoteFromBars synthesizes a quote for date from historical bars. The previous
// close is the nearest earlier bar with a close, or the day's own close when
// the window holds nothing earlier.
func QuoteFromBars(symbol string, bars model.Bars, date time.Time) (*model.Quote, bool) {
	target := model.FormatDate(date)
	asc := bars.Ascending()
	idx := -1
	for i, b := range asc {
		if b.Close.Valid && model.FormatDate(b.Date) == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	cur := asc[idx].Close.Float64
	prev := cur
	for i := idx - 1; i >= 0; i-- {
		if asc[i].Close.Valid {
			prev = asc[i].Close.Float64
			break
		}
	}
	return &model.Quote{
		Symbol:        symbol,
		Price:         null.FloatFrom(cur),
		PreviousClose: null.FloatFrom(prev),
		Change:        null.FloatFrom(cur - prev),
		ChangePercent: null.FloatFrom(PercentChange(prev, cur)),
	}, true
}
