package calculator

import (
	"errors"
	"time"

	"SectorSentinel/internal/model"
)

// ErrNoBarOnOrBefore is returned when no usable bar falls on or before the zero date.
var ErrNoBarOnOrBefore = errors.New("no close on or before zero date")

// TrailingHighResult is the peak close and zero-date close within a window.
type TrailingHighResult struct {
	HighPrice float64
	HighDate  time.Time
	ZeroPrice float64
	Pct       float64
}

// TrailingHigh scans closes within [from, zero] and returns the highest close
// (earliest date on ties) and the most recent close as the zero price. Bars
// after zero are ignored, so a post-zero peak is never reflected.
func TrailingHigh(bars model.Bars, from, zero time.Time) (TrailingHighResult, error) {
	var (
		res   TrailingHighResult
		found bool
	)
	for _, b := range bars.Ascending() {
		if !b.Close.Valid || b.Date.Before(from) || b.Date.After(zero) {
			continue
		}
		c := b.Close.Float64
		if !found || c > res.HighPrice {
			res.HighPrice = c
			res.HighDate = b.Date
		}
		res.ZeroPrice = c
		found = true
	}
	if !found {
		return TrailingHighResult{}, ErrNoBarOnOrBefore
	}
	res.HighPrice = Round2(res.HighPrice)
	res.ZeroPrice = Round2(res.ZeroPrice)
	res.Pct = PercentChange(res.ZeroPrice, res.HighPrice)
	return res, nil
}

// PickBaselineBar returns the newest bar on or before zero, falling back to the
// oldest bar in the window when the zero date precedes every bar.
func PickBaselineBar(bars model.Bars, zero time.Time) (model.Bar, bool) {
	if len(bars) == 0 {
		return model.Bar{}, false
	}
	desc := bars.Descending()
	for _, b := range desc {
		if !b.Date.After(zero) {
			return b, true
		}
	}
	return desc[len(desc)-1], true
}

// BaselinePrice is the bar's close, or its open when the close is missing.
func BaselinePrice(b model.Bar) (float64, bool) {
	if b.Close.Valid && b.Close.Float64 > 0 {
		return Round2(b.Close.Float64), true
	}
	if b.Open.Valid && b.Open.Float64 > 0 {
		return Round2(b.Open.Float64), true
	}
	return 0, false
}
