package model

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-date format used in file names and documents.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders the calendar date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf drops the clock part of t, keeping its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Quote is the result of a live price lookup. Any field may be missing.
type Quote struct {
	Symbol        string
	Price         null.Float
	PreviousClose null.Float
	Change        null.Float
	ChangePercent null.Float
}

// Usable reports whether the quote carries a strictly positive price.
func (q *Quote) Usable() bool {
	return q != nil && q.Price.Valid && q.Price.Float64 > 0
}

// Bar is one trading day of OHLC data for a symbol.
type Bar struct {
	Date  time.Time
	Open  null.Float
	High  null.Float
	Low   null.Float
	Close null.Float
}

// Bars is a sequence of daily bars. Providers return them newest-first.
type Bars []Bar

// Usable reports whether at least one bar has a close.
func (b Bars) Usable() bool {
	for _, bar := range b {
		if bar.Close.Valid {
			return true
		}
	}
	return false
}

// Ascending returns a copy sorted oldest-first.
func (b Bars) Ascending() Bars {
	out := make(Bars, len(b))
	copy(out, b)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Descending returns a copy sorted newest-first.
func (b Bars) Descending() Bars {
	out := make(Bars, len(b))
	copy(out, b)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
