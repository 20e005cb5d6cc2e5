package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// TickerRecord is one symbol's entry in a daily snapshot.
type TickerRecord struct {
	Name      string     `json:"name"`
	Sector    string     `json:"sector"`
	Close     float64    `json:"close"`
	PrevClose null.Float `json:"prev_close"`
	DailyPct  float64    `json:"daily_pct"`
}

// SectorAggregate summarizes the present members of a sector for one day.
type SectorAggregate struct {
	Name           string  `json:"name"`
	AvgDailyPct    float64 `json:"avg_daily_pct"`
	TickersTracked int     `json:"tickers_tracked"`
	TickersTotal   int     `json:"tickers_total"`
}

// DailySnapshot is the persisted document for one trading day, or for an
// intraday variant when TimeLabel is set.
type DailySnapshot struct {
	Date      string                     `json:"date"`
	TimeLabel string                     `json:"time_label,omitempty"`
	FetchedAt time.Time                  `json:"fetched_at"`
	Tickers   map[string]TickerRecord    `json:"tickers"`
	Sectors   map[string]SectorAggregate `json:"sectors"`
}

// NewDailySnapshot returns an empty snapshot for date.
func NewDailySnapshot(date string, fetchedAt time.Time) *DailySnapshot {
	return &DailySnapshot{
		Date:      date,
		FetchedAt: fetchedAt,
		Tickers:   make(map[string]TickerRecord),
		Sectors:   make(map[string]SectorAggregate),
	}
}
