package model

import "time"

// Provenance tells primary-source entries apart from degraded substitutes.
type Provenance string

const (
	// SourceHistorical marks values taken from a historical price provider.
	SourceHistorical Provenance = "historical"
	// SourceDailySnapshot marks values patched in from persisted daily snapshots.
	SourceDailySnapshot Provenance = "daily_snapshot"
)

// BaselineEntry is a symbol's zero-date price.
type BaselineEntry struct {
	Name   string     `json:"name"`
	Sector string     `json:"sector"`
	Price  float64    `json:"price"`
	Source Provenance `json:"source"`
}

// Baseline holds the closing prices on (or nearest before) the zero date.
type Baseline struct {
	Date        string                   `json:"date"`
	FetchedAt   time.Time                `json:"fetched_at"`
	Description string                   `json:"description,omitempty"`
	Tickers     map[string]BaselineEntry `json:"tickers"`
}

// HighEntry is a symbol's trailing-twelve-month high relative to its zero price.
type HighEntry struct {
	Name       string     `json:"name"`
	Sector     string     `json:"sector"`
	HighPrice  float64    `json:"high_price"`
	HighDate   string     `json:"high_date"`
	ZeroPrice  float64    `json:"zero_price"`
	LTMHighPct float64    `json:"ltm_high_pct"`
	Source     Provenance `json:"source"`
}

// SectorHigh aggregates member highs. PeakTicker is the member with the largest
// percentage and HighDate is that member's high date.
type SectorHigh struct {
	Name           string  `json:"name"`
	LTMHighPct     float64 `json:"ltm_high_pct"`
	HighDate       string  `json:"high_date"`
	PeakTicker     string  `json:"peak_ticker"`
	TickersTracked int     `json:"tickers_tracked"`
	TickersTotal   int     `json:"tickers_total"`
}

// TrailingHigh is the persisted LTM high document.
type TrailingHigh struct {
	FetchedAt   time.Time             `json:"fetched_at"`
	ZeroDate    string                `json:"zero_date"`
	Description string                `json:"description,omitempty"`
	Tickers     map[string]HighEntry  `json:"tickers"`
	Sectors     map[string]SectorHigh `json:"sectors"`
}
