package collector

import (
	"context"
	"time"

	"SectorSentinel/internal/model"
)

// Status classifies the outcome of a provider call.
type Status int

const (
	// StatusOK means the provider returned data.
	StatusOK Status = iota
	// StatusAbsent means the provider has no data for the request. Retrying will not help.
	StatusAbsent
	// StatusTransient means the call failed in a way that may succeed later.
	StatusTransient
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	case StatusTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// QuoteResult is the outcome of a quote lookup. Quote is set only for StatusOK.
type QuoteResult struct {
	Status Status
	Quote  *model.Quote
	Err    error
}

// BarsResult is the outcome of a historical lookup. Bars are newest-first.
type BarsResult struct {
	Status Status
	Bars   model.Bars
	Err    error
}

// Provider is a market data source. Implementations never return errors or
// panic; every failure is folded into the result status.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) QuoteResult
	// HistoricalBars returns daily bars between from and to, both inclusive.
	HistoricalBars(ctx context.Context, symbol string, from, to time.Time) BarsResult
}

func quoteOK(q *model.Quote) QuoteResult { return QuoteResult{Status: StatusOK, Quote: q} }

func quoteFailed(s Status, err error) QuoteResult { return QuoteResult{Status: s, Err: err} }

func barsOK(b model.Bars) BarsResult { return BarsResult{Status: StatusOK, Bars: b} }

func barsFailed(s Status, err error) BarsResult { return BarsResult{Status: s, Err: err} }
