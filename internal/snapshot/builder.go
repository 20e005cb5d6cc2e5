// Package snapshot builds and repairs the per-day price documents.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/resolver"
	"SectorSentinel/internal/store"
	"SectorSentinel/internal/tradingday"
)

// DefaultSymbolDelay is the pause after each symbol's resolution.
const DefaultSymbolDelay = 250 * time.Millisecond

// Historical fallback window around the target date.
const (
	windowBefore = 5
	windowAfter  = 2
)

// Resolver is the subset of *resolver.Resolver the builder needs.
type Resolver interface {
	ResolveQuote(ctx context.Context, symbol string) (*model.Quote, resolver.Resolution)
	ResolveHistorical(ctx context.Context, symbol string, from, to time.Time) (model.Bars, resolver.Resolution)
}

// Builder produces daily and intraday snapshots for the universe.
type Builder struct {
	Universe    *model.Universe
	Resolver    Resolver
	Store       *store.Store
	Calendar    *tradingday.Set // optional; filters backfill dates
	Log         logrus.FieldLogger
	SymbolDelay time.Duration
	Now         func() time.Time

	sleep func(context.Context, time.Duration) error
}

// NewBuilder creates a builder with default delay, clock and a discarding logger.
func NewBuilder(u *model.Universe, r Resolver, s *store.Store) *Builder {
	return &Builder{
		Universe:    u,
		Resolver:    r,
		Store:       s,
		Log:         logging.Discard(),
		SymbolDelay: DefaultSymbolDelay,
		Now:         time.Now,
		sleep:       resolver.Sleep,
	}
}

func (b *Builder) pause(ctx context.Context) error {
	return b.sleep(ctx, b.SymbolDelay)
}

// BuildDaily resolves every instrument for date and persists {date}.json.
// Without force an existing file is left untouched and store.ErrExists is
// returned alongside a skipped report.
func (b *Builder) BuildDaily(ctx context.Context, date time.Time, force bool) (*model.DailySnapshot, *model.RunReport, error) {
	ds := model.FormatDate(date)
	path := b.Store.DailyPath(ds)
	report := model.NewRunReport(model.RunDaily, ds, b.Now())
	log := b.Log.WithFields(logrus.Fields{"run": report.ID, "date": ds})

	if !force && store.Exists(path) {
		report.Skipped = true
		report.FinishedAt = b.Now()
		log.Info("daily snapshot already exists, skipping")
		return nil, report, store.ErrExists
	}

	log.WithField("tickers", len(b.Universe.Instruments)).Info("fetching daily snapshot")
	snap := model.NewDailySnapshot(ds, b.Now())
	for _, in := range b.Universe.Instruments {
		rec, status, provider := b.resolveDaily(ctx, in, date)
		if rec != nil {
			snap.Tickers[in.Symbol] = *rec
		}
		report.Add(in.Symbol, status, provider, ds)
		logOutcome(log, in.Symbol, status, provider, rec)
		if err := b.pause(ctx); err != nil {
			return nil, report, err
		}
	}
	snap.Sectors = calculator.SectorAverages(b.Universe, snap.Tickers)

	write := store.WriteJSONIfAbsent
	if force {
		write = store.WriteJSON
	}
	if err := write(path, snap); err != nil {
		if errors.Is(err, store.ErrExists) {
			report.Skipped = true
		}
		report.FinishedAt = b.Now()
		return nil, report, err
	}
	report.FinishedAt = b.Now()
	log.WithFields(logrus.Fields{
		"tickers": len(snap.Tickers),
		"sectors": len(snap.Sectors),
		"missing": len(report.MissingSymbols()),
	}).Info("daily snapshot saved")
	return snap, report, nil
}

// BuildIntraday persists a quote-only snapshot as {date}-{label}.json.
func (b *Builder) BuildIntraday(ctx context.Context, date time.Time, label string, force bool) (*model.DailySnapshot, *model.RunReport, error) {
	if label == "" {
		return nil, nil, fmt.Errorf("intraday snapshot needs a time label")
	}
	ds := model.FormatDate(date)
	path := b.Store.IntradayPath(ds, label)
	report := model.NewRunReport(model.RunIntraday, ds+"-"+label, b.Now())
	log := b.Log.WithFields(logrus.Fields{"run": report.ID, "date": ds, "label": label})

	if !force && store.Exists(path) {
		report.Skipped = true
		report.FinishedAt = b.Now()
		log.Info("intraday snapshot already exists, skipping")
		return nil, report, store.ErrExists
	}

	snap := model.NewDailySnapshot(ds, b.Now())
	snap.TimeLabel = label
	for _, in := range b.Universe.Instruments {
		q, res := b.Resolver.ResolveQuote(ctx, in.Symbol)
		status := model.OutcomeMissing
		if q != nil {
			rec := calculator.TickerRecordFromQuote(in, q)
			snap.Tickers[in.Symbol] = rec
			status = quoteStatus(res)
		}
		report.Add(in.Symbol, status, res.Provider, ds)
		if err := b.pause(ctx); err != nil {
			return nil, report, err
		}
	}
	snap.Sectors = calculator.SectorAverages(b.Universe, snap.Tickers)

	write := store.WriteJSONIfAbsent
	if force {
		write = store.WriteJSON
	}
	report.FinishedAt = b.Now()
	if err := write(path, snap); err != nil {
		return nil, report, err
	}
	log.WithField("tickers", len(snap.Tickers)).Info("intraday snapshot saved")
	return snap, report, nil
}

// resolveDaily tries the live quote first and then the historical bar for date.
func (b *Builder) resolveDaily(ctx context.Context, in model.Instrument, date time.Time) (*model.TickerRecord, model.OutcomeStatus, string) {
	if q, res := b.Resolver.ResolveQuote(ctx, in.Symbol); q != nil {
		rec := calculator.TickerRecordFromQuote(in, q)
		return &rec, quoteStatus(res), res.Provider
	}
	if rec, provider := b.resolveFromHistory(ctx, in, date); rec != nil {
		return rec, model.OutcomeHistorical, provider
	}
	return nil, model.OutcomeMissing, ""
}

// resolveFromHistory synthesizes a record from the bar on date exactly.
func (b *Builder) resolveFromHistory(ctx context.Context, in model.Instrument, date time.Time) (*model.TickerRecord, string) {
	from := date.AddDate(0, 0, -windowBefore)
	to := date.AddDate(0, 0, windowAfter)
	bars, res := b.Resolver.ResolveHistorical(ctx, in.Symbol, from, to)
	if !res.Found() {
		return nil, ""
	}
	q, ok := calculator.QuoteFromBars(in.Symbol, bars, date)
	if !ok {
		return nil, ""
	}
	rec := calculator.TickerRecordFromQuote(in, q)
	return &rec, res.Provider
}

func quoteStatus(res resolver.Resolution) model.OutcomeStatus {
	if res.Fallback {
		return model.OutcomeFallback
	}
	return model.OutcomePrimary
}

func logOutcome(log logrus.FieldLogger, symbol string, status model.OutcomeStatus, provider string, rec *model.TickerRecord) {
	entry := log.WithFields(logrus.Fields{"symbol": symbol, "status": status, "provider": provider})
	switch status {
	case model.OutcomeMissing:
		entry.Warn("no data from any provider or history")
	case model.OutcomeFallback:
		entry.WithField("close", rec.Close).Info("resolved via fallback provider")
	case model.OutcomeHistorical:
		entry.WithField("close", rec.Close).Info("resolved from historical bars")
	default:
		entry.WithFields(logrus.Fields{"close": rec.Close, "daily_pct": rec.DailyPct}).Debug("resolved")
	}
}
