// Package baseline builds the zero-date baseline and trailing-twelve-month
// high documents, repairs them from daily snapshots, and checks that every
// persisted document covers the whole universe.
package baseline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/resolver"
	"SectorSentinel/internal/store"
)

const (
	// bars after the zero date tolerate a zero date that was not a trading day
	zeroBuffer   = 5
	trailingDays = 365
)

// HistoryResolver resolves historical bars for a symbol.
type HistoryResolver interface {
	ResolveHistorical(ctx context.Context, symbol string, from, to time.Time) (model.Bars, resolver.Resolution)
}

// Engine builds and repairs the baseline and trailing-high documents.
type Engine struct {
	Universe    *model.Universe
	Resolver    HistoryResolver
	Store       *store.Store
	Log         logrus.FieldLogger
	SymbolDelay time.Duration
	Now         func() time.Time

	sleep func(context.Context, time.Duration) error
}

// NewEngine creates an engine with default delay and clock.
func NewEngine(u *model.Universe, r HistoryResolver, s *store.Store) *Engine {
	return &Engine{
		Universe:    u,
		Resolver:    r,
		Store:       s,
		Log:         logging.Discard(),
		SymbolDelay: 250 * time.Millisecond,
		Now:         time.Now,
		sleep:       resolver.Sleep,
	}
}

// BuildBaseline records each instrument's close on the zero date, or the
// closest bar to it, in baseline.json. Without force an existing baseline is
// left untouched and store.ErrExists is returned.
func (e *Engine) BuildBaseline(ctx context.Context, zero time.Time, force bool) (*model.Baseline, *model.RunReport, error) {
	zs := model.FormatDate(zero)
	report := model.NewRunReport(model.RunBaseline, zs, e.Now())
	log := e.Log.WithFields(logrus.Fields{"run": report.ID, "zero_date": zs})
	path := e.Store.BaselinePath()

	if !force && store.Exists(path) {
		report.Skipped = true
		report.FinishedAt = e.Now()
		log.Info("baseline already exists, skipping")
		return nil, report, store.ErrExists
	}

	doc := &model.Baseline{
		Date:        zs,
		FetchedAt:   e.Now(),
		Description: "Prices as of market close on " + zs,
		Tickers:     make(map[string]model.BaselineEntry),
	}
	to := zero.AddDate(0, 0, zeroBuffer)
	for _, in := range e.Universe.Instruments {
		bars, res := e.Resolver.ResolveHistorical(ctx, in.Symbol, zero, to)
		price, ok := 0.0, false
		if res.Found() {
			if b, found := calculator.PickBaselineBar(bars, zero); found {
				price, ok = calculator.BaselinePrice(b)
			}
		}
		if ok {
			doc.Tickers[in.Symbol] = model.BaselineEntry{
				Name:   in.Name,
				Sector: in.Sector,
				Price:  price,
				Source: model.SourceHistorical,
			}
			report.Add(in.Symbol, historicalStatus(res), res.Provider, zs)
			log.WithFields(logrus.Fields{"symbol": in.Symbol, "provider": res.Provider, "price": price}).Debug("baseline price")
		} else {
			report.Add(in.Symbol, model.OutcomeMissing, "", zs)
			log.WithField("symbol", in.Symbol).Warn("no historical data for baseline")
		}
		if err := e.sleep(ctx, e.SymbolDelay); err != nil {
			return nil, report, err
		}
	}

	write := store.WriteJSONIfAbsent
	if force {
		write = store.WriteJSON
	}
	report.FinishedAt = e.Now()
	if err := write(path, doc); err != nil {
		return nil, report, err
	}
	log.WithFields(logrus.Fields{"tickers": len(doc.Tickers), "missing": len(report.MissingSymbols())}).Info("baseline saved")
	return doc, report, nil
}

// BuildTrailingHigh records each instrument's highest close over the year up
// to the zero date in ltm_high.json. Peaks after the zero date are ignored.
func (e *Engine) BuildTrailingHigh(ctx context.Context, zero time.Time, force bool) (*model.TrailingHigh, *model.RunReport, error) {
	zs := model.FormatDate(zero)
	report := model.NewRunReport(model.RunTrailingHigh, zs, e.Now())
	log := e.Log.WithFields(logrus.Fields{"run": report.ID, "zero_date": zs})
	path := e.Store.TrailingHighPath()

	if !force && store.Exists(path) {
		report.Skipped = true
		report.FinishedAt = e.Now()
		log.Info("trailing high already exists, skipping")
		return nil, report, store.ErrExists
	}

	doc := &model.TrailingHigh{
		FetchedAt:   e.Now(),
		ZeroDate:    zs,
		Description: "LTM high % from the " + zs + " baseline",
		Tickers:     make(map[string]model.HighEntry),
	}
	from := zero.AddDate(0, 0, -trailingDays)
	to := zero.AddDate(0, 0, zeroBuffer)
	for _, in := range e.Universe.Instruments {
		bars, res := e.Resolver.ResolveHistorical(ctx, in.Symbol, from, to)
		var (
			hr  calculator.TrailingHighResult
			err = calculator.ErrNoBarOnOrBefore
		)
		if res.Found() {
			hr, err = calculator.TrailingHigh(bars, from, zero)
		}
		if err == nil {
			doc.Tickers[in.Symbol] = model.HighEntry{
				Name:       in.Name,
				Sector:     in.Sector,
				HighPrice:  hr.HighPrice,
				HighDate:   model.FormatDate(hr.HighDate),
				ZeroPrice:  hr.ZeroPrice,
				LTMHighPct: hr.Pct,
				Source:     model.SourceHistorical,
			}
			report.Add(in.Symbol, historicalStatus(res), res.Provider, zs)
			log.WithFields(logrus.Fields{"symbol": in.Symbol, "high": hr.HighPrice, "pct": hr.Pct}).Debug("trailing high")
		} else {
			report.Add(in.Symbol, model.OutcomeMissing, "", zs)
			log.WithField("symbol", in.Symbol).WithError(err).Warn("no trailing high")
		}
		if err := e.sleep(ctx, e.SymbolDelay); err != nil {
			return nil, report, err
		}
	}
	doc.Sectors = calculator.SectorHighs(e.Universe, doc.Tickers)

	write := store.WriteJSONIfAbsent
	if force {
		write = store.WriteJSON
	}
	report.FinishedAt = e.Now()
	if err := write(path, doc); err != nil {
		return nil, report, err
	}
	log.WithFields(logrus.Fields{"tickers": len(doc.Tickers), "sectors": len(doc.Sectors)}).Info("trailing high saved")
	return doc, report, nil
}

func historicalStatus(res resolver.Resolution) model.OutcomeStatus {
	if res.Fallback {
		return model.OutcomeFallback
	}
	return model.OutcomePrimary
}
