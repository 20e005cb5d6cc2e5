package baseline

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/store"
)

// dailyClose is one symbol's close in one persisted daily snapshot.
type dailyClose struct {
	date  string
	close float64
}

// dailyCloses collects, oldest first, every positive close per symbol across
// the persisted daily snapshots.
func (e *Engine) dailyCloses() (map[string][]dailyClose, error) {
	dates, err := e.Store.DailyDates()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]dailyClose)
	for _, ds := range dates {
		snap, err := e.Store.LoadDaily(ds)
		if err != nil {
			e.Log.WithField("date", ds).WithError(err).Warn("skipping unreadable snapshot")
			continue
		}
		for sym, rec := range snap.Tickers {
			if rec.Close > 0 {
				out[sym] = append(out[sym], dailyClose{date: ds, close: rec.Close})
			}
		}
	}
	return out, nil
}

// PatchBaselineFromDaily fills symbols missing from baseline.json with their
// close from the earliest daily snapshot that has them. Patched entries carry
// the daily_snapshot provenance. A missing baseline is not an error.
func (e *Engine) PatchBaselineFromDaily() (*model.RunReport, error) {
	report := model.NewRunReport(model.RunBaseline, "patch", e.Now())
	defer func() { report.FinishedAt = e.Now() }()

	doc, err := e.Store.LoadBaseline()
	if errors.Is(err, fs.ErrNotExist) {
		report.Skipped = true
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("load baseline: %w", err)
	}
	missing := model.Missing(e.Universe, doc.Tickers)
	if len(missing) == 0 {
		report.Skipped = true
		return report, nil
	}
	closes, err := e.dailyCloses()
	if err != nil {
		return report, err
	}

	for _, sym := range missing {
		series := closes[sym]
		if len(series) == 0 {
			report.Add(sym, model.OutcomeMissing, "", "")
			continue
		}
		in, _ := e.Universe.Instrument(sym)
		first := series[0]
		doc.Tickers[sym] = model.BaselineEntry{
			Name:   in.Name,
			Sector: in.Sector,
			Price:  calculator.Round2(first.close),
			Source: model.SourceDailySnapshot,
		}
		report.Add(sym, model.OutcomePatched, "", first.date)
		e.Log.WithFields(logrus.Fields{"symbol": sym, "date": first.date, "price": first.close}).Info("patched baseline from daily snapshot")
	}
	if len(missing) == len(report.MissingSymbols()) {
		return report, nil
	}
	return report, store.WriteJSON(e.Store.BaselinePath(), doc)
}

// PatchTrailingHighFromDaily fills symbols missing from ltm_high.json using the
// highest close across all daily snapshots (earliest on ties) against the
// baseline price. Symbols without a baseline price stay missing. Sector
// aggregates are recomputed when anything was added.
func (e *Engine) PatchTrailingHighFromDaily() (*model.RunReport, error) {
	report := model.NewRunReport(model.RunTrailingHigh, "patch", e.Now())
	defer func() { report.FinishedAt = e.Now() }()

	doc, err := e.Store.LoadTrailingHigh()
	if errors.Is(err, fs.ErrNotExist) {
		report.Skipped = true
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("load trailing high: %w", err)
	}
	base, err := e.Store.LoadBaseline()
	if errors.Is(err, fs.ErrNotExist) {
		report.Skipped = true
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("load baseline: %w", err)
	}
	missing := model.Missing(e.Universe, doc.Tickers)
	if len(missing) == 0 {
		report.Skipped = true
		return report, nil
	}
	closes, err := e.dailyCloses()
	if err != nil {
		return report, err
	}

	added := 0
	for _, sym := range missing {
		zero, ok := base.Tickers[sym]
		series := closes[sym]
		if !ok || zero.Price <= 0 || len(series) == 0 {
			report.Add(sym, model.OutcomeMissing, "", "")
			continue
		}
		peak := series[0]
		for _, c := range series[1:] {
			if c.close > peak.close {
				peak = c
			}
		}
		in, _ := e.Universe.Instrument(sym)
		high := calculator.Round2(peak.close)
		zp := calculator.Round2(zero.Price)
		doc.Tickers[sym] = model.HighEntry{
			Name:       in.Name,
			Sector:     in.Sector,
			HighPrice:  high,
			HighDate:   peak.date,
			ZeroPrice:  zp,
			LTMHighPct: calculator.PercentChange(zp, high),
			Source:     model.SourceDailySnapshot,
		}
		added++
		report.Add(sym, model.OutcomePatched, "", peak.date)
		e.Log.WithFields(logrus.Fields{"symbol": sym, "high": high, "high_date": peak.date}).Info("patched trailing high from daily snapshots")
	}
	if added == 0 {
		return report, nil
	}
	doc.Sectors = calculator.SectorHighs(e.Universe, doc.Tickers)
	return report, store.WriteJSON(e.Store.TrailingHighPath(), doc)
}
