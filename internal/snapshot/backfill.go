package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/store"
)

// Backfill writes daily snapshots for every trading date in [from, to] from a
// single historical fetch per instrument. Dates that already have a snapshot
// only gain the symbols they are missing. A symbol without history is reported
// missing once; one whose history lacks a date is reported missing for it.
func (b *Builder) Backfill(ctx context.Context, from, to time.Time) (*model.RunReport, error) {
	from, to = model.DateOf(from), model.DateOf(to)
	if to.Before(from) {
		return nil, fmt.Errorf("backfill: end %s before start %s", model.FormatDate(to), model.FormatDate(from))
	}
	target := model.FormatDate(from) + ".." + model.FormatDate(to)
	report := model.NewRunReport(model.RunBackfill, target, b.Now())
	log := b.Log.WithFields(logrus.Fields{"run": report.ID, "from": model.FormatDate(from), "to": model.FormatDate(to)})

	// Extra days before the range supply the first day's previous close.
	fetchFrom := from.AddDate(0, 0, -windowBefore)
	history := make(map[string]model.Bars)
	providers := make(map[string]string)
	for _, in := range b.Universe.Instruments {
		bars, res := b.Resolver.ResolveHistorical(ctx, in.Symbol, fetchFrom, to)
		if res.Found() {
			history[in.Symbol] = bars
			providers[in.Symbol] = res.Provider
		} else {
			report.Add(in.Symbol, model.OutcomeMissing, "", "")
			log.WithField("symbol", in.Symbol).Warn("no history for backfill")
		}
		if err := b.pause(ctx); err != nil {
			return report, err
		}
	}

	for _, d := range b.backfillDates(history, from, to) {
		ds := model.FormatDate(d)
		tickers := make(map[string]model.TickerRecord)
		for _, in := range b.Universe.Instruments {
			bars, ok := history[in.Symbol]
			if !ok {
				continue
			}
			if q, ok := calculator.QuoteFromBars(in.Symbol, bars, d); ok {
				tickers[in.Symbol] = calculator.TickerRecordFromQuote(in, q)
			} else {
				report.Add(in.Symbol, model.OutcomeMissing, "", ds)
			}
		}
		if len(tickers) == 0 {
			continue
		}
		added, err := b.mergeBackfilled(ds, tickers)
		if err != nil {
			return report, err
		}
		for _, sym := range added {
			report.Add(sym, model.OutcomeHistorical, providers[sym], ds)
		}
		log.WithFields(logrus.Fields{"date": ds, "added": len(added)}).Info("backfilled")
	}
	report.FinishedAt = b.Now()
	return report, nil
}

// mergeBackfilled creates the snapshot for ds or adds the symbols it lacks.
// It returns the symbols written.
func (b *Builder) mergeBackfilled(ds string, tickers map[string]model.TickerRecord) ([]string, error) {
	path := b.Store.DailyPath(ds)
	snap := model.NewDailySnapshot(ds, b.Now())
	snap.Tickers = tickers
	snap.Sectors = calculator.SectorAverages(b.Universe, tickers)

	err := store.WriteJSONIfAbsent(path, snap)
	if err == nil {
		return sortedKeys(tickers), nil
	}
	if !errors.Is(err, store.ErrExists) {
		return nil, err
	}

	existing, err := b.Store.LoadDaily(ds)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", ds, err)
	}
	var added []string
	for _, sym := range sortedKeys(tickers) {
		if _, ok := existing.Tickers[sym]; ok {
			continue
		}
		existing.Tickers[sym] = tickers[sym]
		added = append(added, sym)
	}
	if len(added) == 0 {
		return nil, nil
	}
	existing.Sectors = calculator.SectorAverages(b.Universe, existing.Tickers)
	if err := store.WriteJSON(path, existing); err != nil {
		return nil, err
	}
	return added, nil
}

// backfillDates is every bar date in [from, to] across the fetched history,
// minus days on which no exchange in the universe trades.
func (b *Builder) backfillDates(history map[string]model.Bars, from, to time.Time) []time.Time {
	seen := make(map[string]time.Time)
	for _, bars := range history {
		for _, bar := range bars {
			if !bar.Close.Valid || bar.Date.Before(from) || bar.Date.After(to) {
				continue
			}
			seen[model.FormatDate(bar.Date)] = bar.Date
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		if b.Calendar != nil && !b.Calendar.AnyOpen(d) {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
