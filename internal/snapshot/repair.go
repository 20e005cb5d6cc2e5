package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/calculator"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/store"
)

// RepairDaily fills symbols missing from an existing daily snapshot using the
// historical window. Present symbols are never changed and the file is only
// rewritten when something was added, so repeated runs converge.
func (b *Builder) RepairDaily(ctx context.Context, date time.Time) (*model.RunReport, error) {
	ds := model.FormatDate(date)
	report := model.NewRunReport(model.RunRepair, ds, b.Now())
	log := b.Log.WithFields(logrus.Fields{"run": report.ID, "date": ds})

	snap, err := b.Store.LoadDaily(ds)
	if err != nil {
		return report, fmt.Errorf("load snapshot %s: %w", ds, err)
	}

	missing := model.Missing(b.Universe, snap.Tickers)
	if len(missing) == 0 {
		report.Skipped = true
		report.FinishedAt = b.Now()
		return report, nil
	}

	added := 0
	for _, sym := range missing {
		in, _ := b.Universe.Instrument(sym)
		rec, provider := b.resolveFromHistory(ctx, in, date)
		if rec != nil {
			snap.Tickers[sym] = *rec
			added++
			report.Add(sym, model.OutcomeHistorical, provider, ds)
			log.WithFields(logrus.Fields{"symbol": sym, "provider": provider}).Info("patched from historical bars")
		} else {
			report.Add(sym, model.OutcomeMissing, "", ds)
		}
		if err := b.pause(ctx); err != nil {
			return report, err
		}
	}
	report.FinishedAt = b.Now()

	if added == 0 {
		log.WithField("missing", len(missing)).Warn("repair found nothing to add")
		return report, nil
	}
	snap.Sectors = calculator.SectorAverages(b.Universe, snap.Tickers)
	if err := store.WriteJSON(b.Store.DailyPath(ds), snap); err != nil {
		return report, err
	}
	log.WithFields(logrus.Fields{"added": added, "still_missing": len(missing) - added}).Info("snapshot repaired")
	return report, nil
}

// RepairAll runs RepairDaily over every persisted daily snapshot, oldest first.
func (b *Builder) RepairAll(ctx context.Context) ([]*model.RunReport, error) {
	dates, err := b.Store.DailyDates()
	if err != nil {
		return nil, err
	}
	var reports []*model.RunReport
	for _, ds := range dates {
		d, err := model.ParseDate(ds)
		if err != nil {
			continue
		}
		report, err := b.RepairDaily(ctx, d)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
