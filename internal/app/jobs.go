package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/baseline"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/notifier"
	"SectorSentinel/internal/recorder"
	"SectorSentinel/internal/store"
)

// FetchDaily builds the daily snapshot for date. An existing snapshot is left
// alone unless force is set; forcing also patches the baseline and
// trailing-high documents from daily snapshots.
func (a *App) FetchDaily(ctx context.Context, date time.Time, force bool) (*model.RunReport, error) {
	snap, report, err := a.Builder.BuildDaily(ctx, date, force)
	a.record(report)
	if errors.Is(err, store.ErrExists) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("fetch %s: %w", model.FormatDate(date), err)
	}

	if force {
		if err := a.patchDocuments(); err != nil {
			return report, err
		}
	}
	a.notify(ctx, notifier.FormatRunReport(report)+"\n"+notifier.FormatSectorSummary(snap, a.Universe.Sectors))
	return report, nil
}

// FetchIntraday builds the labelled intraday snapshot for date.
func (a *App) FetchIntraday(ctx context.Context, date time.Time, label string, force bool) (*model.RunReport, error) {
	label = strings.TrimSpace(label)
	if label == "" || strings.ContainsAny(label, `/\. `) {
		return nil, fmt.Errorf("invalid intraday label %q", label)
	}
	snap, report, err := a.Builder.BuildIntraday(ctx, date, label, force)
	a.record(report)
	if errors.Is(err, store.ErrExists) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("intraday %s %s: %w", model.FormatDate(date), label, err)
	}
	a.notify(ctx, notifier.FormatSectorSummary(snap, a.Universe.Sectors))
	return report, nil
}

// BuildBaseline fetches baseline.json for the zero date, or with repair only
// patches missing symbols from daily snapshots.
func (a *App) BuildBaseline(ctx context.Context, force, repair bool) (*model.RunReport, error) {
	if repair {
		report, err := a.Engine.PatchBaselineFromDaily()
		a.record(report)
		return report, err
	}
	_, report, err := a.Engine.BuildBaseline(ctx, a.ZeroDate(), force)
	a.record(report)
	if errors.Is(err, store.ErrExists) {
		return report, nil
	}
	return report, err
}

// BuildTrailingHigh fetches ltm_high.json for the zero date, or with repair
// only patches missing symbols from daily snapshots.
func (a *App) BuildTrailingHigh(ctx context.Context, force, repair bool) (*model.RunReport, error) {
	if repair {
		report, err := a.Engine.PatchTrailingHighFromDaily()
		a.record(report)
		return report, err
	}
	_, report, err := a.Engine.BuildTrailingHigh(ctx, a.ZeroDate(), force)
	a.record(report)
	if errors.Is(err, store.ErrExists) {
		return report, nil
	}
	return report, err
}

// Backfill writes or completes daily snapshots for [from, to].
func (a *App) Backfill(ctx context.Context, from, to time.Time) (*model.RunReport, error) {
	report, err := a.Builder.Backfill(ctx, from, to)
	a.record(report)
	return report, err
}

// Repair fills missing symbols in every daily snapshot from historical bars,
// then patches the baseline and trailing-high documents from the snapshots.
func (a *App) Repair(ctx context.Context) ([]*model.RunReport, error) {
	reports, err := a.Builder.RepairAll(ctx)
	for _, r := range reports {
		a.record(r)
	}
	if err != nil {
		return reports, fmt.Errorf("repair snapshots: %w", err)
	}
	if err := a.patchDocuments(); err != nil {
		return reports, err
	}

	var patched []string
	for _, r := range reports {
		if r.Resolved() > 0 {
			patched = append(patched, r.Target)
		}
	}
	if len(patched) > 0 {
		a.notify(ctx, fmt.Sprintf("🔧 <b>repair</b> patched %d snapshot(s): %s", len(patched), strings.Join(patched, ", ")))
	}
	return reports, nil
}

func (a *App) patchDocuments() error {
	report, err := a.Engine.PatchBaselineFromDaily()
	a.record(report)
	if err != nil {
		return fmt.Errorf("patch baseline: %w", err)
	}
	report, err = a.Engine.PatchTrailingHighFromDaily()
	a.record(report)
	if err != nil {
		return fmt.Errorf("patch trailing high: %w", err)
	}
	return nil
}

// Validate checks universe coverage of every persisted document. Gaps are
// reported and yield ErrValidationFailed.
func (a *App) Validate(ctx context.Context) (*baseline.CoverageReport, error) {
	cov, err := baseline.Validate(a.Universe, a.Store)
	if err != nil {
		return nil, err
	}

	gaps := make([]string, len(cov.Gaps))
	for i, g := range cov.Gaps {
		gaps[i] = g.String()
	}
	if err := a.Recorder.RecordValidation(&recorder.ValidationEvent{
		CheckedAt:   time.Now(),
		LatestDaily: cov.LatestDaily,
		OK:          cov.OK(),
		Gaps:        gaps,
	}); err != nil {
		a.Log.WithError(err).Error("record validation")
	}

	if !cov.OK() {
		for _, g := range gaps {
			a.Log.WithField("gap", g).Warn("coverage gap")
		}
		a.notify(ctx, notifier.FormatCoverage(cov))
		return cov, ErrValidationFailed
	}
	a.Log.WithFields(logrus.Fields{"symbols": cov.Symbols, "latest_daily": cov.LatestDaily}).Info("coverage ok")
	return cov, nil
}
