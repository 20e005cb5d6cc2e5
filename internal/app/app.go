// Package app wires configuration, providers, storage and jobs together and
// exposes the operations the CLI, scheduler and chat commands run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"SectorSentinel/internal/baseline"
	"SectorSentinel/internal/collector"
	"SectorSentinel/internal/config"
	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/notifier"
	"SectorSentinel/internal/recorder"
	"SectorSentinel/internal/resolver"
	"SectorSentinel/internal/snapshot"
	"SectorSentinel/internal/store"
	"SectorSentinel/internal/tradingday"
)

// ErrValidationFailed is returned when a persisted document lacks symbols.
var ErrValidationFailed = errors.New("coverage validation failed")

// App holds the wired components.
type App struct {
	Config   *config.Config
	Universe *model.Universe
	Store    *store.Store
	Resolver *resolver.Resolver
	Builder  *snapshot.Builder
	Engine   *baseline.Engine
	Calendar *tradingday.Set
	Recorder recorder.Recorder
	Notifier notifier.Notifier
	Log      logrus.FieldLogger
	Location *time.Location
}

// New builds every component from cfg. A missing FMP key disables the
// primary provider with a warning; the run continues on the secondary alone.
func New(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	u, err := config.LoadUniverse(cfg.UniversePath)
	if err != nil {
		return nil, err
	}
	st, err := store.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	primary, secondary := buildProviders(cfg, log)
	res, err := resolver.New(primary, secondary, u.Order)
	if err != nil {
		return nil, err
	}
	res.MaxRetries = *cfg.Providers.MaxRetries
	res.RetryDelay = cfg.Providers.RetryDelay
	res.Log = logging.WithComponent(log, "resolver")

	cal := tradingday.NewSet(u.Symbols())

	b := snapshot.NewBuilder(u, res, st)
	b.Calendar = cal
	b.SymbolDelay = cfg.Providers.SymbolDelay
	b.Log = logging.WithComponent(log, "snapshot")

	e := baseline.NewEngine(u, res, st)
	e.SymbolDelay = cfg.Providers.SymbolDelay
	e.Log = logging.WithComponent(log, "baseline")

	a := &App{
		Config:   cfg,
		Universe: u,
		Store:    st,
		Resolver: res,
		Builder:  b,
		Engine:   e,
		Calendar: cal,
		Recorder: openRecorder(cfg, log),
		Log:      log,
		Location: loc,
	}
	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		tn.Log = logging.WithComponent(log, "telegram")
		a.Notifier = tn
	} else {
		a.Notifier = notifier.LogNotifier{Log: logging.WithComponent(log, "notify")}
	}
	return a, nil
}

func buildProviders(cfg *config.Config, log logrus.FieldLogger) (primary, secondary collector.Provider) {
	httpClient := collector.NewHTTPClient(cfg.Proxy, cfg.Providers.Timeout)

	fmpOpts := []collector.Option{
		collector.WithHTTPClient(httpClient),
		collector.WithRateLimit(cfg.Providers.FMP.RateLimit),
	}
	if cfg.Providers.FMP.BaseURL != "" {
		fmpOpts = append(fmpOpts, collector.WithBaseURL(cfg.Providers.FMP.BaseURL))
	}
	fmp, err := collector.NewFMPProvider(cfg.Providers.FMP.APIKey, fmpOpts...)
	if err != nil {
		log.WithError(err).Warn("primary provider disabled")
	} else {
		primary = fmp
	}

	if !cfg.Providers.Yahoo.Disabled {
		yOpts := []collector.Option{
			collector.WithHTTPClient(httpClient),
			collector.WithRateLimit(cfg.Providers.Yahoo.RateLimit),
		}
		if cfg.Providers.Yahoo.BaseURL != "" {
			yOpts = append(yOpts, collector.WithBaseURL(cfg.Providers.Yahoo.BaseURL))
		}
		secondary = collector.NewYahooProvider(yOpts...)
	}
	return primary, secondary
}

func openRecorder(cfg *config.Config, log logrus.FieldLogger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logging.WithComponent(log, "recorder"))
	if err != nil {
		log.WithError(err).Warn("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

// Close releases the recorder.
func (a *App) Close() error {
	return a.Recorder.Close()
}

// Today is the current calendar date in the schedule timezone.
func (a *App) Today() time.Time {
	return model.DateOf(time.Now().In(a.Location))
}

// ZeroDate is the configured baseline date.
func (a *App) ZeroDate() time.Time {
	return a.Config.ZeroTime()
}

func (a *App) record(report *model.RunReport) {
	if report == nil {
		return
	}
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	counts := report.Counts()
	a.Log.WithFields(logrus.Fields{
		"run":        report.ID,
		"kind":       report.Kind,
		"target":     report.Target,
		"skipped":    report.Skipped,
		"resolved":   report.Resolved(),
		"missing":    counts[model.OutcomeMissing],
		"fallback":   counts[model.OutcomeFallback],
		"historical": counts[model.OutcomeHistorical],
	}).Info("run finished")
	if err := a.Recorder.RecordRun(report); err != nil {
		a.Log.WithError(err).Error("record run")
	}
}

func (a *App) notify(ctx context.Context, text string) {
	if err := notifier.Deliver(ctx, a.Notifier, text); err != nil {
		a.Log.WithError(err).Error("send notification")
	}
}

// IsTradingDay reports whether any exchange in the universe is open on d.
func (a *App) IsTradingDay(d time.Time) bool {
	return a.Calendar.AnyOpen(d)
}

// RecentRuns lists stored runs, newest first.
func (a *App) RecentRuns(limit int) ([]recorder.RunSummary, error) {
	return a.Recorder.RecentRuns(limit)
}
