package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"SectorSentinel/internal/app"
	"SectorSentinel/internal/logging"
	"SectorSentinel/internal/model"
	"SectorSentinel/internal/notifier"
	"SectorSentinel/internal/scheduler"
	"SectorSentinel/internal/server"
)

// dateOrToday parses a YYYY-MM-DD flag value, defaulting to today.
func dateOrToday(a *app.App, s string) (time.Time, error) {
	if s == "" {
		return a.Today(), nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

func printReport(r *model.RunReport) {
	if r == nil {
		return
	}
	if r.Skipped {
		fmt.Printf("%s %s: already complete, skipped\n", r.Kind, r.Target)
		return
	}
	fmt.Printf("%s %s: %d/%d resolved", r.Kind, r.Target, r.Resolved(), len(r.Outcomes))
	if missing := r.MissingSymbols(); len(missing) > 0 {
		fmt.Printf(", missing %v", missing)
	}
	fmt.Println()
}

func fetchCmd() *cobra.Command {
	var date string
	var force bool
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Build the daily snapshot",
		Long:  "Build the daily snapshot for a date. With --force an existing snapshot is rebuilt and the baseline and LTM high documents are patched from daily snapshots.",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			d, err := dateOrToday(a, date)
			if err != nil {
				return err
			}
			report, err := a.FetchDaily(ctx, d, force)
			printReport(report)
			return err
		}),
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD), default today")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing snapshot")
	return cmd
}

func intradayCmd() *cobra.Command {
	var date, label string
	var force bool
	cmd := &cobra.Command{
		Use:   "intraday",
		Short: "Build a labelled intraday snapshot",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			d, err := dateOrToday(a, date)
			if err != nil {
				return err
			}
			report, err := a.FetchIntraday(ctx, d, label, force)
			printReport(report)
			return err
		}),
	}
	cmd.Flags().StringVarP(&label, "label", "l", "noon", "Snapshot label, e.g. noon or 11am")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD), default today")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing snapshot")
	return cmd
}

func baselineCmd() *cobra.Command {
	var force, repair bool
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Build baseline.json for the zero date",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			report, err := a.BuildBaseline(ctx, force, repair)
			printReport(report)
			return err
		}),
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild an existing baseline")
	cmd.Flags().BoolVar(&repair, "repair", false, "Only patch missing symbols from daily snapshots")
	return cmd
}

func ltmCmd() *cobra.Command {
	var force, repair bool
	cmd := &cobra.Command{
		Use:   "ltm",
		Short: "Build ltm_high.json for the zero date",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			report, err := a.BuildTrailingHigh(ctx, force, repair)
			printReport(report)
			return err
		}),
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild an existing document")
	cmd.Flags().BoolVar(&repair, "repair", false, "Only patch missing symbols from daily snapshots")
	return cmd
}

func backfillCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Write or complete daily snapshots for a date range",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			f, err := model.ParseDate(from)
			if err != nil {
				return fmt.Errorf("invalid --from %q", from)
			}
			t, err := dateOrToday(a, to)
			if err != nil {
				return err
			}
			report, err := a.Backfill(ctx, f, t)
			printReport(report)
			return err
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD), default today")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Fill symbols missing from persisted snapshots and documents",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			reports, err := a.Repair(ctx)
			for _, r := range reports {
				if !r.Skipped {
					printReport(r)
				}
			}
			return err
		}),
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every document covers the whole universe",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			cov, err := a.Validate(ctx)
			if cov != nil {
				for _, g := range cov.Gaps {
					fmt.Println("  " + g.String())
				}
				if cov.OK() {
					fmt.Printf("coverage ok: %d symbols, latest daily %s\n", cov.Symbols, cov.LatestDaily)
				}
			}
			return err
		}),
	}
}

func newsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Refresh sector_news.json",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			doc, err := a.SectorNews(ctx)
			if err != nil {
				return err
			}
			total := 0
			for _, s := range doc.Sectors {
				total += len(s.Articles)
			}
			fmt.Printf("%d sectors, %d articles\n", len(doc.Sectors), total)
			return nil
		}),
	}
}

func privateHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "private-health",
		Short: "Refresh private_health.json (needs NEWS_API_KEY)",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			doc, err := a.PrivateHealth(ctx)
			if err != nil {
				return err
			}
			total := 0
			for _, items := range doc.Companies {
				total += len(items)
			}
			fmt.Printf("%d companies with news, %d items\n", len(doc.Companies), total)
			return nil
		}),
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the data directory over HTTP",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			srv := server.New(a.Store, a.Recorder, logging.WithComponent(a.Log, "server"))
			return srv.Run(ctx, a.Config.Server.Addr)
		}),
	}
}

func scheduleCmd() *cobra.Command {
	var serve, runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run jobs on their cron schedules until interrupted",
		RunE: withApp(func(ctx context.Context, a *app.App) error {
			cfg := a.Config
			sched := scheduler.NewScheduler(ctx, a, a.Notifier, logging.WithComponent(a.Log, "scheduler"), a.Location)
			if err := sched.RegisterAll(scheduler.Schedules{
				Daily:    cfg.Schedule.DailyCron,
				Intraday: cfg.Schedule.IntradayCron,
				Repair:   cfg.Schedule.RepairCron,
				Validate: cfg.Schedule.ValidateCron,
				News:     cfg.Schedule.NewsCron,
			}); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if tn, ok := a.Notifier.(*notifier.TelegramNotifier); ok {
				go tn.StartPolling(ctx, sched.HandleCommand)
				a.Log.Info("telegram polling started")
			}

			errCh := make(chan error, 1)
			if serve {
				srv := server.New(a.Store, a.Recorder, logging.WithComponent(a.Log, "server"))
				go func() { errCh <- srv.Run(ctx, cfg.Server.Addr) }()
			}
			if runNow {
				go sched.HandleCommand(ctx, "/fetch")
			}

			a.Log.Info("SectorSentinel is running. Press Ctrl+C to stop.")
			select {
			case <-ctx.Done():
				a.Log.Info("shutdown signal received, stopping...")
				return nil
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("api server: %w", err)
				}
				return nil
			}
		}),
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "Also serve the data API")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run the daily fetch once on start")
	return cmd
}
