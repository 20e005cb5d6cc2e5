package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"SectorSentinel/internal/app"
	"SectorSentinel/internal/config"
	"SectorSentinel/internal/logging"
)

var cfgPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "sentinel",
		Short:         "Multi-source price pipeline for SMB software stocks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultCfg, "Path to config.yaml")

	rootCmd.AddCommand(
		fetchCmd(),
		intradayCmd(),
		baselineCmd(),
		ltmCmd(),
		backfillCmd(),
		repairCmd(),
		validateCmd(),
		newsCmd(),
		privateHealthCmd(),
		serveCmd(),
		scheduleCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the application.
func setup() (*app.App, *logrus.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

// withApp runs fn with a wired application and a context cancelled on
// SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, log, err := setup()
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.WithError(err).Warn("close")
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return fn(ctx, a)
	}
}
