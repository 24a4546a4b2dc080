package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/newswatch/internal/scheduler"
	"github.com/IshaanNene/newswatch/internal/types"
)

// scheduleCmd creates the "schedule" subcommand.
func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the hourly scrape and daily article fetch until interrupted",
		Long: `Run as a long-lived daemon: the homepage scrape on schedule.scrape and the
article fetch for the previous UTC day on schedule.fetch. Both specs are cron
expressions evaluated in UTC. A failed run is logged and the daemon keeps going.`,
		Args: cobra.NoArgs,
		RunE: runSchedule,
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	scraper := a.scraper()
	pipe := a.pipeline()

	sched := scheduler.New(logger)
	if err := sched.Add("scrape", cfg.Schedule.Scrape, func(ctx context.Context) error {
		_, err := scraper.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := sched.Add("articles", cfg.Schedule.Fetch, func(ctx context.Context) error {
		_, err := pipe.Run(ctx, types.PreviousDay(time.Now()))
		return err
	}); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return a.metrics.Serve(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
		})
	}
	g.Go(func() error {
		return sched.Run(ctx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete", "metrics", a.metrics.Snapshot())
	return nil
}
