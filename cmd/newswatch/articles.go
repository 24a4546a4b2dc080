package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newswatch/internal/types"
)

var articlesDate string

// articlesCmd creates the "articles" subcommand.
func articlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Fetch the content of every article logged on a day",
		Long: `Collect every distinct link from a day's Most Read and promo logs, fetch
each article and write one Parquet file for the day. Without --date the
previous UTC day is used. Unreachable articles are recorded as failures and
never abort the run; re-running a day replaces its records.`,
		Args: cobra.NoArgs,
		RunE: runArticles,
	}

	cmd.Flags().StringVar(&articlesDate, "date", "", "UTC day to process (YYYY-MM-DD), defaults to yesterday")

	return cmd
}

func runArticles(cmd *cobra.Command, args []string) error {
	day, err := resolveDay(articlesDate, time.Now())
	if err != nil {
		return err
	}

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

	start := time.Now()
	summary, err := a.pipeline().Run(ctx, day)
	if err != nil {
		return fmt.Errorf("fetch articles: %w", err)
	}

	logger.Info("article fetch complete",
		"day", types.FormatDay(summary.Day),
		"elapsed", time.Since(start),
		"urls", summary.Targets,
		"ok", summary.OK,
		"failed", summary.Failed,
	)
	return nil
}

// resolveDay parses a --date value, defaulting to the UTC day before now.
func resolveDay(date string, now time.Time) (time.Time, error) {
	if date == "" {
		return types.PreviousDay(now), nil
	}
	day, err := types.ParseDay(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", date, err)
	}
	return day, nil
}
