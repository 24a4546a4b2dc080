package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Log the homepage Most Read ranking and promo links once",
		Long: `Fetch the homepage once and append the Most Read ranking and the
front-page promo links to today's CSV logs under a single UTC timestamp.
Intended to run hourly.`,
		Args: cobra.NoArgs,
		RunE: runScrape,
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res, err := a.scraper().Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape homepage: %w", err)
	}
	if res.FetchErr != nil {
		return nil
	}

	logger.Info("scrape complete",
		"elapsed", time.Since(start),
		"timestamp", res.Timestamp,
		"most_read", res.MostRead,
		"promos", res.Promos,
	)
	return nil
}
