package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/newswatch/internal/config"
)

var (
	cfgFile string
	verbose bool
	dataDir string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newswatch",
		Short: "newswatch — news homepage ranking logger and article archiver",
		Long: `newswatch records what a news homepage is showing and archives the articles.

Every hour it logs the "Most Read" ranking and the front-page promo links to
dated CSV files. Once a day it fetches every article URL seen on the previous
UTC day and stores canonical URL, title, authors, HTML and plain text in a
Parquet file per day.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the hourly logs and article files")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(articlesCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("newswatch %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Source:\n")
			fmt.Printf("  Homepage:          %s\n", cfg.Source.HomepageURL)
			fmt.Printf("  Base URL:          %s\n", cfg.Source.BaseURL)
			fmt.Printf("  Top N:             %d\n", cfg.Source.TopN)
			fmt.Printf("  Promo Limit:       %d\n", cfg.Source.PromoLimit)
			fmt.Printf("  Timeout:           %s\n", cfg.Source.Timeout)
			fmt.Printf("  Most Read Rules:   %d\n", len(cfg.Source.MostRead))
			fmt.Printf("  Promo Rules:       %d\n", len(cfg.Source.Promos))
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Rate Limit:        %.1f req/s\n", cfg.Fetcher.RateLimit)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Fetcher.UserAgents))
			fmt.Printf("\nArticles:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Article.Timeout)
			fmt.Printf("  Concurrency:       %d\n", cfg.Article.Concurrency)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Data Dir:          %s\n", cfg.Storage.DataDir)
			fmt.Printf("  Article Dir:       %s\n", cfg.Storage.ArticlePath())
			fmt.Printf("  Mongo Mirror:      %v\n", cfg.Storage.Mongo.Enabled)
			fmt.Printf("\nSchedule (UTC):\n")
			fmt.Printf("  Scrape:            %s\n", cfg.Schedule.Scrape)
			fmt.Printf("  Fetch:             %s\n", cfg.Schedule.Fetch)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}

// loadConfig loads, overrides and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	}))
}
