package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/newswatch/internal/collector"
	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/fetcher"
	"github.com/IshaanNene/newswatch/internal/homepage"
	"github.com/IshaanNene/newswatch/internal/ledger"
	"github.com/IshaanNene/newswatch/internal/observability"
	"github.com/IshaanNene/newswatch/internal/pipeline"
	"github.com/IshaanNene/newswatch/internal/storage"
)

// app holds the components shared by the scrape and articles jobs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	fetcher fetcher.Fetcher
	ledger  *ledger.Ledger
	store   storage.ArticleStore
}

// newApp builds the shared components. The article store is opened only
// when withStore is set, so the hourly scrape never touches it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, withStore bool) (*app, error) {
	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(logger),
		fetcher: f,
		ledger:  ledger.New(cfg.Storage.DataDir, logger),
	}
	if withStore {
		a.store, err = openStore(ctx, cfg, logger)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	return a, nil
}

// openStore opens the Parquet store and, when configured, the MongoDB mirror.
// A mirror that cannot be reached is logged and left out.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ArticleStore, error) {
	primary, err := storage.NewParquetStore(cfg.Storage.ArticlePath(), logger)
	if err != nil {
		return nil, fmt.Errorf("create article store: %w", err)
	}
	if !cfg.Storage.Mongo.Enabled {
		return primary, nil
	}

	mirror, err := storage.NewMongoStore(ctx, cfg.Storage.Mongo, logger)
	if err != nil {
		logger.Warn("mongo mirror unavailable, writing parquet only", "error", err)
		return primary, nil
	}
	return storage.NewMultiStore(primary, []storage.ArticleStore{mirror}, logger), nil
}

func (a *app) scraper() *homepage.Scraper {
	return homepage.New(a.cfg.Source, a.fetcher, a.ledger, a.logger, homepage.WithMetrics(a.metrics))
}

func (a *app) pipeline() *pipeline.Pipeline {
	return pipeline.New(
		collector.New(a.ledger, a.logger),
		a.fetcher,
		a.store,
		a.logger,
		pipeline.WithConcurrency(a.cfg.Article.Concurrency),
		pipeline.WithMetrics(a.metrics),
	)
}

func (a *app) Close() error {
	a.fetcher.Close()
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
