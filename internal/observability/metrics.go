package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across scrape and fetch runs.
type Metrics struct {
	// Homepage scrapes
	ScrapesTotal  atomic.Int64
	ScrapesFailed atomic.Int64
	EntriesLogged atomic.Int64

	// Daily article fetches
	FetchRuns       atomic.Int64
	ArticlesTotal   atomic.Int64
	ArticlesOK      atomic.Int64
	ArticlesFailed  atomic.Int64
	BytesDownloaded atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"newswatch_scrapes_total", "Homepage scrapes attempted", m.ScrapesTotal.Load()},
		{"newswatch_scrapes_failed_total", "Homepage scrapes that failed", m.ScrapesFailed.Load()},
		{"newswatch_entries_logged_total", "Most-read and promo rows appended", m.EntriesLogged.Load()},
		{"newswatch_fetch_runs_total", "Daily article fetch runs", m.FetchRuns.Load()},
		{"newswatch_articles_total", "Article URLs processed", m.ArticlesTotal.Load()},
		{"newswatch_articles_ok_total", "Article fetches that succeeded", m.ArticlesOK.Load()},
		{"newswatch_articles_failed_total", "Article fetches recorded as failed", m.ArticlesFailed.Load()},
		{"newswatch_bytes_downloaded_total", "Article bytes downloaded", m.BytesDownloaded.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Serve runs the metrics HTTP server until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"scrapes_total":    m.ScrapesTotal.Load(),
		"scrapes_failed":   m.ScrapesFailed.Load(),
		"entries_logged":   m.EntriesLogged.Load(),
		"fetch_runs":       m.FetchRuns.Load(),
		"articles_total":   m.ArticlesTotal.Load(),
		"articles_ok":      m.ArticlesOK.Load(),
		"articles_failed":  m.ArticlesFailed.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
	}
}
