// Package pipeline runs the daily article content fetch:
// collect -> fetch -> extract -> write.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/newswatch/internal/collector"
	"github.com/IshaanNene/newswatch/internal/extract"
	"github.com/IshaanNene/newswatch/internal/fetcher"
	"github.com/IshaanNene/newswatch/internal/observability"
	"github.com/IshaanNene/newswatch/internal/storage"
	"github.com/IshaanNene/newswatch/internal/types"
)

// Summary describes one pipeline run.
type Summary struct {
	Day     time.Time
	Targets int
	OK      int
	Failed  int
}

// Pipeline fetches and stores the content of every URL logged on a day.
type Pipeline struct {
	collector   *collector.Collector
	fetcher     fetcher.Fetcher
	store       storage.ArticleStore
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConcurrency bounds the number of in-flight fetches.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMetrics records run counters into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the clock used for fetch timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline.
func New(c *collector.Collector, f fetcher.Fetcher, s storage.ArticleStore, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		collector:   c,
		fetcher:     f,
		store:       s,
		concurrency: 1,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes day. Per-URL failures become failure records and never
// abort the batch; only a write failure or cancellation returns an error.
// A day with no logged URLs writes nothing.
func (p *Pipeline) Run(ctx context.Context, day time.Time) (Summary, error) {
	summary := Summary{Day: day}
	dayKey := types.FormatDay(day)
	if p.metrics != nil {
		p.metrics.FetchRuns.Add(1)
	}

	targets := p.collector.Collect(day)
	summary.Targets = len(targets)
	if len(targets) == 0 {
		p.logger.Info("no URLs found for day", "day", dayKey)
		return summary, nil
	}

	p.logger.Info("fetching articles", "day", dayKey, "urls", len(targets), "concurrency", p.concurrency)

	records := make([]types.ArticleContentRecord, len(targets))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			records[i] = p.process(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, &types.PipelineError{Stage: "fetch", Day: dayKey, Err: err}
	}

	for _, rec := range records {
		if rec.FetchOK {
			summary.OK++
		} else {
			summary.Failed++
		}
	}
	if p.metrics != nil {
		p.metrics.ArticlesTotal.Add(int64(len(records)))
		p.metrics.ArticlesOK.Add(int64(summary.OK))
		p.metrics.ArticlesFailed.Add(int64(summary.Failed))
	}

	if err := p.store.Put(ctx, day, records); err != nil {
		return summary, &types.PipelineError{Stage: "write", Day: dayKey, Err: err}
	}

	p.logger.Info("saved articles", "day", dayKey, "records", len(records), "ok", summary.OK, "failed", summary.Failed)
	return summary, nil
}

// process fetches and extracts one target. It always returns a record.
func (p *Pipeline) process(ctx context.Context, target collector.Target) types.ArticleContentRecord {
	rec := types.ArticleContentRecord{
		URL:             target.URL,
		RequestedURL:    target.URL,
		Sources:         joinKinds(target.Sources),
		FirstAppearedAt: target.FirstAppearedAt,
		Attempt:         1,
	}

	req, err := types.NewRequest(target.URL)
	if err != nil {
		return p.failed(rec, types.StatusFetchError, err)
	}

	resp, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return p.failed(rec, types.StatusFetchError, err)
	}

	rec.FetchedAt = resp.FetchedAt
	rec.StatusCode = resp.StatusCode
	rec.HTML = string(resp.Body)
	if resp.FinalURL != "" {
		rec.URL = resp.FinalURL
	}
	if p.metrics != nil {
		p.metrics.BytesDownloaded.Add(int64(len(resp.Body)))
	}

	article := p.extract(target.URL, rec.HTML)
	if article.Canonical != "" {
		rec.URL = article.Canonical
	}
	rec.Title = article.Title
	rec.Authors = strings.Join(article.Authors, ";")
	rec.ArticleHTML = article.ArticleHTML
	rec.Text = article.Text

	if !resp.IsSuccess() {
		return p.failed(rec, types.StatusHTTPError, &types.FetchError{
			URL:        target.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		})
	}

	rec.Status = types.StatusOK
	rec.FetchOK = true
	p.logger.Debug("article fetched", "url", target.URL, "status", resp.StatusCode, "duration", resp.FetchDuration, "text_len", len(rec.Text))
	return rec
}

// extract runs the extractor; a panic on pathological markup yields an
// empty article.
func (p *Pipeline) extract(url, html string) (article extract.Article) {
	if html == "" {
		return extract.Article{}
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("extraction failed", "url", url, "panic", r)
			article = extract.Article{}
		}
	}()
	return extract.ParseArticle(html)
}

func (p *Pipeline) failed(rec types.ArticleContentRecord, status string, err error) types.ArticleContentRecord {
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = p.now()
	}
	rec.Status = status
	rec.FetchOK = false
	rec.Error = err.Error()
	p.logger.Warn("failed to fetch article", "url", rec.RequestedURL, "status", status, "error", err)
	return rec
}

func joinKinds(kinds []types.LogKind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ";")
}
