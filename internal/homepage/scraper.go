// Package homepage implements the hourly job: fetch the news homepage once,
// extract the Most Read ranking and the front-page promos, and append both
// to the day's logs under a single timestamp.
package homepage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/fetcher"
	"github.com/IshaanNene/newswatch/internal/ledger"
	"github.com/IshaanNene/newswatch/internal/observability"
	"github.com/IshaanNene/newswatch/internal/parser"
	"github.com/IshaanNene/newswatch/internal/types"
)

// Result reports what one scrape logged.
type Result struct {
	Timestamp time.Time
	MostRead  int
	Promos    int

	// FetchErr is set when the homepage could not be fetched.
	FetchErr error
}

// Scraper runs the homepage scrape.
type Scraper struct {
	cfg     config.SourceConfig
	fetcher fetcher.Fetcher
	parser  *parser.ListingParser
	ledger  *ledger.Ledger
	metrics *observability.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithMetrics records scrape counters into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// WithClock overrides the clock used for the scrape timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a Scraper for the configured homepage.
func New(cfg config.SourceConfig, f fetcher.Fetcher, l *ledger.Ledger, logger *slog.Logger, opts ...Option) *Scraper {
	s := &Scraper{
		cfg:     cfg,
		fetcher: f,
		parser:  parser.NewListingParser(logger),
		ledger:  l,
		now:     time.Now,
		logger:  logger.With("component", "homepage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one scrape. A homepage that cannot be fetched, or a listing
// that cannot be found on it, is logged and nothing is appended for it; the
// next hourly run tries again. Only failing to append to a log is an error.
func (s *Scraper) Run(ctx context.Context) (Result, error) {
	ts := s.now().UTC().Truncate(time.Second)
	res := Result{Timestamp: ts}
	if s.metrics != nil {
		s.metrics.ScrapesTotal.Add(1)
	}

	page, err := s.fetchPage(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ScrapesFailed.Add(1)
		}
		s.logger.Error("homepage fetch failed, nothing logged", "url", s.cfg.HomepageURL, "error", err)
		res.FetchErr = err
		return res, nil
	}

	for _, kind := range types.Kinds {
		rules, limit := s.rulesFor(kind)
		if len(rules) == 0 {
			continue
		}

		entries, err := s.parser.Parse(page, rules, limit)
		if errors.Is(err, types.ErrNoListing) {
			s.logger.Warn("listing not found on homepage", "kind", kind, "error", err)
			continue
		}
		if err != nil {
			return res, err
		}
		if len(entries) == 0 {
			s.logger.Warn("listing empty, nothing to log", "kind", kind)
			continue
		}

		if err := s.ledger.Append(kind, ts, entries); err != nil {
			if s.metrics != nil {
				s.metrics.ScrapesFailed.Add(1)
			}
			return res, err
		}
		if s.metrics != nil {
			s.metrics.EntriesLogged.Add(int64(len(entries)))
		}
		s.logger.Info("listing logged", "kind", kind, "entries", len(entries), "path", s.ledger.Path(kind, ts))

		switch kind {
		case types.KindMostRead:
			res.MostRead = len(entries)
		case types.KindPromo:
			res.Promos = len(entries)
		}
	}

	return res, nil
}

func (s *Scraper) fetchPage(ctx context.Context) (*parser.Page, error) {
	req, err := types.NewRequest(s.cfg.HomepageURL)
	if err != nil {
		return nil, err
	}
	req.Timeout = s.cfg.Timeout
	req.Headers.Set("Cache-Control", "no-cache")

	s.logger.Info("fetching homepage", "url", s.cfg.HomepageURL)
	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("homepage fetched", "status", resp.StatusCode, "size", len(resp.Body), "duration", resp.FetchDuration)
	if !resp.IsSuccess() {
		return nil, &types.FetchError{
			URL:        s.cfg.HomepageURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	if len(resp.Body) == 0 {
		return nil, &types.FetchError{URL: s.cfg.HomepageURL, StatusCode: resp.StatusCode, Err: types.ErrEmptyResponse}
	}

	return parser.PageFromResponse(resp, s.cfg.BaseURL)
}

func (s *Scraper) rulesFor(kind types.LogKind) ([]config.SelectorRule, int) {
	switch kind {
	case types.KindMostRead:
		return s.cfg.MostRead, s.cfg.TopN
	case types.KindPromo:
		return s.cfg.Promos, s.cfg.PromoLimit
	}
	return nil, 0
}
