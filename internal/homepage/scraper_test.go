package homepage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/fetcher"
	"github.com/IshaanNene/newswatch/internal/ledger"
	"github.com/IshaanNene/newswatch/internal/observability"
	"github.com/IshaanNene/newswatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const mostRead = `<div data-component="mostRead"><ol class="ssrcss-1020bd1-Stack">
	<li><a class="ssrcss-qseizj-HeadlineLink" href="/news/articles/one">One</a></li>
	<li><a class="ssrcss-qseizj-HeadlineLink" href="/news/articles/two">Two</a></li>
	<li><a class="ssrcss-qseizj-HeadlineLink" href="news/articles/three">Three</a></li>
</ol></div>`

const promos = `<div data-testid="london-card">
	<a data-testid="internal-link" href="/news/articles/two"><h2 data-testid="card-headline">Two again</h2></a>
</div>
<div data-testid="paris-card">
	<a data-testid="internal-link" href="/news/articles/four"><h2 data-testid="card-headline">Four</h2></a>
</div>`

var scrapeTime = time.Date(2024, 1, 1, 9, 0, 7, 123, time.UTC)

type harness struct {
	srv     *httptest.Server
	ledger  *ledger.Ledger
	metrics *observability.Metrics
	scraper *Scraper
}

func newHarness(t *testing.T, handler http.HandlerFunc) *harness {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Source.HomepageURL = srv.URL + "/news"
	cfg.Source.BaseURL = srv.URL
	cfg.Source.Timeout = 2 * time.Second
	cfg.Fetcher.RateLimit = 0

	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })

	l := ledger.New(t.TempDir(), testLogger)
	m := observability.NewMetrics(testLogger)
	s := New(cfg.Source, f, l, testLogger,
		WithMetrics(m),
		WithClock(func() time.Time { return scrapeTime }),
	)
	return &harness{srv: srv, ledger: l, metrics: m, scraper: s}
}

func page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body><main>%s</main></body></html>", body)
	}
}

func TestRunLogsBothListingsWithSharedTimestamp(t *testing.T) {
	h := newHarness(t, page(mostRead+promos))

	res, err := h.scraper.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.MostRead != 3 || res.Promos != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	want := scrapeTime.Truncate(time.Second)
	most, err := h.ledger.Read(types.KindMostRead, scrapeTime)
	if err != nil {
		t.Fatalf("read most read: %v", err)
	}
	if len(most) != 3 {
		t.Fatalf("expected 3 most-read rows, got %d", len(most))
	}
	for i, rec := range most {
		if rec.Rank != i+1 {
			t.Errorf("row %d: expected rank %d, got %d", i, i+1, rec.Rank)
		}
		if !rec.Timestamp.Equal(want) {
			t.Errorf("row %d: expected timestamp %s, got %s", i, want, rec.Timestamp)
		}
	}
	if most[2].Link != h.srv.URL+"/news/articles/three" {
		t.Errorf("bare relative link should resolve against base, got %q", most[2].Link)
	}

	promo, err := h.ledger.Read(types.KindPromo, scrapeTime)
	if err != nil {
		t.Fatalf("read promos: %v", err)
	}
	if len(promo) != 2 || promo[0].Title != "Two again" || promo[1].Link != h.srv.URL+"/news/articles/four" {
		t.Errorf("unexpected promo rows %+v", promo)
	}
	if !promo[0].Timestamp.Equal(most[0].Timestamp) {
		t.Error("both logs should share the scrape timestamp")
	}

	if h.metrics.ScrapesTotal.Load() != 1 || h.metrics.EntriesLogged.Load() != 5 {
		t.Errorf("unexpected metrics %v", h.metrics.Snapshot())
	}
}

func TestRunSkipsMissingListing(t *testing.T) {
	h := newHarness(t, page(promos))

	res, err := h.scraper.Run(context.Background())
	if err != nil {
		t.Fatalf("a missing listing should not fail the scrape: %v", err)
	}
	if res.MostRead != 0 || res.Promos != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if _, err := h.ledger.Read(types.KindMostRead, scrapeTime); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("no most-read log should be written, got %v", err)
	}
}

func TestRunHomepageErrorLogsNothingAndSucceeds(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	res, err := h.scraper.Run(context.Background())
	if err != nil {
		t.Fatalf("a homepage failure should not fail the run: %v", err)
	}
	var fe *types.FetchError
	if !errors.As(res.FetchErr, &fe) || fe.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected FetchError with 503 in result, got %v", res.FetchErr)
	}
	if h.metrics.ScrapesFailed.Load() != 1 {
		t.Errorf("expected one failed scrape, got %d", h.metrics.ScrapesFailed.Load())
	}
	for _, kind := range types.Kinds {
		if _, err := h.ledger.Read(kind, scrapeTime); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("%s: nothing should be logged, got %v", kind, err)
		}
	}
}

func TestRunSendsNoCacheHeader(t *testing.T) {
	var got string
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Cache-Control")
		page(mostRead)(w, r)
	})

	if _, err := h.scraper.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "no-cache" {
		t.Errorf("expected Cache-Control no-cache, got %q", got)
	}
}

func TestRunLedgerFailureIsError(t *testing.T) {
	h := newHarness(t, page(mostRead))
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	h.scraper.ledger = ledger.New(filepath.Join(blocker, "data"), testLogger)

	_, err := h.scraper.Run(context.Background())
	var se *types.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}
