package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Fetcher.RateLimit = 0
	cfg.Article.Timeout = 2 * time.Second
	f, err := NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func fetch(t *testing.T, f Fetcher, rawURL string) (*types.Response, error) {
	t.Helper()
	req, err := types.NewRequest(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	return f.Fetch(context.Background(), req)
}

func TestHTTPFetcherSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer srv.Close()

	resp, err := fetch(t, newTestFetcher(t), srv.URL+"/a")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected 2xx, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "<html><body>hi</body></html>" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if gotUA == "" || gotUA == "Go-http-client/1.1" {
		t.Errorf("expected a browser user agent, got %q", gotUA)
	}
	if resp.FetchDuration <= 0 || resp.FetchedAt.IsZero() {
		t.Errorf("expected fetch timing, got duration=%s at=%s", resp.FetchDuration, resp.FetchedAt)
	}
}

func TestHTTPFetcherNon2xxIsResponse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	resp, err := fetch(t, newTestFetcher(t), srv.URL+"/missing")
	if err != nil {
		t.Fatalf("404 should not be a transport error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound || resp.IsSuccess() {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	req, _ := types.NewRequest(srv.URL)
	req.Timeout = 50 * time.Millisecond
	_, err := newTestFetcher(t).Fetch(context.Background(), req)

	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestHTTPFetcherDecodesBrotliAndGzip(t *testing.T) {
	const page = "<p>compressed</p>"

	var br, gz bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write([]byte(page))
	bw.Close()
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(page))
	gw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			w.Write(br.Bytes())
		case "/gz":
			w.Header().Set("Content-Encoding", "gzip")
			w.Write(gz.Bytes())
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	for _, path := range []string{"/br", "/gz"} {
		resp, err := fetch(t, f, srv.URL+path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if string(resp.Body) != page {
			t.Errorf("%s: expected %q, got %q", path, page, resp.Body)
		}
	}
}

func TestHTTPFetcherFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := fetch(t, newTestFetcher(t), srv.URL+"/old")
	if err != nil {
		t.Fatal(err)
	}
	if resp.FinalURL != srv.URL+"/new" {
		t.Errorf("expected final URL %s/new, got %s", srv.URL, resp.FinalURL)
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Fetcher.Type = "carrier-pigeon"
	if _, err := New(cfg, testLogger); err == nil {
		t.Fatal("expected error for unknown fetcher type")
	}
}

func TestHTTPFetcherBodyLimitAppliesToDecodedBytes(t *testing.T) {
	big := strings.Repeat("<p>lorem ipsum dolor sit amet</p>", 2000)
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(big))
	gw.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain":
			w.Write([]byte(big))
		case "/gz":
			w.Header().Set("Content-Encoding", "gzip")
			w.Write(gz.Bytes())
		case "/exact":
			w.Write([]byte(big[:1000]))
		}
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.RateLimit = 0
	cfg.Fetcher.MaxBodySize = 1000
	f, err := NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if gz.Len() > 1000 {
		t.Fatalf("compressed fixture should fit under the limit, got %d bytes", gz.Len())
	}
	for _, path := range []string{"/plain", "/gz"} {
		resp, err := fetch(t, f, srv.URL+path)
		if !errors.Is(err, types.ErrBodyTooLarge) {
			t.Errorf("%s: expected ErrBodyTooLarge, got resp=%v err=%v", path, resp != nil, err)
		}
	}

	resp, err := fetch(t, f, srv.URL+"/exact")
	if err != nil {
		t.Fatalf("a body of exactly the limit should pass: %v", err)
	}
	if len(resp.Body) != 1000 {
		t.Errorf("expected 1000 bytes, got %d", len(resp.Body))
	}
}
