package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/newswatch/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func record(url, text string, ok bool) types.ArticleContentRecord {
	status := types.StatusOK
	code := 200
	if !ok {
		status = types.StatusHTTPError
		code = 404
	}
	return types.ArticleContentRecord{
		URL:             url,
		RequestedURL:    url,
		HTML:            "<p>" + text + "</p>",
		Text:            text,
		FirstAppearedAt: day.Add(9 * time.Hour),
		FetchedAt:       time.Date(2024, 1, 2, 0, 30, 0, 0, time.UTC),
		StatusCode:      code,
		Status:          status,
		FetchOK:         ok,
	}
}

func TestParquetRoundTrip(t *testing.T) {
	store, err := NewParquetStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatal(err)
	}

	in := []types.ArticleContentRecord{
		record("https://x/a", "alpha", true),
		record("https://x/b", "", false),
	}
	if err := store.Put(context.Background(), day, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.dir, "2024-01-01.parquet")); err != nil {
		t.Fatalf("expected day file: %v", err)
	}

	out, err := store.Load(day)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].Text != "alpha" || !out[0].FetchOK || out[0].Attempt != 1 {
		t.Errorf("unexpected first row %+v", out[0])
	}
	if out[1].Status != types.StatusHTTPError || out[1].StatusCode != 404 {
		t.Errorf("unexpected second row %+v", out[1])
	}
	if !out[0].FirstAppearedAt.Equal(day.Add(9 * time.Hour)) {
		t.Errorf("timestamp did not round-trip: %s", out[0].FirstAppearedAt)
	}
}

func TestParquetRerunReplacesByURL(t *testing.T) {
	store, err := NewParquetStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, day, []types.ArticleContentRecord{
		record("https://x/a", "first", true),
		record("https://x/b", "", false),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, day, []types.ArticleContentRecord{
		record("https://x/b", "now it works", true),
		record("https://x/c", "gamma", true),
	}); err != nil {
		t.Fatal(err)
	}

	out, err := store.Load(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	seen := make(map[string]types.ArticleContentRecord)
	for _, r := range out {
		if _, dup := seen[r.RequestedURL]; dup {
			t.Fatalf("duplicate row for %s", r.RequestedURL)
		}
		seen[r.RequestedURL] = r
	}
	if b := seen["https://x/b"]; !b.FetchOK || b.Text != "now it works" || b.Attempt != 2 {
		t.Errorf("b should be replaced with attempt 2, got %+v", b)
	}
	if a := seen["https://x/a"]; a.Text != "first" || a.Attempt != 1 {
		t.Errorf("a should be untouched, got %+v", a)
	}
}

func TestParquetFailedRetryKeepsStoredSuccess(t *testing.T) {
	store, err := NewParquetStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, day, []types.ArticleContentRecord{record("https://x/a", "alpha", true)}); err != nil {
		t.Fatal(err)
	}
	retry := record("https://x/a", "", false)
	retry.StatusCode = 503
	retry.Error = "HTTP 503"
	if err := store.Put(ctx, day, []types.ArticleContentRecord{retry}); err != nil {
		t.Fatal(err)
	}

	out, err := store.Load(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 row, got %d", len(out))
	}
	a := out[0]
	if !a.FetchOK || a.Status != types.StatusOK || a.Text != "alpha" || a.StatusCode != 200 {
		t.Errorf("stored success should survive a failed retry, got %+v", a)
	}
	if a.Attempt != 2 || a.Error != "attempt 2: HTTP 503" {
		t.Errorf("expected attempt 2 with the retry error noted, got attempt=%d error=%q", a.Attempt, a.Error)
	}
}

func TestParquetEmptyPutWritesNothing(t *testing.T) {
	store, err := NewParquetStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), day, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.Path(day)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected no file, stat err = %v", err)
	}
}

func TestNewParquetStoreUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewParquetStore(filepath.Join(blocker, "articles"), testLogger)
	var se *types.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

type fakeStore struct {
	name   string
	err    error
	puts   int
	closed bool
}

func (f *fakeStore) Put(context.Context, time.Time, []types.ArticleContentRecord) error {
	f.puts++
	return f.err
}
func (f *fakeStore) Close() error { f.closed = true; return nil }
func (f *fakeStore) Name() string { return f.name }

func TestMultiStoreMirrorFailureIsNotFatal(t *testing.T) {
	primary := &fakeStore{name: "primary"}
	mirror := &fakeStore{name: "mirror", err: errors.New("mirror down")}
	m := NewMultiStore(primary, []ArticleStore{mirror}, testLogger)

	if err := m.Put(context.Background(), day, []types.ArticleContentRecord{record("https://x/a", "a", true)}); err != nil {
		t.Fatalf("mirror failure should not surface: %v", err)
	}
	if primary.puts != 1 || mirror.puts != 1 {
		t.Errorf("expected one put each, got %d/%d", primary.puts, mirror.puts)
	}
	if err := m.Close(); err != nil || !primary.closed || !mirror.closed {
		t.Error("close should reach every backend")
	}
}

func TestMultiStorePrimaryFailureIsFatal(t *testing.T) {
	primary := &fakeStore{name: "primary", err: errors.New("disk full")}
	mirror := &fakeStore{name: "mirror"}
	m := NewMultiStore(primary, []ArticleStore{mirror}, testLogger)

	if err := m.Put(context.Background(), day, []types.ArticleContentRecord{record("https://x/a", "a", true)}); err == nil {
		t.Fatal("primary failure should be returned")
	}
	if mirror.puts != 0 {
		t.Error("mirror should not be written when primary fails")
	}
}
