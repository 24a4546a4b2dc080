package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/IshaanNene/newswatch/internal/types"
)

// ParquetStore writes each day's article records to <dir>/<YYYY-MM-DD>.parquet.
type ParquetStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewParquetStore creates the output directory and returns a store over it.
func NewParquetStore(dir string, logger *slog.Logger) (*ParquetStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "parquet", Path: dir, Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &ParquetStore{
		dir:    dir,
		logger: logger.With("component", "parquet_storage"),
	}, nil
}

func (s *ParquetStore) Name() string { return "parquet" }

// Path returns the output file for day.
func (s *ParquetStore) Path(day time.Time) string {
	return filepath.Join(s.dir, types.FormatDay(day)+".parquet")
}

// Put merges records into day's file. Existing rows for other URLs are kept;
// rows for the same URL are replaced and their Attempt counter carried
// forward. The file is rewritten through a temp file and renamed into place.
func (s *ParquetStore) Put(ctx context.Context, day time.Time, records []types.ArticleContentRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(day)
	existing, err := s.Load(day)
	if err != nil {
		return err
	}

	merged, replaced := mergeRecords(existing, records)

	tmp, err := os.CreateTemp(s.dir, ".article-*.parquet")
	if err != nil {
		return &types.StorageError{Backend: "parquet", Path: path, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := parquet.Write(tmp, merged); err != nil {
		tmp.Close()
		return &types.StorageError{Backend: "parquet", Path: path, Err: fmt.Errorf("encode parquet: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return &types.StorageError{Backend: "parquet", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &types.StorageError{Backend: "parquet", Path: path, Err: fmt.Errorf("rename into place: %w", err)}
	}

	s.logger.Info("parquet written",
		"path", path,
		"records", len(merged),
		"new", len(records)-replaced,
		"replaced", replaced,
	)
	return nil
}

// Load returns the records stored for day, or nil if the day has no file.
func (s *ParquetStore) Load(day time.Time) ([]types.ArticleContentRecord, error) {
	path := s.Path(day)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	rows, err := parquet.ReadFile[types.ArticleContentRecord](path)
	if err != nil {
		return nil, &types.StorageError{Backend: "parquet", Path: path, Err: fmt.Errorf("read existing: %w", err)}
	}
	return rows, nil
}

func (s *ParquetStore) Close() error { return nil }

// mergeRecords replaces existing rows by RequestedURL and appends new ones,
// keeping the original row order. A failed fetch never replaces a stored
// successful one: the stored row is kept, its Attempt bumped and the new
// error noted. It returns the merged rows and how many incoming records
// matched a stored one.
func mergeRecords(existing, incoming []types.ArticleContentRecord) ([]types.ArticleContentRecord, int) {
	merged := make([]types.ArticleContentRecord, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, rec := range existing {
		if i, ok := index[rec.RequestedURL]; ok {
			merged[i] = rec
			continue
		}
		index[rec.RequestedURL] = len(merged)
		merged = append(merged, rec)
	}

	replaced := 0
	for _, rec := range incoming {
		if rec.Attempt < 1 {
			rec.Attempt = 1
		}
		if i, ok := index[rec.RequestedURL]; ok {
			replaced++
			stored := merged[i]
			if stored.FetchOK && !rec.FetchOK {
				stored.Attempt++
				stored.Error = fmt.Sprintf("attempt %d: %s", stored.Attempt, rec.Error)
				merged[i] = stored
				continue
			}
			rec.Attempt = stored.Attempt + 1
			merged[i] = rec
			continue
		}
		index[rec.RequestedURL] = len(merged)
		merged = append(merged, rec)
	}
	return merged, replaced
}
