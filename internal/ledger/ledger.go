// Package ledger reads and appends the hourly homepage logs: one
// human-readable CSV file per log kind per UTC day. Rows are only ever
// appended, never rewritten.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IshaanNene/newswatch/internal/types"
)

// Header is the column layout shared by the most-read and promo logs.
var Header = []string{"timestamp", "rank", "title", "link"}

var filePrefixes = map[types.LogKind]string{
	types.KindMostRead: "bbc_most_read_",
	types.KindPromo:    "bbc_front_page_promos_",
}

// Ledger is the directory holding the hourly logs.
type Ledger struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates a Ledger rooted at dir. The directory is created on first append.
func New(dir string, logger *slog.Logger) *Ledger {
	return &Ledger{
		dir:    dir,
		logger: logger.With("component", "ledger"),
	}
}

// Path returns the log file for kind on the UTC day of t.
func (l *Ledger) Path(kind types.LogKind, t time.Time) string {
	return filepath.Join(l.dir, filePrefixes[kind]+types.FormatDay(t)+".csv")
}

// Append writes one row per entry, all stamped with ts, to the log for ts's
// UTC day. The header is written only when the file is new or empty.
func (l *Ledger) Append(kind types.LogKind, ts time.Time, entries []types.Entry) error {
	if len(entries) == 0 {
		l.logger.Info("no entries to save", "kind", kind)
		return nil
	}
	if _, ok := filePrefixes[kind]; !ok {
		return fmt.Errorf("unknown log kind %q", kind)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return &types.StorageError{Backend: "csv", Path: l.dir, Err: fmt.Errorf("create data dir: %w", err)}
	}

	path := l.Path(kind, ts)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return &types.StorageError{Backend: "csv", Path: path, Err: fmt.Errorf("write header: %w", err)}
		}
		l.logger.Debug("header written to new log", "path", path)
	}

	stamp := ts.UTC().Format(types.TimestampLayout)
	for _, e := range entries {
		row := []string{stamp, strconv.Itoa(e.Rank), e.Title, e.Link}
		if err := w.Write(row); err != nil {
			return &types.StorageError{Backend: "csv", Path: path, Err: fmt.Errorf("write row: %w", err)}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}

	l.logger.Info("entries appended", "kind", kind, "path", path, "count", len(entries))
	return nil
}

// Read returns every row of the log for kind on day. It returns an error
// wrapping types.ErrNotFound when no log exists for that day. Rows that
// cannot be parsed are skipped with a warning.
func (l *Ledger) Read(kind types.LogKind, day time.Time) ([]types.RankRecord, error) {
	path := l.Path(kind, day)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, types.ErrNotFound)
		}
		return nil, &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	cols := columnIndex(header)
	for _, name := range Header {
		if _, ok := cols[name]; !ok {
			return nil, &types.StorageError{Backend: "csv", Path: path, Err: fmt.Errorf("missing column %q", name)}
		}
	}

	var records []types.RankRecord
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.logger.Warn("skipping unreadable row", "path", path, "line", line, "error", err)
			continue
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			l.logger.Warn("skipping malformed row", "path", path, "line", line, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return cols
}

func parseRow(row []string, cols map[string]int) (types.RankRecord, error) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	ts, err := ParseTimestamp(field("timestamp"))
	if err != nil {
		return types.RankRecord{}, err
	}
	rank, err := strconv.Atoi(strings.TrimSpace(field("rank")))
	if err != nil {
		return types.RankRecord{}, fmt.Errorf("rank: %w", err)
	}
	return types.RankRecord{
		Timestamp: ts,
		Rank:      rank,
		Title:     field("title"),
		Link:      field("link"),
	}, nil
}

// ParseTimestamp parses the log timestamp column. RFC 3339 is accepted as
// well so that hand-edited or older logs still load.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{types.TimestampLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
