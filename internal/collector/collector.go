// Package collector computes the set of article URLs to fetch for a day:
// the union of distinct links logged in that day's most-read and promo logs.
package collector

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/IshaanNene/newswatch/internal/types"
)

// Source reads one day's worth of an hourly log.
type Source interface {
	Read(kind types.LogKind, day time.Time) ([]types.RankRecord, error)
}

// Target is one distinct URL to fetch.
type Target struct {
	URL             string
	FirstAppearedAt time.Time
	Sources         []types.LogKind
}

// Collector builds fetch targets from the hourly logs.
type Collector struct {
	source Source
	logger *slog.Logger
}

// New creates a Collector reading from source.
func New(source Source, logger *slog.Logger) *Collector {
	return &Collector{
		source: source,
		logger: logger.With("component", "collector"),
	}
}

// Collect returns every distinct link logged on day across all log kinds,
// each once, ordered by first appearance then URL. A missing log is an
// expected condition and contributes nothing; so does a log that cannot be
// read, which is logged. Collect never fails.
func (c *Collector) Collect(day time.Time) []Target {
	byURL := make(map[string]*Target)

	for _, kind := range types.Kinds {
		records, err := c.source.Read(kind, day)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				c.logger.Info("no log for day", "kind", kind, "day", types.FormatDay(day))
			} else {
				c.logger.Warn("log unreadable, treating as empty", "kind", kind, "day", types.FormatDay(day), "error", err)
			}
			continue
		}

		for _, rec := range records {
			link := strings.TrimSpace(rec.Link)
			if link == "" {
				continue
			}
			t, ok := byURL[link]
			if !ok {
				byURL[link] = &Target{
					URL:             link,
					FirstAppearedAt: rec.Timestamp,
					Sources:         []types.LogKind{kind},
				}
				continue
			}
			if rec.Timestamp.Before(t.FirstAppearedAt) {
				t.FirstAppearedAt = rec.Timestamp
			}
			if !hasKind(t.Sources, kind) {
				t.Sources = append(t.Sources, kind)
			}
		}
	}

	targets := make([]Target, 0, len(byURL))
	for _, t := range byURL {
		targets = append(targets, *t)
	}
	sort.Slice(targets, func(i, j int) bool {
		if !targets[i].FirstAppearedAt.Equal(targets[j].FirstAppearedAt) {
			return targets[i].FirstAppearedAt.Before(targets[j].FirstAppearedAt)
		}
		return targets[i].URL < targets[j].URL
	})

	c.logger.Info("targets collected", "day", types.FormatDay(day), "count", len(targets))
	return targets
}

func hasKind(kinds []types.LogKind, k types.LogKind) bool {
	for _, existing := range kinds {
		if existing == k {
			return true
		}
	}
	return false
}
