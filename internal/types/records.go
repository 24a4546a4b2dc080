package types

import (
	"fmt"
	"time"
)

// DayLayout is the layout of the UTC day partition key used in file names.
const DayLayout = "2006-01-02"

// TimestampLayout is the layout of the timestamp column in the hourly logs.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// LogKind identifies one of the hourly homepage logs.
type LogKind string

const (
	KindMostRead LogKind = "most_read"
	KindPromo    LogKind = "promo"
)

// Kinds lists every hourly log, in the order the collector reads them.
var Kinds = []LogKind{KindMostRead, KindPromo}

// Entry is one ranked link extracted from the homepage.
type Entry struct {
	Rank  int
	Title string
	Link  string
}

// RankRecord is a row of an hourly log. Most-read and promo logs share the
// same columns; Rank is the position on the page, starting at 1.
type RankRecord struct {
	Timestamp time.Time
	Rank      int
	Title     string
	Link      string
}

// Article fetch outcomes recorded in ArticleContentRecord.Status.
const (
	StatusOK         = "ok"
	StatusHTTPError  = "http_error"
	StatusFetchError = "fetch_error"
)

// ArticleContentRecord is the result of fetching one article URL. It is
// written once per URL per day into the day's columnar file.
type ArticleContentRecord struct {
	// URL is the canonical URL if the page declares one, else the final URL.
	URL string `parquet:"url" bson:"url"`

	// RequestedURL is the link exactly as it appeared in the hourly logs.
	// It is the per-day identity of the record.
	RequestedURL string `parquet:"requested_url" bson:"requested_url"`

	Title   string `parquet:"title"   bson:"title"`
	Authors string `parquet:"authors" bson:"authors"` // ";"-separated, sorted

	// HTML is the raw response body.
	HTML        string `parquet:"html,zstd"         bson:"html"`
	ArticleHTML string `parquet:"article_html,zstd" bson:"article_html"`
	Text        string `parquet:"article_text,zstd" bson:"article_text"`

	// Sources lists which logs the link was seen in, ";"-separated.
	Sources string `parquet:"sources" bson:"sources"`

	FirstAppearedAt time.Time `parquet:"first_appeared_at,timestamp" bson:"first_appeared_at"`
	FetchedAt       time.Time `parquet:"fetched_at,timestamp"        bson:"fetched_at"`

	StatusCode int    `parquet:"status_code" bson:"status_code"`
	Status     string `parquet:"status"      bson:"status"`
	FetchOK    bool   `parquet:"fetch_ok"    bson:"fetch_ok"`
	Error      string `parquet:"error"       bson:"error,omitempty"`

	// Attempt counts how many runs have written this URL for the day.
	Attempt int `parquet:"attempt" bson:"attempt"`
}

// FormatDay returns the UTC day partition key for t.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD partition key as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return t, nil
}

// PreviousDay returns midnight UTC of the day before now.
func PreviousDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}
