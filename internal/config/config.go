package config

import (
	"path/filepath"
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for newswatch.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"   yaml:"source"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Article  ArticleConfig  `mapstructure:"article"  yaml:"article"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// SourceConfig describes the homepage that is scraped every hour.
type SourceConfig struct {
	HomepageURL string         `mapstructure:"homepage_url" yaml:"homepage_url"`
	BaseURL     string         `mapstructure:"base_url"     yaml:"base_url"`
	TopN        int            `mapstructure:"top_n"        yaml:"top_n"`
	PromoLimit  int            `mapstructure:"promo_limit"  yaml:"promo_limit"`
	Timeout     time.Duration  `mapstructure:"timeout"      yaml:"timeout"`
	MostRead    []SelectorRule `mapstructure:"most_read"    yaml:"most_read"`
	Promos      []SelectorRule `mapstructure:"promos"       yaml:"promos"`
}

// SelectorRule locates a ranked list of links on a page. Rules are tried in
// order; the first whose container matches is used.
type SelectorRule struct {
	Name      string `mapstructure:"name"      yaml:"name"`
	Type      string `mapstructure:"type"      yaml:"type"` // css, xpath
	Container string `mapstructure:"container" yaml:"container"`
	Item      string `mapstructure:"item"      yaml:"item"`
	Link      string `mapstructure:"link"      yaml:"link"`
	Title     string `mapstructure:"title"     yaml:"title"`
}

// FetcherConfig controls the request fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	RateLimit       float64       `mapstructure:"rate_limit"        yaml:"rate_limit"` // requests per second, 0 = unlimited
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
}

// ArticleConfig controls the daily article content fetch.
type ArticleConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// StorageConfig controls where logs and article content are written.
type StorageConfig struct {
	DataDir    string      `mapstructure:"data_dir"    yaml:"data_dir"`
	ArticleDir string      `mapstructure:"article_dir" yaml:"article_dir"`
	Mongo      MongoConfig `mapstructure:"mongo"       yaml:"mongo"`
}

// ArticlePath returns the directory holding the per-day article files.
// It defaults to "article-content" under the data directory.
func (s StorageConfig) ArticlePath() string {
	if s.ArticleDir != "" {
		return s.ArticleDir
	}
	return filepath.Join(s.DataDir, "article-content")
}

// MongoConfig controls the optional MongoDB mirror of article records.
type MongoConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// ScheduleConfig holds cron specs for the long-running daemon. Times are UTC.
type ScheduleConfig struct {
	Scrape string `mapstructure:"scrape" yaml:"scrape"`
	Fetch  string `mapstructure:"fetch"  yaml:"fetch"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			HomepageURL: "https://www.bbc.co.uk/news",
			BaseURL:     "https://www.bbc.co.uk",
			TopN:        10,
			PromoLimit:  60,
			Timeout:     20 * time.Second,
			MostRead: []SelectorRule{
				{
					Name:      "most_read",
					Type:      "css",
					Container: `div[data-component="mostRead"] ol.ssrcss-1020bd1-Stack`,
					Item:      "li",
					Link:      "a.ssrcss-qseizj-HeadlineLink",
				},
				{
					Name:      "most_read_fallback",
					Type:      "css",
					Container: `div[data-component="mostRead"] ol`,
					Item:      "li",
					Link:      "a",
				},
			},
			Promos: []SelectorRule{
				{
					Name:      "promo_cards",
					Type:      "css",
					Container: "main",
					Item:      `[data-testid$="-card"]`,
					Link:      `a[data-testid="internal-link"]`,
					Title:     `[data-testid="card-headline"]`,
				},
				{
					Name:      "promo_headlines",
					Type:      "xpath",
					Container: "//main",
					Item:      ".//a[@href][.//h2 or .//h3]",
					Link:      ".",
					Title:     ".//h2|.//h3",
				},
			},
		},
		Fetcher: FetcherConfig{
			Type: "http",
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
			RateLimit:       10,
		},
		Article: ArticleConfig{
			Timeout:     10 * time.Second,
			Concurrency: 10,
		},
		Storage: StorageConfig{
			DataDir: "data",
			Mongo: MongoConfig{
				Database:   "newswatch",
				Collection: "articles",
			},
		},
		Schedule: ScheduleConfig{
			Scrape: "0 * * * *",
			Fetch:  "30 0 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
