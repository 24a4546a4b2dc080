package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Source.HomepageURL); err != nil {
		return fmt.Errorf("source.homepage_url: %w", err)
	}
	if err := ValidateURL(cfg.Source.BaseURL); err != nil {
		return fmt.Errorf("source.base_url: %w", err)
	}
	if cfg.Source.TopN < 1 {
		return fmt.Errorf("source.top_n must be >= 1, got %d", cfg.Source.TopN)
	}
	if cfg.Source.PromoLimit < 0 {
		return fmt.Errorf("source.promo_limit must be >= 0, got %d", cfg.Source.PromoLimit)
	}
	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be > 0")
	}
	if len(cfg.Source.MostRead) == 0 {
		return fmt.Errorf("source.most_read needs at least one selector rule")
	}
	for _, rules := range [][]SelectorRule{cfg.Source.MostRead, cfg.Source.Promos} {
		for _, rule := range rules {
			if err := validateRule(rule); err != nil {
				return err
			}
		}
	}

	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.RateLimit < 0 {
		return fmt.Errorf("fetcher.rate_limit must be >= 0")
	}

	if cfg.Article.Timeout <= 0 {
		return fmt.Errorf("article.timeout must be > 0")
	}
	if cfg.Article.Concurrency < 1 || cfg.Article.Concurrency > 100 {
		return fmt.Errorf("article.concurrency must be 1-100, got %d", cfg.Article.Concurrency)
	}

	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	if cfg.Storage.Mongo.Enabled {
		if cfg.Storage.Mongo.URI == "" {
			return fmt.Errorf("storage.mongo.uri is required when mongo is enabled")
		}
		if cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "" {
			return fmt.Errorf("storage.mongo.database and storage.mongo.collection are required")
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.Schedule.Scrape); err != nil {
		return fmt.Errorf("schedule.scrape: %w", err)
	}
	if _, err := parser.Parse(cfg.Schedule.Fetch); err != nil {
		return fmt.Errorf("schedule.fetch: %w", err)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

func validateRule(rule SelectorRule) error {
	if rule.Type != "css" && rule.Type != "xpath" && rule.Type != "" {
		return fmt.Errorf("selector rule %q: type must be 'css' or 'xpath', got %q", rule.Name, rule.Type)
	}
	if rule.Container == "" {
		return fmt.Errorf("selector rule %q: container is required", rule.Name)
	}
	if rule.Item == "" {
		return fmt.Errorf("selector rule %q: item is required", rule.Name)
	}
	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
