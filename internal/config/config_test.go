package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad fetcher", func(c *Config) { c.Fetcher.Type = "curl" }, "fetcher.type"},
		{"zero concurrency", func(c *Config) { c.Article.Concurrency = 0 }, "article.concurrency"},
		{"relative homepage", func(c *Config) { c.Source.HomepageURL = "/news" }, "source.homepage_url"},
		{"bad rule type", func(c *Config) { c.Source.Promos[0].Type = "regex" }, "type must be"},
		{"no most read rules", func(c *Config) { c.Source.MostRead = nil }, "source.most_read"},
		{"mongo without uri", func(c *Config) { c.Storage.Mongo.Enabled = true }, "storage.mongo.uri"},
		{"bad cron", func(c *Config) { c.Schedule.Fetch = "every day" }, "schedule.fetch"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newswatch.yaml")
	yaml := `
source:
  top_n: 5
article:
  timeout: 3s
  concurrency: 4
storage:
  data_dir: /tmp/newswatch-data
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.TopN != 5 {
		t.Errorf("expected top_n 5, got %d", cfg.Source.TopN)
	}
	if cfg.Article.Timeout != 3*time.Second {
		t.Errorf("expected timeout 3s, got %s", cfg.Article.Timeout)
	}
	if cfg.Article.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Article.Concurrency)
	}
	if got := cfg.Storage.ArticlePath(); got != filepath.Join("/tmp/newswatch-data", "article-content") {
		t.Errorf("unexpected article path %q", got)
	}
	if cfg.Source.HomepageURL != "https://www.bbc.co.uk/news" {
		t.Errorf("default homepage should survive, got %q", cfg.Source.HomepageURL)
	}
	if len(cfg.Source.MostRead) != 2 {
		t.Errorf("default most-read rules should survive, got %d", len(cfg.Source.MostRead))
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NEWSWATCH_ARTICLE_CONCURRENCY", "3")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Article.Concurrency != 3 {
		t.Errorf("expected env override 3, got %d", cfg.Article.Concurrency)
	}
}
