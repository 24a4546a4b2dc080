package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/newswatch/internal/config"
	"github.com/IshaanNene/newswatch/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL. A response
	// with a non-2xx status is returned as a Response, not an error;
	// errors are reserved for requests that produced no response at all.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New creates the fetcher selected by cfg.Fetcher.Type.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "", "http":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported fetcher type: %s", cfg.Fetcher.Type)
	}
}
