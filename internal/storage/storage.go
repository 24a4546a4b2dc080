package storage

import (
	"context"
	"time"

	"github.com/IshaanNene/newswatch/internal/types"
)

// ArticleStore persists one day's article content records.
type ArticleStore interface {
	// Put writes records into day's output. A record whose RequestedURL is
	// already stored for day replaces the stored one, so a day never holds
	// the same URL twice.
	Put(ctx context.Context, day time.Time, records []types.ArticleContentRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}
