package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IshaanNene/newswatch/internal/types"
)

// MultiStore writes to a primary store and any number of mirrors. Only the
// primary's errors are returned; mirror failures are logged.
type MultiStore struct {
	primary ArticleStore
	mirrors []ArticleStore
	logger  *slog.Logger
}

// NewMultiStore creates a store that fans out to primary and mirrors.
func NewMultiStore(primary ArticleStore, mirrors []ArticleStore, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		primary: primary,
		mirrors: mirrors,
		logger:  logger.With("component", "multi_storage"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

func (s *MultiStore) Put(ctx context.Context, day time.Time, records []types.ArticleContentRecord) error {
	if err := s.primary.Put(ctx, day, records); err != nil {
		return err
	}
	for _, m := range s.mirrors {
		if err := m.Put(ctx, day, records); err != nil {
			s.logger.Error("mirror store failed", "backend", m.Name(), "error", err)
		}
	}
	return nil
}

func (s *MultiStore) Close() error {
	errs := []error{s.primary.Close()}
	for _, m := range s.mirrors {
		errs = append(errs, m.Close())
	}
	return errors.Join(errs...)
}
