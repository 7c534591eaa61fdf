package service

import (
	"context"
	"database/sql"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/search"
	"github.com/dishplayapp/dishplay-server/internal/store/sqlite"
)

// UnmatchedService serves the catalog curation workflow: listing, searching,
// and retiring dishes the catalog tier could not match.
type UnmatchedService struct {
	store  *sqlite.Store
	index  *search.Index
	logger *logger.Logger
}

// NewUnmatchedService creates an unmatched records service. index may be nil
// when full-text search is disabled; List still works.
func NewUnmatchedService(store *sqlite.Store, index *search.Index, log *logger.Logger) *UnmatchedService {
	return &UnmatchedService{
		store:  store,
		index:  index,
		logger: log,
	}
}

// List returns unmatched records newest first, optionally filtered to one
// food category.
func (s *UnmatchedService) List(ctx context.Context, category string, limit int) ([]domain.UnmatchedRecord, error) {
	if category != "" {
		return s.store.ListByCategory(ctx, category, limit)
	}
	return s.store.List(ctx, limit)
}

// Search runs a full-text query over unmatched records and materializes the
// hits from the store. Hits whose record was deleted since indexing are
// skipped.
func (s *UnmatchedService) Search(ctx context.Context, query, category string, limit int) ([]domain.UnmatchedRecord, error) {
	if s.index == nil {
		return s.List(ctx, category, limit)
	}

	hits, err := s.index.Search(query, category, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "unmatched search failed")
	}

	records := make([]domain.UnmatchedRecord, 0, len(hits))
	for _, hit := range hits {
		rec, err := s.store.Get(ctx, hit.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "load unmatched record")
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete retires an unmatched record after curation. The search index entry
// is removed best-effort.
func (s *UnmatchedService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.NotFound("unmatched record not found")
		}
		return errors.Wrap(err, errors.CodeInternal, "delete unmatched record")
	}

	if s.index != nil {
		if err := s.index.DeleteUnmatched(id); err != nil {
			s.logger.WithError(err).Warn("failed to remove unmatched record from search index", "id", id)
		}
	}
	return nil
}

// Count returns the total number of unmatched records.
func (s *UnmatchedService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
