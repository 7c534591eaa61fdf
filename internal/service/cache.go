package service

import (
	"context"

	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
)

// CacheStore is the persistent result cache surface the admin endpoints need.
type CacheStore interface {
	Clear(ctx context.Context) error
	Len() (int, error)
}

// CacheStats reports the persistent result cache size.
type CacheStats struct {
	Entries int `json:"entries"`
}

// CacheService exposes result cache administration: cached web and generated
// outcomes persist until explicitly cleared, so curators need a lever.
type CacheService struct {
	store  CacheStore
	logger *logger.Logger
}

// NewCacheService creates a cache administration service.
func NewCacheService(store CacheStore, log *logger.Logger) *CacheService {
	return &CacheService{store: store, logger: log}
}

// Clear drops every cached resolution outcome.
func (s *CacheService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return errors.Wrap(err, errors.CodeCacheUnavailable, "failed to clear result cache")
	}
	s.logger.Info("result cache cleared")
	return nil
}

// Stats returns the current cache entry count.
func (s *CacheService) Stats(_ context.Context) (CacheStats, error) {
	n, err := s.store.Len()
	if err != nil {
		return CacheStats{}, errors.Wrap(err, errors.CodeCacheUnavailable, "failed to read result cache stats")
	}
	return CacheStats{Entries: n}, nil
}
