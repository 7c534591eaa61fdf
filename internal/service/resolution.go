// Package service contains the business services bridging the HTTP API and
// the resolution cascade.
package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/media/images"
)

// defaultBatchConcurrency bounds how many menu items resolve in parallel.
const defaultBatchConcurrency = 8

// ImageResolver runs one query through the resolution cascade.
type ImageResolver interface {
	Resolve(ctx context.Context, query domain.Query) (domain.Outcome, error)
}

// ImageDownloader persists a remote image locally. Optional; when absent
// outcomes are returned with remote URLs only.
type ImageDownloader interface {
	Download(ctx context.Context, url string) (*images.StoredImage, error)
}

// ItemResolution pairs a menu item with its resolution outcome. Error is set
// only for invalid items; provider failures surface as NONE outcomes.
type ItemResolution struct {
	Item    domain.MenuItem `json:"item"`
	Outcome domain.Outcome  `json:"outcome"`
	Error   string          `json:"error,omitempty"`
}

// ResolutionService resolves dish images for single queries and menu batches.
type ResolutionService struct {
	resolver    ImageResolver
	downloader  ImageDownloader
	concurrency int
	logger      *logger.Logger
}

// NewResolutionService creates a resolution service. downloader may be nil.
func NewResolutionService(resolver ImageResolver, downloader ImageDownloader, log *logger.Logger) *ResolutionService {
	return &ResolutionService{
		resolver:    resolver,
		downloader:  downloader,
		concurrency: defaultBatchConcurrency,
		logger:      log,
	}
}

// Resolve resolves a single dish query.
func (s *ResolutionService) Resolve(ctx context.Context, query domain.Query) (domain.Outcome, error) {
	outcome, err := s.resolver.Resolve(ctx, query)
	if err != nil {
		return domain.Outcome{}, err
	}
	s.persistImage(ctx, &outcome)
	return outcome, nil
}

// ResolveBatch resolves a list of menu items in parallel. Items are
// independent: one invalid item does not fail the batch, and results come
// back in input order. Items without an ID are assigned one.
func (s *ResolutionService) ResolveBatch(ctx context.Context, items []domain.MenuItem) []ItemResolution {
	results := make([]ItemResolution, len(items))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)

	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		results[i].Item = item

		wg.Add(1)
		go func(i int, item domain.MenuItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, err := s.resolver.Resolve(ctx, domain.Query{
				Name:        item.Name,
				Description: item.Description,
			})
			if err != nil {
				results[i].Error = err.Error()
				return
			}
			s.persistImage(ctx, &outcome)
			results[i].Outcome = outcome
		}(i, item)
	}

	wg.Wait()
	return results
}

// persistImage downloads the best web or generated candidate into local
// storage and attaches its BlurHash. Download failures only cost the
// placeholder; the remote URL still serves.
func (s *ResolutionService) persistImage(ctx context.Context, outcome *domain.Outcome) {
	if s.downloader == nil || !outcome.SatisfiedTier.Cacheable() || len(outcome.Candidates) == 0 {
		return
	}

	stored, err := s.downloader.Download(ctx, outcome.Candidates[0].ImageURL)
	if err != nil {
		s.logger.WithError(err).Warn("image persistence failed",
			"url", outcome.Candidates[0].ImageURL,
			"name", outcome.Query.Name,
		)
		return
	}
	outcome.Candidates[0].BlurHash = stored.BlurHash
}
