package service

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/media/images"
)

type fakeResolver struct {
	calls atomic.Int64
}

func (f *fakeResolver) Resolve(_ context.Context, query domain.Query) (domain.Outcome, error) {
	f.calls.Add(1)
	if strings.TrimSpace(query.Name) == "" {
		return domain.Outcome{}, errors.Validation("dish name is required")
	}

	outcome := domain.Outcome{
		Query:         query,
		SatisfiedTier: domain.TierWebSearch,
		ResolvedAt:    time.Now(),
		Candidates: []domain.Candidate{
			{ImageURL: "https://img.example/" + query.Name, Source: domain.TierWebSearch},
		},
	}
	if query.Name == "house salad" {
		outcome.SatisfiedTier = domain.TierCatalog
		outcome.Candidates[0].Source = domain.TierCatalog
		outcome.Candidates[0].Score = 0.91
	}
	return outcome, nil
}

type fakeDownloader struct {
	calls atomic.Int64
	fail  bool
}

func (f *fakeDownloader) Download(_ context.Context, url string) (*images.StoredImage, error) {
	f.calls.Add(1)
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return &images.StoredImage{ID: "abc123", BlurHash: "LEHV6nWB2yk8"}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: io.Discard, Format: "json"})
}

func TestResolutionService_Resolve(t *testing.T) {
	resolver := &fakeResolver{}
	svc := NewResolutionService(resolver, nil, testLogger())

	outcome, err := svc.Resolve(context.Background(), domain.Query{Name: "ramen"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
	require.Len(t, outcome.Candidates, 1)
}

func TestResolutionService_ResolveAttachesBlurHash(t *testing.T) {
	downloader := &fakeDownloader{}
	svc := NewResolutionService(&fakeResolver{}, downloader, testLogger())

	outcome, err := svc.Resolve(context.Background(), domain.Query{Name: "ramen"})
	require.NoError(t, err)
	assert.Equal(t, "LEHV6nWB2yk8", outcome.Candidates[0].BlurHash)
	assert.Equal(t, int64(1), downloader.calls.Load())
}

func TestResolutionService_CatalogOutcomeNotDownloaded(t *testing.T) {
	downloader := &fakeDownloader{}
	svc := NewResolutionService(&fakeResolver{}, downloader, testLogger())

	outcome, err := svc.Resolve(context.Background(), domain.Query{Name: "house salad"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierCatalog, outcome.SatisfiedTier)
	assert.Zero(t, downloader.calls.Load(), "catalog images already live in the catalog")
}

func TestResolutionService_DownloadFailureKeepsRemoteURL(t *testing.T) {
	downloader := &fakeDownloader{fail: true}
	svc := NewResolutionService(&fakeResolver{}, downloader, testLogger())

	outcome, err := svc.Resolve(context.Background(), domain.Query{Name: "ramen"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/ramen", outcome.Candidates[0].ImageURL)
	assert.Empty(t, outcome.Candidates[0].BlurHash)
}

func TestResolutionService_ResolveBatch(t *testing.T) {
	resolver := &fakeResolver{}
	svc := NewResolutionService(resolver, nil, testLogger())

	items := []domain.MenuItem{
		{ID: "item_1", Name: "ramen"},
		{Name: "pad thai", Description: "rice noodles"},
		{Name: "tonkatsu"},
	}

	results := svc.ResolveBatch(context.Background(), items)
	require.Len(t, results, 3)

	// Input order preserved.
	assert.Equal(t, "ramen", results[0].Item.Name)
	assert.Equal(t, "pad thai", results[1].Item.Name)
	assert.Equal(t, "tonkatsu", results[2].Item.Name)

	// Provided IDs kept, missing IDs assigned.
	assert.Equal(t, "item_1", results[0].Item.ID)
	assert.NotEmpty(t, results[1].Item.ID)
	assert.NotEmpty(t, results[2].Item.ID)
	assert.NotEqual(t, results[1].Item.ID, results[2].Item.ID)

	for _, res := range results {
		assert.Empty(t, res.Error)
		assert.Equal(t, domain.TierWebSearch, res.Outcome.SatisfiedTier)
	}
	assert.Equal(t, int64(3), resolver.calls.Load())
}

func TestResolutionService_BatchItemFailureIsolated(t *testing.T) {
	svc := NewResolutionService(&fakeResolver{}, nil, testLogger())

	results := svc.ResolveBatch(context.Background(), []domain.MenuItem{
		{Name: "ramen"},
		{Name: "   "},
		{Name: "gyoza"},
	})
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
	assert.Empty(t, results[2].Error)
	assert.Equal(t, domain.TierWebSearch, results[2].Outcome.SatisfiedTier)
}

func TestResolutionService_EmptyBatch(t *testing.T) {
	svc := NewResolutionService(&fakeResolver{}, nil, testLogger())
	assert.Empty(t, svc.ResolveBatch(context.Background(), nil))
}
