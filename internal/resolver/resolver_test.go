package resolver

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishplayapp/dishplay-server/internal/catalog"
	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/provider"
)

// fakeEmbedder returns fixed vectors per input text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Name() string    { return "fake" }
func (f *fakeEmbedder) Dimensions() int { return 2 }

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		v, ok := f.vectors[in]
		if !ok {
			v = []float32{0, 1}
		}
		out[i] = v
	}
	return out, nil
}

// fakeProvider serves scripted results and counts calls.
type fakeProvider struct {
	name string
	tier domain.Tier

	mu         sync.Mutex
	calls      int
	candidates []domain.Candidate
	errs       []error // consumed per call before candidates are served
	block      chan struct{}
}

func (f *fakeProvider) Name() string      { return f.name }
func (f *fakeProvider) Tier() domain.Tier { return f.tier }

func (f *fakeProvider) Resolve(ctx context.Context, _ domain.Query) ([]domain.Candidate, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.candidates, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeSink counts unmatched records.
type fakeSink struct {
	count atomic.Int64
}

func (f *fakeSink) Record(_ domain.Query) { f.count.Add(1) }

// failingCache errors on every operation.
type failingCache struct{}

func (failingCache) Get(context.Context, string) (*domain.CacheEntry, error) {
	return nil, errors.CacheUnavailable("cache down")
}

func (failingCache) Put(context.Context, domain.CacheEntry) error {
	return errors.CacheUnavailable("cache down")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Writer: io.Discard, Format: "json"})
}

type fixture struct {
	resolver  *Resolver
	index     *catalog.InMemoryIndex
	embedder  *fakeEmbedder
	webSearch *fakeProvider
	generate  *fakeProvider
	sink      *fakeSink
	cache     ResultCache
}

func newFixture(opts Options, cache ResultCache) *fixture {
	f := &fixture{
		index:     catalog.NewInMemoryIndex(),
		embedder:  &fakeEmbedder{vectors: map[string][]float32{}},
		webSearch: &fakeProvider{name: "websearch", tier: domain.TierWebSearch},
		generate:  &fakeProvider{name: "generate", tier: domain.TierGenerated},
		sink:      &fakeSink{},
	}
	if cache == nil {
		cache = NewLRUCache(16)
	}
	f.cache = cache
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Millisecond
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 5 * time.Millisecond
	}
	f.resolver = New(opts, f.embedder, f.index,
		[]provider.Provider{f.webSearch, f.generate},
		cache, nil, f.sink, testLogger())
	return f
}

func TestResolve_CatalogMatch(t *testing.T) {
	f := newFixture(Options{SimilarityThreshold: 0.8, TopK: 3}, nil)

	// "grilled salmon" embeds close to the salmon catalog entry: cosine
	// similarity against [1, 0] is 0.87.
	f.embedder.vectors["Grilled Salmon. with lemon butter"] = []float32{0.87, 0.4931}
	f.index.Replace([]catalog.Entry{
		{Key: "salmon", Title: "Grilled Salmon", Description: "with seasonal vegetables", Category: "seafood", ImageURL: "https://catalog/salmon.jpg", Vector: []float32{1, 0}},
		{Key: "steak", Title: "Ribeye", ImageURL: "https://catalog/steak.jpg", Vector: []float32{0, 1}},
	})

	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{
		Name:        "Grilled Salmon",
		Description: "with lemon butter",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TierCatalog, outcome.SatisfiedTier)
	require.Len(t, outcome.Candidates, 1)
	assert.Equal(t, "https://catalog/salmon.jpg", outcome.Candidates[0].ImageURL)
	assert.Equal(t, "salmon", outcome.Candidates[0].CatalogKey)
	assert.Equal(t, "Grilled Salmon", outcome.Candidates[0].Title)
	assert.Equal(t, "with seasonal vegetables", outcome.Candidates[0].Description)
	assert.Equal(t, "seafood", outcome.Candidates[0].Category)
	assert.InDelta(t, 0.87, outcome.Candidates[0].Score, 0.01)

	// Catalog hits never touch the lower tiers, the cache, or the
	// unmatched log.
	assert.Equal(t, 0, f.webSearch.callCount())
	assert.Equal(t, 0, f.generate.callCount())
	assert.Equal(t, int64(0), f.sink.count.Load())
	assert.Equal(t, 0, f.cache.(*LRUCache).Len())
}

func TestResolve_ThresholdBoundary(t *testing.T) {
	f := newFixture(Options{SimilarityThreshold: 0.6, TopK: 3}, nil)
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	// [3, 4] against [1, 0] scores exactly 3/5 = 0.6: at the threshold,
	// accepted.
	f.embedder.vectors["Salmon"] = []float32{3, 4}
	f.index.Replace([]catalog.Entry{
		{Key: "salmon", ImageURL: "https://catalog/salmon.jpg", Vector: []float32{1, 0}},
	})

	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Salmon"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierCatalog, outcome.SatisfiedTier)

	// [1, 2] scores 1/sqrt(5) ~ 0.447: below the threshold, escalates.
	f.embedder.vectors["Trout"] = []float32{1, 2}
	outcome, err = f.resolver.Resolve(context.Background(), domain.Query{Name: "Trout"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
}

func TestResolve_WebSearchCachedOnSecondCall(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.candidates = []domain.Candidate{
		{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch, Rank: 0},
		{ImageURL: "https://web/b.jpg", Source: domain.TierWebSearch, Rank: 1},
	}

	query := domain.Query{Name: "Mystery Dish"}

	outcome, err := f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
	require.Len(t, outcome.Candidates, 2)
	assert.Equal(t, 1, f.webSearch.callCount())

	// Second resolve serves from cache; the provider is not called again.
	outcome, err = f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
	require.Len(t, outcome.Candidates, 2)
	assert.Equal(t, 1, f.webSearch.callCount())
	assert.Equal(t, 0, f.generate.callCount())
}

func TestResolve_CacheKeyNormalization(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	_, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Pad  Thai!"})
	require.NoError(t, err)
	_, err = f.resolver.Resolve(context.Background(), domain.Query{Name: "pad thai"})
	require.NoError(t, err)

	// Both spellings normalize to one key, so the provider ran once.
	assert.Equal(t, 1, f.webSearch.callCount())
}

func TestResolve_EscalatesToGeneration(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.candidates = nil // nothing found
	f.generate.candidates = []domain.Candidate{{ImageURL: "https://gen/a.png", Source: domain.TierGenerated}}

	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Obscure Dish"})
	require.NoError(t, err)

	assert.Equal(t, domain.TierGenerated, outcome.SatisfiedTier)
	assert.Equal(t, 1, f.webSearch.callCount())
	assert.Equal(t, 1, f.generate.callCount())
	// Generated outcomes cache too.
	assert.Equal(t, 1, f.cache.(*LRUCache).Len())
}

func TestResolve_NoneOutcome(t *testing.T) {
	f := newFixture(Options{RetryAttempts: 1}, nil)
	f.webSearch.errs = []error{errors.PermanentProvider("websearch", fmt.Errorf("status 403"))}
	f.generate.candidates = nil

	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Nothing Works"})
	require.NoError(t, err, "provider failures must not error the resolution")

	assert.Equal(t, domain.TierNone, outcome.SatisfiedTier)
	assert.Empty(t, outcome.Candidates)
	// NONE outcomes are never cached.
	assert.Equal(t, 0, f.cache.(*LRUCache).Len())

	// A later call runs the cascade again.
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/late.jpg", Source: domain.TierWebSearch}}
	outcome, err = f.resolver.Resolve(context.Background(), domain.Query{Name: "Nothing Works"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
}

func TestResolve_UnmatchedRecordedOncePerResolution(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.candidates = nil
	f.generate.candidates = nil

	_, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Unknown Dish"})
	require.NoError(t, err)

	// Both lower tiers ran and failed, but the catalog miss is recorded
	// exactly once.
	assert.Equal(t, int64(1), f.sink.count.Load())
}

func TestResolve_UnmatchedRecordedBeforeCacheHit(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	query := domain.Query{Name: "Unknown Dish"}
	_, err := f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err)
	_, err = f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err)

	// The second resolution hit the cache, but its catalog miss still
	// counts.
	assert.Equal(t, int64(2), f.sink.count.Load())
}

func TestResolve_CatalogAlwaysFresh(t *testing.T) {
	f := newFixture(Options{SimilarityThreshold: 0.8, TopK: 3}, nil)
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}
	f.embedder.vectors["New Dish"] = []float32{1, 0}

	query := domain.Query{Name: "New Dish"}

	// Catalog is empty: web search satisfies and caches.
	outcome, err := f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)

	// The catalog gains a matching entry; the next resolve must prefer it
	// over the cached web result.
	f.index.Replace([]catalog.Entry{
		{Key: "new-dish", ImageURL: "https://catalog/new.jpg", Vector: []float32{1, 0}},
	})

	outcome, err = f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, domain.TierCatalog, outcome.SatisfiedTier)
	assert.Equal(t, "https://catalog/new.jpg", outcome.Candidates[0].ImageURL)
}

func TestResolve_EmbeddingFailureSkipsCatalogTier(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.embedder.err = errors.Embedding("embeddings api down")
	f.index.Replace([]catalog.Entry{
		{Key: "salmon", ImageURL: "https://catalog/salmon.jpg", Vector: []float32{1, 0}},
	})
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Salmon"})
	require.NoError(t, err, "embedding failure must not fail the resolution")
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
}

func TestResolve_RetriesTransientFailures(t *testing.T) {
	f := newFixture(Options{RetryAttempts: 3}, nil)
	f.webSearch.errs = []error{
		errors.TransientProvider("websearch", fmt.Errorf("status 502")),
		errors.TransientProvider("websearch", fmt.Errorf("status 502")),
	}
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Flaky Dish"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
	assert.Equal(t, 3, f.webSearch.callCount())
}

func TestResolve_PermanentFailureNotRetried(t *testing.T) {
	f := newFixture(Options{RetryAttempts: 3}, nil)
	f.webSearch.errs = []error{
		errors.PermanentProvider("websearch", fmt.Errorf("status 401")),
	}
	f.generate.candidates = []domain.Candidate{{ImageURL: "https://gen/a.png", Source: domain.TierGenerated}}

	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Dish"})
	require.NoError(t, err)
	assert.Equal(t, domain.TierGenerated, outcome.SatisfiedTier)
	assert.Equal(t, 1, f.webSearch.callCount(), "permanent failures must not retry")
}

func TestResolve_RetryAfterHintHonored(t *testing.T) {
	f := newFixture(Options{RetryAttempts: 2, BackoffBase: time.Millisecond, BackoffMax: 100 * time.Millisecond}, nil)
	f.webSearch.errs = []error{
		errors.RateLimited("websearch", 50*time.Millisecond, fmt.Errorf("status 429")),
	}
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	start := time.Now()
	outcome, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "Limited Dish"})
	require.NoError(t, err)

	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"retry must wait at least the provider's retry-after hint")
}

func TestResolve_CacheUnavailableDegradesToFresh(t *testing.T) {
	f := newFixture(Options{}, failingCache{})
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	query := domain.Query{Name: "Dish"}

	outcome, err := f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err, "cache unavailability must not fail the resolution")
	assert.Equal(t, domain.TierWebSearch, outcome.SatisfiedTier)

	// With the cache down every resolve goes to the provider.
	_, err = f.resolver.Resolve(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 2, f.webSearch.callCount())
}

func TestResolve_CoalescesConcurrentRequests(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.block = make(chan struct{})
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	query := domain.Query{Name: "Popular Dish"}
	const callers = 8

	var wg sync.WaitGroup
	outcomes := make([]domain.Outcome, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.resolver.Resolve(context.Background(), query)
		}(i)
	}

	// Let every caller reach the flight group, then release the provider.
	time.Sleep(50 * time.Millisecond)
	close(f.webSearch.block)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, domain.TierWebSearch, outcomes[i].SatisfiedTier)
	}
	assert.Equal(t, 1, f.webSearch.callCount(), "concurrent identical requests must coalesce")
}

func TestResolve_DistinctKeysNotCoalesced(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	var wg sync.WaitGroup
	for _, name := range []string{"Dish One", "Dish Two"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := f.resolver.Resolve(context.Background(), domain.Query{Name: name})
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	assert.Equal(t, 2, f.webSearch.callCount())
}

func TestResolve_FollowerCancellationDoesNotCancelWork(t *testing.T) {
	f := newFixture(Options{}, nil)
	f.webSearch.block = make(chan struct{})
	f.webSearch.candidates = []domain.Candidate{{ImageURL: "https://web/a.jpg", Source: domain.TierWebSearch}}

	query := domain.Query{Name: "Shared Dish"}

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, err := f.resolver.Resolve(context.Background(), query)
		assert.NoError(t, err)
	}()

	// A follower joins then cancels while the shared work is blocked.
	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	followerDone := make(chan error, 1)
	go func() {
		_, err := f.resolver.Resolve(ctx, query)
		followerDone <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-followerDone
	require.ErrorIs(t, err, context.Canceled)

	// The shared work is still running, finishes, and its result caches.
	close(f.webSearch.block)
	<-leaderDone
	assert.Equal(t, 1, f.cache.(*LRUCache).Len())
}

func TestResolve_EmptyNameRejected(t *testing.T) {
	f := newFixture(Options{}, nil)

	_, err := f.resolver.Resolve(context.Background(), domain.Query{Name: "   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, 0, f.webSearch.callCount())
}
