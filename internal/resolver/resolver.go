// Package resolver implements the dish image resolution cascade: catalog
// similarity first, then web image search, then generation, with result
// caching and per-key request coalescing.
package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/dishplayapp/dishplay-server/internal/catalog"
	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/embedding"
	"github.com/dishplayapp/dishplay-server/internal/errors"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/normalize"
	"github.com/dishplayapp/dishplay-server/internal/provider"
	"github.com/dishplayapp/dishplay-server/internal/ratelimit"
)

// UnmatchedSink receives queries the catalog tier could not match. Record
// must not block; the resolver fires and forgets.
type UnmatchedSink interface {
	Record(query domain.Query)
}

// Options tunes the cascade.
type Options struct {
	// SimilarityThreshold is the minimum cosine similarity for a catalog
	// candidate to be accepted.
	SimilarityThreshold float64
	// TopK is the number of nearest catalog vectors considered per query.
	TopK int
	// RetryAttempts caps attempts per provider call.
	RetryAttempts int
	// BackoffBase and BackoffMax bound the exponential retry delay.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func (o *Options) setDefaults() {
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = 0.8
	}
	if o.TopK <= 0 {
		o.TopK = 3
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 10 * time.Second
	}
}

// Resolver runs the resolution cascade.
//
// Tier order and caching rules:
//   - The catalog tier always runs fresh and its results are never cached,
//     so catalog growth is visible on the next request.
//   - Web search and generation outcomes are cached by normalized key.
//   - A query that exhausts every tier yields a NONE outcome with nil error;
//     NONE is never cached.
type Resolver struct {
	opts      Options
	embedder  embedding.Provider
	catalog   catalog.Searcher
	providers []provider.Provider
	cache     ResultCache
	limiter   *ratelimit.KeyedRateLimiter
	unmatched UnmatchedSink
	flights   *flightGroup
	logger    *logger.Logger
	now       func() time.Time
}

// New creates a resolver. Providers run in the order given after the catalog
// tier misses; pass the web search provider before the generation provider.
func New(
	opts Options,
	embedder embedding.Provider,
	cat catalog.Searcher,
	providers []provider.Provider,
	cache ResultCache,
	limiter *ratelimit.KeyedRateLimiter,
	unmatched UnmatchedSink,
	log *logger.Logger,
) *Resolver {
	opts.setDefaults()
	if cache == nil {
		cache = NewLRUCache(DefaultCacheCapacity)
	}
	return &Resolver{
		opts:      opts,
		embedder:  embedder,
		catalog:   cat,
		providers: providers,
		cache:     cache,
		limiter:   limiter,
		unmatched: unmatched,
		flights:   newFlightGroup(),
		logger:    log,
		now:       time.Now,
	}
}

// Resolve runs a query through the cascade. Provider failures degrade to a
// NONE outcome rather than an error; Resolve only errors on invalid input or
// caller cancellation.
func (r *Resolver) Resolve(ctx context.Context, query domain.Query) (domain.Outcome, error) {
	if strings.TrimSpace(query.Name) == "" {
		return domain.Outcome{}, errors.Validation("dish name is required")
	}

	key := normalize.Key(query.Name, query.Description)
	return r.flights.Do(ctx, key, func(ctx context.Context) (domain.Outcome, error) {
		return r.resolveFresh(ctx, key, query), nil
	})
}

// resolveFresh executes the full cascade for one coalesced key.
func (r *Resolver) resolveFresh(ctx context.Context, key string, query domain.Query) domain.Outcome {
	outcome := domain.Outcome{
		Query:         query,
		SatisfiedTier: domain.TierNone,
		ResolvedAt:    r.now(),
	}

	candidates := r.searchCatalog(ctx, query)
	if len(candidates) > 0 {
		outcome.Candidates = candidates
		outcome.SatisfiedTier = domain.TierCatalog
		return outcome
	}

	// The catalog accepted nothing; record it for curation regardless of
	// what the lower tiers produce.
	if r.unmatched != nil {
		r.unmatched.Record(query)
	}

	if cached := r.cacheGet(ctx, key); cached != nil {
		return cached.Outcome
	}

	for _, p := range r.providers {
		candidates, err := r.resolveWithRetry(ctx, p, query)
		if err != nil {
			r.logger.WithError(err).Warn("tier provider failed, escalating",
				"provider", p.Name(),
				"tier", string(p.Tier()),
				"name", query.Name,
			)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		outcome.Candidates = candidates
		outcome.SatisfiedTier = p.Tier()
		outcome.ResolvedAt = r.now()
		r.cachePut(ctx, key, outcome)
		return outcome
	}

	r.logger.Info("no image resolved", "name", query.Name)
	return outcome
}

// searchCatalog runs the catalog tier: embed the query text and keep the
// top-k neighbours that clear the similarity threshold. Failures abort only
// this tier.
func (r *Resolver) searchCatalog(ctx context.Context, query domain.Query) []domain.Candidate {
	if r.embedder == nil || r.catalog == nil || r.catalog.Size() == 0 {
		return nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query.Text()})
	if err != nil {
		r.logger.WithError(err).Warn("query embedding failed, skipping catalog tier",
			"name", query.Name,
		)
		return nil
	}
	if len(vectors) == 0 {
		return nil
	}

	matches, err := r.catalog.Search(ctx, vectors[0], r.opts.TopK)
	if err != nil {
		r.logger.WithError(err).Warn("catalog search failed, skipping catalog tier",
			"name", query.Name,
		)
		return nil
	}

	var candidates []domain.Candidate
	for _, m := range matches {
		if m.Score < r.opts.SimilarityThreshold {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			ImageURL:    m.Entry.ImageURL,
			Source:      domain.TierCatalog,
			Score:       m.Score,
			Title:       m.Entry.Title,
			Description: m.Entry.Description,
			Category:    m.Entry.Category,
			CatalogKey:  m.Entry.Key,
		})
	}
	return candidates
}

// cacheGet treats any cache failure as a miss so an unavailable cache
// degrades to fresh resolution.
func (r *Resolver) cacheGet(ctx context.Context, key string) *domain.CacheEntry {
	entry, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.WithError(err).Warn("result cache unavailable, resolving fresh", "key", key)
		return nil
	}
	return entry
}

// cachePut stores a cacheable outcome; write failures are logged and the
// outcome is still returned to callers.
func (r *Resolver) cachePut(ctx context.Context, key string, outcome domain.Outcome) {
	if !outcome.SatisfiedTier.Cacheable() {
		return
	}
	err := r.cache.Put(ctx, domain.CacheEntry{
		Key:       key,
		Outcome:   outcome,
		Tier:      outcome.SatisfiedTier,
		CreatedAt: r.now(),
	})
	if err != nil {
		r.logger.WithError(err).Warn("result cache write failed", "key", key)
	}
}
