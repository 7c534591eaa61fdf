package providers

import (
	"github.com/samber/do/v2"

	"github.com/dishplayapp/dishplay-server/internal/catalog"
	"github.com/dishplayapp/dishplay-server/internal/config"
	"github.com/dishplayapp/dishplay-server/internal/embedding"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/provider"
	"github.com/dishplayapp/dishplay-server/internal/provider/genimage"
	"github.com/dishplayapp/dishplay-server/internal/provider/websearch"
	"github.com/dishplayapp/dishplay-server/internal/ratelimit"
	"github.com/dishplayapp/dishplay-server/internal/resolver"
	"github.com/dishplayapp/dishplay-server/internal/search"
	"github.com/dishplayapp/dishplay-server/internal/unmatched"
)

// ProvideEmbeddingProvider provides the query embedding provider. Without an
// API key the deterministic static provider stands in, which only makes sense
// for development: it produces stable vectors but not semantic ones.
func ProvideEmbeddingProvider(i do.Injector) (embedding.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Embedding.APIKey == "" {
		log.Warn("no embedding API key configured, using static embeddings")
		return embedding.NewStatic(cfg.Embedding.Dimensions), nil
	}

	return embedding.NewOpenAI(embedding.OpenAIConfig{
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	}, log)
}

// RateLimiterHandle wraps the keyed rate limiter with Shutdownable.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-provider rate limiter with one token
// bucket registered per configured provider.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(ratelimit.Limit{RPS: 1, Burst: 1})
	limiter.Register(websearch.ProviderName, ratelimit.Limit{
		RPS:   cfg.WebSearch.RatePerSecond,
		Burst: cfg.WebSearch.Burst,
	})
	limiter.Register(genimage.ProviderName, ratelimit.Limit{
		RPS:   cfg.Generate.RatePerSecond,
		Burst: cfg.Generate.Burst,
	})

	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}

// SearchIndexHandle wraps the unmatched search index with Shutdownable.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the bleve index over unmatched records.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.New(search.Options{
		Path:   cfg.Storage.SearchIndexPath,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	return &SearchIndexHandle{Index: index}, nil
}

// UnmatchedRecorderHandle wraps the unmatched recorder with Shutdownable so
// queued records drain before the stores close.
type UnmatchedRecorderHandle struct {
	*unmatched.Recorder
}

// Shutdown implements do.Shutdownable.
func (h *UnmatchedRecorderHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideUnmatchedRecorder provides the fire-and-forget unmatched log writer.
func ProvideUnmatchedRecorder(i do.Injector) (*UnmatchedRecorderHandle, error) {
	store := do.MustInvoke[*UnmatchedStoreHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	recorder := unmatched.NewRecorder(store.Store, index.Index, log)
	return &UnmatchedRecorderHandle{Recorder: recorder}, nil
}

// ProvideTierProviders provides the escalation providers in cascade order:
// web search first, generation last. Providers without credentials are
// skipped with a warning; the cascade simply has fewer tiers then.
func ProvideTierProviders(i do.Injector) ([]provider.Provider, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var providers []provider.Provider

	if cfg.WebSearch.APIKey != "" && cfg.WebSearch.EngineID != "" {
		ws, err := websearch.New(websearch.Config{
			APIKey:   cfg.WebSearch.APIKey,
			EngineID: cfg.WebSearch.EngineID,
		}, log)
		if err != nil {
			return nil, err
		}
		providers = append(providers, ws)
	} else {
		log.Warn("web search credentials missing, tier disabled")
	}

	if cfg.Generate.APIKey != "" {
		gen, err := genimage.New(genimage.Config{
			APIKey: cfg.Generate.APIKey,
			Model:  cfg.Generate.Model,
			Size:   cfg.Generate.Size,
		}, log)
		if err != nil {
			return nil, err
		}
		providers = append(providers, gen)
	} else {
		log.Warn("image generation API key missing, tier disabled")
	}

	return providers, nil
}

// ProvideResolver provides the resolution cascade.
func ProvideResolver(i do.Injector) (*resolver.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	embedder := do.MustInvoke[embedding.Provider](i)
	index := do.MustInvoke[*catalog.InMemoryIndex](i)
	tierProviders := do.MustInvoke[[]provider.Provider](i)
	cacheHandle := do.MustInvoke[*CacheStoreHandle](i)
	limiter := do.MustInvoke[*RateLimiterHandle](i)
	recorder := do.MustInvoke[*UnmatchedRecorderHandle](i)

	opts := resolver.Options{
		SimilarityThreshold: cfg.Resolver.SimilarityThreshold,
		TopK:                cfg.Resolver.TopK,
		RetryAttempts:       cfg.Resolver.RetryAttempts,
		BackoffBase:         cfg.Resolver.BackoffBase,
		BackoffMax:          cfg.Resolver.BackoffMax,
	}

	return resolver.New(
		opts,
		embedder,
		index,
		tierProviders,
		cacheHandle.ResultCache(),
		limiter.KeyedRateLimiter,
		recorder.Recorder,
		log,
	), nil
}
