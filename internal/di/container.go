// Package di provides dependency injection configuration for the Dishplay server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/dishplayapp/dishplay-server/internal/catalog"
	"github.com/dishplayapp/dishplay-server/internal/config"
	"github.com/dishplayapp/dishplay-server/internal/di/providers"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/media/images"
	"github.com/dishplayapp/dishplay-server/internal/resolver"
	"github.com/dishplayapp/dishplay-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideCacheStore)
	do.Provide(injector, providers.ProvideUnmatchedStore)
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideImageDownloader)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Catalog layer
	do.Provide(injector, providers.ProvideCatalogIndex)
	do.Provide(injector, providers.ProvideCatalogWatcher)

	// Resolution layer
	do.Provide(injector, providers.ProvideEmbeddingProvider)
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideUnmatchedRecorder)
	do.Provide(injector, providers.ProvideTierProviders)
	do.Provide(injector, providers.ProvideResolver)

	// Business services
	do.Provide(injector, providers.ProvideResolutionService)
	do.Provide(injector, providers.ProvideUnmatchedService)
	do.Provide(injector, providers.ProvideCacheService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.CacheStoreHandle](injector)
	_ = do.MustInvoke[*providers.UnmatchedStoreHandle](injector)
	_ = do.MustInvoke[*images.Storage](injector)
	_ = do.MustInvoke[*images.Downloader](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*catalog.InMemoryIndex](injector)
	_ = do.MustInvoke[*providers.CatalogWatcherHandle](injector)
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.UnmatchedRecorderHandle](injector)
	_ = do.MustInvoke[*resolver.Resolver](injector)

	// Business services
	_ = do.MustInvoke[*service.ResolutionService](injector)
	_ = do.MustInvoke[*service.UnmatchedService](injector)
	_ = do.MustInvoke[*service.CacheService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
