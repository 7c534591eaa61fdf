package providers

import (
	"github.com/samber/do/v2"

	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/media/images"
	"github.com/dishplayapp/dishplay-server/internal/resolver"
	"github.com/dishplayapp/dishplay-server/internal/service"
)

// ProvideResolutionService provides the dish resolution service.
func ProvideResolutionService(i do.Injector) (*service.ResolutionService, error) {
	res := do.MustInvoke[*resolver.Resolver](i)
	downloader := do.MustInvoke[*images.Downloader](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewResolutionService(res, downloader, log), nil
}

// ProvideUnmatchedService provides the curation service over the unmatched log.
func ProvideUnmatchedService(i do.Injector) (*service.UnmatchedService, error) {
	store := do.MustInvoke[*UnmatchedStoreHandle](i)
	index := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUnmatchedService(store.Store, index.Index, log), nil
}

// ProvideCacheService provides result cache administration.
func ProvideCacheService(i do.Injector) (*service.CacheService, error) {
	cacheHandle := do.MustInvoke[*CacheStoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCacheService(cacheHandle.CacheAdmin(), log), nil
}
