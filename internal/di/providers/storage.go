package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/dishplayapp/dishplay-server/internal/config"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/media/images"
	"github.com/dishplayapp/dishplay-server/internal/resolver"
	"github.com/dishplayapp/dishplay-server/internal/service"
	"github.com/dishplayapp/dishplay-server/internal/store"
	"github.com/dishplayapp/dishplay-server/internal/store/sqlite"
)

// CacheStoreHandle wraps the persistent result cache with Shutdownable.
// Store is nil when the database failed to open and the in-memory fallback is
// in use.
type CacheStoreHandle struct {
	Store    *store.Store
	Fallback *resolver.LRUCache
}

// Shutdown implements do.Shutdownable.
func (h *CacheStoreHandle) Shutdown() error {
	if h.Store != nil {
		return h.Store.Close()
	}
	return nil
}

// ResultCache returns the cache the resolver should use.
func (h *CacheStoreHandle) ResultCache() resolver.ResultCache {
	if h.Store != nil {
		return h.Store
	}
	return h.Fallback
}

// CacheAdmin returns the cache the admin endpoints should manage.
func (h *CacheStoreHandle) CacheAdmin() service.CacheStore {
	if h.Store != nil {
		return h.Store
	}
	return lruCacheStore{h.Fallback}
}

// lruCacheStore adapts the in-memory cache to the admin surface.
type lruCacheStore struct {
	cache *resolver.LRUCache
}

func (a lruCacheStore) Clear(ctx context.Context) error { return a.cache.Clear(ctx) }
func (a lruCacheStore) Len() (int, error)               { return a.cache.Len(), nil }

// ProvideCacheStore provides the persistent result cache. An unopenable
// database degrades to a bounded in-memory cache rather than failing startup.
func ProvideCacheStore(i do.Injector) (*CacheStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := store.New(cfg.Storage.DataPath, log)
	if err != nil {
		log.WithError(err).Warn("result cache database unavailable, using in-memory cache",
			"path", cfg.Storage.DataPath,
		)
		return &CacheStoreHandle{
			Fallback: resolver.NewLRUCache(cfg.Resolver.CacheCapacity),
		}, nil
	}
	return &CacheStoreHandle{Store: st}, nil
}

// UnmatchedStoreHandle wraps the unmatched log database with Shutdownable.
type UnmatchedStoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *UnmatchedStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideUnmatchedStore provides the SQLite unmatched log store.
func ProvideUnmatchedStore(i do.Injector) (*UnmatchedStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := sqlite.Open(cfg.Storage.UnmatchedDBPath, log)
	if err != nil {
		return nil, err
	}
	return &UnmatchedStoreHandle{Store: st}, nil
}

// ProvideImageStorage provides the content-addressed image store.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return images.NewStorage(cfg.Storage.ImagePath)
}

// ProvideImageDownloader provides the dish image downloader.
func ProvideImageDownloader(i do.Injector) (*images.Downloader, error) {
	storage := do.MustInvoke[*images.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)
	return images.NewDownloader(storage, log), nil
}
