package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/dishplayapp/dishplay-server/internal/catalog"
	"github.com/dishplayapp/dishplay-server/internal/config"
	"github.com/dishplayapp/dishplay-server/internal/logger"
)

// ProvideCatalogIndex provides the in-memory catalog vector index, loaded
// from the snapshot file when one is configured. A missing path yields an
// empty catalog: every query escalates past the catalog tier.
func ProvideCatalogIndex(i do.Injector) (*catalog.InMemoryIndex, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index := catalog.NewInMemoryIndex()
	if cfg.Catalog.Path == "" {
		log.Warn("no catalog snapshot configured, catalog tier disabled")
		return index, nil
	}

	entries, err := catalog.LoadSnapshot(cfg.Catalog.Path, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}
	index.Replace(entries)
	log.Info("catalog loaded", "path", cfg.Catalog.Path, "entries", len(entries))
	return index, nil
}

// CatalogWatcherHandle wraps the snapshot watcher with Shutdownable.
type CatalogWatcherHandle struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CatalogWatcherHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideCatalogWatcher provides the hot-reload watcher for the catalog
// snapshot. Disabled when no snapshot is configured or watching is off.
func ProvideCatalogWatcher(i do.Injector) (*CatalogWatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Catalog.Path == "" || !cfg.Catalog.Watch {
		return &CatalogWatcherHandle{}, nil
	}

	index := do.MustInvoke[*catalog.InMemoryIndex](i)
	watcher, err := catalog.NewWatcher(cfg.Catalog.Path, cfg.Embedding.Dimensions, index, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := watcher.Start(ctx); err != nil {
			log.WithError(err).Warn("catalog watcher stopped")
		}
	}()

	log.Info("catalog watcher started", "path", cfg.Catalog.Path)
	return &CatalogWatcherHandle{cancel: cancel}, nil
}
