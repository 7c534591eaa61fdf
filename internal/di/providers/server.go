package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/dishplayapp/dishplay-server/internal/api"
	"github.com/dishplayapp/dishplay-server/internal/config"
	"github.com/dishplayapp/dishplay-server/internal/logger"
	"github.com/dishplayapp/dishplay-server/internal/media/images"
	"github.com/dishplayapp/dishplay-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	imageStorage := do.MustInvoke[*images.Storage](i)

	services := &api.Services{
		Resolution: do.MustInvoke[*service.ResolutionService](i),
		Unmatched:  do.MustInvoke[*service.UnmatchedService](i),
		Cache:      do.MustInvoke[*service.CacheService](i),
	}

	handler := api.NewServer(services, imageStorage, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
