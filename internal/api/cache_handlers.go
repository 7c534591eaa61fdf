package api

import (
	"net/http"

	"github.com/dishplayapp/dishplay-server/internal/http/response"
)

// handleCacheStats reports the persistent result cache size.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Cache.Stats(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, stats, s.logger)
}

// handleClearCache drops all cached resolution outcomes. Catalog results are
// never cached, so this only forces web search and generation to rerun.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Cache.Clear(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
