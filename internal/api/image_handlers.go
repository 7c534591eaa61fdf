package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dishplayapp/dishplay-server/internal/http/response"
)

// handleGetImage serves a locally stored dish image by content ID.
func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "image ID is required", s.logger)
		return
	}

	if s.imageStorage == nil || !s.imageStorage.Exists(id) {
		response.NotFound(w, "image not found", s.logger)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, s.imageStorage.Path(id))
}
