package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dishplayapp/dishplay-server/internal/http/response"
)

// defaultUnmatchedLimit bounds curation listings when the client gives none.
const defaultUnmatchedLimit = 50

// handleListUnmatched lists or searches unmatched dishes for catalog
// curation. Query params: q (full-text search), category, limit.
func (s *Server) handleListUnmatched(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")

	limit := defaultUnmatchedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			response.BadRequest(w, "limit must be between 1 and 500", s.logger)
			return
		}
		limit = n
	}

	var err error
	var records any
	if query != "" {
		records, err = s.services.Unmatched.Search(r.Context(), query, category, limit)
	} else {
		records, err = s.services.Unmatched.List(r.Context(), category, limit)
	}
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	total, err := s.services.Unmatched.Count(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"records": records,
		"total":   total,
	}, s.logger)
}

// handleDeleteUnmatched retires one unmatched record after curation.
func (s *Server) handleDeleteUnmatched(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "record ID is required", s.logger)
		return
	}

	if err := s.services.Unmatched.Delete(r.Context(), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
