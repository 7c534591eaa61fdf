package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/dishplayapp/dishplay-server/internal/domain"
	"github.com/dishplayapp/dishplay-server/internal/http/response"
)

// ResolveRequest represents the request body for resolving a single dish.
type ResolveRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// BatchResolveRequest represents the request body for resolving a menu.
type BatchResolveRequest struct {
	Items []BatchItem `json:"items" validate:"required,min=1,max=100,dive"`
}

// BatchItem is one menu entry in a batch request.
type BatchItem struct {
	ID          string `json:"id" validate:"max=64"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// handleResolve resolves one dish to image candidates.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	outcome, err := s.services.Resolution.Resolve(r.Context(), domain.Query{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, outcome, s.logger)
}

// handleResolveBatch resolves a list of menu items in parallel. Items are
// independent; the response carries per-item outcomes and errors.
func (s *Server) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchResolveRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	items := make([]domain.MenuItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.MenuItem{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
		}
	}

	results := s.services.Resolution.ResolveBatch(r.Context(), items)
	response.Success(w, map[string]any{
		"results": results,
	}, s.logger)
}
