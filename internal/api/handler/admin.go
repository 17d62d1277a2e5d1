package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nocturna-project/nocturna/internal/api/middleware"
	"github.com/nocturna-project/nocturna/internal/api/models"
	"github.com/nocturna-project/nocturna/internal/api/response"
	"github.com/nocturna-project/nocturna/internal/cache"
)

// AdminHandler handles internal operational endpoints.
type AdminHandler struct {
	store  cache.Store
	logger zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store cache.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{store: store, logger: logger}
}

// InvalidateCache handles POST /v1/admin/cache/invalidate.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req models.CacheInvalidateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, r, "invalid request body", nil)
			return
		}
	}

	removed, err := h.store.Invalidate(r.Context(), req.Prefix)
	if err != nil {
		response.InternalError(w, r, "cache invalidation failed")
		return
	}

	h.logger.Info().
		Str("operator", middleware.GetOperator(r.Context())).
		Str("prefix", req.Prefix).
		Int("removed", removed).
		Msg("cache invalidated")

	response.JSON(w, r, http.StatusOK, models.CacheInvalidateResponse{
		Prefix:  req.Prefix,
		Removed: removed,
	})
}
