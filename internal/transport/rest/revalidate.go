package rest

import (
	"net/http"

	"github.com/cartcraft/storefront/internal/revalidate"
	"github.com/cartcraft/storefront/pkg/web"
)

// RevalidateResponse acknowledges an invalidation. Timestamp is in unix milliseconds.
type RevalidateResponse struct {
	Invalidated bool   `json:"invalidated"`
	Path        string `json:"path"`
	Timestamp   int64  `json:"timestamp"`
}

// Revalidate drops the cached page at ?path= so the next read rebuilds it.
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	pagePath, ok := web.RequireQuery(w, r, h.logger, "path")
	if !ok {
		return
	}
	if err := h.pages.Invalidate(r.Context(), pagePath); err != nil {
		h.logger.ErrorContext(r.Context(), "Error invalidating page", "path", pagePath, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to revalidate")
		return
	}
	h.logger.InfoContext(r.Context(), "Page invalidated", "path", revalidate.CacheKey(pagePath))
	web.RespondJSON(w, h.logger, http.StatusOK, RevalidateResponse{
		Invalidated: true,
		Path:        pagePath,
		Timestamp:   h.now().UnixMilli(),
	})
}
