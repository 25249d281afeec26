// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package api

import (
	"net/http"

	"github.com/tomtom215/triviafeed/internal/catalog"
	"github.com/tomtom215/triviafeed/internal/logging"
)

// CatalogRefreshResponse is the body of a successful catalog refresh.
type CatalogRefreshResponse struct {
	catalog.RefreshResult
	Items int `json:"items"`
}

// RefreshCatalog reloads the catalog from its source. On failure the
// previous snapshot stays in service and 503 is returned.
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	result, err := h.catalog.Refresh(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("catalog refresh failed")
		rw.ServiceUnavailable(ErrCodeCatalogUnavailable, "Catalog refresh failed; previous catalog kept")
		return
	}

	rw.Success(CatalogRefreshResponse{RefreshResult: result, Items: h.catalog.Len()})
}
