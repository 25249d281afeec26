// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package api

import (
	"context"
	"net/http"
	"time"
)

// healthProbeTimeout bounds the storage probe.
const healthProbeTimeout = 2 * time.Second

// Health reports whether the service can serve feeds. It is degraded, with
// status 503, when the store is unreachable or the catalog is empty.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	count, err := h.store.Count(ctx)
	resp := HealthResponse{
		Status:             "healthy",
		StoreReachable:     err == nil,
		Profiles:           count,
		CatalogItems:       h.catalog.Len(),
		CatalogRefreshedAt: optionalTime(h.catalog.RefreshedAt()),
		IngestEnabled:      h.publisher != nil,
		UptimeSeconds:      time.Since(h.startTime).Seconds(),
	}
	if err != nil {
		h.logger.Warn().Err(err).Msg("health check: store unreachable")
	}

	if !resp.StoreReachable || resp.CatalogItems == 0 {
		resp.Status = "degraded"
		rw.writeData(http.StatusServiceUnavailable, resp)
		return
	}
	rw.Success(resp)
}

// HealthLive reports that the process is up, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}
