// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package middleware

import (
	"net/http"

	"github.com/tomtom215/triviafeed/internal/logging"
)

// Header names for request tracing.
const (
	RequestIDHeader     = "X-Request-ID"
	CorrelationIDHeader = "X-Correlation-ID"
)

// maxIDLength bounds ids accepted from upstream headers.
const maxIDLength = 128

// RequestID assigns a request id and a correlation id to every request.
// Ids supplied by an upstream proxy are kept when they look sane. Both are
// echoed in the response headers and stored in the logging context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := headerID(r, RequestIDHeader)
		if requestID == "" {
			requestID = logging.GenerateRequestID()
		}
		correlationID := headerID(r, CorrelationIDHeader)
		if correlationID == "" {
			correlationID = logging.GenerateCorrelationID()
		}

		w.Header().Set(RequestIDHeader, requestID)
		w.Header().Set(CorrelationIDHeader, correlationID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// headerID returns the header value if it is a printable token of bounded length.
func headerID(r *http.Request, name string) string {
	id := r.Header.Get(name)
	if id == "" || len(id) > maxIDLength {
		return ""
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= 0x20 || id[i] >= 0x7F {
			return ""
		}
	}
	return id
}
