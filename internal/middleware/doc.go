// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

/*
Package middleware provides the HTTP middleware shared by every API route.

Key Components:

  - RequestID: X-Request-ID and X-Correlation-ID propagation into the logging context
  - PrometheusMetrics: request count, latency and in-flight instrumentation
  - AccessLog: one structured zerolog line per request

All middleware has the chi signature func(http.Handler) http.Handler.
Metrics and access logs label requests by chi route pattern, not raw path,
so user ids never become label values.

Typical stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)
*/
package middleware
