// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

/*
Package api exposes the feed engine over HTTP.

Routes:

	GET    /api/v1/health                         service health (200 healthy, 503 degraded)
	GET    /api/v1/health/live                    liveness probe
	GET    /api/v1/users/{userID}/feed?size=N     next batch for a user
	POST   /api/v1/users/{userID}/interactions    record one interaction
	GET    /api/v1/users/{userID}/profile         read-only profile view
	DELETE /api/v1/users/{userID}/profile         forget a user
	POST   /api/v1/catalog/refresh                reload the question catalog
	GET    /metrics                               Prometheus exposition

Every JSON response uses the APIResponse envelope. Errors carry a
machine-readable code such as VALIDATION_ERROR or UNKNOWN_QUESTION.

Interactions are applied synchronously and answered with 200 and the weight
change, unless an event publisher is configured, in which case they are
queued and answered with 202.
*/
package api
