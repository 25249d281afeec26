// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

/*
Package services provides suture.Service wrappers for Triviafeed components.

Each wrapper turns a component's own lifecycle (ListenAndServe, router Run,
or a periodic job) into suture's context-aware Serve, and implements
fmt.Stringer so supervisor events name the service.

# Available Services

HTTPServerService:
  - Wraps *http.Server and shuts it down gracefully on cancellation

IngestService:
  - Runs the interaction ingest consumer
  - Builds a fresh consumer on every start, since a stopped Watermill
    router cannot be run again

DecaySweepService:
  - Periodically decays all stored profiles that are due

CatalogRefreshService:
  - Periodically reloads the question catalog
  - A failed refresh keeps the previous catalog and is retried next tick

# Usage

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))
	tree.AddMaintenanceService(services.NewDecaySweepService(manager, time.Hour, logger))
	tree.AddMaintenanceService(services.NewCatalogRefreshService(cat, 5*time.Minute, logger))
*/
package services
