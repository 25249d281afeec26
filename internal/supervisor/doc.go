// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

/*
Package supervisor runs the long-lived parts of Triviafeed under a suture v4
supervisor tree.

# Overview

	RootSupervisor ("triviafeed")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   ├── DecaySweepService (if DECAY_SWEEP_ENABLED)
	│   └── CatalogRefreshService (if CATALOG_REFRESH_INTERVAL > 0)
	├── PipelineSupervisor ("pipeline-layer")
	│   └── IngestService (if INGEST_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with backoff once FailureThreshold is
exceeded. Supervisor events are logged through the sutureslog adapter, so
the tree takes a *slog.Logger; main bridges it onto zerolog with
logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddPipelineService(services.NewIngestService(consumer, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

See the services subpackage for the wrappers.
*/
package supervisor
