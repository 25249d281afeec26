// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package main is the entry point for the Triviafeed server.
//
// Triviafeed serves personalized batches of trivia questions. Each user's
// topic preferences are learned from their interactions, decayed over time,
// and used to weight selection from a shared question catalog.
//
// # Startup Order
//
//  1. Configuration: defaults, optional YAML file, environment (koanf)
//  2. Profile store: BadgerDB, or in-memory for development
//  3. Catalog: initial load from a JSON file or HTTP endpoint
//  4. Engine and profile manager, with the LRU score cache
//  5. Ingest pipeline (optional): in-process Watermill pub/sub
//  6. Supervisor tree: HTTP server, decay sweep, catalog refresh, ingest
//
// # Example Usage
//
//	export CATALOG_PATH=./questions.json
//	export STORE_PATH=./data/profiles
//	export LOG_FORMAT=console
//	./triviafeed
//
// Asynchronous interaction ingest:
//
//	export INGEST_ENABLED=true
//	./triviafeed
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for
// HTTP_SHUTDOWN_TIMEOUT, the ingest router finishes in-flight events, and
// the profile store is closed last.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/api"
	"github.com/tomtom215/triviafeed/internal/cache"
	"github.com/tomtom215/triviafeed/internal/catalog"
	"github.com/tomtom215/triviafeed/internal/config"
	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/ingest"
	"github.com/tomtom215/triviafeed/internal/logging"
	"github.com/tomtom215/triviafeed/internal/metrics"
	"github.com/tomtom215/triviafeed/internal/profiles"
	"github.com/tomtom215/triviafeed/internal/storage"
	"github.com/tomtom215/triviafeed/internal/supervisor"
	"github.com/tomtom215/triviafeed/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	logging.Info().
		Str("store_backend", cfg.Store.Backend).
		Str("catalog_source", cfg.Catalog.Source).
		Bool("ingest_enabled", cfg.Ingest.Enabled).
		Msg("Configuration loaded")

	if err := run(cfg, logger); err != nil {
		logging.Fatal().Err(err).Msg("Triviafeed stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(storage.Config{
		Backend:    cfg.Store.Backend,
		Path:       cfg.Store.Path,
		SyncWrites: cfg.Store.SyncWrites,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing profile store")
		}
	}()
	logging.Info().Str("path", cfg.Store.Path).Msg("Profile store opened")

	cat, err := newCatalog(&cfg.Catalog, logger)
	if err != nil {
		return err
	}
	if _, err := cat.Refresh(ctx); err != nil {
		// The health endpoint reports degraded until a refresh succeeds.
		logging.Warn().Err(err).Msg("Initial catalog load failed")
	}

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	manager := profiles.NewManager(engine, store, cat, logger)

	var publisher api.EventPublisher
	var ingestSvc *services.IngestService
	if cfg.Ingest.Enabled {
		pubsub := ingest.NewPubSub(cfg.Ingest.BufferSize, logger)
		defer func() {
			if err := pubsub.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing ingest pub/sub")
			}
		}()

		consumerCfg := ingestConfig(&cfg.Ingest)
		publisher = ingest.NewPublisher(pubsub, consumerCfg.Topic, logger)
		ingestSvc = services.NewIngestService(func() (services.IngestRunner, error) {
			consumer, err := ingest.NewConsumer(consumerCfg, pubsub, manager, logger)
			if err != nil {
				return nil, err
			}
			return consumer, nil
		}, logger)
	}

	handler := api.NewHandler(manager, cat, store, publisher, logger)
	router := api.NewRouter(handler, chiConfig(&cfg.Server))
	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout + cfg.Ingest.CloseTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))
	if ingestSvc != nil {
		tree.AddPipelineService(ingestSvc)
	}
	if cfg.Decay.SweepEnabled {
		tree.AddMaintenanceService(services.NewDecaySweepService(manager, cfg.Decay.SweepInterval, logger))
	}
	if cfg.Catalog.RefreshInterval > 0 {
		tree.AddMaintenanceService(services.NewCatalogRefreshService(cat, cfg.Catalog.RefreshInterval, logger))
	}

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}

// newCatalog builds the catalog over its configured source.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newCatalog(cfg *config.CatalogConfig, logger zerolog.Logger) (*catalog.Catalog, error) {
	var source catalog.Source
	switch cfg.Source {
	case "file":
		source = catalog.NewFileSource(cfg.Path)
	case "http":
		source = catalog.NewHTTPSource(catalog.HTTPSourceConfig{
			URL:            cfg.URL,
			Timeout:        cfg.Timeout,
			MaxFailures:    cfg.BreakerMaxFailures,
			BreakerTimeout: cfg.BreakerTimeout,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
	return catalog.New(source, logger), nil
}

// newEngine builds the selection engine with an LRU score cache whose
// statistics are exported to Prometheus.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newEngine(cfg *config.Config, logger zerolog.Logger) (*feed.Engine, error) {
	var opts []feed.Option
	if cfg.Feed.ScoreCacheSize > 0 {
		scores := cache.NewLRUCache[feed.ScoreResult](cfg.Feed.ScoreCacheSize, cfg.Feed.ScoreCacheTTL)
		if err := metrics.RegisterCacheCollectors(prometheus.DefaultRegisterer, "score", scores.Stats); err != nil {
			return nil, fmt.Errorf("register score cache metrics: %w", err)
		}
		opts = append(opts, feed.WithScoreCache(scores))
	}

	engine, err := feed.NewEngine(cfg.EngineConfig(), logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("create selection engine: %w", err)
	}
	return engine, nil
}

// ingestConfig maps the ingest settings onto the consumer defaults.
func ingestConfig(cfg *config.IngestConfig) ingest.Config {
	c := ingest.DefaultConfig()
	if cfg.Topic != "" {
		c.Topic = cfg.Topic
	}
	if cfg.CloseTimeout > 0 {
		c.CloseTimeout = cfg.CloseTimeout
	}
	if cfg.RetryCount >= 0 {
		c.RetryMaxRetries = cfg.RetryCount
	}
	if cfg.RetryInitialInterval > 0 {
		c.RetryInitialInterval = cfg.RetryInitialInterval
	}
	return c
}

// chiConfig maps the server settings onto the middleware defaults.
func chiConfig(cfg *config.ServerConfig) *api.ChiMiddlewareConfig {
	c := api.DefaultChiMiddlewareConfig()
	c.CORSAllowedOrigins = append([]string(nil), cfg.CORSOrigins...)
	c.RateLimitRequests = cfg.RateLimitReqs
	c.RateLimitWindow = cfg.RateLimitWindow
	c.RateLimitDisabled = cfg.RateLimitDisabled
	return c
}
