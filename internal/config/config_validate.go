// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/triviafeed/internal/logging"
)

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateDecay(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	// The remaining engine invariants live with the engine.
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("engine configuration: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("server.rate_limit_reqs must be positive, got %d", c.Server.RateLimitReqs)
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("server.rate_limit_window must be positive, got %v", c.Server.RateLimitWindow)
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "memory":
		return nil
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required when store.backend=badger")
		}
		return nil
	default:
		return fmt.Errorf("store.backend must be badger or memory, got %q", c.Store.Backend)
	}
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Source {
	case "file":
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required when catalog.source=file")
		}
	case "http":
		if c.Catalog.URL == "" {
			return fmt.Errorf("catalog.url is required when catalog.source=http")
		}
		if err := validateHTTPURL(c.Catalog.URL, "catalog.url"); err != nil {
			return err
		}
		if c.Catalog.BreakerMaxFailures == 0 {
			return fmt.Errorf("catalog.breaker_max_failures must be positive")
		}
		if c.Catalog.BreakerTimeout <= 0 {
			return fmt.Errorf("catalog.breaker_timeout must be positive, got %v", c.Catalog.BreakerTimeout)
		}
	default:
		return fmt.Errorf("catalog.source must be file or http, got %q", c.Catalog.Source)
	}
	if c.Catalog.RefreshInterval < 0 {
		return fmt.Errorf("catalog.refresh_interval must be non-negative, got %v", c.Catalog.RefreshInterval)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive, got %v", c.Catalog.Timeout)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.DefaultBatchSize < 1 {
		return fmt.Errorf("feed.default_batch_size must be positive, got %d", c.Feed.DefaultBatchSize)
	}
	if c.Feed.MaxBatchSize < c.Feed.DefaultBatchSize {
		return fmt.Errorf("feed.max_batch_size must be >= feed.default_batch_size, got %d < %d",
			c.Feed.MaxBatchSize, c.Feed.DefaultBatchSize)
	}
	if c.Feed.ScoreCacheSize < 0 {
		return fmt.Errorf("feed.score_cache_size must be non-negative, got %d", c.Feed.ScoreCacheSize)
	}
	if c.Feed.ScoreCacheSize > 0 && c.Feed.ScoreCacheTTL <= 0 {
		return fmt.Errorf("feed.score_cache_ttl must be positive when the score cache is enabled, got %v",
			c.Feed.ScoreCacheTTL)
	}
	return nil
}

func (c *Config) validateDecay() error {
	if c.Decay.RatePerDay < 0 || c.Decay.RatePerDay > 1 {
		return fmt.Errorf("decay.rate_per_day must be in [0, 1], got %v", c.Decay.RatePerDay)
	}
	if c.Decay.SweepEnabled && c.Decay.SweepInterval <= 0 {
		return fmt.Errorf("decay.sweep_interval must be positive when the sweep is enabled, got %v",
			c.Decay.SweepInterval)
	}
	return nil
}

func (c *Config) validateIngest() error {
	if !c.Ingest.Enabled {
		return nil
	}
	if c.Ingest.Topic == "" {
		return fmt.Errorf("ingest.topic is required when ingest.enabled=true")
	}
	if c.Ingest.BufferSize < 0 {
		return fmt.Errorf("ingest.buffer_size must be non-negative, got %d", c.Ingest.BufferSize)
	}
	if c.Ingest.RetryCount < 0 {
		return fmt.Errorf("ingest.retry_count must be non-negative, got %d", c.Ingest.RetryCount)
	}
	if c.Ingest.CloseTimeout <= 0 {
		return fmt.Errorf("ingest.close_timeout must be positive, got %v", c.Ingest.CloseTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal, panic, disabled, got %q",
			c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
}

// validateHTTPURL checks that rawURL is an absolute http or https URL.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
