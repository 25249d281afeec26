// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package config loads triviafeed configuration.
//
// Values are layered with koanf, later sources overriding earlier ones:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML file from CONFIG_PATH or one of DefaultConfigPaths
//  3. Environment variables listed in envMappings
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal().Err(err).Msg("invalid configuration")
//	}
//	engine := feed.NewEngine(cfg.EngineConfig(), logger)
package config

import (
	"time"

	"github.com/tomtom215/triviafeed/internal/feed"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Store   StoreConfig   `koanf:"store"`
	Catalog CatalogConfig `koanf:"catalog"`
	Feed    FeedConfig    `koanf:"feed"`
	Decay   DecayConfig   `koanf:"decay"`
	Ingest  IngestConfig  `koanf:"ingest"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// StoreConfig selects the profile storage backend.
type StoreConfig struct {
	// Backend is "badger" or "memory".
	Backend string `koanf:"backend"`

	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	// SyncWrites fsyncs every profile write.
	SyncWrites bool `koanf:"sync_writes"`
}

// CatalogConfig describes where the candidate pool comes from.
type CatalogConfig struct {
	// Source is "file" or "http".
	Source string `koanf:"source"`

	Path string `koanf:"path"`
	URL  string `koanf:"url"`

	RefreshInterval time.Duration `koanf:"refresh_interval"`
	Timeout         time.Duration `koanf:"timeout"`

	// Circuit breaker around the HTTP source.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// FeedConfig holds the operator-facing engine tunables. Everything else
// keeps the engine defaults.
type FeedConfig struct {
	Seed                int64         `koanf:"seed"`
	DefaultBatchSize    int           `koanf:"default_batch_size"`
	MaxBatchSize        int           `koanf:"max_batch_size"`
	MaxConsecutiveTopic int           `koanf:"max_consecutive_topic"`
	RepeatCooldown      time.Duration `koanf:"repeat_cooldown"`
	InitialTopics       []string      `koanf:"initial_topics"`

	ScoreCacheSize int           `koanf:"score_cache_size"`
	ScoreCacheTTL  time.Duration `koanf:"score_cache_ttl"`
}

// DecayConfig controls weight decay and the background sweep.
type DecayConfig struct {
	RatePerDay    float64       `koanf:"rate_per_day"`
	MinInterval   time.Duration `koanf:"min_interval"`
	SweepEnabled  bool          `koanf:"sweep_enabled"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// IngestConfig controls asynchronous interaction ingestion.
type IngestConfig struct {
	Enabled bool   `koanf:"enabled"`
	Topic   string `koanf:"topic"`

	// BufferSize is the gochannel output buffer per subscriber.
	BufferSize int64 `koanf:"buffer_size"`

	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EngineConfig builds the selection engine configuration, starting from the
// engine defaults and applying the configured overrides.
func (c *Config) EngineConfig() *feed.Config {
	ec := feed.DefaultConfig()

	ec.Seed = c.Feed.Seed
	ec.Selection.DefaultBatchSize = c.Feed.DefaultBatchSize
	ec.Selection.MaxBatchSize = c.Feed.MaxBatchSize
	ec.Selection.MaxConsecutiveTopic = c.Feed.MaxConsecutiveTopic
	ec.Selection.RepeatCooldown = c.Feed.RepeatCooldown
	if len(c.Feed.InitialTopics) > 0 {
		ec.ColdStart.InitialTopics = append([]string(nil), c.Feed.InitialTopics...)
	}

	ec.Decay.RatePerDay = c.Decay.RatePerDay
	ec.Decay.MinInterval = c.Decay.MinInterval

	return ec
}
