// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/triviafeed/config.yaml",
	"/etc/triviafeed/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			Host:              "0.0.0.0",
			Timeout:           30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Store: StoreConfig{
			Backend:    "badger",
			Path:       "/data/profiles",
			SyncWrites: false,
		},
		Catalog: CatalogConfig{
			Source:             "file",
			Path:               "/data/catalog.json",
			URL:                "",
			RefreshInterval:    5 * time.Minute,
			Timeout:            10 * time.Second,
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Feed: FeedConfig{
			Seed:                42,
			DefaultBatchSize:    20,
			MaxBatchSize:        100,
			MaxConsecutiveTopic: 2,
			RepeatCooldown:      24 * time.Hour,
			InitialTopics: []string{
				"Science", "History", "Geography", "Arts",
				"Literature", "Sports", "Entertainment", "Nature",
			},
			ScoreCacheSize: 10000,
			ScoreCacheTTL:  5 * time.Minute,
		},
		Decay: DecayConfig{
			RatePerDay:    0.05,
			MinInterval:   24 * time.Hour,
			SweepEnabled:  true,
			SweepInterval: time.Hour,
		},
		Ingest: IngestConfig{
			Enabled:              false,
			Topic:                "interactions",
			BufferSize:           1024,
			RetryCount:           3,
			RetryInitialInterval: 100 * time.Millisecond,
			CloseTimeout:         30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, and the
// environment, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are keys that accept comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"feed.initial_topics",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",
	"cors_origins":          "server.cors_origins",

	"store_backend":     "store.backend",
	"store_path":        "store.path",
	"store_sync_writes": "store.sync_writes",

	"catalog_source":               "catalog.source",
	"catalog_path":                 "catalog.path",
	"catalog_url":                  "catalog.url",
	"catalog_refresh_interval":     "catalog.refresh_interval",
	"catalog_timeout":              "catalog.timeout",
	"catalog_breaker_max_failures": "catalog.breaker_max_failures",
	"catalog_breaker_timeout":      "catalog.breaker_timeout",

	"feed_seed":                  "feed.seed",
	"feed_default_batch_size":    "feed.default_batch_size",
	"feed_max_batch_size":        "feed.max_batch_size",
	"feed_max_consecutive_topic": "feed.max_consecutive_topic",
	"feed_repeat_cooldown":       "feed.repeat_cooldown",
	"feed_initial_topics":        "feed.initial_topics",
	"score_cache_size":           "feed.score_cache_size",
	"score_cache_ttl":            "feed.score_cache_ttl",

	"decay_rate_per_day":   "decay.rate_per_day",
	"decay_min_interval":   "decay.min_interval",
	"decay_sweep_enabled":  "decay.sweep_enabled",
	"decay_sweep_interval": "decay.sweep_interval",

	"ingest_enabled":        "ingest.enabled",
	"ingest_topic":          "ingest.topic",
	"ingest_buffer_size":    "ingest.buffer_size",
	"ingest_retry_count":    "ingest.retry_count",
	"ingest_retry_interval": "ingest.retry_initial_interval",
	"ingest_close_timeout":  "ingest.close_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config key.
// Unmapped variables return "" and are ignored.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
