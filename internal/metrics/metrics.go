// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package metrics exposes triviafeed's Prometheus instrumentation.
//
// Collectors are registered on the default registry at init through promauto
// and served by promhttp on /metrics. Callers use the RecordX helpers rather
// than touching the collectors directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/triviafeed/internal/cache"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triviafeed_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triviafeed_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triviafeed_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	// Selection Metrics
	BatchesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triviafeed_batches_served_total",
			Help: "Total number of batches served, by selection phase",
		},
		[]string{"phase"},
	)

	BatchItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triviafeed_batch_items",
			Help:    "Number of items in served batches",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	ShortBatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triviafeed_short_batches_total",
			Help: "Batches that returned fewer items than requested",
		},
	)

	SelectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triviafeed_selection_duration_seconds",
			Help:    "Time spent selecting a batch",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"phase"},
	)

	InteractionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triviafeed_interactions_applied_total",
			Help: "Interactions applied to profiles, by classification",
		},
		[]string{"classification"},
	)

	ColdStartCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triviafeed_cold_start_completed_total",
			Help: "Profiles that finished cold start",
		},
	)

	ProfileRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triviafeed_profile_recovered_fields_total",
			Help: "Persisted profile fields that were corrupt and reset to defaults",
		},
	)

	// Decay Metrics
	DecaySweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triviafeed_decay_sweep_duration_seconds",
			Help:    "Duration of a full decay sweep",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)

	DecaySweepProfiles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triviafeed_decay_sweep_profiles_total",
			Help: "Profiles visited by decay sweeps, by result",
		},
		[]string{"result"}, // "decayed", "unchanged", "failed"
	)

	// Catalog Metrics
	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triviafeed_catalog_items",
			Help: "Number of items in the current catalog snapshot",
		},
	)

	CatalogRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triviafeed_catalog_refreshes_total",
			Help: "Catalog refresh attempts, by result",
		},
		[]string{"result"},
	)

	CatalogRejectedItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triviafeed_catalog_rejected_items_total",
			Help: "Catalog items dropped as invalid or duplicate",
		},
	)

	CatalogBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "triviafeed_catalog_breaker_state",
			Help: "Catalog source circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triviafeed_store_operation_duration_seconds",
			Help:    "Profile store operation duration",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triviafeed_store_errors_total",
			Help: "Profile store errors, by operation",
		},
		[]string{"operation"},
	)

	// Ingest Metrics
	IngestPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triviafeed_ingest_published_total",
			Help: "Interaction events published",
		},
	)

	IngestProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triviafeed_ingest_processed_total",
			Help: "Interaction events consumed, by result",
		},
		[]string{"result"}, // "applied", "dropped", "failed"
	)

	IngestProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "triviafeed_ingest_processing_duration_seconds",
			Help:    "Time spent applying one interaction event",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBatch records one served batch.
func RecordBatch(phase string, requested, delivered int, duration time.Duration) {
	BatchesServed.WithLabelValues(phase).Inc()
	BatchItems.Observe(float64(delivered))
	SelectionDuration.WithLabelValues(phase).Observe(duration.Seconds())
	if delivered < requested {
		ShortBatches.Inc()
	}
}

// RecordInteraction records one applied interaction.
func RecordInteraction(classification string) {
	InteractionsApplied.WithLabelValues(classification).Inc()
}

// RecordColdStartCompleted records a profile leaving cold start.
func RecordColdStartCompleted() {
	ColdStartCompleted.Inc()
}

// RecordProfileRecoveries records corrupt fields reset while loading a profile.
func RecordProfileRecoveries(n int) {
	if n > 0 {
		ProfileRecoveries.Add(float64(n))
	}
}

// RecordDecaySweep records the outcome of a decay sweep.
func RecordDecaySweep(duration time.Duration, decayed, unchanged, failed int) {
	DecaySweepDuration.Observe(duration.Seconds())
	DecaySweepProfiles.WithLabelValues("decayed").Add(float64(decayed))
	DecaySweepProfiles.WithLabelValues("unchanged").Add(float64(unchanged))
	DecaySweepProfiles.WithLabelValues("failed").Add(float64(failed))
}

// RecordCatalogRefresh records a refresh attempt. On success the item gauge
// is updated; on failure the previous snapshot and gauge stay in place.
func RecordCatalogRefresh(items, rejected int, err error) {
	if err != nil {
		CatalogRefreshes.WithLabelValues("failure").Inc()
		return
	}
	CatalogRefreshes.WithLabelValues("success").Inc()
	CatalogItems.Set(float64(items))
	if rejected > 0 {
		CatalogRejectedItems.Add(float64(rejected))
	}
}

// SetCatalogBreakerState publishes the circuit breaker state.
func SetCatalogBreakerState(state int) {
	CatalogBreakerState.Set(float64(state))
}

// RecordStoreOperation records one profile store call.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(operation).Inc()
	}
}

// RecordIngestPublished records a published interaction event.
func RecordIngestPublished() {
	IngestPublished.Inc()
}

// RecordIngestProcessed records a consumed interaction event.
func RecordIngestProcessed(result string, duration time.Duration) {
	IngestProcessed.WithLabelValues(result).Inc()
	IngestProcessingDuration.Observe(duration.Seconds())
}

// CacheStatsFunc returns the current statistics of a cache.
type CacheStatsFunc func() cache.Stats

// RegisterCacheCollectors exposes a cache's hit, miss, eviction and size
// statistics under triviafeed_<name>_cache_*.
func RegisterCacheCollectors(reg prometheus.Registerer, name string, stats CacheStatsFunc) error {
	prefix := "triviafeed_" + name + "_cache_"
	collectors := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: prefix + "hits_total",
			Help: "Cache hits",
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: prefix + "misses_total",
			Help: "Cache misses",
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: prefix + "evictions_total",
			Help: "Cache evictions",
		}, func() float64 { return float64(stats().Evictions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: prefix + "entries",
			Help: "Current number of cache entries",
		}, func() float64 { return float64(stats().Size) }),
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
