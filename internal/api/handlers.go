// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/catalog"
	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/ingest"
)

// ProfileService is the per-user side of the engine. Satisfied by
// *profiles.Manager.
type ProfileService interface {
	NextBatch(ctx context.Context, userID string, size int) (*feed.Batch, error)
	RecordInteraction(ctx context.Context, userID string, rec feed.InteractionRecord) (feed.WeightChange, error)
	Profile(ctx context.Context, userID string) (*feed.Profile, error)
	Reset(ctx context.Context, userID string) error
}

// CatalogService is the question catalog. Satisfied by *catalog.Catalog.
type CatalogService interface {
	Refresh(ctx context.Context) (catalog.RefreshResult, error)
	Len() int
	RefreshedAt() time.Time
}

// ProfileCounter reports how many profiles are stored. Used by the health
// check as a storage probe.
type ProfileCounter interface {
	Count(ctx context.Context) (int, error)
}

// EventPublisher queues interactions for asynchronous processing.
// Satisfied by *ingest.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event ingest.InteractionEvent) error
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	profiles  ProfileService
	catalog   CatalogService
	store     ProfileCounter
	publisher EventPublisher
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates a handler. publisher may be nil, in which case
// interactions are applied synchronously.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(profiles ProfileService, cat CatalogService, store ProfileCounter, publisher EventPublisher, logger zerolog.Logger) *Handler {
	return &Handler{
		profiles:  profiles,
		catalog:   cat,
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}
