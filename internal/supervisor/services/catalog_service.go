// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/catalog"
)

// DefaultCatalogRefreshInterval is used when a non-positive interval is given.
const DefaultCatalogRefreshInterval = 5 * time.Minute

// Refresher reloads a catalog from its source.
type Refresher interface {
	Refresh(ctx context.Context) (catalog.RefreshResult, error)
}

// CatalogRefreshService reloads the catalog on a fixed interval. The initial
// load happens in main before the API starts, so the loop waits one
// interval before its first refresh.
type CatalogRefreshService struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    zerolog.Logger
	name      string
}

// NewCatalogRefreshService creates a new catalog refresh service. Each
// refresh is bounded by the interval itself so a hung source cannot stack
// up refreshes.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCatalogRefreshService(refresher Refresher, interval time.Duration, logger zerolog.Logger) *CatalogRefreshService {
	if interval <= 0 {
		interval = DefaultCatalogRefreshInterval
	}
	return &CatalogRefreshService{
		refresher: refresher,
		interval:  interval,
		timeout:   interval,
		logger:    logger.With().Str("service", "catalog-refresh").Logger(),
		name:      "catalog-refresh",
	}
}

// Serve implements suture.Service.
func (s *CatalogRefreshService) Serve(ctx context.Context) error {
	return runPeriodic(ctx, s.interval, false, s.logger, s.refresh)
}

func (s *CatalogRefreshService) refresh(ctx context.Context) error {
	refreshCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.refresher.Refresh(refreshCtx)
	return err
}

// String implements fmt.Stringer.
func (s *CatalogRefreshService) String() string {
	return s.name
}
