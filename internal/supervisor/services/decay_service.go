// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/profiles"
)

// DefaultDecaySweepInterval is used when a non-positive interval is given.
const DefaultDecaySweepInterval = time.Hour

// Decayer applies time decay to every stored profile.
type Decayer interface {
	DecayAll(ctx context.Context, now time.Time) (profiles.DecayResult, error)
}

// DecaySweepService runs a decay sweep on a fixed interval. Profiles are
// also decayed lazily when next served, so the sweep only keeps idle
// profiles from going stale in storage.
type DecaySweepService struct {
	decayer  Decayer
	interval time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	name     string
}

// NewDecaySweepService creates a new decay sweep service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDecaySweepService(decayer Decayer, interval time.Duration, logger zerolog.Logger) *DecaySweepService {
	if interval <= 0 {
		interval = DefaultDecaySweepInterval
	}
	return &DecaySweepService{
		decayer:  decayer,
		interval: interval,
		now:      time.Now,
		logger:   logger.With().Str("service", "decay-sweep").Logger(),
		name:     "decay-sweep",
	}
}

// Serve implements suture.Service. The first sweep runs on the first tick.
func (s *DecaySweepService) Serve(ctx context.Context) error {
	return runPeriodic(ctx, s.interval, false, s.logger, s.sweep)
}

func (s *DecaySweepService) sweep(ctx context.Context) error {
	result, err := s.decayer.DecayAll(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	s.logger.Debug().
		Int("decayed", result.Decayed).
		Int("failed", result.Failed).
		Msg("sweep finished")
	return nil
}

// String implements fmt.Stringer.
func (s *DecaySweepService) String() string {
	return s.name
}
