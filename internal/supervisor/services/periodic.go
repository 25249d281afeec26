// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// runPeriodic calls job once at start when runOnStart is set, then every
// interval until ctx is cancelled. Job errors are logged and never stop the
// loop; the next tick is the retry.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func runPeriodic(ctx context.Context, interval time.Duration, runOnStart bool, logger zerolog.Logger, job func(context.Context) error) error {
	logger.Info().Dur("interval", interval).Msg("service starting")

	if runOnStart {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("initial run failed, will retry on schedule")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("service shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := job(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("scheduled run failed")
			}
		}
	}
}
