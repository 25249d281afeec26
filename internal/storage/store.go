// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package storage persists user profiles.
//
// Profiles are stored in their versioned JSON form (feed.MarshalProfile).
// Two backends exist: BadgerStore for production and MemoryStore for
// development and tests. Both copy on read and write, so callers never share
// a *feed.Profile with the store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/metrics"
)

// ErrProfileNotFound is returned when no profile is stored for a user.
var ErrProfileNotFound = errors.New("storage: profile not found")

// ProfileStore persists profiles keyed by user id.
type ProfileStore interface {
	// Get returns the stored profile or ErrProfileNotFound.
	Get(ctx context.Context, userID string) (*feed.Profile, error)

	// Save stores p under p.UserID, replacing any previous profile.
	Save(ctx context.Context, p *feed.Profile) error

	// Delete removes the profile or returns ErrProfileNotFound.
	Delete(ctx context.Context, userID string) error

	// ForEach calls fn for every stored profile in user id order. Iteration
	// stops at the first error from fn, which ForEach returns. Profiles that
	// cannot be decoded are logged and skipped.
	ForEach(ctx context.Context, fn func(userID string, p *feed.Profile) error) error

	// Count returns the number of stored profiles.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Backend names.
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	Path       string
	SyncWrites bool
}

// Open creates the configured store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg Config, logger zerolog.Logger) (ProfileStore, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(logger), nil
	case BackendBadger, "":
		opts := badger.DefaultOptions(cfg.Path)
		opts.Logger = nil
		opts.SyncWrites = cfg.SyncWrites

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for profiles: %w", err)
		}
		return NewBadgerStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// decode unmarshals a stored profile, logging and counting recovered fields.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func decode(logger zerolog.Logger, userID string, data []byte) (*feed.Profile, error) {
	p, warnings, err := feed.UnmarshalProfile(data)
	if err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	if len(warnings) > 0 {
		logger.Warn().
			Str("user_id", userID).
			Strs("warnings", warnings).
			Msg("recovered corrupt profile fields")
		metrics.RecordProfileRecoveries(len(warnings))
	}
	// The key is authoritative.
	p.UserID = userID
	return p, nil
}

// observe records the duration and outcome of a store operation.
func observe(operation string, start time.Time, err error) {
	if errors.Is(err, ErrProfileNotFound) {
		err = nil
	}
	metrics.RecordStoreOperation(operation, time.Since(start), err)
}
