// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package profiles orchestrates per-user work: load the profile, run the
// engine, persist the result.
//
// The engine is single-writer per profile. Manager enforces that with a
// per-user lock, so the HTTP API, the ingest consumer and the decay sweep can
// all touch the same user without losing updates.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/catalog"
	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/metrics"
	"github.com/tomtom215/triviafeed/internal/storage"
)

// ErrUnknownQuestion is returned when an interaction names a question that is
// not in the catalog.
var ErrUnknownQuestion = errors.New("profiles: unknown question")

// Catalog is the read side of the candidate pool.
type Catalog interface {
	Items() []feed.Item
	Get(id string) (feed.Item, error)
}

// Manager is safe for concurrent use.
type Manager struct {
	engine  *feed.Engine
	store   storage.ProfileStore
	catalog Catalog
	locks   *keyedMutex
	logger  zerolog.Logger
}

// NewManager creates a manager.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewManager(engine *feed.Engine, store storage.ProfileStore, cat Catalog, logger zerolog.Logger) *Manager {
	return &Manager{
		engine:  engine,
		store:   store,
		catalog: cat,
		locks:   newKeyedMutex(),
		logger:  logger.With().Str("component", "profiles").Logger(),
	}
}

// load returns the stored profile or a fresh one. Must hold the user lock.
func (m *Manager) load(ctx context.Context, userID string) (*feed.Profile, error) {
	p, err := m.store.Get(ctx, userID)
	if errors.Is(err, storage.ErrProfileNotFound) {
		return feed.NewProfile(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// RecordInteraction applies one interaction to the user's profile and
// persists the result. A zero ViewedAt is set to the engine clock.
func (m *Manager) RecordInteraction(ctx context.Context, userID string, rec feed.InteractionRecord) (feed.WeightChange, error) {
	item, err := m.catalog.Get(rec.QuestionID)
	if errors.Is(err, catalog.ErrItemNotFound) {
		return feed.WeightChange{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, rec.QuestionID)
	}
	if err != nil {
		return feed.WeightChange{}, fmt.Errorf("resolve question: %w", err)
	}
	if rec.ViewedAt.IsZero() {
		rec.ViewedAt = m.engine.Now()
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	p, err := m.load(ctx, userID)
	if err != nil {
		return feed.WeightChange{}, err
	}

	next, change := m.engine.ApplyInteraction(p, rec, item)
	if err := m.store.Save(ctx, next); err != nil {
		return feed.WeightChange{}, fmt.Errorf("save profile: %w", err)
	}

	metrics.RecordInteraction(change.Classification.String())
	m.logger.Debug().
		Str("user_id", userID).
		Str("question_id", rec.QuestionID).
		Str("classification", change.Classification.String()).
		Float64("topic_after", change.TopicAfter).
		Msg("interaction applied")
	return change, nil
}

// NextBatch selects the next batch for the user and persists the profile the
// engine returns with it.
func (m *Manager) NextBatch(ctx context.Context, userID string, size int) (*feed.Batch, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	p, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	requested := m.effectiveSize(size)
	start := time.Now()
	batch := m.engine.SelectBatch(m.catalog.Items(), p, requested)
	elapsed := time.Since(start)

	if err := m.store.Save(ctx, batch.Profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	metrics.RecordBatch(batch.Phase.String(), requested, len(batch.Items), elapsed)
	if !p.ColdStartComplete && batch.Profile.ColdStartComplete {
		metrics.RecordColdStartCompleted()
		m.logger.Info().Str("user_id", userID).Msg("cold start complete")
	}
	if len(batch.Items) < requested {
		m.logger.Debug().
			Str("user_id", userID).
			Int("requested", requested).
			Int("delivered", len(batch.Items)).
			Msg("short batch")
	}
	return batch, nil
}

// effectiveSize mirrors the engine's batch size defaulting and clamping.
func (m *Manager) effectiveSize(size int) int {
	sel := m.engine.Config().Selection
	if size <= 0 {
		return sel.DefaultBatchSize
	}
	if size > sel.MaxBatchSize {
		return sel.MaxBatchSize
	}
	return size
}

// Profile returns the stored profile, or storage.ErrProfileNotFound.
func (m *Manager) Profile(ctx context.Context, userID string) (*feed.Profile, error) {
	return m.store.Get(ctx, userID)
}

// Reset deletes the user's profile so the next batch starts a new cold start.
func (m *Manager) Reset(ctx context.Context, userID string) error {
	unlock := m.locks.Lock(userID)
	defer unlock()
	return m.store.Delete(ctx, userID)
}

// DecayResult summarizes one sweep.
type DecayResult struct {
	Decayed   int
	Unchanged int
	Failed    int
}

// DecayAll decays every stored profile that is due and saves the ones that
// changed. Individual failures are logged and counted; only a failure to
// iterate the store is returned.
func (m *Manager) DecayAll(ctx context.Context, now time.Time) (DecayResult, error) {
	var result DecayResult
	cfg := m.engine.Config().Decay
	start := time.Now()

	err := m.store.ForEach(ctx, func(userID string, snapshot *feed.Profile) error {
		if !feed.DecayDue(&cfg, snapshot, now) {
			result.Unchanged++
			return nil
		}

		changed, err := m.decayOne(ctx, userID, now)
		switch {
		case err != nil:
			result.Failed++
			m.logger.Error().Err(err).Str("user_id", userID).Msg("decay failed")
		case changed:
			result.Decayed++
		default:
			result.Unchanged++
		}
		return nil
	})

	metrics.RecordDecaySweep(time.Since(start), result.Decayed, result.Unchanged, result.Failed)
	if err != nil {
		return result, fmt.Errorf("decay sweep: %w", err)
	}

	m.logger.Info().
		Int("decayed", result.Decayed).
		Int("unchanged", result.Unchanged).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("decay sweep complete")
	return result, nil
}

// decayOne re-reads the profile under the user lock, since the sweep's copy
// may be stale.
func (m *Manager) decayOne(ctx context.Context, userID string, now time.Time) (bool, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	p, err := m.store.Get(ctx, userID)
	if errors.Is(err, storage.ErrProfileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	next := m.engine.Decay(p, now)
	if next == p {
		return false, nil
	}
	if err := m.store.Save(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}
