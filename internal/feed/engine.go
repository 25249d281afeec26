// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// defaultSeed is used when Config.Seed is zero.
const defaultSeed = 42

// Engine selects trivia batches and maintains preference profiles.
// It holds no per-user state and is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	rng    RandomSource
	clock  func() time.Time
	scores ScoreCache
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRandomSource replaces the seeded default random source.
func WithRandomSource(rng RandomSource) Option {
	return func(e *Engine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithScoreCache enables score caching.
func WithScoreCache(c ScoreCache) Option {
	return func(e *Engine) {
		e.scores = c
	}
}

// NewEngine creates an engine. A nil config uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg = cfg.Clone()
	seed := cfg.Seed
	if seed == 0 {
		seed = defaultSeed
	}

	e := &Engine{
		config: cfg,
		logger: logger.With().Str("component", "feed_engine").Logger(),
		rng:    NewRandomSource(seed),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.clock()
}

// InColdStart reports whether the next batch for p is a cold start batch.
func (e *Engine) InColdStart(p *Profile) bool {
	return !p.ColdStartComplete && p.TotalQuestionsAnswered < e.config.Selection.ColdStartAnswered
}

// SelectBatch picks up to batchSize items from pool for the profile.
// It never fails: an empty pool yields an empty batch and a small pool a
// short one. A non-positive batchSize selects the configured default.
//
// The returned Batch carries the updated profile, which must be persisted.
func (e *Engine) SelectBatch(pool []Item, p *Profile, batchSize int) *Batch {
	sel := &e.config.Selection
	if batchSize <= 0 {
		batchSize = sel.DefaultBatchSize
	}
	if batchSize > sel.MaxBatchSize {
		batchSize = sel.MaxBatchSize
	}

	now := e.clock()
	next := p.Clone()

	var batch *Batch
	if e.InColdStart(next) {
		batch = e.coldStartBatch(pool, next, batchSize)
	} else {
		next.Pending = nil
		decayInPlace(&e.config.Decay, next, now)
		batch = e.steadyBatch(pool, next, batchSize, now)
	}

	e.logger.Debug().
		Str("user_id", next.UserID).
		Str("phase", batch.Phase.String()).
		Int("requested", batchSize).
		Int("selected", len(batch.Items)).
		Int("pool", len(pool)).
		Msg("batch selected")

	return batch
}

// coldStartBatch runs the onboarding script for one batch.
func (e *Engine) coldStartBatch(pool []Item, next *Profile, batchSize int) *Batch {
	cfg := &e.config.ColdStart
	if next.ColdStart == nil {
		next.ColdStart = NewColdStartState(e.config.Selection.MaxConsecutiveTopic)
	}
	state := next.ColdStart
	// A decoded state may carry another run limit; the configured one wins.
	state.Governor.MaxConsecutive = e.config.Selection.MaxConsecutiveTopic
	foldPending(cfg, next, state)

	n := len(next.Interactions)
	phase := cfg.PhaseFor(n)
	limit := batchSize
	switch phase {
	case PhaseExploration:
		limit = min(limit, cfg.ExplorationEnd-n)
	case PhaseBranching:
		limit = min(limit, cfg.BranchingEnd-n)
	}

	state.Phase = phase
	state.Governor.Reset(governorMode(phase))

	run := newColdStartRun(cfg, e.rng, next, state, pool)
	switch phase {
	case PhaseExploration:
		run.exploration(limit)
	case PhaseBranching:
		run.branching(limit)
	default:
		run.normal(limit)
	}
	run.commit()

	if phase == PhaseNormal && state.QuestionsShown >= cfg.CompletionShown && !next.ColdStartComplete {
		next.ColdStartComplete = true
		e.logger.Info().
			Str("user_id", next.UserID).
			Int("questions_shown", state.QuestionsShown).
			Msg("cold start complete")
	}

	batch := &Batch{
		Items:        make([]Item, 0, len(run.picks)),
		Explanations: make(map[string][]string, len(run.picks)),
		Exploration:  make(map[string]bool, len(run.picks)),
		Phase:        phase,
		Profile:      next,
	}
	for _, pk := range run.picks {
		if _, dup := batch.Explanations[pk.item.ID]; dup {
			continue
		}
		batch.Items = append(batch.Items, pk.item)
		batch.Explanations[pk.item.ID] = []string{
			fmt.Sprintf("%s phase", phase),
			pk.reason,
		}
		batch.Exploration[pk.item.ID] = pk.exploration
	}

	return batch
}
