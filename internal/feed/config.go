// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"time"
)

// Config contains all tunables of the selection engine.
type Config struct {
	// Deltas are the weight changes applied per interaction.
	Deltas DeltaConfig `json:"deltas"`

	// Decay controls how untouched nodes drift toward MinWeight.
	Decay DecayConfig `json:"decay"`

	// Scoring contains the steady-state scorer terms.
	Scoring ScoringConfig `json:"scoring"`

	// ColdStart controls the scripted onboarding phases.
	ColdStart ColdStartConfig `json:"cold_start"`

	// Selection controls batch composition.
	Selection SelectionConfig `json:"selection"`

	// Seed is the random seed for deterministic behavior.
	// If zero, a fixed default seed is used.
	Seed int64 `json:"seed"`
}

// LevelDeltas holds one delta per tree level.
type LevelDeltas struct {
	Topic    float64 `json:"topic"`
	Subtopic float64 `json:"subtopic"`
	Branch   float64 `json:"branch"`
}

func (d LevelDeltas) add(o LevelDeltas) LevelDeltas {
	return LevelDeltas{Topic: d.Topic + o.Topic, Subtopic: d.Subtopic + o.Subtopic, Branch: d.Branch + o.Branch}
}

func (d LevelDeltas) scale(f float64) LevelDeltas {
	return LevelDeltas{Topic: d.Topic * f, Subtopic: d.Subtopic * f, Branch: d.Branch * f}
}

// DeltaConfig contains the per-classification weight deltas.
type DeltaConfig struct {
	Correct   LevelDeltas `json:"correct"`
	Incorrect LevelDeltas `json:"incorrect"`
	Skipped   LevelDeltas `json:"skipped"`

	// CompensationCorrect and CompensationIncorrect multiply the magnitude of
	// the skip penalty credited back when a skipped question is later answered.
	CompensationCorrect   float64 `json:"compensation_correct"`
	CompensationIncorrect float64 `json:"compensation_incorrect"`
}

// forClass returns the deltas of a classification. Views carry no delta.
func (c DeltaConfig) forClass(class Classification) LevelDeltas {
	switch class {
	case ClassCorrect:
		return c.Correct
	case ClassIncorrect:
		return c.Incorrect
	case ClassSkipped:
		return c.Skipped
	default:
		return LevelDeltas{}
	}
}

// compensation returns the credit applied when class follows a skip.
func (c DeltaConfig) compensation(class Classification) LevelDeltas {
	factor := 0.0
	switch class {
	case ClassCorrect:
		factor = c.CompensationCorrect
	case ClassIncorrect:
		factor = c.CompensationIncorrect
	}
	return c.Skipped.scale(-factor)
}

// DecayConfig contains decay parameters.
type DecayConfig struct {
	// RatePerDay is how far an untouched weight drifts per day.
	RatePerDay float64 `json:"rate_per_day"`

	// MinInterval is the minimum time between two decay runs, and the
	// minimum idle time before a node starts decaying.
	MinInterval time.Duration `json:"min_interval"`
}

// ScoringConfig contains the scorer terms.
type ScoringConfig struct {
	AffinityWeight float64 `json:"affinity_weight"`
	AccuracyBonus  float64 `json:"accuracy_bonus"`

	FastAnswerBonus   float64 `json:"fast_answer_bonus"`
	FastAnswerMs      int64   `json:"fast_answer_ms"`
	SlowAnswerPenalty float64 `json:"slow_answer_penalty"`
	SlowAnswerMs      int64   `json:"slow_answer_ms"`

	SkipPenalty float64 `json:"skip_penalty"`

	CooldownPerDay float64 `json:"cooldown_per_day"`
	CooldownMax    float64 `json:"cooldown_max"`

	NoveltyBonus float64 `json:"novelty_bonus"`
}

// ColdStartConfig contains the onboarding parameters.
type ColdStartConfig struct {
	// InitialTopics is the starter set sampled during Exploration.
	InitialTopics []string `json:"initial_topics"`

	// ExplorationEnd and BranchingEnd are the interaction counts at which
	// the next phase begins.
	ExplorationEnd int `json:"exploration_end"`
	BranchingEnd   int `json:"branching_end"`

	// CompletionShown is how many questions must have been shown before
	// cold start can complete.
	CompletionShown int `json:"completion_shown"`

	// BranchingKnown and BranchingNew are the picks per Branching round.
	BranchingKnown int `json:"branching_known"`
	BranchingNew   int `json:"branching_new"`

	// PreferredShare is the fraction of a Normal batch drawn from liked topics.
	PreferredShare float64 `json:"preferred_share"`

	// PreferredThreshold separates liked topics from the rest.
	PreferredThreshold float64 `json:"preferred_threshold"`

	// PreferredBoost multiplies the draw weight of liked topics in Branching.
	PreferredBoost float64 `json:"preferred_boost"`

	// RecentPenalty multiplies the draw weight of recently picked topics.
	RecentPenalty float64 `json:"recent_penalty"`

	// RecentTopics is the size of the cross-batch recent topic buffer.
	RecentTopics int `json:"recent_topics"`

	// Snapshot nudges applied to the in-session topic weights.
	SnapshotCorrect   float64 `json:"snapshot_correct"`
	SnapshotIncorrect float64 `json:"snapshot_incorrect"`
	SnapshotSkipped   float64 `json:"snapshot_skipped"`
}

// SelectionConfig contains batch composition parameters.
type SelectionConfig struct {
	DefaultBatchSize int `json:"default_batch_size"`
	MaxBatchSize     int `json:"max_batch_size"`

	// ColdStartAnswered is the answered count below which cold start applies.
	ColdStartAnswered int `json:"cold_start_answered"`

	// KnownShare is the fraction of a steady-state batch filled from fully
	// known territory.
	KnownShare float64 `json:"known_share"`

	// PreferredThreshold separates liked topics from the rest.
	PreferredThreshold float64 `json:"preferred_threshold"`

	// TopicCapShare is the soft per-topic cap as a fraction of the batch.
	TopicCapShare float64 `json:"topic_cap_share"`

	// RepeatCooldown holds back questions viewed more recently than this,
	// unless they are needed to fill the batch.
	RepeatCooldown time.Duration `json:"repeat_cooldown"`

	// MaxConsecutiveTopic is the diversity governor run limit.
	MaxConsecutiveTopic int `json:"max_consecutive_topic"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Deltas: DeltaConfig{
			Correct:               LevelDeltas{Topic: 0.10, Subtopic: 0.15, Branch: 0.20},
			Incorrect:             LevelDeltas{Topic: 0.05, Subtopic: 0.07, Branch: 0.10},
			Skipped:               LevelDeltas{Topic: -0.05, Subtopic: -0.07, Branch: -0.10},
			CompensationCorrect:   1.5,
			CompensationIncorrect: 1.0,
		},
		Decay: DecayConfig{
			RatePerDay:  0.05,
			MinInterval: 24 * time.Hour,
		},
		Scoring: ScoringConfig{
			AffinityWeight:    0.30,
			AccuracyBonus:     0.25,
			FastAnswerBonus:   0.15,
			FastAnswerMs:      3000,
			SlowAnswerPenalty: 0.15,
			SlowAnswerMs:      15000,
			SkipPenalty:       0.20,
			CooldownPerDay:    0.05,
			CooldownMax:       0.5,
			NoveltyBonus:      0.15,
		},
		ColdStart: ColdStartConfig{
			InitialTopics: []string{
				"Science", "History", "Geography", "Arts",
				"Literature", "Sports", "Entertainment", "Nature",
			},
			ExplorationEnd:     5,
			BranchingEnd:       20,
			CompletionShown:    20,
			BranchingKnown:     2,
			BranchingNew:       2,
			PreferredShare:     0.7,
			PreferredThreshold: 0.5,
			PreferredBoost:     2.0,
			RecentPenalty:      0.25,
			RecentTopics:       6,
			SnapshotCorrect:    0.10,
			SnapshotIncorrect:  0.05,
			SnapshotSkipped:    -0.05,
		},
		Selection: SelectionConfig{
			DefaultBatchSize:    20,
			MaxBatchSize:        100,
			ColdStartAnswered:   20,
			KnownShare:          0.7,
			PreferredThreshold:  0.5,
			TopicCapShare:       0.6,
			RepeatCooldown:      24 * time.Hour,
			MaxConsecutiveTopic: 2,
		},
		Seed: 42,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if d := c.Deltas.Correct; d.Topic < 0 || d.Subtopic < 0 || d.Branch < 0 {
		return fmt.Errorf("deltas.correct must be non-negative, got %+v", d)
	}
	if d := c.Deltas.Incorrect; d.Topic < 0 || d.Subtopic < 0 || d.Branch < 0 {
		return fmt.Errorf("deltas.incorrect must be non-negative, got %+v", d)
	}
	if c.Deltas.Skipped.Topic > 0 || c.Deltas.Skipped.Subtopic > 0 || c.Deltas.Skipped.Branch > 0 {
		return fmt.Errorf("deltas.skipped must be non-positive, got %+v", c.Deltas.Skipped)
	}
	if c.Deltas.CompensationCorrect < 0 || c.Deltas.CompensationIncorrect < 0 {
		return fmt.Errorf("deltas compensation factors must be non-negative, got %f/%f",
			c.Deltas.CompensationCorrect, c.Deltas.CompensationIncorrect)
	}

	if c.Decay.RatePerDay < 0 {
		return fmt.Errorf("decay.rate_per_day must be non-negative, got %f", c.Decay.RatePerDay)
	}
	if c.Decay.MinInterval <= 0 {
		return fmt.Errorf("decay.min_interval must be positive, got %v", c.Decay.MinInterval)
	}

	if c.Scoring.AffinityWeight < 0 {
		return fmt.Errorf("scoring.affinity_weight must be non-negative, got %f", c.Scoring.AffinityWeight)
	}
	if c.Scoring.FastAnswerMs >= c.Scoring.SlowAnswerMs {
		return fmt.Errorf("scoring.fast_answer_ms must be < scoring.slow_answer_ms, got %d >= %d",
			c.Scoring.FastAnswerMs, c.Scoring.SlowAnswerMs)
	}
	if c.Scoring.CooldownMax < 0 || c.Scoring.CooldownPerDay < 0 {
		return fmt.Errorf("scoring cooldown terms must be non-negative, got %f/%f",
			c.Scoring.CooldownPerDay, c.Scoring.CooldownMax)
	}

	if err := c.ColdStart.validate(); err != nil {
		return err
	}
	return c.Selection.validate()
}

func (c *ColdStartConfig) validate() error {
	if len(c.InitialTopics) == 0 {
		return fmt.Errorf("cold_start.initial_topics must not be empty")
	}
	if c.ExplorationEnd < 1 {
		return fmt.Errorf("cold_start.exploration_end must be positive, got %d", c.ExplorationEnd)
	}
	if c.BranchingEnd <= c.ExplorationEnd {
		return fmt.Errorf("cold_start.branching_end must be > exploration_end, got %d <= %d",
			c.BranchingEnd, c.ExplorationEnd)
	}
	if c.CompletionShown < 1 {
		return fmt.Errorf("cold_start.completion_shown must be positive, got %d", c.CompletionShown)
	}
	if c.BranchingKnown < 0 || c.BranchingNew < 0 || c.BranchingKnown+c.BranchingNew == 0 {
		return fmt.Errorf("cold_start branching picks must be non-negative with a positive sum, got %d/%d",
			c.BranchingKnown, c.BranchingNew)
	}
	if c.PreferredShare < 0 || c.PreferredShare > 1 {
		return fmt.Errorf("cold_start.preferred_share must be in [0, 1], got %f", c.PreferredShare)
	}
	if c.PreferredThreshold < MinWeight || c.PreferredThreshold > MaxWeight {
		return fmt.Errorf("cold_start.preferred_threshold must be in [%v, %v], got %f",
			MinWeight, MaxWeight, c.PreferredThreshold)
	}
	if c.RecentPenalty < 0 || c.RecentPenalty > 1 {
		return fmt.Errorf("cold_start.recent_penalty must be in [0, 1], got %f", c.RecentPenalty)
	}
	if c.RecentTopics < 1 {
		return fmt.Errorf("cold_start.recent_topics must be positive, got %d", c.RecentTopics)
	}
	return nil
}

func (c *SelectionConfig) validate() error {
	if c.DefaultBatchSize < 1 {
		return fmt.Errorf("selection.default_batch_size must be positive, got %d", c.DefaultBatchSize)
	}
	if c.MaxBatchSize < c.DefaultBatchSize {
		return fmt.Errorf("selection.max_batch_size must be >= selection.default_batch_size, got %d < %d",
			c.MaxBatchSize, c.DefaultBatchSize)
	}
	if c.ColdStartAnswered < 0 {
		return fmt.Errorf("selection.cold_start_answered must be non-negative, got %d", c.ColdStartAnswered)
	}
	if c.KnownShare < 0 || c.KnownShare > 1 {
		return fmt.Errorf("selection.known_share must be in [0, 1], got %f", c.KnownShare)
	}
	if c.TopicCapShare <= 0 || c.TopicCapShare > 1 {
		return fmt.Errorf("selection.topic_cap_share must be in (0, 1], got %f", c.TopicCapShare)
	}
	if c.RepeatCooldown < 0 {
		return fmt.Errorf("selection.repeat_cooldown must be non-negative, got %v", c.RepeatCooldown)
	}
	if c.MaxConsecutiveTopic < 1 {
		return fmt.Errorf("selection.max_consecutive_topic must be positive, got %d", c.MaxConsecutiveTopic)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.ColdStart.InitialTopics = append([]string(nil), c.ColdStart.InitialTopics...)
	return &out
}
