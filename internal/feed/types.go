// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"time"
)

// Item is a trivia question as the selector sees it.
// Items are owned by the catalog and treated as read-only.
type Item struct {
	// ID uniquely identifies the question.
	ID string `json:"id" validate:"required,max=128"`

	// Topic, Subtopic and Branch place the question in the preference tree.
	Topic    string `json:"topic" validate:"required,max=128"`
	Subtopic string `json:"subtopic" validate:"required,max=128"`
	Branch   string `json:"branch" validate:"required,max=128"`

	// Difficulty is a free-form label such as "easy" or "hard".
	Difficulty string `json:"difficulty,omitempty" validate:"omitempty,max=32"`

	// Tags are informational only.
	Tags []string `json:"tags,omitempty" validate:"omitempty,dive,max=64"`
}

// Classification describes what an interaction means for the weights.
type Classification string

// Interaction classifications.
const (
	ClassCorrect   Classification = "correct"
	ClassIncorrect Classification = "incorrect"
	ClassSkipped   Classification = "skipped"
	ClassViewed    Classification = "viewed"
)

// String implements fmt.Stringer.
func (c Classification) String() string {
	return string(c)
}

// InteractionRecord is the latest interaction a user had with one question.
type InteractionRecord struct {
	QuestionID  string `json:"question_id"`
	TimeSpentMs int64  `json:"time_spent_ms"`

	// WasCorrect is nil when the question was not graded.
	WasCorrect *bool     `json:"was_correct,omitempty"`
	WasSkipped bool      `json:"was_skipped"`
	ViewedAt   time.Time `json:"viewed_at"`
}

// HasOutcome reports whether the record carries a correctness outcome.
// A skip always wins over a grade.
func (r InteractionRecord) HasOutcome() bool {
	return !r.WasSkipped && r.WasCorrect != nil
}

// Classify maps the record onto its weight-update classification.
func (r InteractionRecord) Classify() Classification {
	switch {
	case r.WasSkipped:
		return ClassSkipped
	case r.WasCorrect == nil:
		return ClassViewed
	case *r.WasCorrect:
		return ClassCorrect
	default:
		return ClassIncorrect
	}
}

// Bool returns a pointer to b, for building InteractionRecord.WasCorrect.
func Bool(b bool) *bool {
	return &b
}

// WeightChange records the before/after weights of one interaction.
type WeightChange struct {
	QuestionID     string         `json:"question_id"`
	Topic          string         `json:"topic"`
	Subtopic       string         `json:"subtopic"`
	Branch         string         `json:"branch"`
	Classification Classification `json:"classification"`

	TopicBefore    float64 `json:"topic_before"`
	TopicAfter     float64 `json:"topic_after"`
	SubtopicBefore float64 `json:"subtopic_before"`
	SubtopicAfter  float64 `json:"subtopic_after"`
	BranchBefore   float64 `json:"branch_before"`
	BranchAfter    float64 `json:"branch_after"`

	// Compensated is set when a previous skip of the same question was offset.
	Compensated bool `json:"compensated"`
}

// ScoreResult is the output of scoring one item.
type ScoreResult struct {
	Score       float64  `json:"score"`
	Explanation []string `json:"explanation"`
}

// ScoreCache caches score results keyed by question and profile fingerprint.
// Satisfied by *cache.LRUCache[feed.ScoreResult].
type ScoreCache interface {
	Get(key string) (ScoreResult, bool)
	Add(key string, value ScoreResult)
}

// Batch is the result of one SelectBatch call.
type Batch struct {
	// Items is the ordered batch. It may be shorter than requested.
	Items []Item

	// Explanations holds the reasons behind each selected item, keyed by item id.
	Explanations map[string][]string

	// Exploration marks items picked to discover new interests.
	Exploration map[string]bool

	// Phase is the selection regime that produced the batch.
	Phase Phase

	// Profile is the updated profile (decay, cold start progress).
	// Persist it before the next call for the same user.
	Profile *Profile
}
