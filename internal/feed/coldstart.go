// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"

	"github.com/tomtom215/triviafeed/internal/feed/diversity"
)

// Phase is the selection regime of a batch.
type Phase int

// Selection phases. The first three are cold start phases.
const (
	PhaseExploration Phase = iota
	PhaseBranching
	PhaseNormal
	PhaseSteady
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseExploration:
		return "exploration"
	case PhaseBranching:
		return "branching"
	case PhaseNormal:
		return "normal"
	case PhaseSteady:
		return "steady"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "exploration":
		return PhaseExploration, nil
	case "branching":
		return PhaseBranching, nil
	case "normal":
		return PhaseNormal, nil
	case "steady":
		return PhaseSteady, nil
	default:
		return PhaseExploration, fmt.Errorf("unknown phase %q", s)
	}
}

// PhaseFor returns the cold start phase for a user who interacted with n
// questions. It never goes backwards as n grows.
func (c *ColdStartConfig) PhaseFor(n int) Phase {
	switch {
	case n < c.ExplorationEnd:
		return PhaseExploration
	case n < c.BranchingEnd:
		return PhaseBranching
	default:
		return PhaseNormal
	}
}

// governorMode maps a cold start phase onto its diversity rules.
func governorMode(p Phase) diversity.Mode {
	switch p {
	case PhaseBranching:
		return diversity.ModeBranching
	case PhaseNormal:
		return diversity.ModeNormal
	default:
		return diversity.ModeBasic
	}
}

// TopicStats counts cold start outcomes for one topic.
type TopicStats struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
}

// Answered returns the number of graded interactions.
func (s TopicStats) Answered() int {
	return s.Correct + s.Incorrect
}

// ColdStartState is the persisted progress of a user's onboarding.
type ColdStartState struct {
	Phase          Phase
	QuestionsShown int

	TopicsShown      map[string]struct{}
	ShownQuestions   map[string]struct{}
	ExplorationPicks map[string]struct{}

	TopicStats map[string]TopicStats

	// RecentTopics holds the topics of the latest picks across batches,
	// oldest first.
	RecentTopics []string

	// TopicWeights is the in-session weight snapshot. Missing topics fall
	// back to the profile tree.
	TopicWeights map[string]float64

	Governor diversity.Governor
}

// NewColdStartState returns a fresh state.
func NewColdStartState(maxConsecutive int) *ColdStartState {
	return &ColdStartState{
		Phase:            PhaseExploration,
		TopicsShown:      make(map[string]struct{}),
		ShownQuestions:   make(map[string]struct{}),
		ExplorationPicks: make(map[string]struct{}),
		TopicStats:       make(map[string]TopicStats),
		RecentTopics:     make([]string, 0),
		TopicWeights:     make(map[string]float64),
		Governor:         *diversity.New(maxConsecutive),
	}
}

// Clone returns a deep copy.
func (s *ColdStartState) Clone() *ColdStartState {
	out := &ColdStartState{
		Phase:            s.Phase,
		QuestionsShown:   s.QuestionsShown,
		TopicsShown:      cloneSet(s.TopicsShown),
		ShownQuestions:   cloneSet(s.ShownQuestions),
		ExplorationPicks: cloneSet(s.ExplorationPicks),
		TopicStats:       make(map[string]TopicStats, len(s.TopicStats)),
		RecentTopics:     append(make([]string, 0, len(s.RecentTopics)), s.RecentTopics...),
		TopicWeights:     make(map[string]float64, len(s.TopicWeights)),
		Governor:         s.Governor.Clone(),
	}
	for k, v := range s.TopicStats {
		out.TopicStats[k] = v
	}
	for k, v := range s.TopicWeights {
		out.TopicWeights[k] = v
	}
	return out
}

func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// snapshotWeight returns the in-session weight of topic.
func (s *ColdStartState) snapshotWeight(p *Profile, topic string) float64 {
	if w, ok := s.TopicWeights[topic]; ok {
		return w
	}
	return p.TopicWeight(topic)
}

// pendingBase is the snapshot weight a pending outcome starts from. The
// profile tree already carries the interaction's own delta, so a topic new
// to the snapshot starts from the weight recorded before it.
func (s *ColdStartState) pendingBase(p *Profile, pending PendingOutcome) float64 {
	if w, ok := s.TopicWeights[pending.Topic]; ok {
		return w
	}
	if pending.TopicBefore >= MinWeight && pending.TopicBefore <= MaxWeight {
		return pending.TopicBefore
	}
	return p.TopicWeight(pending.Topic)
}

// topicShown reports whether any question of topic was shown.
func (s *ColdStartState) topicShown(topic string) bool {
	_, ok := s.TopicsShown[topic]
	return ok
}

// pushRecent appends topic to the recent buffer, evicting the oldest entry.
func (s *ColdStartState) pushRecent(topic string, size int) {
	s.RecentTopics = append(s.RecentTopics, topic)
	if over := len(s.RecentTopics) - size; over > 0 {
		s.RecentTopics = append(s.RecentTopics[:0], s.RecentTopics[over:]...)
	}
}

func (s *ColdStartState) recentlyPicked(topic string) bool {
	for _, t := range s.RecentTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// foldPending moves pending outcomes into the counters and nudges the
// in-session snapshot. A skip on an exploration pick leaves the snapshot
// alone: the user was probing, not rejecting.
func foldPending(cfg *ColdStartConfig, p *Profile, s *ColdStartState) int {
	folded := 0
	for _, pending := range p.Pending {
		if pending.Topic == "" {
			continue
		}

		stats := s.TopicStats[pending.Topic]
		w := s.pendingBase(p, pending)

		switch pending.Outcome {
		case ClassCorrect:
			stats.Correct++
			w = adjustWeight(w, cfg.SnapshotCorrect)
		case ClassIncorrect:
			stats.Incorrect++
			w = adjustWeight(w, cfg.SnapshotIncorrect)
		case ClassSkipped:
			stats.Skipped++
			if _, explored := s.ExplorationPicks[pending.QuestionID]; !explored {
				w = adjustWeight(w, cfg.SnapshotSkipped)
			}
		default:
			continue
		}

		s.TopicStats[pending.Topic] = stats
		s.TopicWeights[pending.Topic] = w
		folded++
	}
	p.Pending = nil
	return folded
}
