// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/triviafeed/internal/feed/diversity"
)

// profileVersion is the current persisted profile format.
const profileVersion = 1

type profileDocument struct {
	Version                int                 `json:"version"`
	UserID                 string              `json:"user_id"`
	Topics                 []topicDocument     `json:"topics"`
	Interactions           []InteractionRecord `json:"interactions"`
	TotalQuestionsAnswered int                 `json:"total_questions_answered"`
	ColdStartComplete      bool                `json:"cold_start_complete"`
	ColdStart              json.RawMessage     `json:"cold_start,omitempty"`
	LastRefreshed          time.Time           `json:"last_refreshed"`
	Pending                []PendingOutcome    `json:"pending,omitempty"`
}

type topicDocument struct {
	Name       string             `json:"name"`
	Weight     float64            `json:"weight"`
	LastViewed time.Time          `json:"last_viewed"`
	Subtopics  []subtopicDocument `json:"subtopics"`
}

type subtopicDocument struct {
	Name       string           `json:"name"`
	Weight     float64          `json:"weight"`
	LastViewed time.Time        `json:"last_viewed"`
	Branches   []branchDocument `json:"branches"`
}

type branchDocument struct {
	Name       string    `json:"name"`
	Weight     float64   `json:"weight"`
	LastViewed time.Time `json:"last_viewed"`
}

type topicStatsDocument struct {
	Topic string `json:"topic"`
	TopicStats
}

type topicWeightDocument struct {
	Topic  string  `json:"topic"`
	Weight float64 `json:"weight"`
}

type topicCountDocument struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

type governorDocument struct {
	MaxConsecutive int                  `json:"max_consecutive"`
	Mode           string               `json:"mode"`
	Window         []string             `json:"window"`
	Counts         []topicCountDocument `json:"counts"`
	Placed         int                  `json:"placed"`
}

// coldStartDocument is the persisted form of ColdStartState. Decoding goes
// through the field names below instead, one field at a time.
type coldStartDocument struct {
	Phase            string                `json:"phase"`
	QuestionsShown   int                   `json:"questions_shown"`
	TopicsShown      []string              `json:"topics_shown"`
	ShownQuestions   []string              `json:"shown_questions"`
	ExplorationPicks []string              `json:"exploration_picks"`
	TopicStats       []topicStatsDocument  `json:"topic_stats"`
	RecentTopics     []string              `json:"recent_topics"`
	TopicWeights     []topicWeightDocument `json:"topic_weights"`
	Governor         governorDocument      `json:"governor"`
}

// Cold start document field names.
const (
	fieldPhase            = "phase"
	fieldQuestionsShown   = "questions_shown"
	fieldTopicsShown      = "topics_shown"
	fieldShownQuestions   = "shown_questions"
	fieldExplorationPicks = "exploration_picks"
	fieldTopicStats       = "topic_stats"
	fieldRecentTopics     = "recent_topics"
	fieldTopicWeights     = "topic_weights"
	fieldGovernor         = "governor"
)

// MarshalProfile encodes a profile. Maps are written as arrays sorted by
// key, so equal profiles always encode to equal bytes.
func MarshalProfile(p *Profile) ([]byte, error) {
	doc := profileDocument{
		Version:                profileVersion,
		UserID:                 p.UserID,
		Topics:                 make([]topicDocument, 0, len(p.Topics)),
		Interactions:           make([]InteractionRecord, 0, len(p.Interactions)),
		TotalQuestionsAnswered: p.TotalQuestionsAnswered,
		ColdStartComplete:      p.ColdStartComplete,
		LastRefreshed:          p.LastRefreshed,
		Pending:                p.Pending,
	}

	for _, tn := range p.TopicNames() {
		t := p.Topics[tn]
		td := topicDocument{Name: tn, Weight: t.Weight, LastViewed: t.LastViewed, Subtopics: make([]subtopicDocument, 0, len(t.Subtopics))}
		for _, sn := range sortedKeys(t.Subtopics) {
			s := t.Subtopics[sn]
			sd := subtopicDocument{Name: sn, Weight: s.Weight, LastViewed: s.LastViewed, Branches: make([]branchDocument, 0, len(s.Branches))}
			for _, bn := range sortedKeys(s.Branches) {
				b := s.Branches[bn]
				sd.Branches = append(sd.Branches, branchDocument{Name: bn, Weight: b.Weight, LastViewed: b.LastViewed})
			}
			td.Subtopics = append(td.Subtopics, sd)
		}
		doc.Topics = append(doc.Topics, td)
	}

	for _, id := range sortedKeys(p.Interactions) {
		doc.Interactions = append(doc.Interactions, p.Interactions[id])
	}

	if p.ColdStart != nil {
		raw, err := MarshalColdStartState(p.ColdStart)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cold start state: %w", err)
		}
		doc.ColdStart = raw
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return data, nil
}

// UnmarshalProfile decodes a profile written by MarshalProfile.
//
// Out-of-range weights are clamped and a broken cold start state is rebuilt
// field by field; every repair is reported as a warning. An error is only
// returned when the document itself cannot be read.
//
// A rebuilt governor uses the default run limit. The engine applies its
// configured limit before the next cold start selection.
func UnmarshalProfile(data []byte) (*Profile, []string, error) {
	var doc profileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	if doc.Version > profileVersion {
		return nil, nil, fmt.Errorf("unsupported profile version %d", doc.Version)
	}

	var warnings []string
	weight := func(path string, w float64) float64 {
		fixed, changed := checkedWeight(w)
		if changed {
			warnings = append(warnings, fmt.Sprintf("%s: weight %v out of range, clamped to %v", path, w, fixed))
		}
		return fixed
	}

	p := NewProfile(doc.UserID)
	p.TotalQuestionsAnswered = doc.TotalQuestionsAnswered
	p.ColdStartComplete = doc.ColdStartComplete
	p.LastRefreshed = doc.LastRefreshed
	if len(doc.Pending) > 0 {
		p.Pending = doc.Pending
	}

	for _, td := range doc.Topics {
		t := &TopicNode{
			Weight:     weight(td.Name, td.Weight),
			LastViewed: td.LastViewed,
			Subtopics:  make(map[string]*SubtopicNode, len(td.Subtopics)),
		}
		for _, sd := range td.Subtopics {
			s := &SubtopicNode{
				Weight:     weight(td.Name+"/"+sd.Name, sd.Weight),
				LastViewed: sd.LastViewed,
				Branches:   make(map[string]*BranchNode, len(sd.Branches)),
			}
			for _, bd := range sd.Branches {
				s.Branches[bd.Name] = &BranchNode{
					Weight:     weight(td.Name+"/"+sd.Name+"/"+bd.Name, bd.Weight),
					LastViewed: bd.LastViewed,
				}
			}
			t.Subtopics[sd.Name] = s
		}
		p.Topics[td.Name] = t
	}

	for _, rec := range doc.Interactions {
		if rec.QuestionID == "" {
			warnings = append(warnings, "interactions: dropped record without question id")
			continue
		}
		p.Interactions[rec.QuestionID] = rec
	}

	if len(doc.ColdStart) > 0 && string(doc.ColdStart) != "null" {
		state, csWarnings := UnmarshalColdStartState(doc.ColdStart, diversity.DefaultMaxConsecutive)
		p.ColdStart = state
		warnings = append(warnings, csWarnings...)
	}

	return p, warnings, nil
}

// MarshalColdStartState encodes a cold start state. Sets are written as
// sorted arrays and the phase by name.
func MarshalColdStartState(s *ColdStartState) ([]byte, error) {
	doc := coldStartDocument{
		Phase:            s.Phase.String(),
		QuestionsShown:   s.QuestionsShown,
		TopicsShown:      sortedKeys(s.TopicsShown),
		ShownQuestions:   sortedKeys(s.ShownQuestions),
		ExplorationPicks: sortedKeys(s.ExplorationPicks),
		TopicStats:       make([]topicStatsDocument, 0, len(s.TopicStats)),
		RecentTopics:     nonNil(s.RecentTopics),
		TopicWeights:     make([]topicWeightDocument, 0, len(s.TopicWeights)),
		Governor: governorDocument{
			MaxConsecutive: s.Governor.MaxConsecutive,
			Mode:           s.Governor.Mode.String(),
			Window:         nonNil(s.Governor.Window),
			Counts:         make([]topicCountDocument, 0, len(s.Governor.Counts)),
			Placed:         s.Governor.Placed,
		},
	}

	for _, topic := range sortedKeys(s.TopicStats) {
		doc.TopicStats = append(doc.TopicStats, topicStatsDocument{Topic: topic, TopicStats: s.TopicStats[topic]})
	}
	for _, topic := range sortedKeys(s.TopicWeights) {
		doc.TopicWeights = append(doc.TopicWeights, topicWeightDocument{Topic: topic, Weight: s.TopicWeights[topic]})
	}
	for _, topic := range sortedKeys(s.Governor.Counts) {
		doc.Governor.Counts = append(doc.Governor.Counts, topicCountDocument{Topic: topic, Count: s.Governor.Counts[topic]})
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cold start state: %w", err)
	}
	return data, nil
}

// UnmarshalColdStartState decodes a cold start state field by field. A field
// that is missing or cannot be decoded falls back to its fresh default and
// produces a warning; the rest of the state is kept.
func UnmarshalColdStartState(data []byte, maxConsecutive int) (*ColdStartState, []string) {
	state := NewColdStartState(maxConsecutive)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return state, []string{fmt.Sprintf("cold_start: %v, starting over", err)}
	}

	var warnings []string
	decode := func(name string, v any) bool {
		raw, ok := fields[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("cold_start.%s: missing, using default", name))
			return false
		}
		if err := json.Unmarshal(raw, v); err != nil {
			warnings = append(warnings, fmt.Sprintf("cold_start.%s: %v, using default", name, err))
			return false
		}
		return true
	}

	var phase string
	if decode(fieldPhase, &phase) {
		if parsed, err := ParsePhase(phase); err == nil {
			state.Phase = parsed
		} else {
			warnings = append(warnings, fmt.Sprintf("cold_start.%s: %v, using default", fieldPhase, err))
		}
	}

	var shown int
	if decode(fieldQuestionsShown, &shown) {
		if shown >= 0 {
			state.QuestionsShown = shown
		} else {
			warnings = append(warnings, fmt.Sprintf("cold_start.%s: negative count %d, using default", fieldQuestionsShown, shown))
		}
	}

	decodeSet := func(name string, target map[string]struct{}) {
		var members []string
		if decode(name, &members) {
			for _, m := range members {
				target[m] = struct{}{}
			}
		}
	}
	decodeSet(fieldTopicsShown, state.TopicsShown)
	decodeSet(fieldShownQuestions, state.ShownQuestions)
	decodeSet(fieldExplorationPicks, state.ExplorationPicks)

	var stats []topicStatsDocument
	if decode(fieldTopicStats, &stats) {
		for _, st := range stats {
			state.TopicStats[st.Topic] = st.TopicStats
		}
	}

	var recent []string
	if decode(fieldRecentTopics, &recent) && recent != nil {
		state.RecentTopics = recent
	}

	var weights []topicWeightDocument
	if decode(fieldTopicWeights, &weights) {
		for _, tw := range weights {
			w, changed := checkedWeight(tw.Weight)
			if changed {
				warnings = append(warnings, fmt.Sprintf("cold_start.%s: %s weight %v out of range, clamped to %v",
					fieldTopicWeights, tw.Topic, tw.Weight, w))
			}
			state.TopicWeights[tw.Topic] = w
		}
	}

	var gov governorDocument
	if decode(fieldGovernor, &gov) {
		mode, err := diversity.ParseMode(gov.Mode)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("cold_start.%s: %v, using default", fieldGovernor, err))
		} else {
			if gov.MaxConsecutive < 1 {
				gov.MaxConsecutive = maxConsecutive
			}
			restored := diversity.Governor{
				MaxConsecutive: gov.MaxConsecutive,
				Mode:           mode,
				Window:         nonNil(gov.Window),
				Counts:         make(map[string]int, len(gov.Counts)),
				Placed:         gov.Placed,
			}
			for _, c := range gov.Counts {
				restored.Counts[c.Topic] = c.Count
			}
			state.Governor = restored
		}
	}

	return state, warnings
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
