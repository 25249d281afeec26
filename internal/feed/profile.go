// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"sort"
	"time"
)

// BranchNode is the leaf level of the preference tree.
type BranchNode struct {
	Weight     float64
	LastViewed time.Time
}

// SubtopicNode owns the branches of one subtopic.
type SubtopicNode struct {
	Weight     float64
	LastViewed time.Time
	Branches   map[string]*BranchNode
}

// TopicNode owns the subtopics of one topic.
type TopicNode struct {
	Weight     float64
	LastViewed time.Time
	Subtopics  map[string]*SubtopicNode
}

// PendingOutcome is an interaction the cold start has not folded into its
// counters yet.
type PendingOutcome struct {
	QuestionID string         `json:"question_id"`
	Topic      string         `json:"topic"`
	Outcome    Classification `json:"outcome"`

	// TopicBefore is the topic weight before the interaction was applied.
	// Zero when unknown.
	TopicBefore float64 `json:"topic_before,omitempty"`
}

// maxPending bounds the pending queue between two selections.
const maxPending = 64

// Profile is everything the engine knows about one user.
type Profile struct {
	UserID string

	// Topics is the preference tree. Nodes are created on first touch and
	// never deleted.
	Topics map[string]*TopicNode

	// Interactions holds the latest record per question id.
	Interactions map[string]InteractionRecord

	TotalQuestionsAnswered int

	// ColdStartComplete is sticky: once set it is never cleared.
	ColdStartComplete bool

	// ColdStart is nil until the first cold start selection.
	ColdStart *ColdStartState

	// LastRefreshed is the decay watermark.
	LastRefreshed time.Time

	// Pending holds interactions recorded since the last cold start selection.
	Pending []PendingOutcome
}

// NewProfile returns an empty profile for userID.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID:       userID,
		Topics:       make(map[string]*TopicNode),
		Interactions: make(map[string]InteractionRecord),
	}
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return NewProfile("")
	}

	out := &Profile{
		UserID:                 p.UserID,
		Topics:                 make(map[string]*TopicNode, len(p.Topics)),
		Interactions:           make(map[string]InteractionRecord, len(p.Interactions)),
		TotalQuestionsAnswered: p.TotalQuestionsAnswered,
		ColdStartComplete:      p.ColdStartComplete,
		LastRefreshed:          p.LastRefreshed,
	}

	for name, t := range p.Topics {
		out.Topics[name] = t.clone()
	}
	for id, rec := range p.Interactions {
		if rec.WasCorrect != nil {
			rec.WasCorrect = Bool(*rec.WasCorrect)
		}
		out.Interactions[id] = rec
	}
	if p.ColdStart != nil {
		out.ColdStart = p.ColdStart.Clone()
	}
	if len(p.Pending) > 0 {
		out.Pending = append([]PendingOutcome(nil), p.Pending...)
	}

	return out
}

func (t *TopicNode) clone() *TopicNode {
	out := &TopicNode{
		Weight:     t.Weight,
		LastViewed: t.LastViewed,
		Subtopics:  make(map[string]*SubtopicNode, len(t.Subtopics)),
	}
	for name, s := range t.Subtopics {
		sc := &SubtopicNode{
			Weight:     s.Weight,
			LastViewed: s.LastViewed,
			Branches:   make(map[string]*BranchNode, len(s.Branches)),
		}
		for bname, b := range s.Branches {
			bc := *b
			sc.Branches[bname] = &bc
		}
		out.Subtopics[name] = sc
	}
	return out
}

// TopicWeight returns the weight of topic, or DefaultWeight if it is unknown.
func (p *Profile) TopicWeight(topic string) float64 {
	if t, ok := p.Topics[topic]; ok {
		return t.Weight
	}
	return DefaultWeight
}

// TopicNames returns the known topics in sorted order.
func (p *Profile) TopicNames() []string {
	names := make([]string, 0, len(p.Topics))
	for name := range p.Topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Depth reports how much of an item's topic path exists in the tree.
type Depth int

// Tree depths, from unknown topic to fully known path.
const (
	DepthNewTopic Depth = iota
	DepthNewSubtopic
	DepthNewBranch
	DepthKnown
)

// String implements fmt.Stringer.
func (d Depth) String() string {
	switch d {
	case DepthNewTopic:
		return "new_topic"
	case DepthNewSubtopic:
		return "new_subtopic"
	case DepthNewBranch:
		return "new_branch"
	default:
		return "known"
	}
}

// pathWeights returns the three weights along the item's path, defaulting
// missing nodes to DefaultWeight, and how deep the known path goes.
func (p *Profile) pathWeights(item Item) (topic, subtopic, branch float64, depth Depth) {
	topic, subtopic, branch = DefaultWeight, DefaultWeight, DefaultWeight

	t, ok := p.Topics[item.Topic]
	if !ok {
		return topic, subtopic, branch, DepthNewTopic
	}
	topic = t.Weight

	s, ok := t.Subtopics[item.Subtopic]
	if !ok {
		return topic, subtopic, branch, DepthNewSubtopic
	}
	subtopic = s.Weight

	b, ok := s.Branches[item.Branch]
	if !ok {
		return topic, subtopic, branch, DepthNewBranch
	}
	return topic, subtopic, b.Weight, DepthKnown
}

// touch returns the nodes along the item's path, creating missing ones at
// DefaultWeight.
func (p *Profile) touch(item Item) (*TopicNode, *SubtopicNode, *BranchNode) {
	if p.Topics == nil {
		p.Topics = make(map[string]*TopicNode)
	}

	t, ok := p.Topics[item.Topic]
	if !ok {
		t = &TopicNode{Weight: DefaultWeight, Subtopics: make(map[string]*SubtopicNode)}
		p.Topics[item.Topic] = t
	}

	s, ok := t.Subtopics[item.Subtopic]
	if !ok {
		s = &SubtopicNode{Weight: DefaultWeight, Branches: make(map[string]*BranchNode)}
		t.Subtopics[item.Subtopic] = s
	}

	b, ok := s.Branches[item.Branch]
	if !ok {
		b = &BranchNode{Weight: DefaultWeight}
		s.Branches[item.Branch] = b
	}

	return t, s, b
}

// seen reports whether the user interacted with the question.
func (p *Profile) seen(id string) bool {
	_, ok := p.Interactions[id]
	return ok
}
