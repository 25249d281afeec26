// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/triviafeed/internal/feed/diversity"
)

// pick is one cold start selection.
type pick struct {
	item        Item
	exploration bool
	reason      string
}

// coldStartRun assembles a single cold start batch.
type coldStartRun struct {
	cfg     *ColdStartConfig
	rng     RandomSource
	profile *Profile
	state   *ColdStartState
	gov     *diversity.Governor

	byTopic map[string][]Item
	topics  []string

	used          map[string]struct{}
	usedSubtopics map[string]struct{}
	batchTopics   map[string]struct{}
	picks         []pick
}

func newColdStartRun(cfg *ColdStartConfig, rng RandomSource, p *Profile, s *ColdStartState, pool []Item) *coldStartRun {
	r := &coldStartRun{
		cfg:           cfg,
		rng:           rng,
		profile:       p,
		state:         s,
		gov:           &s.Governor,
		byTopic:       make(map[string][]Item),
		used:          make(map[string]struct{}),
		usedSubtopics: make(map[string]struct{}),
		batchTopics:   make(map[string]struct{}),
	}

	seen := make(map[string]struct{}, len(pool))
	for _, item := range pool {
		if item.ID == "" || item.Topic == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		if _, ok := r.byTopic[item.Topic]; !ok {
			r.topics = append(r.topics, item.Topic)
		}
		r.byTopic[item.Topic] = append(r.byTopic[item.Topic], item)
	}
	sort.Strings(r.topics)

	return r
}

// fresh reports whether item was never shown nor answered and is not in the batch.
func (r *coldStartRun) fresh(item Item) bool {
	if !r.free(item) || r.profile.seen(item.ID) {
		return false
	}
	_, shown := r.state.ShownQuestions[item.ID]
	return !shown
}

// free reports whether item is not in the batch yet.
func (r *coldStartRun) free(item Item) bool {
	_, used := r.used[item.ID]
	return !used
}

func (r *coldStartRun) inBatch(topic string) bool {
	_, ok := r.batchTopics[topic]
	return ok
}

func subtopicKey(item Item) string {
	return item.Topic + "\x00" + item.Subtopic
}

func (r *coldStartRun) hasFresh(topic string) bool {
	for _, item := range r.byTopic[topic] {
		if r.fresh(item) {
			return true
		}
	}
	return false
}

// neverShown reports whether the user has no history at all with topic.
func (r *coldStartRun) neverShown(topic string) bool {
	if r.state.topicShown(topic) || r.inBatch(topic) {
		return false
	}
	if _, known := r.profile.Topics[topic]; known {
		return false
	}
	return r.state.TopicStats[topic] == (TopicStats{})
}

// itemFromTopic draws a fresh item of topic, preferring a subtopic not yet
// used in this batch.
func (r *coldStartRun) itemFromTopic(topic string) (Item, bool) {
	var preferred, rest []Item
	for _, item := range r.byTopic[topic] {
		if !r.fresh(item) {
			continue
		}
		if _, used := r.usedSubtopics[subtopicKey(item)]; used {
			rest = append(rest, item)
		} else {
			preferred = append(preferred, item)
		}
	}

	candidates := preferred
	if len(candidates) == 0 {
		candidates = rest
	}
	if len(candidates) == 0 {
		return Item{}, false
	}
	return candidates[r.rng.Intn(len(candidates))], true
}

func (r *coldStartRun) place(item Item, exploration bool, reason string) {
	r.gov.Record(item.Topic)
	r.used[item.ID] = struct{}{}
	r.usedSubtopics[subtopicKey(item)] = struct{}{}
	r.batchTopics[item.Topic] = struct{}{}
	r.picks = append(r.picks, pick{item: item, exploration: exploration, reason: reason})
}

// tryTopic places a fresh item of topic if the governor allows it.
func (r *coldStartRun) tryTopic(topic string, exploration bool, reason string) bool {
	if !r.gov.Allowed(topic) {
		return false
	}
	item, ok := r.itemFromTopic(topic)
	if !ok {
		return false
	}
	r.place(item, exploration, reason)
	return true
}

// exploration shows one question per starter topic, in random order.
func (r *coldStartRun) exploration(limit int) {
	for _, topic := range shuffledStrings(r.rng, r.cfg.InitialTopics) {
		if len(r.picks) >= limit {
			return
		}
		if r.state.topicShown(topic) || r.inBatch(topic) {
			continue
		}
		r.tryTopic(topic, true, fmt.Sprintf("getting to know you: %s", topic))
	}

	for _, topic := range shuffledStrings(r.rng, r.topics) {
		if len(r.picks) >= limit {
			return
		}
		if r.state.topicShown(topic) || r.inBatch(topic) {
			continue
		}
		r.tryTopic(topic, true, fmt.Sprintf("getting to know you: %s", topic))
	}

	r.fillRemaining(limit, true)
}

// branching alternates picks from answered topics with picks from topics
// the user has not met yet.
func (r *coldStartRun) branching(limit int) {
	perRound := r.cfg.BranchingKnown
	if r.cfg.BranchingNew > perRound {
		perRound = r.cfg.BranchingNew
	}

	for len(r.picks) < limit {
		before := len(r.picks)
		for i := 0; i < perRound && len(r.picks) < limit; i++ {
			if i < r.cfg.BranchingKnown {
				r.pickKnown()
			}
			if i < r.cfg.BranchingNew && len(r.picks) < limit {
				r.pickNew()
			}
		}
		if len(r.picks) == before {
			break
		}
	}

	r.fillRemaining(limit, false)
}

// pickKnown draws an answered topic, favoring liked topics and avoiding
// recently picked ones.
func (r *coldStartRun) pickKnown() bool {
	var (
		topics  []string
		weights []float64
	)
	for _, topic := range r.topics {
		if r.state.TopicStats[topic].Answered() == 0 {
			continue
		}
		if !r.gov.Allowed(topic) || !r.hasFresh(topic) {
			continue
		}
		w := r.state.snapshotWeight(r.profile, topic)
		if w > r.cfg.PreferredThreshold {
			w *= r.cfg.PreferredBoost
		}
		if r.state.recentlyPicked(topic) {
			w *= r.cfg.RecentPenalty
		}
		topics = append(topics, topic)
		weights = append(weights, w)
	}

	idx := weightedIndex(r.rng, weights)
	if idx < 0 {
		return false
	}
	topic := topics[idx]
	return r.tryTopic(topic, false, fmt.Sprintf("builds on your answers in %s", topic))
}

// pickNew prefers topics never shown, then topics the user only skipped.
func (r *coldStartRun) pickNew() bool {
	order := shuffledStrings(r.rng, r.topics)
	for _, topic := range order {
		if r.neverShown(topic) && r.tryTopic(topic, true, fmt.Sprintf("something new: %s", topic)) {
			return true
		}
	}
	for _, topic := range order {
		stats := r.state.TopicStats[topic]
		if stats.Skipped == 0 || stats.Answered() > 0 {
			continue
		}
		if r.tryTopic(topic, true, fmt.Sprintf("another chance for %s", topic)) {
			return true
		}
	}
	return false
}

// normal splits the batch between liked topics and discovery, keeping the
// two interleaved.
func (r *coldStartRun) normal(limit int) {
	preferredSlots := int(math.Round(float64(limit) * r.cfg.PreferredShare))
	discoverySlots := limit - preferredSlots
	preferred, discovery := 0, 0

	for len(r.picks) < limit {
		wantPreferred := preferred < preferredSlots &&
			(discovery >= discoverySlots || preferred*discoverySlots <= discovery*preferredSlots)

		if wantPreferred {
			if r.pickPreferred() {
				preferred++
				continue
			}
			if r.pickDiscovery() {
				discovery++
				continue
			}
		} else {
			if r.pickDiscovery() {
				discovery++
				continue
			}
			if r.pickPreferred() {
				preferred++
				continue
			}
		}
		break
	}

	r.fillRemaining(limit, false)
}

// pickPreferred draws a liked topic with probability proportional to how far
// its weight sits above the threshold.
func (r *coldStartRun) pickPreferred() bool {
	var (
		topics  []string
		weights []float64
	)
	for _, topic := range r.topics {
		w := r.state.snapshotWeight(r.profile, topic)
		if w <= r.cfg.PreferredThreshold {
			continue
		}
		if !r.gov.Allowed(topic) || !r.hasFresh(topic) {
			continue
		}
		topics = append(topics, topic)
		weights = append(weights, w-r.cfg.PreferredThreshold)
	}

	idx := weightedIndex(r.rng, weights)
	if idx < 0 {
		return false
	}
	topic := topics[idx]
	return r.tryTopic(topic, false, fmt.Sprintf("you enjoy %s", topic))
}

// pickDiscovery prefers low-weight topics already in the batch, then topics
// never shown, then any other low-weight topic.
func (r *coldStartRun) pickDiscovery() bool {
	order := shuffledStrings(r.rng, r.topics)
	for _, topic := range order {
		if !r.inBatch(topic) || !r.lowWeight(topic) {
			continue
		}
		if r.tryTopic(topic, true, fmt.Sprintf("more %s", topic)) {
			return true
		}
	}
	for _, topic := range order {
		if r.neverShown(topic) && r.tryTopic(topic, true, fmt.Sprintf("something new: %s", topic)) {
			return true
		}
	}
	for _, topic := range order {
		if r.inBatch(topic) || !r.lowWeight(topic) {
			continue
		}
		if r.tryTopic(topic, true, fmt.Sprintf("giving %s another look", topic)) {
			return true
		}
	}
	return false
}

func (r *coldStartRun) lowWeight(topic string) bool {
	return r.state.snapshotWeight(r.profile, topic) <= r.cfg.PreferredThreshold
}

// fillRemaining tops the batch up with progressively weaker constraints:
// fresh items under the governor, then previously shown items under the
// governor, then anything not yet in the batch.
func (r *coldStartRun) fillRemaining(limit int, exploration bool) {
	if len(r.picks) >= limit {
		return
	}

	var items []Item
	for _, topic := range r.topics {
		items = append(items, r.byTopic[topic]...)
	}
	r.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

	for pass := 0; pass < 3 && len(r.picks) < limit; pass++ {
		for _, item := range items {
			if len(r.picks) >= limit {
				break
			}
			if !r.free(item) || (pass == 0 && !r.fresh(item)) {
				continue
			}
			if pass < 2 && !r.gov.Allowed(item.Topic) {
				continue
			}
			reason := "rounds out the batch"
			if !r.fresh(item) {
				reason = "shown again: no new questions left"
			}
			r.place(item, exploration, reason)
		}
	}
}

// commit records the batch in the cold start state.
func (r *coldStartRun) commit() {
	for _, pk := range r.picks {
		r.state.QuestionsShown++
		r.state.TopicsShown[pk.item.Topic] = struct{}{}
		r.state.ShownQuestions[pk.item.ID] = struct{}{}
		r.state.pushRecent(pk.item.Topic, r.cfg.RecentTopics)
		if pk.exploration {
			r.state.ExplorationPicks[pk.item.ID] = struct{}{}
		}
	}
}
