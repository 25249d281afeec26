// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// candidate is a scored pool item.
type candidate struct {
	item        Item
	score       ScoreResult
	depth       Depth
	topicWeight float64
}

// steadyPick is a candidate placed in a steady-state batch.
type steadyPick struct {
	candidate
	reason      string
	exploration bool
}

// steadySelection accumulates a steady-state batch.
type steadySelection struct {
	size        int
	topicCap    int
	taken       map[string]struct{}
	topicCounts map[string]int
	main        []steadyPick
	explore     []steadyPick
}

func (s *steadySelection) len() int {
	return len(s.main) + len(s.explore)
}

func (s *steadySelection) full() bool {
	return s.len() >= s.size
}

func (s *steadySelection) canTake(c candidate, capped bool) bool {
	if _, ok := s.taken[c.item.ID]; ok {
		return false
	}
	return !capped || s.topicCounts[c.item.Topic] < s.topicCap
}

func (s *steadySelection) take(c candidate, reason string, exploration bool) {
	s.taken[c.item.ID] = struct{}{}
	s.topicCounts[c.item.Topic]++
	p := steadyPick{candidate: c, reason: reason, exploration: exploration}
	if exploration {
		s.explore = append(s.explore, p)
	} else {
		s.main = append(s.main, p)
	}
}

// steadyBatch scores the pool and fills the batch from depth buckets.
func (e *Engine) steadyBatch(pool []Item, next *Profile, batchSize int, now time.Time) *Batch {
	cfg := &e.config.Selection
	fingerprint := profileFingerprint(next)

	var (
		buckets [DepthKnown + 1][]candidate
		held    []candidate
	)
	seen := make(map[string]struct{}, len(pool))
	for _, item := range pool {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		_, _, _, depth := next.pathWeights(item)
		c := candidate{
			item:        item,
			score:       e.scoreCached(item, next, now, fingerprint),
			depth:       depth,
			topicWeight: next.TopicWeight(item.Topic),
		}

		if rec, ok := next.Interactions[item.ID]; ok && cfg.RepeatCooldown > 0 && now.Sub(rec.ViewedAt) < cfg.RepeatCooldown {
			held = append(held, c)
			continue
		}
		buckets[depth] = append(buckets[depth], c)
	}
	for i := range buckets {
		sortCandidates(buckets[i])
	}

	knownSlots := int(math.Round(float64(batchSize) * cfg.KnownShare))
	exploreSlots := batchSize - knownSlots
	topicCap := int(math.Ceil(float64(batchSize)*cfg.TopicCapShare - 1e-9))
	if topicCap < 1 {
		topicCap = 1
	}

	sel := &steadySelection{
		size:        batchSize,
		topicCap:    topicCap,
		taken:       make(map[string]struct{}),
		topicCounts: make(map[string]int),
	}

	// Known territory: liked topics first, then the rest, then without the cap.
	known := buckets[DepthKnown]
	fillKnown := func(match func(candidate) bool, capped bool) {
		for _, c := range known {
			if len(sel.main) >= knownSlots || sel.full() {
				return
			}
			if !match(c) || !sel.canTake(c, capped) {
				continue
			}
			sel.take(c, knownReason(c, cfg.PreferredThreshold), false)
		}
	}
	liked := func(c candidate) bool { return c.topicWeight > cfg.PreferredThreshold }
	everything := func(candidate) bool { return true }
	fillKnown(liked, true)
	fillKnown(everything, true)
	fillKnown(everything, false)

	// Frontier: one slot per topic, nearest unknowns first.
	exploredTopics := make(map[string]struct{})
	for _, depth := range []Depth{DepthNewBranch, DepthNewSubtopic, DepthNewTopic} {
		for _, c := range buckets[depth] {
			if len(sel.explore) >= exploreSlots || sel.full() {
				break
			}
			if _, ok := exploredTopics[c.item.Topic]; ok {
				continue
			}
			if !sel.canTake(c, true) {
				continue
			}
			exploredTopics[c.item.Topic] = struct{}{}
			sel.take(c, frontierReason(c), true)
		}
	}

	// Top up from whatever is left, best score first. Recently viewed
	// questions only come back when nothing else can fill the batch.
	if !sel.full() {
		var leftovers []candidate
		for _, b := range buckets {
			leftovers = append(leftovers, b...)
		}
		sortCandidates(leftovers)
		sortCandidates(held)

		for _, group := range [][]candidate{leftovers, held} {
			for _, capped := range []bool{true, false} {
				for _, c := range group {
					if sel.full() {
						break
					}
					if !sel.canTake(c, capped) {
						continue
					}
					reason := "rounds out the batch"
					if c.depth != DepthKnown {
						reason = frontierReason(c)
					}
					sel.take(c, reason, c.depth != DepthKnown)
				}
			}
		}
	}

	picks := interleave(sel.main, sel.explore)
	batch := &Batch{
		Items:        make([]Item, 0, len(picks)),
		Explanations: make(map[string][]string, len(picks)),
		Exploration:  make(map[string]bool, len(picks)),
		Phase:        PhaseSteady,
		Profile:      next,
	}
	for _, p := range picks {
		if _, dup := batch.Explanations[p.item.ID]; dup {
			continue
		}
		batch.Items = append(batch.Items, p.item)
		explanation := make([]string, 0, len(p.score.Explanation)+2)
		explanation = append(explanation, p.reason)
		explanation = append(explanation, p.score.Explanation...)
		explanation = append(explanation, fmt.Sprintf("score %.3f", p.score.Score))
		batch.Explanations[p.item.ID] = explanation
		batch.Exploration[p.item.ID] = p.exploration
	}

	return batch
}

// sortCandidates orders by score descending, then id for determinism.
func sortCandidates(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].score.Score != cs[j].score.Score {
			return cs[i].score.Score > cs[j].score.Score
		}
		return cs[i].item.ID < cs[j].item.ID
	})
}

func knownReason(c candidate, threshold float64) string {
	if c.topicWeight > threshold {
		return fmt.Sprintf("strong interest in %s", c.item.Topic)
	}
	return fmt.Sprintf("familiar ground: %s", c.item.Topic)
}

func frontierReason(c candidate) string {
	switch c.depth {
	case DepthNewBranch:
		return fmt.Sprintf("new angle on %s: %s", c.item.Subtopic, c.item.Branch)
	case DepthNewSubtopic:
		return fmt.Sprintf("new corner of %s: %s", c.item.Topic, c.item.Subtopic)
	default:
		return fmt.Sprintf("brand new topic: %s", c.item.Topic)
	}
}

// interleave spreads the exploration picks evenly through the batch.
func interleave(main, explore []steadyPick) []steadyPick {
	if len(explore) == 0 {
		return main
	}

	total := len(main) + len(explore)
	step := total / len(explore)
	out := make([]steadyPick, 0, total)
	mi, ei := 0, 0
	for i := 0; i < total; i++ {
		if (ei < len(explore) && (i+1)%step == 0) || mi >= len(main) {
			out = append(out, explore[ei])
			ei++
		} else {
			out = append(out, main[mi])
			mi++
		}
	}
	return out
}
