// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strconv"
	"time"
)

// Score rates how well item fits the profile at now and explains why.
// The result depends only on the profile snapshot and the calendar day of now.
func (e *Engine) Score(item Item, p *Profile, now time.Time) (float64, []string) {
	res := e.scoreCached(item, p, now, "")
	return res.Score, res.Explanation
}

// scoreCached consults the score cache when one is configured.
// An empty fingerprint is computed on demand.
func (e *Engine) scoreCached(item Item, p *Profile, now time.Time, fingerprint string) ScoreResult {
	if e.scores == nil {
		return scoreItem(&e.config.Scoring, item, p, now)
	}
	if fingerprint == "" {
		fingerprint = profileFingerprint(p)
	}

	key := scoreKey(item.ID, fingerprint, now)
	if cached, ok := e.scores.Get(key); ok {
		return ScoreResult{
			Score:       cached.Score,
			Explanation: append([]string(nil), cached.Explanation...),
		}
	}

	res := scoreItem(&e.config.Scoring, item, p, now)
	e.scores.Add(key, ScoreResult{
		Score:       res.Score,
		Explanation: append([]string(nil), res.Explanation...),
	})
	return res
}

func scoreKey(questionID, fingerprint string, now time.Time) string {
	return questionID + "|" + fingerprint + "|" + now.UTC().Format(time.DateOnly)
}

func scoreItem(cfg *ScoringConfig, item Item, p *Profile, now time.Time) ScoreResult {
	tw, sw, bw, _ := p.pathWeights(item)
	affinity := (tw + sw + bw) / 3

	score := cfg.AffinityWeight * affinity
	explanation := []string{
		fmt.Sprintf("interest %.2f (topic %.2f, subtopic %.2f, branch %.2f): %+.3f",
			affinity, tw, sw, bw, cfg.AffinityWeight*affinity),
	}

	rec, seen := p.Interactions[item.ID]
	if !seen {
		score += cfg.NoveltyBonus
		explanation = append(explanation, fmt.Sprintf("never seen: %+.2f", cfg.NoveltyBonus))
		return ScoreResult{Score: score, Explanation: explanation}
	}

	if rec.HasOutcome() {
		if *rec.WasCorrect {
			score += cfg.AccuracyBonus
			explanation = append(explanation, fmt.Sprintf("answered correctly before: %+.2f", cfg.AccuracyBonus))
		} else {
			score -= cfg.AccuracyBonus
			explanation = append(explanation, fmt.Sprintf("answered incorrectly before: %+.2f", -cfg.AccuracyBonus))
		}
	}

	if !rec.WasSkipped && rec.TimeSpentMs > 0 {
		switch {
		case rec.TimeSpentMs < cfg.FastAnswerMs:
			score += cfg.FastAnswerBonus
			explanation = append(explanation, fmt.Sprintf("quick answer (%dms): %+.2f", rec.TimeSpentMs, cfg.FastAnswerBonus))
		case rec.TimeSpentMs > cfg.SlowAnswerMs:
			score -= cfg.SlowAnswerPenalty
			explanation = append(explanation, fmt.Sprintf("slow answer (%dms): %+.2f", rec.TimeSpentMs, -cfg.SlowAnswerPenalty))
		}
	}

	if rec.WasSkipped {
		score -= cfg.SkipPenalty
		explanation = append(explanation, fmt.Sprintf("skipped before: %+.2f", -cfg.SkipPenalty))
	}

	if days := calendarDays(rec.ViewedAt, now); days > 0 {
		bonus := math.Min(cfg.CooldownMax, float64(days)*cfg.CooldownPerDay)
		score += bonus
		explanation = append(explanation, fmt.Sprintf("not seen for %d days: %+.2f", days, bonus))
	}

	return ScoreResult{Score: score, Explanation: explanation}
}

// calendarDays counts UTC day boundaries between from and to.
func calendarDays(from, to time.Time) int {
	if from.IsZero() {
		return 0
	}
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	if !t.After(f) {
		return 0
	}
	return int(t.Sub(f).Hours() / 24)
}

// profileFingerprint hashes every profile field the scorer reads.
func profileFingerprint(p *Profile) string {
	h := fnv.New64a()
	w := func(parts ...string) {
		for _, part := range parts {
			_, _ = h.Write([]byte(part))
			_, _ = h.Write([]byte{0})
		}
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	for _, tn := range p.TopicNames() {
		t := p.Topics[tn]
		w("t", tn, f(t.Weight))
		for _, sn := range sortedKeys(t.Subtopics) {
			s := t.Subtopics[sn]
			w("s", sn, f(s.Weight))
			for _, bn := range sortedKeys(s.Branches) {
				w("b", bn, f(s.Branches[bn].Weight))
			}
		}
	}

	ids := sortedKeys(p.Interactions)
	for _, id := range ids {
		rec := p.Interactions[id]
		outcome := "-"
		if rec.WasCorrect != nil {
			outcome = strconv.FormatBool(*rec.WasCorrect)
		}
		w("i", id, outcome, strconv.FormatBool(rec.WasSkipped),
			strconv.FormatInt(rec.TimeSpentMs, 10), rec.ViewedAt.UTC().Format(time.DateOnly))
	}

	return strconv.FormatUint(h.Sum64(), 16)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
