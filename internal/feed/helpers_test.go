// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return newConfiguredEngine(t, DefaultConfig(), opts...)
}

func newConfiguredEngine(t *testing.T, cfg *Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	e, err := NewEngine(cfg, zerolog.Nop(), opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func item(id, topic, subtopic, branch string) Item {
	return Item{ID: id, Topic: topic, Subtopic: subtopic, Branch: branch}
}

// topicPool returns perTopic items for every topic, each in its own subtopic.
func topicPool(topics []string, perTopic int) []Item {
	var pool []Item
	for _, topic := range topics {
		for i := 0; i < perTopic; i++ {
			pool = append(pool, item(
				fmt.Sprintf("%s-%d", topic, i),
				topic,
				fmt.Sprintf("%s-sub-%d", topic, i),
				"core",
			))
		}
	}
	return pool
}

func findItem(t *testing.T, pool []Item, id string) Item {
	t.Helper()
	for _, it := range pool {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("item %q not in pool", id)
	return Item{}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertWeightsInRange(t *testing.T, p *Profile) {
	t.Helper()
	check := func(path string, w float64) {
		if math.IsNaN(w) || w < MinWeight || w > MaxWeight {
			t.Errorf("weight of %s = %v, outside [%v, %v]", path, w, MinWeight, MaxWeight)
		}
	}
	for tn, tnode := range p.Topics {
		check(tn, tnode.Weight)
		for sn, snode := range tnode.Subtopics {
			check(tn+"/"+sn, snode.Weight)
			for bn, bnode := range snode.Branches {
				check(tn+"/"+sn+"/"+bn, bnode.Weight)
			}
		}
	}
}

func countTopics(items []Item) map[string]int {
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.Topic]++
	}
	return counts
}
