// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// steadyProfile returns a profile past cold start that knows every item path.
func steadyProfile(known []Item) *Profile {
	p := NewProfile("u1")
	p.ColdStartComplete = true
	p.TotalQuestionsAnswered = 50
	p.LastRefreshed = testNow.Add(-time.Hour)
	for _, it := range known {
		p.touch(it)
	}
	return p
}

func branchPool(topic string, n int) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, item(fmt.Sprintf("%s-%d", strings.ToLower(topic), i), topic, "main", fmt.Sprintf("b%d", i)))
	}
	return items
}

func TestSelectBatch_SteadyFavorsStrongTopic(t *testing.T) {
	e := newTestEngine(t)

	pool := branchPool("Science", 9)
	for _, topic := range []string{"History", "Geography", "Arts", "Sports"} {
		pool = append(pool, branchPool(topic, 4)...)
	}
	p := steadyProfile(pool)
	p.Topics["Science"].Weight = 0.9

	batch := e.SelectBatch(pool, p, 10)

	if batch.Phase != PhaseSteady {
		t.Errorf("Phase = %v, want %v", batch.Phase, PhaseSteady)
	}
	if len(batch.Items) != 10 {
		t.Fatalf("len(Items) = %d, want 10", len(batch.Items))
	}

	counts := countTopics(batch.Items)
	if counts["Science"] < 6 {
		t.Errorf("Science items = %d, want >= 6 (%v)", counts["Science"], counts)
	}
	topicCap := 6
	for topic, n := range counts {
		if n > topicCap {
			t.Errorf("topic %q has %d items, cap is %d", topic, n, topicCap)
		}
	}

	seen := make(map[string]bool)
	for _, it := range batch.Items {
		if seen[it.ID] {
			t.Errorf("duplicate item %q", it.ID)
		}
		seen[it.ID] = true
		if len(batch.Explanations[it.ID]) < 2 {
			t.Errorf("item %q explanation = %v, want reason plus score terms", it.ID, batch.Explanations[it.ID])
		}
	}
	if len(batch.Explanations) != len(batch.Items) {
		t.Errorf("len(Explanations) = %d, want %d", len(batch.Explanations), len(batch.Items))
	}
}

func TestSelectBatch_SteadySpreadsExploration(t *testing.T) {
	e := newTestEngine(t)

	known := append(branchPool("Alpha", 4), branchPool("Beta", 4)...)
	p := steadyProfile(known)

	pool := append([]Item{}, known...)
	pool = append(pool,
		item("nb", "Alpha", "main", "fresh-branch"),
		item("ns", "Beta", "fresh-subtopic", "x"),
		item("nt", "Gamma", "fresh-topic", "y"),
	)

	batch := e.SelectBatch(pool, p, 10)
	if len(batch.Items) != 10 {
		t.Fatalf("len(Items) = %d, want 10", len(batch.Items))
	}

	want := map[int]string{2: "nb", 5: "ns", 8: "nt"}
	for pos, id := range want {
		if got := batch.Items[pos].ID; got != id {
			t.Errorf("Items[%d] = %q, want %q", pos, got, id)
		}
		if !batch.Exploration[id] {
			t.Errorf("Exploration[%q] = false, want true", id)
		}
	}
	if !strings.HasPrefix(batch.Explanations["nb"][0], "new angle") {
		t.Errorf("nb explanation = %v", batch.Explanations["nb"])
	}
	if !strings.HasPrefix(batch.Explanations["nt"][0], "brand new topic") {
		t.Errorf("nt explanation = %v", batch.Explanations["nt"])
	}

	explored := 0
	for _, it := range batch.Items {
		if batch.Exploration[it.ID] {
			explored++
		}
	}
	if explored != 3 {
		t.Errorf("exploration picks = %d, want 3", explored)
	}
}

func TestSelectBatch_SteadyPoolEdges(t *testing.T) {
	e := newTestEngine(t)
	known := branchPool("Science", 3)

	tests := []struct {
		name string
		pool []Item
		size int
		want int
	}{
		{"empty pool", nil, 10, 0},
		{"short pool", known, 10, 3},
		{"duplicates collapse", append(append([]Item{}, known...), known...), 10, 3},
		{"empty ids dropped", append([]Item{{Topic: "Science"}}, known...), 10, 3},
		{"smaller batch", known, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := e.SelectBatch(tt.pool, steadyProfile(known), tt.size)
			if len(batch.Items) != tt.want {
				t.Errorf("len(Items) = %d, want %d", len(batch.Items), tt.want)
			}
			if batch.Items == nil {
				t.Error("Items is nil")
			}
		})
	}
}

func TestSelectBatch_BatchSizeBounds(t *testing.T) {
	e := newTestEngine(t)
	pool := branchPool("Science", 150)
	for _, topic := range []string{"History", "Arts"} {
		pool = append(pool, branchPool(topic, 150)...)
	}
	p := steadyProfile(pool)

	if got := len(e.SelectBatch(pool, p, 0).Items); got != DefaultConfig().Selection.DefaultBatchSize {
		t.Errorf("default batch = %d items, want %d", got, DefaultConfig().Selection.DefaultBatchSize)
	}
	if got := len(e.SelectBatch(pool, p, 1000).Items); got != DefaultConfig().Selection.MaxBatchSize {
		t.Errorf("oversized batch = %d items, want %d", got, DefaultConfig().Selection.MaxBatchSize)
	}
}

func TestSelectBatch_SteadyHoldsBackRecentItems(t *testing.T) {
	e := newTestEngine(t)
	pool := branchPool("Science", 6)
	for _, topic := range []string{"History", "Arts"} {
		pool = append(pool, branchPool(topic, 6)...)
	}
	p := steadyProfile(pool)

	recent := findItem(t, pool, "science-0")
	p.Interactions[recent.ID] = InteractionRecord{
		QuestionID:  recent.ID,
		WasCorrect:  Bool(true),
		TimeSpentMs: 1000,
		ViewedAt:    testNow.Add(-time.Hour),
	}

	batch := e.SelectBatch(pool, p, 10)
	for _, it := range batch.Items {
		if it.ID == recent.ID {
			t.Errorf("recently viewed item %q selected while alternatives exist", it.ID)
		}
	}

	all := e.SelectBatch(pool, p, len(pool))
	if len(all.Items) != len(pool) {
		t.Errorf("len(Items) = %d, want %d when every item is needed", len(all.Items), len(pool))
	}
}

func TestSelectBatch_SteadyRunsDecay(t *testing.T) {
	e := newTestEngine(t)
	pool := branchPool("Science", 3)
	p := steadyProfile(pool)
	p.LastRefreshed = testNow.Add(-3 * day)
	p.Topics["Science"].Weight = 0.8
	p.Topics["Science"].LastViewed = testNow.Add(-3 * day)

	batch := e.SelectBatch(pool, p, 3)

	if got := batch.Profile.Topics["Science"].Weight; !approxEqual(got, 0.65) {
		t.Errorf("topic weight = %v, want 0.65 after decay", got)
	}
	if !batch.Profile.LastRefreshed.Equal(testNow) {
		t.Errorf("LastRefreshed = %v, want %v", batch.Profile.LastRefreshed, testNow)
	}
	if p.Topics["Science"].Weight != 0.8 {
		t.Error("input profile mutated")
	}
}

func TestInterleave(t *testing.T) {
	picks := func(prefix string, n int) []steadyPick {
		out := make([]steadyPick, n)
		for i := range out {
			out[i].item.ID = fmt.Sprintf("%s%d", prefix, i)
		}
		return out
	}
	ids := func(ps []steadyPick) string {
		parts := make([]string, len(ps))
		for i, p := range ps {
			parts[i] = p.item.ID
		}
		return strings.Join(parts, ",")
	}

	tests := []struct {
		name          string
		main, explore int
		want          string
	}{
		{"no exploration", 3, 0, "m0,m1,m2"},
		{"even spread", 4, 2, "m0,m1,e0,m2,m3,e1"},
		{"exploration heavy", 1, 3, "e0,e1,e2,m0"},
		{"only exploration", 0, 2, "e0,e1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(interleave(picks("m", tt.main), picks("e", tt.explore))); got != tt.want {
				t.Errorf("interleave() = %s, want %s", got, tt.want)
			}
		})
	}
}
