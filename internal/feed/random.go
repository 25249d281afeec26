// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"math/rand"
	"sync"
)

// RandomSource is the only source of randomness used by the engine.
// Inject a seeded source to make selections reproducible.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// lockedSource makes a *rand.Rand safe for concurrent use.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomSource returns a goroutine-safe source seeded with seed.
func NewRandomSource(seed int64) RandomSource {
	return &lockedSource{
		r: rand.New(rand.NewSource(seed)), //nolint:gosec // G404: selection does not need crypto randomness
	}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(n, swap)
}

// weightedIndex draws an index with probability proportional to weights.
// Non-positive weights are never drawn. Returns -1 if nothing can be drawn.
func weightedIndex(rng RandomSource, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	target := rng.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if target < w {
			return i
		}
		target -= w
	}
	return last
}

// shuffledStrings returns a shuffled copy of in.
func shuffledStrings(rng RandomSource, in []string) []string {
	out := append([]string(nil), in...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
