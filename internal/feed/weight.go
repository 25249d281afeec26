// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"fmt"
	"math"
)

// Weight bounds for every node of the preference tree.
const (
	MinWeight     = 0.1
	MaxWeight     = 1.0
	DefaultWeight = 0.5
)

// weightPrecision keeps repeated deltas from accumulating float noise.
const weightPrecision = 1e6

// clampWeight brings an arithmetic result back into [MinWeight, MaxWeight].
func clampWeight(w float64) float64 {
	if math.IsNaN(w) {
		return DefaultWeight
	}
	w = math.Round(w*weightPrecision) / weightPrecision
	return math.Max(MinWeight, math.Min(MaxWeight, w))
}

// adjustWeight applies delta to w and clamps the result.
func adjustWeight(w, delta float64) float64 {
	return clampWeight(w + delta)
}

// checkedWeight validates a weight that should already be in range, such as
// one read back from storage. Debug builds panic on a violation; release
// builds clamp. The second return value reports whether w was changed.
func checkedWeight(w float64) (float64, bool) {
	if !math.IsNaN(w) && w >= MinWeight && w <= MaxWeight {
		return w, false
	}
	if debugAssertions {
		panic(fmt.Sprintf("feed: weight %v outside [%v, %v]", w, MinWeight, MaxWeight))
	}
	return clampWeight(w), true
}
