// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package diversity keeps a single topic from dominating a batch.
//
// The Governor is consulted before every cold start pick. It enforces three
// rules, depending on its Mode:
//
//   - always: no topic may fill more than MaxConsecutive slots in a row
//   - ModeBranching: a topic already in the recent window is rejected
//   - ModeNormal: once MinPlacedForShare items are placed, a topic whose share
//     of the batch exceeds twice its fair share (1 / distinct topics) is rejected
//
// The recent window holds the last 2*MaxConsecutive topics. Both the window and
// the per-batch counts are cleared by Reset at the start of every batch.
package diversity

import (
	"fmt"
)

const (
	// DefaultMaxConsecutive is the longest allowed run of one topic.
	DefaultMaxConsecutive = 2

	// MinPlacedForShare is the batch size at which the share rule starts.
	MinPlacedForShare = 4

	// shareFactor is how far above its fair share a topic may go.
	shareFactor = 2.0
)

// Mode selects the rule set applied on top of the run limit.
type Mode int

// Governor modes.
const (
	ModeBasic Mode = iota
	ModeBranching
	ModeNormal
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeBranching:
		return "branching"
	case ModeNormal:
		return "normal"
	default:
		return "basic"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "basic":
		return ModeBasic, nil
	case "branching":
		return ModeBranching, nil
	case "normal":
		return ModeNormal, nil
	default:
		return ModeBasic, fmt.Errorf("unknown diversity mode %q", s)
	}
}

// Governor tracks the topics placed in the current batch.
// The zero value is usable and behaves like New(DefaultMaxConsecutive).
type Governor struct {
	MaxConsecutive int
	Mode           Mode

	// Window holds the most recent topics, oldest first.
	Window []string

	// Counts holds per-topic placements in the current batch.
	Counts map[string]int

	// Placed is the number of items placed in the current batch.
	Placed int
}

// New returns a governor with the given run limit.
func New(maxConsecutive int) *Governor {
	g := &Governor{MaxConsecutive: maxConsecutive}
	g.Reset(ModeBasic)
	return g
}

func (g *Governor) maxRun() int {
	if g.MaxConsecutive < 1 {
		return DefaultMaxConsecutive
	}
	return g.MaxConsecutive
}

// WindowSize is the capacity of the recent window.
func (g *Governor) WindowSize() int {
	return 2 * g.maxRun()
}

// Reset starts a new batch under mode.
func (g *Governor) Reset(mode Mode) {
	g.Mode = mode
	g.Window = make([]string, 0, g.WindowSize())
	g.Counts = make(map[string]int)
	g.Placed = 0
}

// Allowed reports whether topic may take the next slot.
func (g *Governor) Allowed(topic string) bool {
	if g.wouldExtendRun(topic) {
		return false
	}

	switch g.Mode {
	case ModeBranching:
		for _, t := range g.Window {
			if t == topic {
				return false
			}
		}
	case ModeNormal:
		if g.Placed >= MinPlacedForShare && g.overShare(topic) {
			return false
		}
	}

	return true
}

// wouldExtendRun reports whether topic would become the (max+1)-th in a row.
func (g *Governor) wouldExtendRun(topic string) bool {
	run := g.maxRun()
	if len(g.Window) < run {
		return false
	}
	for _, t := range g.Window[len(g.Window)-run:] {
		if t != topic {
			return false
		}
	}
	return true
}

func (g *Governor) overShare(topic string) bool {
	distinct := g.Distinct()
	if distinct == 0 || g.Placed == 0 {
		return false
	}
	share := float64(g.Counts[topic]) / float64(g.Placed)
	return share > shareFactor/float64(distinct)
}

// Record registers topic as placed in the next slot.
func (g *Governor) Record(topic string) {
	if g.Counts == nil {
		g.Counts = make(map[string]int)
	}
	g.Window = append(g.Window, topic)
	if over := len(g.Window) - g.WindowSize(); over > 0 {
		g.Window = append(g.Window[:0], g.Window[over:]...)
	}
	g.Counts[topic]++
	g.Placed++
}

// Distinct returns the number of distinct topics placed in the current batch.
func (g *Governor) Distinct() int {
	return len(g.Counts)
}

// Count returns how many times topic was placed in the current batch.
func (g *Governor) Count(topic string) int {
	return g.Counts[topic]
}

// Clone returns a deep copy.
func (g Governor) Clone() Governor {
	out := g
	out.Window = append(make([]string, 0, len(g.Window)), g.Window...)
	out.Counts = make(map[string]int, len(g.Counts))
	for k, v := range g.Counts {
		out.Counts[k] = v
	}
	return out
}
