// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package feed

import (
	"math"
	"time"
)

// Decay returns a copy of the profile with untouched weights drifted toward
// MinWeight. It is a no-op (returning p itself) when less than a day has
// passed since the previous run.
func (e *Engine) Decay(p *Profile, now time.Time) *Profile {
	if !DecayDue(&e.config.Decay, p, now) {
		return p
	}
	next := p.Clone()
	changed := decayInPlace(&e.config.Decay, next, now)

	e.logger.Debug().
		Str("user_id", next.UserID).
		Int("nodes_decayed", changed).
		Msg("profile decayed")

	return next
}

// DecayDue reports whether a decay run at now would do anything.
func DecayDue(cfg *DecayConfig, p *Profile, now time.Time) bool {
	return p.LastRefreshed.IsZero() || now.Sub(p.LastRefreshed) >= cfg.MinInterval
}

// decayInPlace applies one decay run to p and returns how many nodes moved.
// Idle time is measured from the later of the node's last view and the
// previous run, so consecutive runs never count the same day twice.
func decayInPlace(cfg *DecayConfig, p *Profile, now time.Time) int {
	if !DecayDue(cfg, p, now) {
		return 0
	}

	changed := 0
	decayNode := func(w *float64, lastViewed time.Time) {
		if now.Sub(lastViewed) <= cfg.MinInterval {
			return
		}
		from := lastViewed
		if p.LastRefreshed.After(from) {
			from = p.LastRefreshed
		}
		days := now.Sub(from).Hours() / 24
		if days <= 0 {
			return
		}
		next := math.Min(*w, clampWeight(*w-days*cfg.RatePerDay))
		if next != *w {
			*w = next
			changed++
		}
	}

	for _, t := range p.Topics {
		decayNode(&t.Weight, t.LastViewed)
		for _, s := range t.Subtopics {
			decayNode(&s.Weight, s.LastViewed)
			for _, b := range s.Branches {
				decayNode(&b.Weight, b.LastViewed)
			}
		}
	}

	p.LastRefreshed = now
	return changed
}
