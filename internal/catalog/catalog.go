// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

// Package catalog holds the candidate pool of trivia items.
//
// A Catalog loads items from a Source (a JSON file or an HTTP endpoint),
// validates them, and publishes an immutable snapshot. Readers never block on
// a refresh; a failed refresh keeps the previous snapshot.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/feed"
	"github.com/tomtom215/triviafeed/internal/metrics"
	"github.com/tomtom215/triviafeed/internal/validation"
)

// ErrItemNotFound is returned by Get for an unknown item id.
var ErrItemNotFound = errors.New("catalog: item not found")

// snapshot is immutable once published.
type snapshot struct {
	items       []feed.Item
	byID        map[string]int
	refreshedAt time.Time
}

// RefreshResult summarizes one refresh.
type RefreshResult struct {
	Loaded   int `json:"loaded"`
	Rejected int `json:"rejected"`
}

// Catalog is safe for concurrent use.
type Catalog struct {
	source  Source
	logger  zerolog.Logger
	current atomic.Pointer[snapshot]
	now     func() time.Time
}

// New creates an empty catalog backed by source. Call Refresh to load it.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(source Source, logger zerolog.Logger) *Catalog {
	c := &Catalog{
		source: source,
		logger: logger.With().Str("component", "catalog").Logger(),
		now:    time.Now,
	}
	c.current.Store(&snapshot{byID: map[string]int{}})
	return c
}

// Refresh reloads the catalog from its source. On error the previous
// snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) (RefreshResult, error) {
	raw, err := c.source.Load(ctx)
	if err != nil {
		metrics.RecordCatalogRefresh(0, 0, err)
		return RefreshResult{}, fmt.Errorf("refresh catalog: %w", err)
	}

	snap, rejected := c.build(raw)
	c.current.Store(snap)

	result := RefreshResult{Loaded: len(snap.items), Rejected: rejected}
	metrics.RecordCatalogRefresh(result.Loaded, result.Rejected, nil)

	c.logger.Info().
		Int("loaded", result.Loaded).
		Int("rejected", result.Rejected).
		Msg("catalog refreshed")
	return result, nil
}

// build validates raw items, drops invalid ones and later duplicates.
func (c *Catalog) build(raw []feed.Item) (*snapshot, int) {
	snap := &snapshot{
		items:       make([]feed.Item, 0, len(raw)),
		byID:        make(map[string]int, len(raw)),
		refreshedAt: c.now(),
	}
	rejected := 0

	for i := range raw {
		item := raw[i]
		if verr := validation.ValidateStruct(&item); verr != nil {
			rejected++
			c.logger.Debug().Int("index", i).Str("item_id", item.ID).Str("reason", verr.Error()).
				Msg("rejected invalid catalog item")
			continue
		}
		if _, dup := snap.byID[item.ID]; dup {
			rejected++
			c.logger.Debug().Str("item_id", item.ID).Msg("rejected duplicate catalog item")
			continue
		}
		item.Tags = append([]string(nil), item.Tags...)
		snap.byID[item.ID] = len(snap.items)
		snap.items = append(snap.items, item)
	}

	if rejected > 0 {
		c.logger.Warn().Int("rejected", rejected).Msg("catalog contained invalid or duplicate items")
	}
	return snap, rejected
}

// Items returns the current snapshot. The slice is shared and must not be modified.
func (c *Catalog) Items() []feed.Item {
	return c.current.Load().items
}

// Get returns the item with the given id.
func (c *Catalog) Get(id string) (feed.Item, error) {
	snap := c.current.Load()
	idx, ok := snap.byID[id]
	if !ok {
		return feed.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return snap.items[idx], nil
}

// Len returns the number of items in the current snapshot.
func (c *Catalog) Len() int {
	return len(c.current.Load().items)
}

// RefreshedAt returns when the current snapshot was built; zero before the
// first successful refresh.
func (c *Catalog) RefreshedAt() time.Time {
	return c.current.Load().refreshedAt
}
