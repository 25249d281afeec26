// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/feed"
)

// MemoryStore keeps serialized profiles in a map. Data is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string][]byte
	logger   zerolog.Logger
}

// NewMemoryStore creates an empty in-memory store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string][]byte),
		logger:   logger.With().Str("component", "profile_store").Str("backend", BackendMemory).Logger(),
	}
}

// Get implements ProfileStore.
func (s *MemoryStore) Get(_ context.Context, userID string) (p *feed.Profile, err error) {
	defer func(start time.Time) { observe("get", start, err) }(time.Now())

	s.mu.RLock()
	data, ok := s.profiles[userID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrProfileNotFound
	}
	return decode(s.logger, userID, data)
}

// Save implements ProfileStore.
func (s *MemoryStore) Save(_ context.Context, p *feed.Profile) (err error) {
	defer func(start time.Time) { observe("save", start, err) }(time.Now())

	if p == nil || p.UserID == "" {
		return errors.New("save profile: missing user id")
	}
	data, err := feed.MarshalProfile(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	s.mu.Lock()
	s.profiles[p.UserID] = data
	s.mu.Unlock()
	return nil
}

// Delete implements ProfileStore.
func (s *MemoryStore) Delete(_ context.Context, userID string) (err error) {
	defer func(start time.Time) { observe("delete", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[userID]; !ok {
		return ErrProfileNotFound
	}
	delete(s.profiles, userID)
	return nil
}

// ForEach implements ProfileStore. It iterates over a snapshot taken at the
// start of the call, so fn may write to the store.
func (s *MemoryStore) ForEach(ctx context.Context, fn func(userID string, p *feed.Profile) error) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.profiles))
	snapshot := make(map[string][]byte, len(s.profiles))
	for id, data := range s.profiles {
		ids = append(ids, id)
		snapshot[id] = data
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := decode(s.logger, id, snapshot[id])
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", id).Msg("skipping undecodable profile")
			continue
		}
		if err := fn(id, p); err != nil {
			return err
		}
	}
	return nil
}

// Count implements ProfileStore.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles), nil
}

// Close implements ProfileStore.
func (s *MemoryStore) Close() error {
	return nil
}

