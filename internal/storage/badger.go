// Triviafeed - Personalized Trivia Feed Selection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/triviafeed

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/triviafeed/internal/feed"
)

const profileKeyPrefix = "profile:"

// BadgerStore stores profiles in BadgerDB under "profile:<user id>".
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore wraps an open database. Close closes db.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "profile_store").Str("backend", BackendBadger).Logger(),
	}
}

func profileKey(userID string) []byte {
	return []byte(profileKeyPrefix + userID)
}

// Get implements ProfileStore.
func (s *BadgerStore) Get(_ context.Context, userID string) (p *feed.Profile, err error) {
	defer func(start time.Time) { observe("get", start, err) }(time.Now())

	var data []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return decode(s.logger, userID, data)
}

// Save implements ProfileStore.
func (s *BadgerStore) Save(_ context.Context, p *feed.Profile) (err error) {
	defer func(start time.Time) { observe("save", start, err) }(time.Now())

	if p == nil || p.UserID == "" {
		return errors.New("save profile: missing user id")
	}
	data, err := feed.MarshalProfile(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(profileKey(p.UserID), data); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
		return nil
	})
}

// Delete implements ProfileStore.
func (s *BadgerStore) Delete(_ context.Context, userID string) (err error) {
	defer func(start time.Time) { observe("delete", start, err) }(time.Now())

	return s.db.Update(func(txn *badger.Txn) error {
		key := profileKey(userID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrProfileNotFound
		} else if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}

// ForEach implements ProfileStore. fn runs outside the read transaction, so it
// may write to the store.
func (s *BadgerStore) ForEach(ctx context.Context, fn func(userID string, p *feed.Profile) error) error {
	type entry struct {
		userID string
		data   []byte
	}

	// Collect in pages so a long sweep does not pin one read transaction.
	const pageSize = 256
	var seek []byte
	prefix := []byte(profileKeyPrefix)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page := make([]entry, 0, pageSize)
		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()

			start := prefix
			if seek != nil {
				start = seek
			}
			for it.Seek(start); it.ValidForPrefix(prefix) && len(page) < pageSize; it.Next() {
				item := it.Item()
				key := item.KeyCopy(nil)
				if seek != nil && string(key) == string(seek) {
					continue
				}
				data, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				page = append(page, entry{userID: string(key[len(prefix):]), data: data})
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("iterate profiles: %w", err)
		}

		for _, e := range page {
			p, err := decode(s.logger, e.userID, e.data)
			if err != nil {
				s.logger.Error().Err(err).Str("user_id", e.userID).Msg("skipping undecodable profile")
				continue
			}
			if err := fn(e.userID, p); err != nil {
				return err
			}
		}

		if len(page) < pageSize {
			return nil
		}
		seek = profileKey(page[len(page)-1].userID)
	}
}

// Count implements ProfileStore.
func (s *BadgerStore) Count(_ context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(profileKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
