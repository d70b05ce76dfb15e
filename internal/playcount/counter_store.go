// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playcount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/metrics"
	"github.com/tomtom215/onair/internal/store"
)

// expireChunk bounds how many deletions share one transaction.
const expireChunk = 100

// CounterStore owns the PlayCount lifecycle.
type CounterStore struct {
	db       *store.DB
	now      func() time.Time
	dedupTTL time.Duration
}

// Option configures a CounterStore.
type Option func(*CounterStore)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *CounterStore) { s.now = now }
}

// WithDedupTTL sets how long counted event IDs are remembered.
func WithDedupTTL(ttl time.Duration) Option {
	return func(s *CounterStore) { s.dedupTTL = ttl }
}

// NewCounterStore creates a counter store.
func NewCounterStore(db *store.DB, opts ...Option) *CounterStore {
	s := &CounterStore{
		db:       db,
		now:      time.Now,
		dedupTTL: 48 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateOption tunes a single FindOrCreate or Increment call.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	eventID string
}

// ForEvent makes the update idempotent for eventID: the ID is recorded in
// the same transaction as the count, and a second update for the same ID
// fails with ErrDuplicateEvent instead of counting again.
func ForEvent(eventID string) UpdateOption {
	return func(o *updateOptions) { o.eventID = eventID }
}

func applyUpdateOptions(opts []UpdateOption) updateOptions {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// checkSeen fails with ErrDuplicateEvent if eventID was already counted.
func checkSeen(txn *badger.Txn, eventID string) error {
	if eventID == "" {
		return nil
	}
	seen, err := store.Exists(txn, seenKey(eventID))
	if err != nil {
		return err
	}
	if seen {
		return fmt.Errorf("%w: %s", ErrDuplicateEvent, eventID)
	}
	return nil
}

func (s *CounterStore) markSeen(txn *badger.Txn, eventID string) error {
	if eventID == "" {
		return nil
	}
	e := badger.NewEntry(seenKey(eventID), nil)
	if s.dedupTTL > 0 {
		e = e.WithTTL(s.dedupTTL)
	}
	return txn.SetEntry(e)
}

// FindOrCreate returns the counter for (artistName, albumTitle), creating it
// with PlayCount 1 when absent. created reports whether this call created it;
// the creating call has already been counted and must not Increment.
//
// Lookup and creation share a transaction keyed on the deterministic counter
// key, so concurrent first-seen calls converge: one commits the creation and
// the others retry, find it, and return created == false.
func (s *CounterStore) FindOrCreate(ctx context.Context, artistName, albumTitle, label string, opts ...UpdateOption) (*PlayCount, bool, error) {
	o := applyUpdateOptions(opts)
	key := CounterKey(artistName, albumTitle)

	var (
		pc      PlayCount
		created bool
	)
	err := s.db.Update(ctx, func(txn *badger.Txn) error {
		pc, created = PlayCount{}, false
		if err := checkSeen(txn, o.eventID); err != nil {
			return err
		}

		err := store.GetJSON(txn, counterKey(key), &pc)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		now := s.now().UTC()
		pc = PlayCount{
			Key:        key,
			ArtistName: artistName,
			AlbumTitle: albumTitle,
			Label:      label,
			PlayCount:  1,
			Created:    now,
			Modified:   now,
		}
		if err := store.SetJSON(txn, counterKey(key), &pc); err != nil {
			return err
		}
		created = true
		return s.markSeen(txn, o.eventID)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			metrics.PlayCountIncrements.WithLabelValues("duplicate").Inc()
		}
		return nil, false, err
	}
	if created {
		metrics.PlayCountIncrements.WithLabelValues("created").Inc()
	}
	return &pc, created, nil
}

// Increment atomically adds one to the counter stored under key and bumps
// Modified. Concurrent increments of the same key conflict and are retried
// by the store, so none is lost.
//
// Increment never creates a counter: if key is absent, for example because
// the expiry sweep removed it after FindOrCreate returned, it fails with
// ErrCounterNotFound.
func (s *CounterStore) Increment(ctx context.Context, key string, opts ...UpdateOption) (*PlayCount, error) {
	o := applyUpdateOptions(opts)

	var pc PlayCount
	err := s.db.Update(ctx, func(txn *badger.Txn) error {
		pc = PlayCount{}
		if err := checkSeen(txn, o.eventID); err != nil {
			return err
		}
		if err := store.GetJSON(txn, counterKey(key), &pc); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrCounterNotFound, key)
			}
			return err
		}
		pc.PlayCount++
		pc.Modified = s.now().UTC()
		if err := store.SetJSON(txn, counterKey(key), &pc); err != nil {
			return err
		}
		return s.markSeen(txn, o.eventID)
	})
	switch {
	case err == nil:
		metrics.PlayCountIncrements.WithLabelValues("incremented").Inc()
		return &pc, nil
	case errors.Is(err, ErrDuplicateEvent):
		metrics.PlayCountIncrements.WithLabelValues("duplicate").Inc()
	case errors.Is(err, ErrCounterNotFound):
		metrics.PlayCountIncrements.WithLabelValues("missing").Inc()
	}
	return nil, err
}

// Get returns the counter stored under key.
func (s *CounterStore) Get(ctx context.Context, key string) (*PlayCount, error) {
	var pc PlayCount
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		return store.GetJSON(txn, counterKey(key), &pc)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCounterNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// ExpireOlderThan deletes up to limit counters whose Modified is before
// now-maxAge and returns how many were deleted.
//
// Candidates are collected from a read snapshot and each is re-read inside
// the deleting transaction, so a counter incremented after the scan survives.
// If the increment commits while the delete is in flight, the store detects
// the conflict and the retried delete sees the fresh Modified.
func (s *CounterStore) ExpireOlderThan(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-maxAge)

	var candidates []string
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		return store.ScanPrefix(ctx, txn, []byte(prefixCounter), func(_, val []byte) error {
			var pc PlayCount
			if err := json.Unmarshal(val, &pc); err != nil {
				return err
			}
			if pc.Modified.Before(cutoff) {
				candidates = append(candidates, pc.Key)
				if len(candidates) == limit {
					return store.ErrStopScan
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("scan expired play counts: %w", err)
	}

	deleted := 0
	for start := 0; start < len(candidates); start += expireChunk {
		chunk := candidates[start:min(start+expireChunk, len(candidates))]
		n := 0
		err := s.db.Update(ctx, func(txn *badger.Txn) error {
			n = 0
			for _, key := range chunk {
				var pc PlayCount
				err := store.GetJSON(txn, counterKey(key), &pc)
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if !pc.Modified.Before(cutoff) {
					continue
				}
				if err := txn.Delete(counterKey(key)); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("delete expired play counts: %w", err)
		}
		deleted += n
	}

	metrics.PlayCountExpired.Add(float64(deleted))
	logging.Info().
		Int("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("Deleted old play count entries")
	return deleted, nil
}

// TopN returns at most n counters ordered by PlayCount descending. Ties keep
// the store's key order.
func (s *CounterStore) TopN(ctx context.Context, n int) ([]PlayCount, error) {
	if n <= 0 {
		return []PlayCount{}, nil
	}
	top := newTopN(n)
	err := s.db.View(ctx, func(txn *badger.Txn) error {
		return store.ScanPrefix(ctx, txn, []byte(prefixCounter), func(_, val []byte) error {
			var pc PlayCount
			if err := json.Unmarshal(val, &pc); err != nil {
				return err
			}
			top.Offer(pc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("top play counts: %w", err)
	}
	return top.Sorted(), nil
}
