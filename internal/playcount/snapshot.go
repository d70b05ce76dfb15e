// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playcount

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/metrics"
	"github.com/tomtom215/onair/internal/store"
)

var (
	// ErrBatchNotFound is returned when a snapshot batch ID does not exist.
	ErrBatchNotFound = errors.New("snapshot batch not found")

	// ErrSnapshotTooLarge is returned when a snapshot would hold more ranks
	// than its entry keys can order.
	ErrSnapshotTooLarge = errors.New("snapshot size exceeds rank key width")
)

// MaxSnapshotEntries is the largest rank snapshotKey encodes in order.
const MaxSnapshotEntries = 9999

// snapshotWriters bounds concurrent snapshot writes.
const snapshotWriters = 8

// SnapshotEngine records point-in-time leaderboards. It only ever creates
// snapshots; retention of old batches is handled elsewhere.
type SnapshotEngine struct {
	db       *store.DB
	counters *CounterStore
	now      func() time.Time
}

// NewSnapshotEngine creates a snapshot engine reading from counters.
func NewSnapshotEngine(db *store.DB, counters *CounterStore) *SnapshotEngine {
	return &SnapshotEngine{db: db, counters: counters, now: counters.now}
}

func snapshotKey(batch string, rank int) []byte {
	return []byte(fmt.Sprintf("%s%s:%04d", prefixSnapshot, batch, rank))
}

// TakeSnapshot copies the current top n counters into a new batch. Each
// entry is written asynchronously in its own transaction; TakeSnapshot
// returns only after every write has committed and reports the first
// failure. Batch IDs are UUIDv7 so batches list in the order they were taken.
func (e *SnapshotEngine) TakeSnapshot(ctx context.Context, n int) (*Batch, error) {
	if n > MaxSnapshotEntries {
		return nil, fmt.Errorf("%w: %d > %d", ErrSnapshotTooLarge, n, MaxSnapshotEntries)
	}
	ranked, err := e.counters.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	batchID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("snapshot batch id: %w", err)
	}
	batch := &Batch{
		ID:      batchID.String(),
		Taken:   e.now().UTC(),
		Entries: make([]Snapshot, len(ranked)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotWriters)
	for i, pc := range ranked {
		snap := Snapshot{
			BatchID:     batch.ID,
			Rank:        i + 1,
			CounterKey:  pc.Key,
			ArtistName:  pc.ArtistName,
			AlbumTitle:  pc.AlbumTitle,
			Label:       pc.Label,
			PlayCount:   pc.PlayCount,
			Established: batch.Taken,
		}
		batch.Entries[i] = snap
		g.Go(func() error {
			return e.db.Update(gctx, func(txn *badger.Txn) error {
				return store.SetJSON(txn, snapshotKey(snap.BatchID, snap.Rank), &snap)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("write play count snapshot: %w", err)
	}

	metrics.SnapshotEntries.Add(float64(len(batch.Entries)))
	logging.Info().
		Str("batch_id", batch.ID).
		Int("entries", len(batch.Entries)).
		Msg("Created play count snapshot")
	return batch, nil
}

// GetBatch returns the entries of one snapshot batch in rank order.
func (e *SnapshotEngine) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	batch := &Batch{ID: batchID, Entries: []Snapshot{}}
	err := e.db.View(ctx, func(txn *badger.Txn) error {
		return store.ScanPrefix(ctx, txn, snapshotPrefix(batchID), func(_, val []byte) error {
			var snap Snapshot
			if err := json.Unmarshal(val, &snap); err != nil {
				return err
			}
			batch.Entries = append(batch.Entries, snap)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read snapshot batch: %w", err)
	}
	if len(batch.Entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	batch.Taken = batch.Entries[0].Established
	return batch, nil
}

// BatchSummary describes one snapshot batch without its entries.
type BatchSummary struct {
	ID      string    `json:"id"`
	Taken   time.Time `json:"taken"`
	Entries int       `json:"entries"`
}

// ListBatches returns every snapshot batch, newest first.
func (e *SnapshotEngine) ListBatches(ctx context.Context) ([]BatchSummary, error) {
	var summaries []BatchSummary
	err := e.db.View(ctx, func(txn *badger.Txn) error {
		return store.ScanPrefix(ctx, txn, []byte(prefixSnapshot), func(key, val []byte) error {
			rest := strings.TrimPrefix(string(key), prefixSnapshot)
			batchID, _, ok := strings.Cut(rest, ":")
			if !ok {
				return nil
			}
			if n := len(summaries); n > 0 && summaries[n-1].ID == batchID {
				summaries[n-1].Entries++
				return nil
			}
			var snap Snapshot
			if err := json.Unmarshal(val, &snap); err != nil {
				return err
			}
			summaries = append(summaries, BatchSummary{ID: batchID, Taken: snap.Established, Entries: 1})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list snapshot batches: %w", err)
	}

	out := make([]BatchSummary, len(summaries))
	for i, s := range summaries {
		out[len(summaries)-1-i] = s
	}
	return out, nil
}
