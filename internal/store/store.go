// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package store wraps BadgerDB as the transactional key/value store shared by
// the catalog, playlists and the play count engine.
//
// Badger transactions are serializable snapshot isolation: a read-modify-write
// that races another writer fails its commit with badger.ErrConflict. Update
// retries such transactions from scratch, so callers write their closure as if
// it ran alone and never lose a concurrent update.
package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/metrics"
)

var (
	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrTooManyConflicts is returned when Update exhausts its conflict retries.
	ErrTooManyConflicts = errors.New("transaction conflict retries exhausted")
)

// maxConflictBackoff caps the sleep between conflict retries.
const maxConflictBackoff = 25 * time.Millisecond

// Config configures the store.
type Config struct {
	Path               string
	InMemory           bool
	SyncWrites         bool
	MaxConflictRetries int
	ConflictTimeout    time.Duration
	GCRatio            float64
	CloseTimeout       time.Duration
}

// DefaultConfig returns an on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:               path,
		MaxConflictRetries: 10,
		ConflictTimeout:    10 * time.Second,
		GCRatio:            0.5,
		CloseTimeout:       30 * time.Second,
	}
}

// DB is a BadgerDB handle with conflict-retrying transactions.
type DB struct {
	db  *badger.DB
	cfg Config

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store.
func Open(cfg Config) (*DB, error) {
	if cfg.MaxConflictRetries < 1 {
		cfg.MaxConflictRetries = 10
	}
	if cfg.ConflictTimeout <= 0 {
		cfg.ConflictTimeout = 10 * time.Second
	}
	if cfg.GCRatio == 0 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("Store opened")
	return &DB{db: db, cfg: cfg}, nil
}

// OpenInMemory opens a throwaway in-memory store. Used by tests.
func OpenInMemory() (*DB, error) {
	cfg := DefaultConfig("")
	cfg.InMemory = true
	return Open(cfg)
}

// Update runs fn in a read-write transaction. A commit that fails with
// badger.ErrConflict is retried with a fresh transaction. Update gives up only
// once it has made at least MaxConflictRetries attempts and ConflictTimeout
// has elapsed, so a hot key under heavy contention still converges. fn must be
// free of side effects outside the transaction.
func (d *DB) Update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	start := time.Now()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		metrics.StoreTxnConflicts.Inc()

		if attempt >= d.cfg.MaxConflictRetries && time.Since(start) >= d.cfg.ConflictTimeout {
			return fmt.Errorf("%w after %d attempts in %s", ErrTooManyConflicts, attempt, time.Since(start).Round(time.Millisecond))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(conflictBackoff(attempt)):
		}
	}
}

// conflictBackoff is full-jitter exponential backoff from 100us, capped at
// maxConflictBackoff.
func conflictBackoff(attempt int) time.Duration {
	ceiling := min(100*time.Microsecond<<min(attempt, 10), maxConflictBackoff)
	return 100*time.Microsecond + rand.N(ceiling)
}

// View runs fn in a read-only transaction.
func (d *DB) View(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(fn)
}

// Badger exposes the underlying database.
func (d *DB) Badger() *badger.DB {
	return d.db
}

func (d *DB) checkOpen() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// RunGC reclaims value log space until badger reports nothing to rewrite.
func (d *DB) RunGC() error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if d.cfg.InMemory {
		return nil
	}
	for {
		err := d.db.RunValueLogGC(d.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close closes the database, giving up after CloseTimeout.
func (d *DB) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- d.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("Store closed")
		return nil
	case <-time.After(d.cfg.CloseTimeout):
		logging.Warn().Dur("timeout", d.cfg.CloseTimeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", d.cfg.CloseTimeout)
	}
}
