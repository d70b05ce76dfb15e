// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/onair/internal/logging"
)

// GarbageCollector matches *store.DB.
type GarbageCollector interface {
	RunGC() error
}

// StoreGCService runs badger value log GC on a fixed interval.
type StoreGCService struct {
	db       GarbageCollector
	interval time.Duration
}

// NewStoreGCService creates the GC service.
func NewStoreGCService(db GarbageCollector, interval time.Duration) *StoreGCService {
	return &StoreGCService{db: db, interval: interval}
}

// Serve implements suture.Service. A GC error is logged and the loop goes on;
// the store stays usable when a rewrite fails.
func (s *StoreGCService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("store gc: interval must be positive, got %s", s.interval)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.db.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("Store value log GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("Store value log GC completed")
		}
	}
}

func (s *StoreGCService) String() string {
	return "store-gc"
}
