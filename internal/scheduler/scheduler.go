// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package scheduler runs periodic maintenance jobs as supervised services.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/metrics"
	"github.com/tomtom215/onair/internal/playcount"
)

// Job names, also used as the manual trigger path under /cron.
const (
	JobExpirePlayCounts  = "expire-play-counts"
	JobPlayCountSnapshot = "play-count-snapshot"
)

// Job is a unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Execute runs the job once, logging and recording the outcome.
func (j Job) Execute(ctx context.Context) error {
	start := time.Now()
	err := j.Run(ctx)
	metrics.RecordJob(j.Name, err)

	log := logging.Ctx(ctx).With().Str("job", j.Name).Dur("duration", time.Since(start)).Logger()
	if err != nil {
		log.Error().Err(err).Msg("Scheduled job failed")
		return fmt.Errorf("job %s: %w", j.Name, err)
	}
	log.Info().Msg("Scheduled job completed")
	return nil
}

// Service runs a Job every Interval until its context ends. A failing run
// is logged and the schedule continues.
type Service struct {
	job Job
}

// NewService wraps job as a suture service.
func NewService(job Job) *Service {
	return &Service{job: job}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	if s.job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", s.job.Name)
	}

	ticker := time.NewTicker(s.job.Interval)
	defer ticker.Stop()

	logging.Info().Str("job", s.job.Name).Dur("interval", s.job.Interval).Msg("Job scheduled")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runCtx := logging.ContextWithNewCorrelationID(ctx)
			if err := s.job.Execute(runCtx); err != nil && errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (s *Service) String() string {
	return "job-" + s.job.Name
}

// ExpirePlayCounts deletes counters not incremented within retention, at
// most batch per run.
func ExpirePlayCounts(counters *playcount.CounterStore, retention time.Duration, batch int, interval time.Duration) Job {
	return Job{
		Name:     JobExpirePlayCounts,
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := counters.ExpireOlderThan(ctx, retention, batch)
			return err
		},
	}
}

// PlayCountSnapshot records the current top size counters.
func PlayCountSnapshot(engine *playcount.SnapshotEngine, size int, interval time.Duration) Job {
	return Job{
		Name:     JobPlayCountSnapshot,
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := engine.TakeSnapshot(ctx, size)
			return err
		},
	}
}
