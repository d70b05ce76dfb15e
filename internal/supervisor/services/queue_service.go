// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package services

import (
	"context"
	"errors"
	"fmt"
)

// QueueRunner matches *taskqueue.Queue.
type QueueRunner interface {
	Run(ctx context.Context) error
}

// errQueueStopped makes suture restart a router that returned on its own.
var errQueueStopped = errors.New("task router stopped")

// TaskQueueService runs the task router. The queue itself is closed by the
// owner after the tree has stopped, so a restart reuses the same backend.
type TaskQueueService struct {
	queue QueueRunner
}

// NewTaskQueueService wraps queue.
func NewTaskQueueService(queue QueueRunner) *TaskQueueService {
	return &TaskQueueService{queue: queue}
}

// Serve implements suture.Service.
func (s *TaskQueueService) Serve(ctx context.Context) error {
	err := s.queue.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("task queue: %w", err)
	}
	return errQueueStopped
}

func (s *TaskQueueService) String() string {
	return "task-queue"
}
