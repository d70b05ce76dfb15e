// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package taskqueue runs asynchronous per-event work on a Watermill router.
//
// Each named queue maps to the topic "tasks.<queue>". A message carries a
// form-encoded body "id=<event id>". Handlers that return an error are
// retried with exponential backoff and then moved to the poison topic, so
// delivery is at-least-once and handlers must be idempotent.
//
// Two backends are supported: an in-process Go channel (default) and NATS
// JetStream, optionally served by an embedded nats-server.
package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/onair/internal/config"
	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/metrics"
)

// TopicPrefix prefixes every task queue topic.
const TopicPrefix = "tasks."

const metadataCorrelationID = "correlation_id"

var (
	// ErrNotRunning is returned by Enqueue on a non-durable backend before
	// the router has started, where the message would be dropped.
	ErrNotRunning = errors.New("task queue is not running")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("task queue is closed")

	// ErrAlreadyRegistered is returned when a queue gets a second handler.
	ErrAlreadyRegistered = errors.New("queue handler already registered")
)

// Handler processes one task for a playlist event.
type Handler func(ctx context.Context, eventID string) error

// Topic returns the topic for a queue name.
func Topic(queue string) string {
	return TopicPrefix + queue
}

// Queue owns the publisher, subscribers and router for every task queue.
type Queue struct {
	cfg     config.QueueConfig
	logger  watermill.LoggerAdapter
	backend *backend

	mu       sync.Mutex
	handlers map[string]Handler
	ready    chan struct{}
	closed   bool

	running atomic.Bool
}

// New creates a queue for cfg.Backend. natsURL overrides cfg.NATSURL, which
// is how an embedded server's address is passed in.
func New(cfg config.QueueConfig, natsURL string) (*Queue, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	var (
		b   *backend
		err error
	)
	switch cfg.Backend {
	case "", "memory":
		b = newMemoryBackend(logger)
	case "nats":
		if natsURL == "" {
			natsURL = cfg.NATSURL
		}
		b, err = newNATSBackend(cfg, natsURL, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}

	return &Queue{
		cfg:      cfg,
		logger:   logger,
		backend:  b,
		handlers: make(map[string]Handler),
		ready:    make(chan struct{}),
	}, nil
}

// Register sets the handler for queue. Handlers must be registered before Run.
func (q *Queue) Register(queue string, h Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.handlers[queue]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, queue)
	}
	q.handlers[queue] = h
	return nil
}

// Enqueue schedules work for eventID on queue.
func (q *Queue) Enqueue(ctx context.Context, queue, eventID string) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if !q.backend.durable && !q.running.Load() {
		return ErrNotRunning
	}

	msg := message.NewMessage(watermill.NewUUID(), encodePayload(eventID))
	msg.Metadata.Set("queue", queue)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set(metadataCorrelationID, cid)
	}
	if q.backend.prepare != nil {
		q.backend.prepare(msg)
	}

	if err := q.backend.publisher.Publish(Topic(queue), msg); err != nil {
		return fmt.Errorf("publish task: %w", err)
	}
	metrics.TasksEnqueued.WithLabelValues(queue).Inc()
	logging.Ctx(ctx).Debug().
		Str("queue", queue).
		Str("event_id", eventID).
		Str("message_uuid", msg.UUID).
		Msg("Task enqueued")
	return nil
}

// Run builds a router over the registered handlers and blocks until ctx is
// canceled. It may be called again after it returns.
func (q *Queue) Run(ctx context.Context) error {
	router, err := q.newRouter()
	if err != nil {
		return err
	}

	q.mu.Lock()
	ready := q.ready
	q.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		select {
		case <-router.Running():
			q.running.Store(true)
			close(ready)
		case <-stopped:
		}
	}()

	err = router.Run(ctx)
	close(stopped)

	q.running.Store(false)
	q.mu.Lock()
	q.ready = make(chan struct{})
	q.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("task router: %w", err)
	}
	return nil
}

// Running returns a channel closed once the current Run is processing.
func (q *Queue) Running() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ready
}

// IsRunning reports whether the router is processing messages.
func (q *Queue) IsRunning() bool {
	return q.running.Load()
}

// Close releases the publisher and subscribers. Run must have returned.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	return q.backend.close()
}

func (q *Queue) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: q.cfg.CloseTimeout}, q.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Outermost first: failures that survive every retry are poisoned, and
	// panics inside the handler are retried like errors.
	if q.cfg.PoisonQueueTopic != "" {
		poison, err := middleware.PoisonQueue(q.backend.publisher, q.cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poison)
	}
	retry := middleware.Retry{
		MaxRetries:      q.cfg.RetryCount,
		InitialInterval: q.cfg.RetryInitialInterval,
		MaxInterval:     q.cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          q.logger,
	}
	router.AddMiddleware(retry.Middleware)
	if q.cfg.HandlerTimeout > 0 {
		router.AddMiddleware(middleware.Timeout(q.cfg.HandlerTimeout))
	}
	router.AddMiddleware(middleware.Recoverer)

	q.mu.Lock()
	defer q.mu.Unlock()

	for queue, h := range q.handlers {
		sub, err := q.backend.subscriber(queue)
		if err != nil {
			return nil, err
		}
		router.AddConsumerHandler("task."+queue, Topic(queue), sub, q.handle(queue, h))
	}

	if q.cfg.PoisonQueueTopic != "" {
		sub, err := q.backend.subscriber("poison")
		if err != nil {
			return nil, err
		}
		router.AddConsumerHandler("task.poison", q.cfg.PoisonQueueTopic, sub, logPoisoned)
	}
	return router, nil
}

func (q *Queue) handle(queue string, h Handler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		cid := msg.Metadata.Get(metadataCorrelationID)
		if cid == "" {
			cid = logging.GenerateCorrelationID()
		}
		ctx := logging.ContextWithCorrelationID(msg.Context(), cid)
		log := logging.Ctx(ctx).With().Str("queue", queue).Str("message_uuid", msg.UUID).Logger()

		eventID, err := decodePayload(msg.Payload)
		if err != nil {
			log.Error().Err(err).Msg("Dropping malformed task")
			metrics.RecordTask(queue, false)
			return nil
		}

		if err := h(ctx, eventID); err != nil {
			log.Warn().Err(err).Str("event_id", eventID).Msg("Task was unsuccessful")
			metrics.RecordTask(queue, false)
			return err
		}
		metrics.RecordTask(queue, true)
		return nil
	}
}

func logPoisoned(msg *message.Message) error {
	queue := msg.Metadata.Get("queue")
	eventID, _ := decodePayload(msg.Payload)
	logging.Error().
		Str("queue", queue).
		Str("event_id", eventID).
		Str("message_uuid", msg.UUID).
		Str("reason", msg.Metadata.Get(middleware.ReasonForPoisonedKey)).
		Str("handler", msg.Metadata.Get(middleware.PoisonedHandlerKey)).
		Msg("Task moved to poison queue")
	metrics.TasksProcessed.WithLabelValues(queue, "poisoned").Inc()
	return nil
}

func encodePayload(eventID string) []byte {
	return []byte(url.Values{"id": {eventID}}.Encode())
}

func decodePayload(payload []byte) (string, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return "", fmt.Errorf("parse task payload: %w", err)
	}
	id := values.Get("id")
	if id == "" {
		return "", errors.New("task payload has no id")
	}
	return id, nil
}
