// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - playlist event dispatch and listener outcomes
// - outbound notifier calls and circuit breakers
// - task queue processing
// - play count aggregation, expiry and snapshots
// - HTTP API

var (
	// Dispatch Metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_dispatch_listener_calls_total",
			Help: "Listener invocations by the playlist event dispatcher",
		},
		[]string{"listener", "action", "outcome"}, // action: create|delete, outcome: ok|error|panic
	)

	// Outbound Metrics
	OutboundRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_outbound_requests_total",
			Help: "Outbound HTTP calls by target and outcome",
		},
		[]string{"target", "outcome"}, // outcome: success|http_status|timeout|connection|circuit_open|request
	)

	OutboundDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onair_outbound_request_duration_seconds",
			Help:    "Outbound HTTP call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onair_circuit_breaker_state",
			Help: "Circuit breaker state per outbound target (0=closed, 1=half-open, 2=open)",
		},
		[]string{"target"},
	)

	// Task Metrics
	TasksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_tasks_enqueued_total",
			Help: "Tasks published to the task queue",
		},
		[]string{"queue"},
	)

	TasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_tasks_processed_total",
			Help: "Task executions by queue and result",
		},
		[]string{"queue", "result"}, // result: success|failure
	)

	// Store Metrics
	StoreTxnConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onair_store_txn_conflicts_total",
			Help: "Optimistic transaction conflicts retried by the store",
		},
	)

	// Play Count Metrics
	PlayCountIncrements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_playcount_updates_total",
			Help: "Play count updates by kind",
		},
		[]string{"kind"}, // created|incremented|duplicate|missing
	)

	PlayCountExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onair_playcount_expired_total",
			Help: "Play counters deleted by the expiry sweep",
		},
	)

	SnapshotEntries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onair_playcount_snapshot_entries_total",
			Help: "Snapshot records written",
		},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_job_runs_total",
			Help: "Scheduled job runs by job and result",
		},
		[]string{"job", "result"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onair_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onair_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordDispatch records one listener invocation.
func RecordDispatch(listener, action, outcome string) {
	DispatchTotal.WithLabelValues(listener, action, outcome).Inc()
}

// RecordOutbound records an outbound call outcome and its latency.
func RecordOutbound(target, outcome string, duration time.Duration) {
	OutboundRequests.WithLabelValues(target, outcome).Inc()
	OutboundDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordTask records a task execution.
func RecordTask(queue string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	TasksProcessed.WithLabelValues(queue, result).Inc()
}

// RecordJob records a scheduled job run.
func RecordJob(job string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	JobRuns.WithLabelValues(job, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
