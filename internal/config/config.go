// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package config loads OnAir configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults from defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or config.yaml)
//  3. Environment Variables: override any mapped setting
//
// Besides the typed Config, the loaded tree is exposed as key/value Settings
// for the integration credentials the notifiers read per call
// (live365.member_name, push.now_playing_url, ...).
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Store     StoreConfig     `koanf:"store"`
	Queue     QueueConfig     `koanf:"queue"`
	Live365   Live365Config   `koanf:"live365"`
	Push      PushConfig      `koanf:"push"`
	Outbound  OutboundConfig  `koanf:"outbound"`
	PlayCount PlayCountConfig `koanf:"playcount"`
	Tasks     TasksConfig     `koanf:"tasks"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `koanf:"port"`
	Host         string        `koanf:"host"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	Environment  string        `koanf:"environment"` // "development" or "production"
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}

// StoreConfig configures the embedded BadgerDB store that holds playlists,
// the reference catalog, play counts and snapshots.
type StoreConfig struct {
	// Path is the badger data directory. Ignored when InMemory is set.
	Path string `koanf:"path"`

	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync on every commit.
	SyncWrites bool `koanf:"sync_writes"`

	// MaxConflictRetries is the fewest attempts made on badger.ErrConflict
	// before a transaction may give up.
	MaxConflictRetries int `koanf:"max_conflict_retries"`

	// ConflictTimeout is the least time a conflicting transaction keeps
	// retrying, measured from its first attempt.
	ConflictTimeout time.Duration `koanf:"conflict_timeout"`

	// GCInterval is how often value log garbage collection runs. 0 disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// QueueConfig configures the asynchronous task queue.
type QueueConfig struct {
	// Backend is "memory" (in-process channel) or "nats" (JetStream).
	Backend string `koanf:"backend"`

	// NATSURL is the NATS server URL. Ignored when EmbeddedServer is true.
	NATSURL string `koanf:"nats_url"`

	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	DurablePrefix  string `koanf:"durable_prefix"`
	QueueGroup     string `koanf:"queue_group"`

	SubscribersCount int `koanf:"subscribers_count"`

	// Router middleware.
	RetryCount           int           `koanf:"retry_count"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	HandlerTimeout       time.Duration `koanf:"handler_timeout"`
	PoisonQueueTopic     string        `koanf:"poison_queue_topic"`
	CloseTimeout         time.Duration `koanf:"close_timeout"`
}

// Live365Config holds credentials for the streaming metadata service.
type Live365Config struct {
	MemberName string `koanf:"member_name"`
	Password   string `koanf:"password"`
	ServiceURL string `koanf:"service_url"`
}

// PushConfig holds the two website push-notification channel URLs.
type PushConfig struct {
	RecentlyPlayedURL string `koanf:"recently_played_url"`
	NowPlayingURL     string `koanf:"now_playing_url"`
}

// OutboundConfig bounds every outbound HTTP call.
type OutboundConfig struct {
	Timeout   time.Duration `koanf:"timeout"`
	UserAgent string        `koanf:"user_agent"`

	// RatePerSecond paces calls per target. 0 disables pacing.
	RatePerSecond float64 `koanf:"rate_per_second"`
	Burst         int     `koanf:"burst"`

	// Circuit breaker per target.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
	BreakerInterval time.Duration `koanf:"breaker_interval"`
}

// PlayCountConfig tunes the aggregation engine and its scheduled jobs.
type PlayCountConfig struct {
	Retention        time.Duration `koanf:"retention"`
	ExpireBatch      int           `koanf:"expire_batch"`
	SnapshotSize     int           `koanf:"snapshot_size"`
	ExpireInterval   time.Duration `koanf:"expire_interval"`
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`

	// DedupTTL is how long an event ID is remembered after it was counted.
	DedupTTL time.Duration `koanf:"dedup_ttl"`
}

// TasksConfig protects the async work endpoints.
type TasksConfig struct {
	// TokenSecret enables HS256 bearer token checks on /tasks and /cron when set.
	TokenSecret string `koanf:"token_secret"`
}

// CatalogConfig points at the reference catalog seed file.
type CatalogConfig struct {
	SeedPath string `koanf:"seed_path"`
}

// SecurityConfig holds HTTP hardening settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}
