// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// MaxSnapshotSize bounds playcount.snapshot_size. Snapshot entry keys encode
// the rank in a fixed width that must hold every rank.
const MaxSnapshotSize = 9999

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateOutbound(); err != nil {
		return err
	}
	if err := c.validatePlayCount(); err != nil {
		return err
	}
	if err := c.validateIntegrationURLs(); err != nil {
		return err
	}
	if err := c.validateTasks(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch strings.ToLower(c.Server.Environment) {
	case "", "development", "dev", "staging", "production", "prod":
	default:
		return fmt.Errorf("server.environment must be development, staging or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Store.MaxConflictRetries < 1 {
		return fmt.Errorf("store.max_conflict_retries must be at least 1, got %d", c.Store.MaxConflictRetries)
	}
	if c.Store.ConflictTimeout <= 0 {
		return fmt.Errorf("store.conflict_timeout must be positive, got %s", c.Store.ConflictTimeout)
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Backend {
	case "memory":
	case "nats":
		if !c.Queue.EmbeddedServer && c.Queue.NATSURL == "" {
			return fmt.Errorf("queue.nats_url is required when queue.embedded_server is false")
		}
		if c.Queue.EmbeddedServer && c.Queue.StoreDir == "" {
			return fmt.Errorf("queue.store_dir is required for the embedded NATS server")
		}
	default:
		return fmt.Errorf("queue.backend must be memory or nats, got %q", c.Queue.Backend)
	}
	if c.Queue.RetryCount < 0 {
		return fmt.Errorf("queue.retry_count must be non-negative, got %d", c.Queue.RetryCount)
	}
	if c.Queue.SubscribersCount < 1 {
		return fmt.Errorf("queue.subscribers_count must be at least 1, got %d", c.Queue.SubscribersCount)
	}
	if c.Queue.PoisonQueueTopic == "" {
		return fmt.Errorf("queue.poison_queue_topic is required")
	}
	return nil
}

// validateOutbound rejects configurations without a bounded outbound timeout.
func (c *Config) validateOutbound() error {
	if c.Outbound.Timeout <= 0 {
		return fmt.Errorf("outbound.timeout must be positive, got %s", c.Outbound.Timeout)
	}
	if c.Outbound.RatePerSecond < 0 {
		return fmt.Errorf("outbound.rate_per_second must be non-negative")
	}
	if c.Outbound.RatePerSecond > 0 && c.Outbound.Burst < 1 {
		return fmt.Errorf("outbound.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validatePlayCount() error {
	if c.PlayCount.Retention <= 0 {
		return fmt.Errorf("playcount.retention must be positive")
	}
	if c.PlayCount.ExpireBatch < 1 {
		return fmt.Errorf("playcount.expire_batch must be at least 1, got %d", c.PlayCount.ExpireBatch)
	}
	if c.PlayCount.SnapshotSize < 1 || c.PlayCount.SnapshotSize > MaxSnapshotSize {
		return fmt.Errorf("playcount.snapshot_size must be between 1 and %d, got %d", MaxSnapshotSize, c.PlayCount.SnapshotSize)
	}
	return nil
}

// validateTasks requires task endpoint authentication in production.
func (c *Config) validateTasks() error {
	if c.IsProduction() && c.Tasks.TokenSecret == "" {
		return fmt.Errorf("tasks.token_secret is required in production")
	}
	return nil
}

// validateIntegrationURLs checks URLs that are set. Missing ones are reported
// per call by Settings.
func (c *Config) validateIntegrationURLs() error {
	for key, raw := range map[string]string{
		KeyLive365ServiceURL:     c.Live365.ServiceURL,
		KeyPushRecentlyPlayedURL: c.Push.RecentlyPlayedURL,
		KeyPushNowPlayingURL:     c.Push.NowPlayingURL,
	} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// IsProduction reports whether server.environment is production.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment reports whether server.environment is development.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}
