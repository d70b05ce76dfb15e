// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/onair/config.yaml",
	"/etc/onair/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			Environment:  "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Path:               "/data/onair",
			MaxConflictRetries: 10,
			ConflictTimeout:    10 * time.Second,
			GCInterval:         10 * time.Minute,
		},
		Queue: QueueConfig{
			Backend:              "memory",
			NATSURL:              "nats://127.0.0.1:4222",
			EmbeddedServer:       false,
			StoreDir:             "/data/nats",
			DurablePrefix:        "onair",
			QueueGroup:           "onair-tasks",
			SubscribersCount:     2,
			RetryCount:           3,
			RetryInitialInterval: 500 * time.Millisecond,
			RetryMaxInterval:     30 * time.Second,
			HandlerTimeout:       60 * time.Second,
			PoisonQueueTopic:     "tasks.poison",
			CloseTimeout:         30 * time.Second,
		},
		Outbound: OutboundConfig{
			Timeout:         10 * time.Second,
			UserAgent:       "OnAir/1.0",
			RatePerSecond:   5,
			Burst:           5,
			BreakerFailures: 5,
			BreakerTimeout:  60 * time.Second,
			BreakerInterval: 2 * time.Minute,
		},
		PlayCount: PlayCountConfig{
			Retention:        7 * 24 * time.Hour,
			ExpireBatch:      1000,
			SnapshotSize:     40,
			ExpireInterval:   24 * time.Hour,
			SnapshotInterval: 7 * 24 * time.Hour,
			DedupTTL:         48 * time.Hour,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment (ENV > File > Defaults), then validates it.
func Load() (*Config, *Settings, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips the file layer.
func LoadFile(path string) (*Config, *Settings, error) {
	return load(path)
}

func load(configPath string) (*Config, *Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// LIVE365_SERVICE_URL -> live365.service_url
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, NewSettings(k, cfg.IsProduction()), nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"http_port":              "server.port",
	"http_host":              "server.host",
	"environment":            "server.environment",
	"log_level":              "logging.level",
	"log_format":             "logging.format",
	"log_caller":             "logging.caller",
	"store_path":             "store.path",
	"store_memory":           "store.in_memory",
	"store_sync":             "store.sync_writes",
	"store_conflict_timeout": "store.conflict_timeout",
	"queue_backend":          "queue.backend",
	"nats_url":               "queue.nats_url",
	"nats_embedded":          "queue.embedded_server",
	"nats_store_dir":         "queue.store_dir",

	"live365_member_name": "live365.member_name",
	"live365_password":    "live365.password",
	"live365_service_url": "live365.service_url",

	"push_recently_played_url": "push.recently_played_url",
	"push_now_playing_url":     "push.now_playing_url",

	"outbound_timeout":         "outbound.timeout",
	"outbound_rate_per_second": "outbound.rate_per_second",

	"playcount_retention":         "playcount.retention",
	"playcount_expire_batch":      "playcount.expire_batch",
	"playcount_snapshot_size":     "playcount.snapshot_size",
	"playcount_expire_interval":   "playcount.expire_interval",
	"playcount_snapshot_interval": "playcount.snapshot_interval",

	"task_token_secret":  "tasks.token_secret",
	"catalog_seed_path":  "catalog.seed_path",
	"cors_origins":       "security.cors_origins",
	"disable_rate_limit": "security.rate_limit_disabled",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
