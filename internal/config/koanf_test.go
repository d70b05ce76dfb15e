// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, settings, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.PlayCount.Retention != 7*24*time.Hour {
		t.Errorf("Retention = %s, want 168h", cfg.PlayCount.Retention)
	}
	if cfg.PlayCount.ExpireBatch != 1000 {
		t.Errorf("ExpireBatch = %d, want 1000", cfg.PlayCount.ExpireBatch)
	}
	if cfg.PlayCount.SnapshotSize != 40 {
		t.Errorf("SnapshotSize = %d, want 40", cfg.PlayCount.SnapshotSize)
	}
	if cfg.Queue.Backend != "memory" {
		t.Errorf("Queue.Backend = %q, want memory", cfg.Queue.Backend)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development environment by default")
	}
	if settings.Production() {
		t.Error("expected non-production settings by default")
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  environment: production
tasks:
  token_secret: s3cret
live365:
  member_name: chirp
  password: secret
  service_url: http://live365.example/cgi-bin/add_song.cgi
push:
  now_playing_url: https://push.example/now-playing
`)

	cfg, settings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if !cfg.IsProduction() {
		t.Error("expected production")
	}
	if got := settings.Get(KeyLive365MemberName); got != "chirp" {
		t.Errorf("member_name = %q, want chirp", got)
	}
	if got := settings.Get(KeyPushNowPlayingURL); got != "https://push.example/now-playing" {
		t.Errorf("now_playing_url = %q", got)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "live365:\n  member_name: from-file\n")
	t.Setenv("LIVE365_MEMBER_NAME", "from-env")
	t.Setenv("PLAYCOUNT_EXPIRE_BATCH", "250")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, settings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := settings.Get(KeyLive365MemberName); got != "from-env" {
		t.Errorf("member_name = %q, want from-env", got)
	}
	if cfg.PlayCount.ExpireBatch != 250 {
		t.Errorf("ExpireBatch = %d, want 250", cfg.PlayCount.ExpireBatch)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad environment", func(c *Config) { c.Server.Environment = "moon" }, true},
		{"zero outbound timeout", func(c *Config) { c.Outbound.Timeout = 0 }, true},
		{"unknown backend", func(c *Config) { c.Queue.Backend = "kafka" }, true},
		{"nats without url", func(c *Config) { c.Queue.Backend = "nats"; c.Queue.NATSURL = "" }, true},
		{"embedded nats", func(c *Config) {
			c.Queue.Backend = "nats"
			c.Queue.NATSURL = ""
			c.Queue.EmbeddedServer = true
		}, false},
		{"zero expire batch", func(c *Config) { c.PlayCount.ExpireBatch = 0 }, true},
		{"relative service url", func(c *Config) { c.Live365.ServiceURL = "/add_song.cgi" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"production without task secret", func(c *Config) { c.Server.Environment = "production" }, true},
		{"production with task secret", func(c *Config) {
			c.Server.Environment = "prod"
			c.Tasks.TokenSecret = "s3cret"
		}, false},
		{"development without task secret", func(c *Config) { c.Tasks.TokenSecret = "" }, false},
		{"zero conflict timeout", func(c *Config) { c.Store.ConflictTimeout = 0 }, true},
		{"largest snapshot size", func(c *Config) { c.PlayCount.SnapshotSize = MaxSnapshotSize }, false},
		{"snapshot size beyond rank width", func(c *Config) { c.PlayCount.SnapshotSize = MaxSnapshotSize + 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
