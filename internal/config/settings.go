// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/onair/internal/logging"
)

// Setting keys read by the outbound notifiers.
const (
	KeyLive365MemberName     = "live365.member_name"
	KeyLive365Password       = "live365.password"
	KeyLive365ServiceURL     = "live365.service_url"
	KeyPushRecentlyPlayedURL = "push.recently_played_url"
	KeyPushNowPlayingURL     = "push.now_playing_url"
)

// ErrMissingSetting is matched by every MissingSettingError.
var ErrMissingSetting = errors.New("missing setting")

// MissingSettingError reports a setting with no value. Fatal is true in
// production, where the calling operation must fail.
type MissingSettingError struct {
	Key   string
	Fatal bool
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("no value configured for %q", e.Key)
}

// Is makes errors.Is(err, ErrMissingSetting) match.
func (e *MissingSettingError) Is(target error) bool {
	return target == ErrMissingSetting
}

// IsFatal reports whether err is a MissingSettingError raised in production.
func IsFatal(err error) bool {
	var missing *MissingSettingError
	return errors.As(err, &missing) && missing.Fatal
}

// Settings is a concurrency-safe key/value view over the loaded configuration.
// Values are looked up on every call, so Set takes effect for the next task.
type Settings struct {
	mu         sync.RWMutex
	k          *koanf.Koanf
	production bool
}

// NewSettings wraps a loaded koanf tree.
func NewSettings(k *koanf.Koanf, production bool) *Settings {
	if k == nil {
		k = koanf.New(".")
	}
	return &Settings{k: k, production: production}
}

// NewStaticSettings builds Settings from a flat key/value map.
func NewStaticSettings(values map[string]string, production bool) *Settings {
	k := koanf.New(".")
	for key, value := range values {
		// koanf.Set only fails on a nil map, which New never returns.
		_ = k.Set(key, value) //nolint:errcheck // see above
	}
	return &Settings{k: k, production: production}
}

// Production reports whether missing settings are fatal.
func (s *Settings) Production() bool {
	return s.production
}

// Lookup returns the trimmed value for key and whether it is non-empty.
func (s *Settings) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.k.Exists(key) {
		return "", false
	}
	v := strings.TrimSpace(s.k.String(key))
	return v, v != ""
}

// Get returns the value for key or "".
func (s *Settings) Get(key string) string {
	v, _ := s.Lookup(key)
	return v
}

// Set overrides a value at runtime.
func (s *Settings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.k.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Require returns the value for key. A missing value yields a
// *MissingSettingError; outside production it is logged as a warning and
// the error is not fatal.
func (s *Settings) Require(key string) (string, error) {
	if v, ok := s.Lookup(key); ok {
		return v, nil
	}
	err := &MissingSettingError{Key: key, Fatal: s.production}
	if !err.Fatal {
		logging.Warn().Str("key", key).Msg("No value configured for setting")
	}
	return "", err
}
