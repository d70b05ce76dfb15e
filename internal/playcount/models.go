// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package playcount aggregates playlist events into per-album play counters.
//
// The flow for one playlist event is:
//
//	Resolver.Resolve      freeform (artist, track, album) -> canonical identity
//	CounterStore.FindOrCreate / Increment   transactional counting
//
// and, on timers, CounterStore.ExpireOlderThan drops counters that have not
// moved within the retention window while SnapshotEngine.TakeSnapshot
// records the current top N as an immutable leaderboard.
//
// Counters are keyed by (artist, album). Albums flagged as compilations are
// counted under the artist VariousArtists so that a compilation is one
// bucket rather than one per contributing artist.
package playcount

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// VariousArtists is the artist name compilation albums are counted under.
const VariousArtists = "Various"

var (
	// ErrCounterNotFound is returned by Increment when the counter does not
	// exist, including when the expiry sweep deleted it concurrently.
	ErrCounterNotFound = errors.New("play counter not found")

	// ErrDuplicateEvent is returned when an event ID was already counted.
	ErrDuplicateEvent = errors.New("playlist event already counted")
)

// PlayCount is the aggregate counter for one (artist, album) identity.
// Label is carried along but is not part of the identity.
type PlayCount struct {
	Key        string    `json:"key"`
	ArtistName string    `json:"artist_name"`
	AlbumTitle string    `json:"album_title"`
	Label      string    `json:"label,omitempty"`
	PlayCount  int64     `json:"play_count"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
}

// Snapshot is an immutable copy of a counter taken by the snapshot job.
type Snapshot struct {
	BatchID     string    `json:"batch_id"`
	Rank        int       `json:"rank"`
	CounterKey  string    `json:"counter_key"`
	ArtistName  string    `json:"artist_name"`
	AlbumTitle  string    `json:"album_title"`
	Label       string    `json:"label,omitempty"`
	PlayCount   int64     `json:"play_count"`
	Established time.Time `json:"established"`
}

// Batch is one snapshot run, entries ordered by rank.
type Batch struct {
	ID      string     `json:"id"`
	Taken   time.Time  `json:"taken"`
	Entries []Snapshot `json:"entries"`
}

// counterNamespace seeds deterministic counter keys.
var counterNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/tomtom215/onair/playcount"))

// CounterKey returns the storage key of the (artist, album) identity.
// Equal identities always map to the same key, which is what lets the
// store's conflict detection serialize concurrent first-seen creations.
func CounterKey(artistName, albumTitle string) string {
	return uuid.NewSHA1(counterNamespace, []byte(artistName+"\x1f"+albumTitle)).String()
}

const (
	prefixCounter  = "playcount:counter:"
	prefixSeen     = "playcount:seen:"
	prefixSnapshot = "playcount:snapshot:"
)

func counterKey(key string) []byte  { return []byte(prefixCounter + key) }
func seenKey(eventID string) []byte { return []byte(prefixSeen + eventID) }
func snapshotPrefix(batch string) []byte {
	return []byte(prefixSnapshot + batch + ":")
}
