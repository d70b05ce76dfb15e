// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package playlist stores DJ playlists and the tracks logged on them, and
// hands every created or deleted track to the event dispatcher.
package playlist

import (
	"errors"
	"time"
)

// TypeOnAir is a playlist recorded while broadcasting.
const TypeOnAir = "on-air"

var (
	// ErrPlaylistNotFound is returned when a playlist ID does not exist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrEventNotFound is returned when a playlist event ID does not exist.
	ErrEventNotFound = errors.New("playlist event not found")
)

// Playlist is a DJ playlist. TrackCount is the number of tracks ever added
// and is the source of each new track's TrackNumber.
type Playlist struct {
	ID          string    `json:"id"`
	DJUser      string    `json:"dj_user" validate:"required"`
	Type        string    `json:"playlist_type" validate:"required,oneof=on-air"`
	TrackCount  int       `json:"track_count"`
	Established time.Time `json:"established"`
	Modified    time.Time `json:"modified"`
}

// Event is one track logged on a playlist (a playlist event). Free text
// fields are what the DJ typed; the *Ref fields optionally point at the
// reference catalog. Events are immutable once created.
type Event struct {
	ID          string    `json:"id"`
	PlaylistID  string    `json:"playlist_id"`
	ArtistName  string    `json:"artist_name,omitempty" validate:"required_without=ArtistRef"`
	ArtistRef   string    `json:"artist,omitempty"`
	TrackTitle  string    `json:"track_title,omitempty" validate:"required_without=TrackRef"`
	TrackRef    string    `json:"track,omitempty"`
	AlbumTitle  string    `json:"album_title,omitempty"`
	AlbumRef    string    `json:"album,omitempty"`
	Label       string    `json:"label,omitempty"`
	TrackNumber int       `json:"track_number"`
	Established time.Time `json:"established"`
	Modified    time.Time `json:"modified"`
}
