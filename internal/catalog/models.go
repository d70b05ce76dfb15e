// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package catalog holds the station's reference music library. Play count
// aggregation reads it to resolve freeform playlist entries to albums; it
// is only written by seeding and by library management.
package catalog

import "errors"

var (
	// ErrAlbumNotFound is returned when an album ID does not exist.
	ErrAlbumNotFound = errors.New("album not found")

	// ErrTrackNotFound is returned when a track ID does not exist.
	ErrTrackNotFound = errors.New("track not found")
)

// Album is a library album.
type Album struct {
	ID            string `json:"id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	ArtistName    string `json:"artist_name,omitempty"`
	IsCompilation bool   `json:"is_compilation"`
	Label         string `json:"label,omitempty"`
}

// Track is a library track. TrackArtistName is the performing artist, which
// differs from the album artist on compilations.
type Track struct {
	ID              string `json:"id" validate:"required"`
	Title           string `json:"title" validate:"required"`
	AlbumID         string `json:"album_id" validate:"required"`
	TrackArtistName string `json:"track_artist_name,omitempty"`
}

// Seed is the on-disk format of a catalog seed file.
type Seed struct {
	Albums []Album `json:"albums"`
	Tracks []Track `json:"tracks"`
}
