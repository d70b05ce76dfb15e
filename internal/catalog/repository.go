// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/store"
	"github.com/tomtom215/onair/internal/validation"
)

// Key layout.
const (
	prefixAlbum      = "catalog:album:"
	prefixTrack      = "catalog:track:"
	prefixTrackTitle = "catalog:track-title:"
)

func albumKey(id string) []byte { return []byte(prefixAlbum + id) }
func trackKey(id string) []byte { return []byte(prefixTrack + id) }

// titleIndexPrefix matches exact titles only: the title is terminated by a
// NUL byte so "Intro" never matches "Intro (Live)".
func titleIndexPrefix(title string) []byte {
	return []byte(prefixTrackTitle + title + "\x00")
}

func titleIndexKey(title, trackID string) []byte {
	return append(titleIndexPrefix(title), trackID...)
}

// Repository stores albums and tracks in badger.
type Repository struct {
	db *store.DB
}

// NewRepository creates a catalog repository.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// PutAlbum creates or replaces an album.
func (r *Repository) PutAlbum(ctx context.Context, album *Album) error {
	if err := validation.ValidateStruct(album); err != nil {
		return err
	}
	return r.db.Update(ctx, func(txn *badger.Txn) error {
		return store.SetJSON(txn, albumKey(album.ID), album)
	})
}

// PutTrack creates or replaces a track and maintains the title index.
func (r *Repository) PutTrack(ctx context.Context, track *Track) error {
	if err := validation.ValidateStruct(track); err != nil {
		return err
	}
	return r.db.Update(ctx, func(txn *badger.Txn) error {
		var existing Track
		err := store.GetJSON(txn, trackKey(track.ID), &existing)
		switch {
		case err == nil && existing.Title != track.Title:
			if err := txn.Delete(titleIndexKey(existing.Title, existing.ID)); err != nil {
				return err
			}
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return err
		}

		if err := store.SetJSON(txn, trackKey(track.ID), track); err != nil {
			return err
		}
		return txn.Set(titleIndexKey(track.Title, track.ID), nil)
	})
}

// GetAlbum returns an album by ID.
func (r *Repository) GetAlbum(ctx context.Context, id string) (*Album, error) {
	var album Album
	err := r.db.View(ctx, func(txn *badger.Txn) error {
		return store.GetJSON(txn, albumKey(id), &album)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAlbumNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &album, nil
}

// GetTrack returns a track by ID.
func (r *Repository) GetTrack(ctx context.Context, id string) (*Track, error) {
	var track Track
	err := r.db.View(ctx, func(txn *badger.Txn) error {
		return store.GetJSON(txn, trackKey(id), &track)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// TracksByTitle returns tracks whose title exactly equals title, ordered by track ID.
func (r *Repository) TracksByTitle(ctx context.Context, title string) ([]Track, error) {
	var tracks []Track
	prefix := titleIndexPrefix(title)
	err := r.db.View(ctx, func(txn *badger.Txn) error {
		return store.ScanKeys(ctx, txn, prefix, func(key []byte) error {
			id := string(key[len(prefix):])
			var track Track
			err := store.GetJSON(txn, trackKey(id), &track)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			tracks = append(tracks, track)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("tracks by title: %w", err)
	}
	return tracks, nil
}

// LoadSeed imports albums and tracks from a JSON seed file.
func (r *Repository) LoadSeed(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse catalog seed %s: %w", path, err)
	}
	return r.Import(ctx, &seed)
}

// Import stores every album and track in seed.
func (r *Repository) Import(ctx context.Context, seed *Seed) error {
	for i := range seed.Albums {
		if err := r.PutAlbum(ctx, &seed.Albums[i]); err != nil {
			return fmt.Errorf("import album %q: %w", seed.Albums[i].ID, err)
		}
	}
	for i := range seed.Tracks {
		if err := r.PutTrack(ctx, &seed.Tracks[i]); err != nil {
			return fmt.Errorf("import track %q: %w", seed.Tracks[i].ID, err)
		}
	}
	logging.Info().
		Int("albums", len(seed.Albums)).
		Int("tracks", len(seed.Tracks)).
		Msg("Catalog seed imported")
	return nil
}
