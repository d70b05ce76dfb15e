// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/tomtom215/onair/internal/store"
	"github.com/tomtom215/onair/internal/validation"
)

const (
	prefixPlaylist = "playlist:"
	prefixEvent    = "playlist-event:"
	prefixPosition = "playlist-track:"
)

func playlistKey(id string) []byte { return []byte(prefixPlaylist + id) }
func eventKey(id string) []byte    { return []byte(prefixEvent + id) }

func positionPrefix(playlistID string) []byte {
	return []byte(prefixPosition + playlistID + ":")
}

// positionKey orders a playlist's tracks by number under a zero padded suffix.
func positionKey(playlistID string, trackNumber int) []byte {
	return []byte(fmt.Sprintf("%s%s:%010d", prefixPosition, playlistID, trackNumber))
}

// Repository persists playlists and their events.
type Repository struct {
	db  *store.DB
	now func() time.Time
}

// NewRepository creates a playlist repository.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// CreatePlaylist validates and stores a new playlist.
func (r *Repository) CreatePlaylist(ctx context.Context, p Playlist) (*Playlist, error) {
	if p.Type == "" {
		p.Type = TypeOnAir
	}
	if err := validation.ValidateStruct(&p); err != nil {
		return nil, err
	}
	now := r.now().UTC()
	p.ID = uuid.New().String()
	p.TrackCount = 0
	p.Established = now
	p.Modified = now

	err := r.db.Update(ctx, func(txn *badger.Txn) error {
		return store.SetJSON(txn, playlistKey(p.ID), &p)
	})
	if err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}
	return &p, nil
}

// GetPlaylist returns a playlist by ID.
func (r *Repository) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	var p Playlist
	err := r.db.View(ctx, func(txn *badger.Txn) error {
		return store.GetJSON(txn, playlistKey(id), &p)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AddTrack stores ev on the playlist and assigns its track number.
//
// Reading the playlist's TrackCount, bumping it and writing the event happen
// in one transaction. Two concurrent AddTrack calls on the same playlist
// conflict on the playlist key, and the loser is retried by store.Update, so
// track numbers are unique and gapless.
func (r *Repository) AddTrack(ctx context.Context, playlistID string, ev Event) (*Event, error) {
	if err := validation.ValidateStruct(&ev); err != nil {
		return nil, err
	}
	now := r.now().UTC()
	ev.ID = uuid.New().String()
	ev.PlaylistID = playlistID
	ev.Established = now
	ev.Modified = now

	var stored Event
	err := r.db.Update(ctx, func(txn *badger.Txn) error {
		var p Playlist
		if err := store.GetJSON(txn, playlistKey(playlistID), &p); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrPlaylistNotFound, playlistID)
			}
			return err
		}

		p.TrackCount++
		p.Modified = now
		if err := store.SetJSON(txn, playlistKey(p.ID), &p); err != nil {
			return err
		}

		stored = ev
		stored.TrackNumber = p.TrackCount
		if err := store.SetJSON(txn, eventKey(stored.ID), &stored); err != nil {
			return err
		}
		return txn.Set(positionKey(playlistID, stored.TrackNumber), []byte(stored.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	return &stored, nil
}

// GetEvent returns a playlist event by ID.
func (r *Repository) GetEvent(ctx context.Context, id string) (*Event, error) {
	var ev Event
	err := r.db.View(ctx, func(txn *badger.Txn) error {
		return store.GetJSON(txn, eventKey(id), &ev)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// DeleteTrack removes an event. The playlist's TrackCount is not decremented
// so numbers are never reused.
func (r *Repository) DeleteTrack(ctx context.Context, id string) error {
	return r.db.Update(ctx, func(txn *badger.Txn) error {
		var ev Event
		if err := store.GetJSON(txn, eventKey(id), &ev); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrEventNotFound, id)
			}
			return err
		}
		if err := txn.Delete(positionKey(ev.PlaylistID, ev.TrackNumber)); err != nil {
			return err
		}
		return txn.Delete(eventKey(id))
	})
}

// ListTracks returns a playlist's events ordered by track number.
func (r *Repository) ListTracks(ctx context.Context, playlistID string) ([]Event, error) {
	events := []Event{}
	err := r.db.View(ctx, func(txn *badger.Txn) error {
		if ok, err := store.Exists(txn, playlistKey(playlistID)); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("%w: %s", ErrPlaylistNotFound, playlistID)
		}
		return store.ScanPrefix(ctx, txn, positionPrefix(playlistID), func(_, val []byte) error {
			var ev Event
			if err := store.GetJSON(txn, eventKey(string(val)), &ev); err != nil {
				return err
			}
			events = append(events, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
