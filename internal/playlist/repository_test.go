// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playlist

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/tomtom215/onair/internal/store"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db)
}

func newTestPlaylist(t *testing.T, repo *Repository) *Playlist {
	t.Helper()
	p, err := repo.CreatePlaylist(context.Background(), Playlist{DJUser: "dj-kumar"})
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	return p
}

func TestCreatePlaylist(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	p := newTestPlaylist(t, repo)
	if p.Type != TypeOnAir {
		t.Errorf("Type = %q, want %q", p.Type, TypeOnAir)
	}
	if p.ID == "" || p.Established.IsZero() {
		t.Errorf("expected ID and timestamps, got %+v", p)
	}

	if _, err := repo.CreatePlaylist(context.Background(), Playlist{DJUser: "dj", Type: "podcast"}); err == nil {
		t.Error("expected error for unsupported playlist type")
	}
	if _, err := repo.CreatePlaylist(context.Background(), Playlist{}); err == nil {
		t.Error("expected error for missing DJ user")
	}
}

func TestAddTrackValidation(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	p := newTestPlaylist(t, repo)
	ctx := context.Background()

	tests := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{"freeform", Event{ArtistName: "Wire", TrackTitle: "Outdoor Miner"}, false},
		{"references", Event{ArtistRef: "ar-1", TrackRef: "t-1"}, false},
		{"no track", Event{ArtistName: "Wire"}, true},
		{"no artist", Event{TrackTitle: "Outdoor Miner"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.AddTrack(ctx, p.ID, tt.ev)
			if (err != nil) != tt.wantErr {
				t.Errorf("AddTrack() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddTrackUnknownPlaylist(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	_, err := repo.AddTrack(context.Background(), "nope", Event{ArtistName: "a", TrackTitle: "b"})
	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}
}

// TestAddTrackConcurrentNumbering verifies concurrent inserts into one
// playlist receive distinct, gapless track numbers.
func TestAddTrackConcurrentNumbering(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	p := newTestPlaylist(t, repo)
	ctx := context.Background()

	const n = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ev, err := repo.AddTrack(ctx, p.ID, Event{ArtistName: "Wire", TrackTitle: "Ex Lion Tamer"})
			if err != nil {
				t.Errorf("AddTrack() error = %v", err)
				return
			}
			mu.Lock()
			numbers = append(numbers, ev.TrackNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(numbers)
	for i, got := range numbers {
		if got != i+1 {
			t.Fatalf("track numbers = %v, want 1..%d", numbers, n)
		}
	}

	stored, err := repo.GetPlaylist(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.TrackCount != n {
		t.Errorf("TrackCount = %d, want %d", stored.TrackCount, n)
	}
}

func TestDeleteAndList(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	p := newTestPlaylist(t, repo)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"One", "Two", "Three"} {
		ev, err := repo.AddTrack(ctx, p.ID, Event{ArtistName: "A", TrackTitle: title})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, ev.ID)
	}

	if err := repo.DeleteTrack(ctx, ids[1]); err != nil {
		t.Fatalf("DeleteTrack() error = %v", err)
	}
	if _, err := repo.GetEvent(ctx, ids[1]); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound after delete, got %v", err)
	}
	if err := repo.DeleteTrack(ctx, ids[1]); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound on second delete, got %v", err)
	}

	events, err := repo.ListTracks(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].TrackTitle != "One" || events[1].TrackTitle != "Three" {
		t.Errorf("ListTracks() = %+v", events)
	}

	next, err := repo.AddTrack(ctx, p.ID, Event{ArtistName: "A", TrackTitle: "Four"})
	if err != nil {
		t.Fatal(err)
	}
	if next.TrackNumber != 4 {
		t.Errorf("TrackNumber = %d, want 4 (numbers are not reused)", next.TrackNumber)
	}
}
