// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
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

func TestPutAndGet(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	album := &Album{ID: "al-1", Title: "Kings of Jazz", IsCompilation: true}
	if err := repo.PutAlbum(ctx, album); err != nil {
		t.Fatalf("PutAlbum() error = %v", err)
	}
	got, err := repo.GetAlbum(ctx, "al-1")
	if err != nil {
		t.Fatalf("GetAlbum() error = %v", err)
	}
	if got.Title != "Kings of Jazz" || !got.IsCompilation {
		t.Errorf("GetAlbum() = %+v", got)
	}

	if _, err := repo.GetAlbum(ctx, "missing"); !errors.Is(err, ErrAlbumNotFound) {
		t.Errorf("expected ErrAlbumNotFound, got %v", err)
	}
	if _, err := repo.GetTrack(ctx, "missing"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestPutAlbumValidation(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)

	if err := repo.PutAlbum(context.Background(), &Album{ID: "al-1"}); err == nil {
		t.Error("expected validation error for album without title")
	}
}

func TestTracksByTitleExactMatch(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, tr := range []Track{
		{ID: "t-2", Title: "Intro", AlbumID: "al-2", TrackArtistName: "B"},
		{ID: "t-1", Title: "Intro", AlbumID: "al-1", TrackArtistName: "A"},
		{ID: "t-3", Title: "Intro (Live)", AlbumID: "al-1", TrackArtistName: "A"},
		{ID: "t-4", Title: "intro", AlbumID: "al-1", TrackArtistName: "A"},
	} {
		tr := tr
		if err := repo.PutTrack(ctx, &tr); err != nil {
			t.Fatalf("PutTrack(%s) error = %v", tr.ID, err)
		}
	}

	tracks, err := repo.TracksByTitle(ctx, "Intro")
	if err != nil {
		t.Fatalf("TracksByTitle() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d: %+v", len(tracks), tracks)
	}
	if tracks[0].ID != "t-1" || tracks[1].ID != "t-2" {
		t.Errorf("expected tracks ordered by ID, got %s, %s", tracks[0].ID, tracks[1].ID)
	}
}

func TestPutTrackRetitleUpdatesIndex(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.PutTrack(ctx, &Track{ID: "t-1", Title: "Old", AlbumID: "al-1"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.PutTrack(ctx, &Track{ID: "t-1", Title: "New", AlbumID: "al-1"}); err != nil {
		t.Fatal(err)
	}

	old, err := repo.TracksByTitle(ctx, "Old")
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("expected stale title index to be removed, got %+v", old)
	}
	renamed, err := repo.TracksByTitle(ctx, "New")
	if err != nil {
		t.Fatal(err)
	}
	if len(renamed) != 1 {
		t.Errorf("expected 1 track under new title, got %d", len(renamed))
	}
}

func TestLoadSeed(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "catalog.json")
	seed := `{
  "albums": [{"id": "al-1", "title": "Soul Sides", "is_compilation": true}],
  "tracks": [{"id": "t-1", "title": "Ain't It Funky", "album_id": "al-1", "track_artist_name": "Sharon Jones"}]
}`
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := repo.LoadSeed(ctx, path); err != nil {
		t.Fatalf("LoadSeed() error = %v", err)
	}
	tracks, err := repo.TracksByTitle(ctx, "Ain't It Funky")
	if err != nil || len(tracks) != 1 {
		t.Fatalf("TracksByTitle() = %v, %v", tracks, err)
	}
	if tracks[0].TrackArtistName != "Sharon Jones" {
		t.Errorf("TrackArtistName = %q", tracks[0].TrackArtistName)
	}
}
