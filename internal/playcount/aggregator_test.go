// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playcount

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/onair/internal/catalog"
	"github.com/tomtom215/onair/internal/playlist"
)

type mapEvents struct {
	mu     sync.Mutex
	events map[string]*playlist.Event
}

func (m *mapEvents) GetEvent(_ context.Context, id string) (*playlist.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, playlist.ErrEventNotFound
	}
	return ev, nil
}

func (m *mapEvents) add(ev *playlist.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.ID] = ev
}

type mapTracks map[string]*catalog.Track

func (m mapTracks) GetTrack(_ context.Context, id string) (*catalog.Track, error) {
	tr, ok := m[id]
	if !ok {
		return nil, catalog.ErrTrackNotFound
	}
	return tr, nil
}

func newTestAggregator(t *testing.T, clock *fakeClock) (*Aggregator, *mapEvents, *CounterStore) {
	t.Helper()
	s, _ := newTestCounterStore(t, clock)
	events := &mapEvents{events: map[string]*playlist.Event{}}
	tracks := mapTracks{"t1": {ID: "t1", Title: "Pushin' Too Hard", AlbumID: "comp", TrackArtistName: "The Seeds"}}
	return NewAggregator(events, tracks, NewResolver(testCatalog()), s), events, s
}

func TestCountPlayCreatesThenIncrements(t *testing.T) {
	t.Parallel()
	agg, events, s := newTestAggregator(t, newFakeClock())
	ctx := context.Background()

	events.add(&playlist.Event{ID: "e1", ArtistName: "Wire", TrackTitle: "Mr. Suit", AlbumTitle: "Pink Flag"})
	events.add(&playlist.Event{ID: "e2", ArtistName: "Wire", TrackTitle: "Mr. Suit", AlbumTitle: "Pink Flag"})

	res, err := agg.CountPlay(ctx, "e1")
	if err != nil {
		t.Fatalf("CountPlay(e1) error = %v", err)
	}
	if res.Outcome != OutcomeCreated || res.Count.PlayCount != 1 {
		t.Errorf("CountPlay(e1) = %s/%d, want created/1", res.Outcome, res.Count.PlayCount)
	}

	res, err = agg.CountPlay(ctx, "e2")
	if err != nil {
		t.Fatalf("CountPlay(e2) error = %v", err)
	}
	if res.Outcome != OutcomeIncremented || res.Count.PlayCount != 2 {
		t.Errorf("CountPlay(e2) = %s/%d, want incremented/2", res.Outcome, res.Count.PlayCount)
	}

	pc, err := s.Get(ctx, CounterKey("Wire", "Pink Flag"))
	if err != nil || pc.PlayCount != 2 || pc.Label != "Harvest" {
		t.Errorf("stored counter = %+v, %v", pc, err)
	}
}

func TestCountPlayRedeliveryCountsOnce(t *testing.T) {
	t.Parallel()
	agg, events, s := newTestAggregator(t, newFakeClock())
	ctx := context.Background()

	events.add(&playlist.Event{ID: "e1", ArtistName: "Wire", TrackTitle: "Mr. Suit", AlbumTitle: "Pink Flag"})
	events.add(&playlist.Event{ID: "e2", ArtistName: "Wire", TrackTitle: "Mr. Suit", AlbumTitle: "Pink Flag"})

	for _, id := range []string{"e1", "e1", "e2", "e2", "e2"} {
		if _, err := agg.CountPlay(ctx, id); err != nil {
			t.Fatalf("CountPlay(%s) error = %v", id, err)
		}
	}
	res, err := agg.CountPlay(ctx, "e2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeDuplicate {
		t.Errorf("Outcome = %s, want duplicate", res.Outcome)
	}

	pc, err := s.Get(ctx, CounterKey("Wire", "Pink Flag"))
	if err != nil {
		t.Fatal(err)
	}
	if pc.PlayCount != 2 {
		t.Errorf("PlayCount = %d, want 2", pc.PlayCount)
	}
}

func TestCountPlayCompilation(t *testing.T) {
	t.Parallel()
	agg, events, _ := newTestAggregator(t, newFakeClock())
	ctx := context.Background()

	events.add(&playlist.Event{ID: "e1", ArtistName: "The Seeds", TrackTitle: "Pushin' Too Hard", AlbumTitle: "Nuggets"})
	events.add(&playlist.Event{ID: "e2", TrackRef: "t1", AlbumTitle: "Nuggets"})

	for _, id := range []string{"e1", "e2"} {
		res, err := agg.CountPlay(ctx, id)
		if err != nil {
			t.Fatalf("CountPlay(%s) error = %v", id, err)
		}
		if res.Identity.ArtistName != VariousArtists {
			t.Errorf("CountPlay(%s) artist = %q, want %q", id, res.Identity.ArtistName, VariousArtists)
		}
	}
}

func TestCountPlayMissingEvent(t *testing.T) {
	t.Parallel()
	agg, _, _ := newTestAggregator(t, newFakeClock())

	res, err := agg.CountPlay(context.Background(), "deleted")
	if err != nil {
		t.Fatalf("CountPlay() error = %v", err)
	}
	if res.Outcome != OutcomeEventMissing {
		t.Errorf("Outcome = %s, want %s", res.Outcome, OutcomeEventMissing)
	}
}

func TestCountPlayAfterConcurrentExpiry(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	agg, events, s := newTestAggregator(t, clock)
	ctx := context.Background()

	events.add(&playlist.Event{ID: "e1", ArtistName: "Wire", TrackTitle: "Mr. Suit", AlbumTitle: "Pink Flag"})
	if _, err := agg.CountPlay(ctx, "e1"); err != nil {
		t.Fatal(err)
	}

	// Expire the counter, then replay the increment step the pipeline
	// would run for a second event that looked the counter up beforehand.
	key := CounterKey("Wire", "Pink Flag")
	clock.Advance(8 * 24 * time.Hour)
	if n, err := s.ExpireOlderThan(ctx, 7*24*time.Hour, 1000); err != nil || n != 1 {
		t.Fatalf("ExpireOlderThan() = %d, %v", n, err)
	}

	_, err := s.Increment(ctx, key, ForEvent("e2"))
	if !errors.Is(err, ErrCounterNotFound) {
		t.Errorf("expected ErrCounterNotFound, got %v", err)
	}
}
