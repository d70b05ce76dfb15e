// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playlist

import (
	"context"
	"sync"
	"testing"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (d *recordingDispatcher) DispatchCreate(_ context.Context, ev *Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = append(d.created, ev.ID)
}

func (d *recordingDispatcher) DispatchDelete(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, id)
}

func TestServiceDispatchesAfterWrite(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	d := &recordingDispatcher{}
	svc := NewService(repo, d)
	ctx := context.Background()

	p, err := svc.CreatePlaylist(ctx, Playlist{DJUser: "dj"})
	if err != nil {
		t.Fatal(err)
	}

	ev, err := svc.AddTrack(ctx, p.ID, Event{ArtistName: "Can", TrackTitle: "Vitamin C"})
	if err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}
	if len(d.created) != 1 || d.created[0] != ev.ID {
		t.Errorf("created = %v, want [%s]", d.created, ev.ID)
	}

	if err := svc.DeleteTrack(ctx, ev.ID); err != nil {
		t.Fatalf("DeleteTrack() error = %v", err)
	}
	if len(d.deleted) != 1 || d.deleted[0] != ev.ID {
		t.Errorf("deleted = %v, want [%s]", d.deleted, ev.ID)
	}
}

func TestServiceSkipsDispatchOnFailedWrite(t *testing.T) {
	t.Parallel()
	repo := newTestRepository(t)
	d := &recordingDispatcher{}
	svc := NewService(repo, d)

	if _, err := svc.AddTrack(context.Background(), "missing", Event{ArtistName: "a", TrackTitle: "b"}); err == nil {
		t.Fatal("expected error")
	}
	if err := svc.DeleteTrack(context.Background(), "missing"); err == nil {
		t.Fatal("expected error")
	}
	if len(d.created) != 0 || len(d.deleted) != 0 {
		t.Errorf("expected no dispatch, got created=%v deleted=%v", d.created, d.deleted)
	}
}
