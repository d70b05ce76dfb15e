// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playcount

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/onair/internal/catalog"
	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/playlist"
)

// EventSource loads playlist events by ID.
type EventSource interface {
	GetEvent(ctx context.Context, id string) (*playlist.Event, error)
}

// TrackSource loads catalog tracks, used to fill in events logged by reference.
type TrackSource interface {
	GetTrack(ctx context.Context, id string) (*catalog.Track, error)
}

// Outcome is what counting one event did.
type Outcome string

const (
	OutcomeCreated      Outcome = "created"
	OutcomeIncremented  Outcome = "incremented"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeEventMissing Outcome = "event_missing"
)

// Result reports the outcome and the counter after the update.
type Result struct {
	Outcome  Outcome
	Identity Identity
	Count    *PlayCount
}

// Aggregator runs the resolve-then-count pipeline for one playlist event.
type Aggregator struct {
	events   EventSource
	tracks   TrackSource
	resolver *Resolver
	counters *CounterStore
}

// NewAggregator wires the pipeline. tracks may be nil.
func NewAggregator(events EventSource, tracks TrackSource, resolver *Resolver, counters *CounterStore) *Aggregator {
	return &Aggregator{events: events, tracks: tracks, resolver: resolver, counters: counters}
}

// CountPlay counts the playlist event eventID exactly once.
//
// A missing event is not an error: it was deleted before the work ran.
// A redelivered event is reported as OutcomeDuplicate. The only errors are
// store failures and ErrCounterNotFound, which means the expiry sweep
// removed the counter between lookup and increment; the caller reports it
// and the task environment decides whether to retry.
func (a *Aggregator) CountPlay(ctx context.Context, eventID string) (*Result, error) {
	log := logging.Ctx(ctx).With().Str("event_id", eventID).Logger()

	ev, err := a.events.GetEvent(ctx, eventID)
	if errors.Is(err, playlist.ErrEventNotFound) {
		log.Warn().Msg("Play count requested for a playlist event that no longer exists")
		return &Result{Outcome: OutcomeEventMissing}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load playlist event: %w", err)
	}

	identity := a.resolver.Resolve(ctx, a.query(ctx, ev))

	pc, created, err := a.counters.FindOrCreate(ctx, identity.ArtistName, identity.AlbumTitle, identity.Label, ForEvent(ev.ID))
	if errors.Is(err, ErrDuplicateEvent) {
		log.Info().Msg("Playlist event already counted")
		return &Result{Outcome: OutcomeDuplicate, Identity: identity}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find or create play count: %w", err)
	}
	if created {
		log.Debug().Str("artist", identity.ArtistName).Str("album", identity.AlbumTitle).Msg("Play count created")
		return &Result{Outcome: OutcomeCreated, Identity: identity, Count: pc}, nil
	}

	pc, err = a.counters.Increment(ctx, pc.Key, ForEvent(ev.ID))
	if errors.Is(err, ErrDuplicateEvent) {
		log.Info().Msg("Playlist event already counted")
		return &Result{Outcome: OutcomeDuplicate, Identity: identity}, nil
	}
	if err != nil {
		log.Error().Err(err).
			Str("artist", identity.ArtistName).
			Str("album", identity.AlbumTitle).
			Msg("Play count increment failed")
		return nil, fmt.Errorf("increment play count: %w", err)
	}
	return &Result{Outcome: OutcomeIncremented, Identity: identity, Count: pc}, nil
}

// query builds the resolver input, filling blank free text from the
// referenced catalog track.
func (a *Aggregator) query(ctx context.Context, ev *playlist.Event) Query {
	q := Query{
		ArtistName: ev.ArtistName,
		TrackTitle: ev.TrackTitle,
		AlbumTitle: ev.AlbumTitle,
		AlbumRef:   ev.AlbumRef,
		Label:      ev.Label,
	}
	if ev.TrackRef == "" || a.tracks == nil || (q.TrackTitle != "" && q.ArtistName != "") {
		return q
	}

	track, err := a.tracks.GetTrack(ctx, ev.TrackRef)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("track_ref", ev.TrackRef).Msg("Referenced track could not be loaded")
		return q
	}
	if q.TrackTitle == "" {
		q.TrackTitle = track.Title
	}
	if q.ArtistName == "" {
		q.ArtistName = track.TrackArtistName
	}
	if q.AlbumRef == "" {
		q.AlbumRef = track.AlbumID
	}
	return q
}
