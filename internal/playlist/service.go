// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playlist

import (
	"context"

	"github.com/tomtom215/onair/internal/logging"
)

// EventDispatcher receives playlist events after they are written.
// Implementations isolate their own failures; they cannot fail the write.
type EventDispatcher interface {
	DispatchCreate(ctx context.Context, ev *Event)
	DispatchDelete(ctx context.Context, eventID string)
}

// Service is the write path for playlist tracks: persist first, then fan out.
type Service struct {
	repo       *Repository
	dispatcher EventDispatcher
}

// NewService creates a playlist service.
func NewService(repo *Repository, dispatcher EventDispatcher) *Service {
	return &Service{repo: repo, dispatcher: dispatcher}
}

// Repository returns the underlying repository for read paths.
func (s *Service) Repository() *Repository {
	return s.repo
}

// CreatePlaylist stores a new playlist.
func (s *Service) CreatePlaylist(ctx context.Context, p Playlist) (*Playlist, error) {
	return s.repo.CreatePlaylist(ctx, p)
}

// AddTrack stores a track and dispatches its creation.
func (s *Service) AddTrack(ctx context.Context, playlistID string, ev Event) (*Event, error) {
	stored, err := s.repo.AddTrack(ctx, playlistID, ev)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Str("playlist_id", playlistID).
		Str("event_id", stored.ID).
		Int("track_number", stored.TrackNumber).
		Msg("Playlist track added")

	s.dispatcher.DispatchCreate(ctx, stored)
	return stored, nil
}

// DeleteTrack removes a track and dispatches its deletion.
func (s *Service) DeleteTrack(ctx context.Context, eventID string) error {
	if err := s.repo.DeleteTrack(ctx, eventID); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("event_id", eventID).Msg("Playlist track deleted")

	s.dispatcher.DispatchDelete(ctx, eventID)
	return nil
}

// GetPlaylist returns a playlist by ID.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	return s.repo.GetPlaylist(ctx, id)
}

// GetEvent returns a track by event ID.
func (s *Service) GetEvent(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetEvent(ctx, id)
}

// ListTracks returns a playlist's tracks in order.
func (s *Service) ListTracks(ctx context.Context, playlistID string) ([]Event, error) {
	return s.repo.ListTracks(ctx, playlistID)
}
