// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/onair/internal/playlist"
	"github.com/tomtom215/onair/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// CreatePlaylistRequest is the body of POST /api/v1/playlists.
type CreatePlaylistRequest struct {
	DJUser string `json:"dj_user"`
	Type   string `json:"playlist_type"`
}

// AddTrackRequest is the body of POST /api/v1/playlists/{id}/tracks.
type AddTrackRequest struct {
	ArtistName string `json:"artist_name"`
	ArtistRef  string `json:"artist"`
	TrackTitle string `json:"track_title"`
	TrackRef   string `json:"track"`
	AlbumTitle string `json:"album_title"`
	AlbumRef   string `json:"album"`
	Label      string `json:"label"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		NewResponseWriter(w, r).BadRequest("Invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps playlist errors onto HTTP responses.
func writeServiceError(rw *ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
	case errors.Is(err, playlist.ErrPlaylistNotFound):
		rw.NotFound("Playlist not found")
	case errors.Is(err, playlist.ErrEventNotFound):
		rw.NotFound("Track not found")
	default:
		rw.DatabaseError(err)
	}
}

// CreatePlaylist handles POST /api/v1/playlists.
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rw := NewResponseWriter(w, r)
	p, err := h.deps.Playlists.CreatePlaylist(r.Context(), playlist.Playlist{
		DJUser: req.DJUser,
		Type:   req.Type,
	})
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	rw.Created(p)
}

// GetPlaylist handles GET /api/v1/playlists/{id}.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	p, err := h.deps.Playlists.GetPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	rw.Success(p)
}

// AddTrack handles POST /api/v1/playlists/{id}/tracks.
func (h *Handler) AddTrack(w http.ResponseWriter, r *http.Request) {
	var req AddTrackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rw := NewResponseWriter(w, r)
	ev, err := h.deps.Playlists.AddTrack(r.Context(), chi.URLParam(r, "id"), playlist.Event{
		ArtistName: req.ArtistName,
		ArtistRef:  req.ArtistRef,
		TrackTitle: req.TrackTitle,
		TrackRef:   req.TrackRef,
		AlbumTitle: req.AlbumTitle,
		AlbumRef:   req.AlbumRef,
		Label:      req.Label,
	})
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	rw.Created(ev)
}

// ListTracks handles GET /api/v1/playlists/{id}/tracks.
func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	events, err := h.deps.Playlists.ListTracks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	rw.SuccessList(events, len(events))
}

// DeleteTrack handles DELETE /api/v1/playlists/{id}/tracks/{eventID}.
func (h *Handler) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	ev, err := h.deps.Playlists.GetEvent(ctx, chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(rw, err)
		return
	}
	if ev.PlaylistID != chi.URLParam(r, "id") {
		rw.NotFound("Track not found")
		return
	}
	if err := h.deps.Playlists.DeleteTrack(ctx, ev.ID); err != nil {
		writeServiceError(rw, err)
		return
	}
	rw.NoContent()
}
