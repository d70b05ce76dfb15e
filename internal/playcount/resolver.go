// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package playcount

import (
	"context"

	"github.com/tomtom215/onair/internal/catalog"
	"github.com/tomtom215/onair/internal/logging"
)

// Catalog is the read-only view of the reference library the resolver needs.
type Catalog interface {
	GetAlbum(ctx context.Context, id string) (*catalog.Album, error)
	TracksByTitle(ctx context.Context, title string) ([]catalog.Track, error)
}

// Query is the freeform text of one playlist event.
type Query struct {
	ArtistName string
	TrackTitle string
	AlbumTitle string
	// AlbumRef is the catalog album ID when the DJ picked the album from the library.
	AlbumRef string
	Label    string
}

// Identity is the canonical (artist, album) a play is counted under.
type Identity struct {
	ArtistName string
	AlbumTitle string
	Label      string

	// Album is the catalog album the event resolved to, or nil.
	Album *catalog.Album
}

// Resolver maps freeform playlist text to canonical identities.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(c Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve finds the event's album and derives the identity to count under.
//
// An album named by reference is used as is. Otherwise the catalog is
// searched for tracks titled exactly q.TrackTitle, and the first one whose
// track artist equals q.ArtistName and whose album title equals q.AlbumTitle
// supplies the album. If that album is a compilation the artist becomes
// VariousArtists.
//
// Resolution never fails: an unresolved album, or a catalog error, is logged
// and the original text is used as the identity.
func (r *Resolver) Resolve(ctx context.Context, q Query) Identity {
	id := Identity{
		ArtistName: q.ArtistName,
		AlbumTitle: q.AlbumTitle,
		Label:      q.Label,
	}

	album := r.albumByRef(ctx, q.AlbumRef)
	if album == nil {
		album = r.searchCompilation(ctx, q)
	}
	if album == nil {
		logging.Ctx(ctx).Info().
			Str("artist", q.ArtistName).
			Str("track", q.TrackTitle).
			Str("album", q.AlbumTitle).
			Msg("No album found for playlist entry")
		return id
	}

	id.Album = album
	if id.AlbumTitle == "" {
		id.AlbumTitle = album.Title
	}
	if id.Label == "" {
		id.Label = album.Label
	}
	if album.IsCompilation {
		id.ArtistName = VariousArtists
	}
	return id
}

func (r *Resolver) albumByRef(ctx context.Context, ref string) *catalog.Album {
	if ref == "" {
		return nil
	}
	album, err := r.catalog.GetAlbum(ctx, ref)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("album_ref", ref).Msg("Referenced album could not be loaded")
		return nil
	}
	return album
}

func (r *Resolver) searchCompilation(ctx context.Context, q Query) *catalog.Album {
	if q.TrackTitle == "" {
		return nil
	}
	candidates, err := r.catalog.TracksByTitle(ctx, q.TrackTitle)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("track", q.TrackTitle).Msg("Catalog track search failed")
		return nil
	}

	for _, candidate := range candidates {
		if candidate.TrackArtistName == "" || candidate.TrackArtistName != q.ArtistName {
			continue
		}
		album, err := r.catalog.GetAlbum(ctx, candidate.AlbumID)
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Str("track_id", candidate.ID).Msg("Skipping candidate without album")
			continue
		}
		if album.Title == q.AlbumTitle {
			return album
		}
	}
	return nil
}
