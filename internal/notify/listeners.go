// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package notify

import (
	"context"
	"fmt"

	"github.com/tomtom215/onair/internal/dispatch"
	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/playlist"
)

// Queue names for the asynchronous work each listener schedules.
const (
	QueueSitePush  = "live-site-playlists"
	QueueLive365   = "live365"
	QueuePlayCount = "play-count"
)

// Enqueuer schedules a unit of work for a playlist event.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, eventID string) error
}

// queueListener enqueues one task per created event. Deletes are not
// propagated: none of the downstream systems can retract an entry.
type queueListener struct {
	name  string
	queue string
	q     Enqueuer
}

func (l queueListener) Name() string { return l.name }

func (l queueListener) Create(ctx context.Context, ev *playlist.Event) error {
	if err := l.q.Enqueue(ctx, l.queue, ev.ID); err != nil {
		return fmt.Errorf("enqueue %s task: %w", l.queue, err)
	}
	return nil
}

func (l queueListener) Delete(ctx context.Context, eventID string) error {
	logging.Ctx(ctx).Debug().
		Str("listener", l.name).
		Str("event_id", eventID).
		Msg("Delete not propagated downstream")
	return nil
}

// SiteListener tells the station website a track was added.
type SiteListener struct{ queueListener }

// NewSiteListener creates the website push listener.
func NewSiteListener(q Enqueuer) *SiteListener {
	return &SiteListener{queueListener{name: "site-push", queue: QueueSitePush, q: q}}
}

// Live365Listener sends track metadata to the Live365 player.
type Live365Listener struct{ queueListener }

// NewLive365Listener creates the metadata listener.
func NewLive365Listener(q Enqueuer) *Live365Listener {
	return &Live365Listener{queueListener{name: "live365", queue: QueueLive365, q: q}}
}

// PlayCountListener schedules play count aggregation.
type PlayCountListener struct{ queueListener }

// NewPlayCountListener creates the play count listener.
func NewPlayCountListener(q Enqueuer) *PlayCountListener {
	return &PlayCountListener{queueListener{name: "play-count", queue: QueuePlayCount, q: q}}
}

// Listeners returns the station's listener set in dispatch order.
func Listeners(q Enqueuer) []dispatch.Listener {
	return []dispatch.Listener{
		NewSiteListener(q),
		NewLive365Listener(q),
		NewPlayCountListener(q),
	}
}
