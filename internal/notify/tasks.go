// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tomtom215/onair/internal/config"
	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/playcount"
	"github.com/tomtom215/onair/internal/playlist"
)

// Live365 protocol constants.
const (
	live365APIVersion = "2"
	live365Seconds    = "30"
)

// ErrTaskFailed is returned when a task ran but its outbound work failed.
var ErrTaskFailed = errors.New("task was unsuccessful")

// EventSource loads playlist events.
type EventSource interface {
	GetEvent(ctx context.Context, id string) (*playlist.Event, error)
}

// PlayCounter runs the play count pipeline for one event.
type PlayCounter interface {
	CountPlay(ctx context.Context, eventID string) (*playcount.Result, error)
}

// Tasks executes the queued work scheduled by the listeners. Every method
// is safe to run more than once for the same event.
type Tasks struct {
	fetcher  *Fetcher
	settings *config.Settings
	events   EventSource
	counter  PlayCounter
}

// NewTasks creates the task handlers.
func NewTasks(fetcher *Fetcher, settings *config.Settings, events EventSource, counter PlayCounter) *Tasks {
	return &Tasks{fetcher: fetcher, settings: settings, events: events, counter: counter}
}

// PushNotify pings the website's "recently played" and "now playing" push
// channels. Both are always attempted and both must answer 200.
func (t *Tasks) PushNotify(ctx context.Context, eventID string) error {
	logging.Ctx(ctx).Info().Str("event_id", eventID).Msg("Pushing notifications for track")

	channels := []struct{ target, key string }{
		{"push.recently_played", config.KeyPushRecentlyPlayedURL},
		{"push.now_playing", config.KeyPushNowPlayingURL},
	}

	var failed []string
	for _, ch := range channels {
		ok, err := t.push(ctx, ch.target, ch.key)
		if err != nil {
			return err
		}
		if !ok {
			failed = append(failed, ch.target)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: push notifications failed for %v", ErrTaskFailed, failed)
	}
	return nil
}

func (t *Tasks) push(ctx context.Context, target, key string) (bool, error) {
	pushURL, err := t.settings.Require(key)
	if err != nil {
		if config.IsFatal(err) {
			return false, err
		}
		return true, nil
	}

	res, err := t.fetcher.Fetch(ctx, Request{Target: target, URL: pushURL})
	if err != nil {
		return false, err
	}
	logging.Ctx(ctx).Info().
		Str("url", pushURL).
		Int("status", res.StatusCode).
		Msg("Push response")
	return res.StatusCode == http.StatusOK, nil
}

// SubmitMetadata posts the event's title, artist and album to Live365.
// An event deleted before the task ran is a successful no-op.
func (t *Tasks) SubmitMetadata(ctx context.Context, eventID string) error {
	log := logging.Ctx(ctx).With().Str("event_id", eventID).Logger()

	ev, err := t.events.GetEvent(ctx, eventID)
	if errors.Is(err, playlist.ErrEventNotFound) {
		log.Warn().Msg("Requested to submit a non-existent track")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load playlist event: %w", err)
	}

	var creds [3]string
	for i, key := range []string{config.KeyLive365MemberName, config.KeyLive365Password, config.KeyLive365ServiceURL} {
		v, err := t.settings.Require(key)
		if config.IsFatal(err) {
			return err
		}
		creds[i] = v
	}
	memberName, password, serviceURL := creds[0], creds[1], creds[2]
	if serviceURL == "" {
		log.Warn().Msg("Skipping Live365 submission without a service URL")
		return nil
	}

	log.Info().Msg("Live365 create track")
	form := url.Values{
		"member_name": {memberName},
		"password":    {password},
		"version":     {live365APIVersion},
		"seconds":     {live365Seconds},
		"title":       {latin1(ev.TrackTitle)},
		"artist":      {latin1(ev.ArtistName)},
		"album":       {latin1(ev.AlbumTitle)},
	}

	res, err := t.fetcher.Fetch(ctx, Request{
		Target:  "live365",
		URL:     serviceURL,
		Method:  http.MethodPost,
		Body:    []byte(form.Encode()),
		Headers: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
	})
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("%w: %s", ErrTaskFailed, res)
	}
	return nil
}

// CountPlay runs play count aggregation for the event. It fails only when
// the counter update itself fails.
func (t *Tasks) CountPlay(ctx context.Context, eventID string) error {
	res, err := t.counter.CountPlay(ctx, eventID)
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Debug().
		Str("event_id", eventID).
		Str("outcome", string(res.Outcome)).
		Msg("Play count task finished")
	return nil
}
