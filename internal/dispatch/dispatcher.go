// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package dispatch fans playlist track writes out to an ordered set of
// listeners.
//
// The dispatcher is constructed once at startup and shared by every request.
// Each listener call is isolated: an error or panic from one listener is
// logged and counted, and the remaining listeners still run. Nothing a
// listener does can fail the playlist write that triggered it.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/metrics"
	"github.com/tomtom215/onair/internal/playlist"
)

// Action names used in logs and metrics.
const (
	ActionCreate = "create"
	ActionDelete = "delete"
)

// Listener reacts to playlist track writes.
type Listener interface {
	// Name identifies the listener in logs and metrics.
	Name() string

	// Create is called after a track event is stored.
	Create(ctx context.Context, ev *playlist.Event) error

	// Delete is called after a track event is removed.
	Delete(ctx context.Context, eventID string) error
}

// Dispatcher invokes its listeners in registration order.
type Dispatcher struct {
	listeners []Listener
}

// New creates a dispatcher over listeners, called in the given order.
func New(listeners ...Listener) *Dispatcher {
	ls := make([]Listener, len(listeners))
	copy(ls, listeners)
	return &Dispatcher{listeners: ls}
}

// Listeners returns the registered listener names in call order.
func (d *Dispatcher) Listeners() []string {
	names := make([]string, len(d.listeners))
	for i, l := range d.listeners {
		names[i] = l.Name()
	}
	return names
}

// DispatchCreate calls Create on every listener.
func (d *Dispatcher) DispatchCreate(ctx context.Context, ev *playlist.Event) {
	for _, l := range d.listeners {
		d.call(ctx, l, ActionCreate, ev.ID, func() error {
			return l.Create(ctx, ev)
		})
	}
}

// DispatchDelete calls Delete on every listener.
func (d *Dispatcher) DispatchDelete(ctx context.Context, eventID string) {
	for _, l := range d.listeners {
		d.call(ctx, l, ActionDelete, eventID, func() error {
			return l.Delete(ctx, eventID)
		})
	}
}

func (d *Dispatcher) call(ctx context.Context, l Listener, action, eventID string, fn func() error) {
	err := safeCall(fn)
	if err != nil {
		logging.Ctx(ctx).Error().
			Err(err).
			Str("listener", l.Name()).
			Str("action", action).
			Str("event_id", eventID).
			Msg("Playlist listener failed")
		metrics.RecordDispatch(l.Name(), action, "error")
		return
	}
	metrics.RecordDispatch(l.Name(), action, "success")
}

// safeCall runs fn, converting a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

// Compile-time interface check.
var _ playlist.EventDispatcher = (*Dispatcher)(nil)
