// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package api serves the HTTP surface: the task endpoints the queue calls
// back into, the playlist and play count REST API, manual cron triggers,
// health and Prometheus metrics.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/onair/internal/playcount"
	"github.com/tomtom215/onair/internal/playlist"
	"github.com/tomtom215/onair/internal/scheduler"
)

// Playlists is the playlist write and read path.
type Playlists interface {
	CreatePlaylist(ctx context.Context, p playlist.Playlist) (*playlist.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*playlist.Playlist, error)
	AddTrack(ctx context.Context, playlistID string, ev playlist.Event) (*playlist.Event, error)
	GetEvent(ctx context.Context, id string) (*playlist.Event, error)
	ListTracks(ctx context.Context, playlistID string) ([]playlist.Event, error)
	DeleteTrack(ctx context.Context, eventID string) error
}

// TaskRunner executes the queued per-event tasks.
type TaskRunner interface {
	PushNotify(ctx context.Context, eventID string) error
	SubmitMetadata(ctx context.Context, eventID string) error
	CountPlay(ctx context.Context, eventID string) error
}

// PlayCounts reads the live counters.
type PlayCounts interface {
	TopN(ctx context.Context, n int) ([]playcount.PlayCount, error)
}

// Snapshots reads snapshot batches.
type Snapshots interface {
	ListBatches(ctx context.Context) ([]playcount.BatchSummary, error)
	GetBatch(ctx context.Context, batchID string) (*playcount.Batch, error)
}

// HealthCheck is one named dependency check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the services the handlers call.
type Deps struct {
	Playlists Playlists
	Tasks     TaskRunner
	Counters  PlayCounts
	Snapshots Snapshots
	Jobs      []scheduler.Job
	Checks    []HealthCheck

	// TaskTokenSecret enables bearer auth on /tasks and /cron when set.
	TaskTokenSecret string
}

// Handler holds the HTTP handlers.
type Handler struct {
	deps Deps
	jobs map[string]scheduler.Job
}

// NewHandler creates the handler set.
func NewHandler(deps Deps) *Handler {
	jobs := make(map[string]scheduler.Job, len(deps.Jobs))
	for _, j := range deps.Jobs {
		jobs[j.Name] = j
	}
	return &Handler{deps: deps, jobs: jobs}
}

// Router wires the chi router.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, config MiddlewareConfig) *Router {
	return &Router{handler: handler, mw: NewChiMiddleware(config)}
}

// Setup returns the configured http.Handler.
//
// Global middleware order:
//  1. RequestIDWithLogging
//  2. RealIP
//  3. Recoverer
//  4. PrometheusMetrics
//  5. CORS
func (r *Router) Setup() http.Handler {
	h := r.handler
	router := chi.NewRouter()

	router.Use(RequestIDWithLogging())
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(PrometheusMetrics)
	router.Use(r.mw.CORS())

	router.Get("/health", h.Health)
	router.Handle("/metrics", promhttp.Handler())

	// Called by the queue workers and the external scheduler, so no rate limit.
	router.Group(func(tr chi.Router) {
		tr.Use(TaskAuth(h.deps.TaskTokenSecret))

		tr.Route("/tasks", func(tasks chi.Router) {
			tasks.Post("/push-notify", h.taskHandler(h.deps.Tasks.PushNotify))
			tasks.Post("/live365", h.taskHandler(h.deps.Tasks.SubmitMetadata))
			tasks.Post("/play-count", h.taskHandler(h.deps.Tasks.CountPlay))
		})
		tr.Post("/cron/{job}", h.RunJob)
	})

	router.Route("/api/v1", func(api chi.Router) {
		api.Use(r.mw.RateLimit())

		api.Route("/playlists", func(pl chi.Router) {
			pl.Post("/", h.CreatePlaylist)
			pl.Get("/{id}", h.GetPlaylist)
			pl.Post("/{id}/tracks", h.AddTrack)
			pl.Get("/{id}/tracks", h.ListTracks)
			pl.Delete("/{id}/tracks/{eventID}", h.DeleteTrack)
		})

		api.Route("/playcounts", func(pc chi.Router) {
			pc.Get("/top", h.TopPlayCounts)
			pc.Get("/snapshots", h.ListSnapshots)
			pc.Get("/snapshots/{batch}", h.GetSnapshot)
		})
	})

	return router
}
