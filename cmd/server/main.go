// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package main is the entry point for the OnAir server.
//
// OnAir records DJ playlists and, for every track logged, fans the event out
// to three listeners: the station website's push channels, the Live365
// now-playing metadata service and the play count aggregator. Each listener
// enqueues its work on the task queue; the queue workers call back into the
// task handlers, which are also exposed on /tasks for external schedulers.
//
// # Startup order
//
//  1. Configuration (koanf: defaults, config.yaml, environment variables)
//  2. Logging (zerolog)
//  3. Store (BadgerDB) and the reference catalog seed
//  4. Task queue (in-memory, external NATS, or embedded NATS JetStream)
//  5. Outbound fetcher, task handlers, listeners and the dispatcher
//  6. Scheduled jobs, HTTP router
//  7. Supervisor tree, until SIGINT or SIGTERM
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tomtom215/onair/internal/api"
	"github.com/tomtom215/onair/internal/catalog"
	"github.com/tomtom215/onair/internal/config"
	"github.com/tomtom215/onair/internal/dispatch"
	"github.com/tomtom215/onair/internal/logging"
	"github.com/tomtom215/onair/internal/notify"
	"github.com/tomtom215/onair/internal/playcount"
	"github.com/tomtom215/onair/internal/playlist"
	"github.com/tomtom215/onair/internal/scheduler"
	"github.com/tomtom215/onair/internal/store"
	"github.com/tomtom215/onair/internal/supervisor"
	"github.com/tomtom215/onair/internal/supervisor/services"
	"github.com/tomtom215/onair/internal/taskqueue"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("OnAir exited with error")
	}
}

//nolint:gocyclo // sequential wiring
func run() error {
	cfg, settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("queue_backend", cfg.Queue.Backend).
		Bool("store_in_memory", cfg.Store.InMemory).
		Msg("Starting OnAir")

	db, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogRepo := catalog.NewRepository(db)
	if cfg.Catalog.SeedPath != "" {
		if err := catalogRepo.LoadSeed(ctx, cfg.Catalog.SeedPath); err != nil {
			return fmt.Errorf("load catalog seed: %w", err)
		}
		logging.Info().Str("path", cfg.Catalog.SeedPath).Msg("Reference catalog loaded")
	}

	natsURL := cfg.Queue.NATSURL
	if cfg.Queue.Backend == "nats" && cfg.Queue.EmbeddedServer {
		ns, err := startEmbeddedNATS(cfg.Queue)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := ns.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error stopping embedded NATS server")
			}
		}()
		natsURL = ns.ClientURL()
	}

	queue, err := taskqueue.New(cfg.Queue, natsURL)
	if err != nil {
		return fmt.Errorf("create task queue: %w", err)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing task queue")
		}
	}()

	// Play count engine.
	counters := playcount.NewCounterStore(db, playcount.WithDedupTTL(cfg.PlayCount.DedupTTL))
	snapshots := playcount.NewSnapshotEngine(db, counters)
	playlistRepo := playlist.NewRepository(db)
	aggregator := playcount.NewAggregator(playlistRepo, catalogRepo, playcount.NewResolver(catalogRepo), counters)

	// Outbound work and the listeners that schedule it.
	tasks := notify.NewTasks(notify.NewFetcher(cfg.Outbound), settings, playlistRepo, aggregator)
	dispatcher := dispatch.New(notify.Listeners(queue)...)
	playlists := playlist.NewService(playlistRepo, dispatcher)
	logging.Info().Strs("listeners", dispatcher.Listeners()).Msg("Event dispatcher configured")

	handlers := map[string]taskqueue.Handler{
		notify.QueueSitePush:  tasks.PushNotify,
		notify.QueueLive365:   tasks.SubmitMetadata,
		notify.QueuePlayCount: tasks.CountPlay,
	}
	for name, h := range handlers {
		if err := queue.Register(name, h); err != nil {
			return fmt.Errorf("register %s handler: %w", name, err)
		}
	}

	jobs := []scheduler.Job{
		scheduler.ExpirePlayCounts(counters, cfg.PlayCount.Retention, cfg.PlayCount.ExpireBatch, cfg.PlayCount.ExpireInterval),
		scheduler.PlayCountSnapshot(snapshots, cfg.PlayCount.SnapshotSize, cfg.PlayCount.SnapshotInterval),
	}

	router := api.NewRouter(api.NewHandler(api.Deps{
		Playlists: playlists,
		Tasks:     tasks,
		Counters:  counters,
		Snapshots: snapshots,
		Jobs:      jobs,
		Checks: []api.HealthCheck{
			{Name: "store", Check: func(ctx context.Context) error {
				_, err := counters.TopN(ctx, 1)
				return err
			}},
			{Name: "task_queue", Check: func(context.Context) error {
				if !queue.IsRunning() {
					return taskqueue.ErrNotRunning
				}
				return nil
			}},
		},
		TaskTokenSecret: cfg.Tasks.TokenSecret,
	}), api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitRequests,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if cfg.Store.GCInterval > 0 && !cfg.Store.InMemory {
		tree.AddDataService(services.NewStoreGCService(db, cfg.Store.GCInterval))
	}
	for _, job := range jobs {
		tree.AddDataService(scheduler.NewService(job))
	}
	tree.AddMessagingService(services.NewTaskQueueService(queue))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().Str("addr", server.Addr).Msg("OnAir listening")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		names := make([]string, 0, len(report))
		for _, s := range report {
			names = append(names, s.Name)
		}
		logging.Warn().Str("services", strings.Join(names, ", ")).Msg("Services did not stop in time")
	}
	logging.Info().Msg("OnAir stopped")

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	return nil
}

func openStore(cfg config.StoreConfig) (*store.DB, error) {
	sc := store.DefaultConfig(cfg.Path)
	sc.InMemory = cfg.InMemory
	sc.SyncWrites = cfg.SyncWrites
	if cfg.MaxConflictRetries > 0 {
		sc.MaxConflictRetries = cfg.MaxConflictRetries
	}
	if cfg.ConflictTimeout > 0 {
		sc.ConflictTimeout = cfg.ConflictTimeout
	}
	db, err := store.Open(sc)
	if err != nil {
		if cfg.InMemory {
			return nil, fmt.Errorf("open in-memory store: %w", err)
		}
		return nil, fmt.Errorf("open store at %s: %w", cfg.Path, err)
	}
	return db, nil
}

func startEmbeddedNATS(cfg config.QueueConfig) (*taskqueue.EmbeddedServer, error) {
	host, port := "127.0.0.1", 4222
	if cfg.NATSURL != "" {
		if h, p, err := net.SplitHostPort(strings.TrimPrefix(cfg.NATSURL, "nats://")); err == nil {
			host = h
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
	}
	ns, err := taskqueue.StartEmbeddedServer(taskqueue.EmbeddedConfig{
		Host:     host,
		Port:     port,
		StoreDir: cfg.StoreDir,
	})
	if err != nil {
		return nil, fmt.Errorf("start embedded NATS: %w", err)
	}
	logging.Info().Str("url", ns.ClientURL()).Msg("Embedded NATS server started")
	return ns, nil
}
