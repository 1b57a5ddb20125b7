// Coachsync - Coaching Session Booking and Calendar Sync
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coachsync

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/tomtom215/coachsync/internal/api"
	"github.com/tomtom215/coachsync/internal/calendar"
	"github.com/tomtom215/coachsync/internal/config"
	"github.com/tomtom215/coachsync/internal/database"
	"github.com/tomtom215/coachsync/internal/logging"
	"github.com/tomtom215/coachsync/internal/problems"
	"github.com/tomtom215/coachsync/internal/supervisor"
	syncpkg "github.com/tomtom215/coachsync/internal/sync"
	ws "github.com/tomtom215/coachsync/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// problemEvictionInterval is how often the data layer checks the problem
// snapshot age.
const problemEvictionInterval = 15 * time.Minute

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("Starting Coachsync with supervisor tree")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc, err := cfg.Calendar.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load calendar timezone")
	}

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("driver", cfg.Database.Driver).Msg("Database initialized")

	google, err := calendar.NewGoogleClient(ctx, &cfg.Calendar, loc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize calendar client")
	}
	cal := calendar.NewCircuitBreakerClient(google, calendar.DefaultBreakerSettings())

	engine := syncpkg.NewEngine(db, cal, syncpkg.EngineConfigFrom(cfg, loc))
	problemStore := problems.NewStore()
	hub := ws.NewHub()
	coordinator := syncpkg.NewCoordinator(engine, problemStore, hub, cfg.Sync)

	handler := api.NewHandler(api.Dependencies{
		DB:             db,
		Sync:           coordinator,
		Problems:       problemStore,
		Sessions:       syncpkg.NewSessionService(db, engine),
		Directory:      syncpkg.NewDirectory(db),
		Hub:            hub,
		AllowedOrigins: cfg.Security.CORSOrigins,
		Location:       loc,
		Version:        version,
	})
	middleware := api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security))
	router := api.NewRouter(handler, middleware)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(supervisor.NewProblemEvictionService(problemStore, cfg.Sync.ProblemMaxAgeHours, problemEvictionInterval))

	tree.AddSyncService(supervisor.NewCoordinatorService(coordinator))
	tree.AddSyncService(supervisor.NewHubService(hub))
	logging.Info().
		Dur("interval", cfg.Sync.Interval).
		Bool("auto_start", cfg.Sync.AutoStart).
		Msg("Sync coordinator and WebSocket hub added to supervisor tree")

	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.Timeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
