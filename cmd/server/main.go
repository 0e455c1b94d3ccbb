// Verdant - Sustainability Action Recommendation Service
// Copyright 2026 Nudgeworks
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nudgeworks/verdant

// Package main is the entry point for the Verdant server.
//
// Verdant recommends the next best sustainability actions for a user,
// ranked against their persona, context, and feedback history.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered settings from defaults, config file, and
//     environment variables (Koanf v2)
//  2. Store: BadgerDB state (feedback ledger, weights, streaks, cooldowns)
//  3. Catalog: candidate actions loaded from a JSON file
//  4. Profiles: user profiles from file, with optional archetype
//     classifier fallback for users missing scores
//  5. Event bus: in-process feedback event fan-out (Watermill)
//  6. Engine + learner: ranking pipeline and adaptive weight updates
//  7. HTTP server: REST API with Prometheus metrics
//
// All long-running components run under a suture supervision tree and
// restart independently on failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, STORE_PATH, CATALOG_PATH, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests (bounded by
// the shutdown timeout), then closes the bus and the store.
//
// # Example Usage
//
//	export STORE_PATH=/data/verdant
//	export CATALOG_PATH=/data/catalog.json
//	export PROFILE_PATH=/data/profiles.json
//	./verdant
//
// With the archetype classifier sidecar:
//
//	export CLASSIFIER_URL=http://classifier:9090
//	./verdant
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nudgeworks/verdant/internal/api"
	"github.com/nudgeworks/verdant/internal/config"
	"github.com/nudgeworks/verdant/internal/eventbus"
	"github.com/nudgeworks/verdant/internal/learner"
	"github.com/nudgeworks/verdant/internal/logging"
	"github.com/nudgeworks/verdant/internal/metrics"
	"github.com/nudgeworks/verdant/internal/models"
	"github.com/nudgeworks/verdant/internal/profile"
	"github.com/nudgeworks/verdant/internal/recommend"
	"github.com/nudgeworks/verdant/internal/recommend/reranking"
	"github.com/nudgeworks/verdant/internal/store"
	"github.com/nudgeworks/verdant/internal/supervisor"
	"github.com/nudgeworks/verdant/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.Logging)
	logging.Info().Msg("Starting Verdant with supervisor tree")
	logging.Info().
		Str("store_path", cfg.Store.Path).
		Bool("in_memory", cfg.Store.InMemory).
		Str("catalog_path", cfg.Catalog.Path).
		Str("profile_path", cfg.Profile.Path).
		Msg("Configuration loaded")

	logger := logging.Logger()

	// Open the Badger store for feedback events, weights, streaks, and
	// cooldowns.
	st, err := store.Open(store.Options{
		Path:     cfg.Store.Path,
		InMemory: cfg.Store.InMemory,
	}, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("Store opened successfully")

	// Load the action catalog.
	catalog, err := store.LoadCatalogFile(cfg.Catalog.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Catalog.Path).Msg("Failed to load catalog")
	}
	logging.Info().Int("actions", catalog.Size()).Msg("Catalog loaded")

	// Profile source, with optional archetype classifier fallback for
	// users whose profiles carry no scores.
	source, err := profile.NewFileSource(cfg.Profile.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Profile.Path).Msg("Failed to load profiles")
	}
	logging.Info().Int("profiles", source.Size()).Msg("Profiles loaded")

	var classifier profile.Classifier
	if cfg.Profile.ClassifierURL != "" {
		classifier = profile.NewClassifierClient(cfg.Profile.ClassifierURL, cfg.Profile.ClassifierTimeout)
		logging.Info().Str("url", cfg.Profile.ClassifierURL).Msg("Archetype classifier enabled")
	} else {
		logging.Info().Msg("Archetype classifier disabled (CLASSIFIER_URL not set)")
	}
	profiles := profile.NewService(source, classifier, st, logger)

	// In-process event bus for feedback fan-out.
	bus := eventbus.NewBus(logger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	// Ranking engine and adaptive learner. The learner invalidates the
	// engine's derived-weight cache whenever it persists an update.
	engine, err := recommend.NewEngine(cfg.Recommend, logger, catalog, st, profiles, st, reranking.NewMMR(cfg.Recommend.MMRLambda), bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create ranking engine")
	}
	lrn, err := learner.New(logger, st, catalog, profiles, bus, engine.InvalidateWeights)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create learner")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === STORAGE LAYER SERVICES ===

	if !cfg.Store.InMemory {
		tree.AddStorageService(services.NewGCService(st, cfg.Store.GCInterval, logger))
		logging.Info().Dur("interval", cfg.Store.GCInterval).Msg("Store GC service added")
	}
	tree.AddStorageService(services.NewCacheMaintenanceService(engine, cfg.Recommend.WeightCacheTTL, logger))

	// === EVENTS LAYER SERVICES ===

	// The store is the system of record; the bus subscriber only feeds
	// observability.
	consumer := eventbus.NewConsumer(bus, func(_ context.Context, event models.FeedbackEvent) error {
		metrics.FeedbackEventsConsumed.WithLabelValues(string(event.EventType)).Inc()
		logging.Debug().
			Str("event_id", event.ID).
			Str("user_id", event.UserID).
			Str("event_type", string(event.EventType)).
			Msg("feedback event consumed")
		return nil
	}, logger)
	tree.AddEventsService(consumer)
	logging.Info().Msg("Feedback event consumer added to supervisor tree")

	// === API LAYER SERVICES ===

	handler := api.NewHandler(engine, lrn, profiles, catalog, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:     cfg.Security.CORSOrigins,
		RateLimitReqs:   cfg.Security.RateLimitReqs,
		RateLimitWindow: cfg.Security.RateLimitWindow,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPService(server, addr, cfg.Server.ShutdownTimeout, logger))
	logging.Info().Str("addr", addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
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
