// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package main is the entry point for the CamSentry server.
//
// CamSentry ingests raw camera detections for multiple organizations and
// turns them into persisted events, alerts, notification fan-outs,
// orchestrated emergency responses, and realtime dashboard broadcasts.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 with defaults, optional YAML file, and
//     CAMSENTRY_* environment variables
//  2. DuckDB: events, alerts, notifications, incidents, response logs,
//     per-type detection configs, and the user directory
//  3. BadgerDB: TTL-based dedup windows (per camera and category)
//  4. NATS JetStream: realtime broadcast bus, embedded by default
//  5. Detection pipeline: gate -> dedup -> record -> alert -> fan-out ->
//     emergency orchestration -> broadcast
//  6. HTTP API: chi router with per-organization ingest rate limits and
//     a websocket endpoint fed by the JetStream bridge
//  7. Supervisor tree: suture supervises the hub, bridge, and HTTP
//     server with per-layer restart isolation
//
// # Configuration
//
// Configuration keys nest with double underscores in the environment:
//
//	CAMSENTRY_SERVER__PORT=8480
//	CAMSENTRY_DATABASE__PATH=/data/camsentry.duckdb
//	CAMSENTRY_NATS__ENABLED=true
//	CAMSENTRY_NOTIFY__GATEWAY_URL=https://gateway.example.com
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the hub closes websocket sessions, the bridge
// detaches from JetStream, and storage is closed last.
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

	"github.com/dgraph-io/badger/v4"

	"github.com/camsentry/camsentry/internal/api"
	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/detection"
	"github.com/camsentry/camsentry/internal/emergency"
	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/notify"
	"github.com/camsentry/camsentry/internal/realtime"
	"github.com/camsentry/camsentry/internal/registry"
	"github.com/camsentry/camsentry/internal/store"
	"github.com/camsentry/camsentry/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Int("ingest_rate_limit", cfg.Server.IngestRateLimit).
		Msg("Starting CamSentry")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event, alert, notification, incident, and type-config persistence.
	st, err := store.Open(ctx, &cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	if err := st.InitSchema(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database schema")
	}
	logging.Info().Msg("Database initialized")

	// Dedup window store. A configured directory survives restarts; an
	// empty one trades durability for zero filesystem footprint.
	badgerOpts := badger.DefaultOptions(cfg.Database.BadgerDir).WithLogger(nil)
	if cfg.Database.BadgerDir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
		logging.Warn().Msg("Badger directory not configured, dedup windows reset on restart")
	}
	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open dedup window store")
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dedup window store")
		}
	}()

	windows := detection.NewWindows(cfg.Dedup)
	windowStore := detection.NewBadgerWindowStore(badgerDB, windows)

	// Per-organization detection type settings with hot reload.
	reg := registry.New(st)
	gate := detection.NewGate(reg)
	recorder := detection.NewRecorder(st, nil, detection.StaticCrowdLimits(cfg.Detection.CrowdLimit))

	hub := realtime.NewHub()

	rt, err := initRealtime(ctx, cfg, hub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize realtime layer")
	}
	defer rt.Close(context.Background())

	var gateway notify.Gateway
	if cfg.Notify.GatewayURL != "" {
		gateway = notify.NewHTTPGateway(cfg.Notify)
		logging.Info().Str("url", cfg.Notify.GatewayURL).Msg("Messaging gateway configured")
	} else {
		gateway = notify.NoopGateway{}
		logging.Warn().Msg("No messaging gateway configured, push/email/SMS sends are logged only")
	}

	engine := notify.NewEngine(st, st, gateway, rt.Broadcaster, cfg.Notify.Workers)

	orchestrator := emergency.NewOrchestrator(cfg.Emergency, st, st, nil, rt.Broadcaster)
	orchestrator.RegisterDefaults(
		emergency.NewServiceContactExecutor(emergency.LogServicesContact{}),
		emergency.NewBuildingExecutor(emergency.LogBuildingControl{}),
		emergency.NewCameraExecutor(emergency.LogCameraControl{}),
		emergency.NewMessagingExecutor(engine, gateway, emergency.NoStakeholders{}),
	)

	pipeline := detection.NewPipeline(gate, windowStore, recorder, st, engine, orchestrator, rt.Broadcaster)

	handler := api.NewHandler(pipeline, st, reg, hub, rt.Broadcaster)
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	tree.AddRealtimeService(supervisor.ServeFunc{Name: "websocket-hub", Run: hub.RunWithContext})
	if rt.Bridge != nil {
		tree.AddRealtimeService(supervisor.ServeFunc{Name: "nats-bridge", Run: rt.Bridge.Serve})
	}
	tree.AddAPIService(&supervisor.HTTPService{
		Server:          server,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

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

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("CamSentry stopped gracefully")
}
