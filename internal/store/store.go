// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package store persists the pipeline's entities in DuckDB: detection
// events, alerts, notifications, emergency incidents with their response
// logs, and per-organization detection type configuration.
//
// All writes go through database/sql with positional parameters. JSON-shaped
// columns (bounding areas, metadata, evidence, action payloads) are stored
// as JSON and marshaled with goccy/go-json on the way in and out.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/logging"
)

// ErrNotFound is returned when a lookup by ID matches no row.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyResolved is returned when resolving an alert or incident that
// a previous call already resolved. The first resolution wins.
var ErrAlreadyResolved = errors.New("store: already resolved")

// Store implements every persistence interface the pipeline packages
// declare, backed by a single DuckDB database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the DuckDB database at cfg.Path and initializes
// the schema. Use ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Store, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	dsn := cfg.Path
	if dsn != ":memory:" && dsn != "" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, threads, cfg.MaxMemory)
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// DuckDB performs best with a small pool; writes serialize internally.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(0)

	s := New(db)
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// New wraps an existing connection. The caller owns schema initialization.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InitSchema creates all tables and indexes if they don't exist.
func (s *Store) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS detection_events (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			camera_id TEXT NOT NULL,
			camera_name TEXT,
			category TEXT NOT NULL,
			confidence DOUBLE NOT NULL,
			severity TEXT NOT NULL,
			description TEXT,
			bounding_areas JSON,
			image_ref TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			metadata JSON,
			detected_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			camera_id TEXT NOT NULL,
			camera_name TEXT,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			description TEXT NOT NULL,
			confidence DOUBLE NOT NULL,
			source_event_id TEXT NOT NULL,
			is_resolved BOOLEAN DEFAULT false,
			resolved_by TEXT,
			resolved_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			severity TEXT NOT NULL,
			ref_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			read_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS emergency_incidents (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			source_event_id TEXT NOT NULL UNIQUE,
			emergency_type TEXT NOT NULL,
			response_level TEXT NOT NULL,
			camera_id TEXT NOT NULL,
			camera_name TEXT,
			location TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			evidence JSON,
			detected_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			resolved_by TEXT,
			resolved_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS emergency_response_logs (
			id TEXT PRIMARY KEY,
			incident_id TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			action_type TEXT NOT NULL,
			status TEXT NOT NULL,
			payload JSON,
			detail TEXT,
			timestamp TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS detection_type_configs (
			organization_id TEXT NOT NULL,
			category TEXT NOT NULL,
			display_name TEXT NOT NULL,
			description TEXT,
			enabled BOOLEAN NOT NULL,
			confidence_threshold DOUBLE NOT NULL,
			severity TEXT NOT NULL,
			notify_enabled BOOLEAN NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (organization_id, category)
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			display_name TEXT,
			active BOOLEAN NOT NULL DEFAULT true
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_org ON detection_events(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_org_camera ON detection_events(organization_id, camera_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON detection_events(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_org ON alerts(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_resolved ON alerts(is_resolved)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_org ON users(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_org ON emergency_incidents(organization_id)`,
		`CREATE INDEX IF NOT EXISTS idx_response_logs_incident ON emergency_response_logs(incident_id, sequence)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	// Checkpoint after DDL to flush the WAL. Prevents DuckDB WAL replay
	// issues with CREATE TABLE statements on restart.
	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}

	return nil
}

// normalizeTime coerces DuckDB timestamps to UTC so comparisons with
// caller-supplied times behave across sessions.
func normalizeTime(t time.Time) time.Time {
	return t.UTC()
}
