// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package config provides layered configuration loading for CamSentry using
// Koanf v2: built-in defaults, an optional YAML file, and CAMSENTRY_*
// environment variables, in that precedence order.
//
// Per-organization detection thresholds are NOT part of process config; they
// live in the document store and hot-reload through the type registry.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the CamSentry server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Database  DatabaseConfig  `koanf:"database"`
	Dedup     DedupConfig     `koanf:"dedup"`
	Detection DetectionConfig `koanf:"detection"`
	NATS      NATSConfig      `koanf:"nats"`
	Notify    NotifyConfig    `koanf:"notify"`
	Emergency EmergencyConfig `koanf:"emergency"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed dashboard origins. Empty allows none.
	CORSOrigins []string `koanf:"cors_origins"`

	// IngestRateLimit is the per-organization request budget for the
	// detection ingest endpoint, per minute.
	IngestRateLimit int `koanf:"ingest_rate_limit"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig configures the embedded stores.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" for ephemeral use.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`

	// BadgerDir is the directory for the dedup window store. Empty runs
	// Badger in memory (single-node, non-durable windows).
	BadgerDir string `koanf:"badger_dir"`
}

// DedupConfig configures the per-(camera, category) suppression windows.
// Exact durations are a product decision; these are the category-tiered
// defaults, overridable per deployment.
type DedupConfig struct {
	MotionWindow   time.Duration `koanf:"motion_window"`
	StandardWindow time.Duration `koanf:"standard_window"`
	SecurityWindow time.Duration `koanf:"security_window"`
	CriticalWindow time.Duration `koanf:"critical_window"`
}

// DetectionConfig holds pipeline knobs that are not per-type registry
// settings.
type DetectionConfig struct {
	// CrowdLimit is the person-count threshold above which an object
	// detection raises a crowd alert. Zero disables crowd alerting.
	CrowdLimit int `koanf:"crowd_limit"`
}

// NATSConfig configures the realtime broadcast bus.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	MaxMemory      int64         `koanf:"max_memory"`
	MaxStore       int64         `koanf:"max_store"`
	StreamName     string        `koanf:"stream_name"`
	RetentionAge   time.Duration `koanf:"retention_age"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`

	// Bridge reconnect policy (NATS -> websocket hub subscriber).
	BridgeMaxAttempts    int           `koanf:"bridge_max_attempts"`
	BridgeInitialBackoff time.Duration `koanf:"bridge_initial_backoff"`
	BridgeMaxBackoff     time.Duration `koanf:"bridge_max_backoff"`
}

// NotifyConfig configures the notification fan-out engine.
type NotifyConfig struct {
	// Workers bounds the per-recipient dispatch pool.
	Workers int `koanf:"workers"`

	// GatewayURL is the external messaging gateway endpoint. Empty disables
	// real sends (a no-op gateway is wired instead).
	GatewayURL     string        `koanf:"gateway_url"`
	GatewayTimeout time.Duration `koanf:"gateway_timeout"`

	// PushPerSecond paces push sends toward the gateway.
	PushPerSecond float64 `koanf:"push_per_second"`
}

// EmergencyConfig configures the response orchestrator.
type EmergencyConfig struct {
	// ActionTimeout bounds each individual external contact/activation call.
	ActionTimeout time.Duration `koanf:"action_timeout"`

	// PoliceConfidenceThreshold gates the contact-police step for
	// security/intrusion incidents.
	PoliceConfidenceThreshold float64 `koanf:"police_confidence_threshold"`

	// RecordingDuration is how long continuous recording runs after a
	// security incident.
	RecordingDuration time.Duration `koanf:"recording_duration"`

	// ContextSnapshotWindow is the pre/post window for evidence snapshots.
	ContextSnapshotWindow time.Duration `koanf:"context_snapshot_window"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{},
			IngestRateLimit: 600, // 10 detections/sec/org sustained
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/camsentry.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
			BadgerDir: "/data/dedup",
		},
		Dedup: DedupConfig{
			MotionWindow:   30 * time.Second,
			StandardWindow: 45 * time.Second,
			SecurityWindow: 60 * time.Second,
			CriticalWindow: 120 * time.Second,
		},
		Detection: DetectionConfig{
			CrowdLimit: 50,
		},
		NATS: NATSConfig{
			Enabled:              true,
			URL:                  "nats://127.0.0.1:4222",
			EmbeddedServer:       true,
			StoreDir:             "/data/nats/jetstream",
			MaxMemory:            1 << 30,  // 1GB
			MaxStore:             10 << 30, // 10GB
			StreamName:           "CAMSENTRY",
			RetentionAge:         7 * 24 * time.Hour,
			MaxReconnects:        -1,
			ReconnectWait:        2 * time.Second,
			BridgeMaxAttempts:    8,
			BridgeInitialBackoff: 500 * time.Millisecond,
			BridgeMaxBackoff:     30 * time.Second,
		},
		Notify: NotifyConfig{
			Workers:        8,
			GatewayURL:     "",
			GatewayTimeout: 10 * time.Second,
			PushPerSecond:  20,
		},
		Emergency: EmergencyConfig{
			ActionTimeout:             15 * time.Second,
			PoliceConfidenceThreshold: 0.8,
			RecordingDuration:         30 * time.Minute,
			ContextSnapshotWindow:     10 * time.Second,
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	for name, w := range map[string]time.Duration{
		"dedup.motion_window":   c.Dedup.MotionWindow,
		"dedup.standard_window": c.Dedup.StandardWindow,
		"dedup.security_window": c.Dedup.SecurityWindow,
		"dedup.critical_window": c.Dedup.CriticalWindow,
	} {
		if w <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, w)
		}
	}
	if c.Notify.Workers < 1 {
		return fmt.Errorf("notify.workers must be at least 1, got %d", c.Notify.Workers)
	}
	if c.Emergency.PoliceConfidenceThreshold < 0 || c.Emergency.PoliceConfidenceThreshold > 1 {
		return fmt.Errorf("emergency.police_confidence_threshold must be in [0,1], got %f",
			c.Emergency.PoliceConfidenceThreshold)
	}
	if c.Emergency.ActionTimeout <= 0 {
		return fmt.Errorf("emergency.action_timeout must be positive, got %s", c.Emergency.ActionTimeout)
	}
	if c.NATS.Enabled && !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats is enabled without the embedded server")
	}
	return nil
}
