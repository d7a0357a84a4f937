// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"negative dedup window", func(c *Config) { c.Dedup.CriticalWindow = -time.Second }},
		{"zero workers", func(c *Config) { c.Notify.Workers = 0 }},
		{"police threshold above 1", func(c *Config) { c.Emergency.PoliceConfidenceThreshold = 1.5 }},
		{"nats enabled without url", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.EmbeddedServer = false
			c.NATS.URL = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CAMSENTRY_SERVER__PORT", "server.port"},
		{"CAMSENTRY_NATS__STORE_DIR", "nats.store_dir"},
		{"CAMSENTRY_SERVER__INGEST_RATE_LIMIT", "server.ingest_rate_limit"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9999\ndedup:\n  critical_window: 90s\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("file should override default port, got %d", cfg.Server.Port)
	}
	if cfg.Dedup.CriticalWindow != 90*time.Second {
		t.Errorf("file should override critical window, got %s", cfg.Dedup.CriticalWindow)
	}
	// Untouched values retain defaults
	if cfg.Notify.Workers != 8 {
		t.Errorf("untouched default lost, workers = %d", cfg.Notify.Workers)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("CAMSENTRY_SERVER__PORT", "8123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("env should override file, got %d", cfg.Server.Port)
	}
}
