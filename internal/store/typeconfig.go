// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

// GetTypeConfig fetches one organization override. ErrNotFound means the
// organization has no override for this category and the built-in default
// applies.
func (s *Store) GetTypeConfig(ctx context.Context, orgID string, category models.Category) (cfg *models.DetectionTypeConfig, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "detection_type_configs", start, err) }()

	row := s.db.QueryRowContext(ctx, `
		SELECT organization_id, category, display_name, COALESCE(description, ''),
		       enabled, confidence_threshold, severity, notify_enabled, updated_at
		FROM detection_type_configs
		WHERE organization_id = ? AND category = ?`,
		orgID, string(category))

	var c models.DetectionTypeConfig
	if err = scanTypeConfig(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan type config: %w", err)
	}
	return &c, nil
}

// ListTypeConfigs returns all of an organization's overrides.
func (s *Store) ListTypeConfigs(ctx context.Context, orgID string) (out []models.DetectionTypeConfig, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "detection_type_configs", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT organization_id, category, display_name, COALESCE(description, ''),
		       enabled, confidence_threshold, severity, notify_enabled, updated_at
		FROM detection_type_configs
		WHERE organization_id = ?
		ORDER BY category`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query type configs: %w", err)
	}
	defer closeRows(rows)

	var configs []models.DetectionTypeConfig
	for rows.Next() {
		var c models.DetectionTypeConfig
		if err = scanTypeConfig(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan type config: %w", err)
		}
		configs = append(configs, c)
	}
	err = rows.Err()
	return configs, err
}

// UpsertTypeConfig writes an organization override, replacing any previous
// one for the category. The caller clamps the threshold before calling.
func (s *Store) UpsertTypeConfig(ctx context.Context, cfg *models.DetectionTypeConfig) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("upsert", "detection_type_configs", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO detection_type_configs (
			organization_id, category, display_name, description,
			enabled, confidence_threshold, severity, notify_enabled, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization_id, category) DO UPDATE SET
			display_name = excluded.display_name,
			description = excluded.description,
			enabled = excluded.enabled,
			confidence_threshold = excluded.confidence_threshold,
			severity = excluded.severity,
			notify_enabled = excluded.notify_enabled,
			updated_at = excluded.updated_at`,
		cfg.OrganizationID, string(cfg.Category), cfg.DisplayName, cfg.Description,
		cfg.Enabled, cfg.ConfidenceThreshold, string(cfg.Severity),
		cfg.NotifyEnabled, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert type config: %w", err)
	}
	return nil
}

func scanTypeConfig(scanner interface {
	Scan(dest ...interface{}) error
}, c *models.DetectionTypeConfig) error {
	var category, severity string
	if err := scanner.Scan(
		&c.OrganizationID,
		&category,
		&c.DisplayName,
		&c.Description,
		&c.Enabled,
		&c.ConfidenceThreshold,
		&severity,
		&c.NotifyEnabled,
		&c.UpdatedAt,
	); err != nil {
		return err
	}
	c.Category = models.Category(category)
	c.Severity = models.Severity(severity)
	c.UpdatedAt = normalizeTime(c.UpdatedAt)
	return nil
}
