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
	"strings"
	"time"

	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

const alertSelectColumns = `
	id, organization_id, camera_id, COALESCE(camera_name, ''),
	category, severity, description, confidence, source_event_id,
	is_resolved, resolved_by, resolved_at, created_at`

// CreateAlert persists a new alert derived from a detection event.
func (s *Store) CreateAlert(ctx context.Context, alert *models.Alert) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("insert", "alerts", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (
			id, organization_id, camera_id, camera_name, category,
			severity, description, confidence, source_event_id,
			is_resolved, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, false, ?)`,
		alert.ID, alert.OrganizationID, alert.CameraID, alert.CameraName,
		string(alert.Category), string(alert.Severity), alert.Description,
		alert.Confidence, alert.SourceEventID, alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert fetches a single alert scoped to an organization.
func (s *Store) GetAlert(ctx context.Context, orgID, id string) (a *models.Alert, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "alerts", start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+alertSelectColumns+` FROM alerts WHERE id = ? AND organization_id = ?`,
		id, orgID)

	var alert models.Alert
	if err = scanAlert(row, &alert); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}
	return &alert, nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (s *Store) ListAlerts(ctx context.Context, filter models.AlertFilter) (out []models.Alert, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "alerts", start, err) }()

	var (
		where []string
		args  []interface{}
	)
	if filter.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.CameraID != "" {
		where = append(where, "camera_id = ?")
		args = append(args, filter.CameraID)
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, c := range filter.Categories {
			placeholders[i] = "?"
			args = append(args, string(c))
		}
		where = append(where, "category IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(filter.Severities) > 0 {
		placeholders := make([]string, len(filter.Severities))
		for i, sev := range filter.Severities {
			placeholders[i] = "?"
			args = append(args, string(sev))
		}
		where = append(where, "severity IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Resolved != nil {
		where = append(where, "is_resolved = ?")
		args = append(args, *filter.Resolved)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *filter.Until)
	}

	query := `SELECT ` + alertSelectColumns + ` FROM alerts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	query += limitClause(filter.Limit, filter.Offset, &args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer closeRows(rows)

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		if err = scanAlert(rows, &alert); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	err = rows.Err()
	return alerts, err
}

// ResolveAlert marks an alert resolved with attribution. The first
// resolution wins; a second call returns ErrAlreadyResolved and leaves
// the original resolver and timestamp untouched.
func (s *Store) ResolveAlert(ctx context.Context, orgID, id, resolvedBy string, at time.Time) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("update", "alerts", start, err) }()

	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET is_resolved = true, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND organization_id = ? AND is_resolved = false`,
		resolvedBy, at, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish missing from already-resolved for the caller.
		var resolved bool
		lookupErr := s.db.QueryRowContext(ctx,
			`SELECT is_resolved FROM alerts WHERE id = ? AND organization_id = ?`,
			id, orgID).Scan(&resolved)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			err = ErrNotFound
			return err
		}
		if lookupErr != nil {
			return fmt.Errorf("failed to check alert state: %w", lookupErr)
		}
		err = ErrAlreadyResolved
		return err
	}
	return nil
}

func scanAlert(scanner interface {
	Scan(dest ...interface{}) error
}, alert *models.Alert) error {
	var (
		category, severity string
		resolvedBy         sql.NullString
		resolvedAt         sql.NullTime
	)
	if err := scanner.Scan(
		&alert.ID,
		&alert.OrganizationID,
		&alert.CameraID,
		&alert.CameraName,
		&category,
		&severity,
		&alert.Description,
		&alert.Confidence,
		&alert.SourceEventID,
		&alert.IsResolved,
		&resolvedBy,
		&resolvedAt,
		&alert.CreatedAt,
	); err != nil {
		return err
	}

	alert.Category = models.Category(category)
	alert.Severity = models.Severity(severity)
	alert.CreatedAt = normalizeTime(alert.CreatedAt)
	if resolvedBy.Valid {
		alert.ResolvedBy = resolvedBy.String
	}
	if resolvedAt.Valid {
		t := normalizeTime(resolvedAt.Time)
		alert.ResolvedAt = &t
	}
	return nil
}
