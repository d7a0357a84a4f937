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

	"github.com/goccy/go-json"

	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

const eventSelectColumns = `
	id, organization_id, camera_id, COALESCE(camera_name, ''),
	category, confidence, severity, COALESCE(description, ''),
	bounding_areas, COALESCE(image_ref, ''), status, metadata,
	detected_at, created_at`

// CreateEvent persists an accepted detection event.
func (s *Store) CreateEvent(ctx context.Context, event *models.DetectionEvent) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("insert", "detection_events", start, err) }()

	areas, err := json.Marshal(event.BoundingAreas)
	if err != nil {
		return fmt.Errorf("failed to marshal bounding areas: %w", err)
	}
	meta, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO detection_events (
			id, organization_id, camera_id, camera_name, category,
			confidence, severity, description, bounding_areas, image_ref,
			status, metadata, detected_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.OrganizationID, event.CameraID, event.CameraName,
		string(event.Category), event.Confidence, string(event.Severity),
		event.Description, string(areas), event.ImageRef,
		string(event.Status), string(meta), event.DetectedAt, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection event: %w", err)
	}
	return nil
}

// GetEvent fetches a single detection event scoped to an organization.
func (s *Store) GetEvent(ctx context.Context, orgID, id string) (ev *models.DetectionEvent, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "detection_events", start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventSelectColumns+` FROM detection_events WHERE id = ? AND organization_id = ?`,
		id, orgID)

	var event models.DetectionEvent
	if err = scanEvent(row, &event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan detection event: %w", err)
	}
	return &event, nil
}

// ListEvents returns events matching the filter, newest first.
func (s *Store) ListEvents(ctx context.Context, filter models.EventFilter) (out []models.DetectionEvent, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "detection_events", start, err) }()

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
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Since != nil {
		where = append(where, "detected_at >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		where = append(where, "detected_at <= ?")
		args = append(args, *filter.Until)
	}

	query := `SELECT ` + eventSelectColumns + ` FROM detection_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	query += limitClause(filter.Limit, filter.Offset, &args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection events: %w", err)
	}
	defer closeRows(rows)

	var events []models.DetectionEvent
	for rows.Next() {
		var event models.DetectionEvent
		if err = scanEvent(rows, &event); err != nil {
			return nil, fmt.Errorf("failed to scan detection event: %w", err)
		}
		events = append(events, event)
	}
	err = rows.Err()
	return events, err
}

// UpdateEventStatus applies an operator review decision. Only transitions
// to valid review states are accepted.
func (s *Store) UpdateEventStatus(ctx context.Context, orgID, id string, status models.EventStatus) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("update", "detection_events", start, err) }()

	if !status.Valid() {
		return fmt.Errorf("invalid event status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE detection_events SET status = ? WHERE id = ? AND organization_id = ?`,
		string(status), id, orgID)
	if err != nil {
		return fmt.Errorf("failed to update event status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}, event *models.DetectionEvent) error {
	var (
		category, severity, status string
		areas, meta                interface{} // DuckDB returns JSON as decoded values
	)
	if err := scanner.Scan(
		&event.ID,
		&event.OrganizationID,
		&event.CameraID,
		&event.CameraName,
		&category,
		&event.Confidence,
		&severity,
		&event.Description,
		&areas,
		&event.ImageRef,
		&status,
		&meta,
		&event.DetectedAt,
		&event.CreatedAt,
	); err != nil {
		return err
	}

	event.Category = models.Category(category)
	event.Severity = models.Severity(severity)
	event.Status = models.EventStatus(status)
	event.DetectedAt = normalizeTime(event.DetectedAt)
	event.CreatedAt = normalizeTime(event.CreatedAt)

	if err := rehydrateJSON(areas, &event.BoundingAreas); err != nil {
		return fmt.Errorf("failed to decode bounding areas: %w", err)
	}
	if err := rehydrateJSON(meta, &event.Metadata); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}
	return nil
}

// rehydrateJSON converts a JSON column value back into a typed Go value.
// DuckDB hands JSON back as decoded interface{} trees or raw strings
// depending on driver version, so round-trip through bytes.
func rehydrateJSON(raw interface{}, dest interface{}) error {
	if raw == nil {
		return nil
	}
	var b []byte
	switch v := raw.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		var err error
		if b, err = json.Marshal(v); err != nil {
			return err
		}
	}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return json.Unmarshal(b, dest)
}

func limitClause(limit, offset int, args *[]interface{}) string {
	var sb strings.Builder
	if limit > 0 {
		sb.WriteString(" LIMIT ?")
		*args = append(*args, limit)
	}
	if offset > 0 {
		sb.WriteString(" OFFSET ?")
		*args = append(*args, offset)
	}
	return sb.String()
}

func closeRows(rows *sql.Rows) {
	_ = rows.Close()
}
