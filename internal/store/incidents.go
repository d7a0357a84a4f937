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

const incidentSelectColumns = `
	id, organization_id, source_event_id, emergency_type, response_level,
	camera_id, COALESCE(camera_name, ''), COALESCE(location, ''), status,
	evidence, detected_at, created_at, resolved_by, resolved_at`

// CreateIncidentIfAbsent inserts the incident unless one already exists
// for the same source event, in which case the existing incident is
// returned with created=false. This is what makes emergency handling
// idempotent per detection event.
func (s *Store) CreateIncidentIfAbsent(ctx context.Context, incident *models.EmergencyIncident) (existing *models.EmergencyIncident, created bool, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("insert", "emergency_incidents", start, err) }()

	evidence, err := json.Marshal(incident.Evidence)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal evidence: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO emergency_incidents (
			id, organization_id, source_event_id, emergency_type,
			response_level, camera_id, camera_name, location, status,
			evidence, detected_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_event_id) DO NOTHING`,
		incident.ID, incident.OrganizationID, incident.SourceEventID,
		string(incident.EmergencyType), string(incident.ResponseLevel),
		incident.CameraID, incident.CameraName, incident.Location,
		string(incident.Status), string(evidence),
		incident.DetectedAt, incident.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert incident: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return incident, true, nil
	}

	found, err := s.GetIncidentBySourceEvent(ctx, incident.OrganizationID, incident.SourceEventID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing incident: %w", err)
	}
	return found, false, nil
}

// GetIncident fetches a single incident scoped to an organization.
func (s *Store) GetIncident(ctx context.Context, orgID, id string) (*models.EmergencyIncident, error) {
	return s.getIncidentWhere(ctx, "id = ? AND organization_id = ?", id, orgID)
}

// GetIncidentBySourceEvent fetches the incident opened for a detection event.
func (s *Store) GetIncidentBySourceEvent(ctx context.Context, orgID, sourceEventID string) (*models.EmergencyIncident, error) {
	return s.getIncidentWhere(ctx, "source_event_id = ? AND organization_id = ?", sourceEventID, orgID)
}

func (s *Store) getIncidentWhere(ctx context.Context, where string, args ...interface{}) (inc *models.EmergencyIncident, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "emergency_incidents", start, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+incidentSelectColumns+` FROM emergency_incidents WHERE `+where, args...)

	var incident models.EmergencyIncident
	if err = scanIncident(row, &incident); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan incident: %w", err)
	}
	return &incident, nil
}

// ListIncidents returns incidents matching the filter, newest first.
func (s *Store) ListIncidents(ctx context.Context, filter models.IncidentFilter) (out []models.EmergencyIncident, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "emergency_incidents", start, err) }()

	var (
		where []string
		args  []interface{}
	)
	if filter.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.EmergencyType != "" {
		where = append(where, "emergency_type = ?")
		args = append(args, string(filter.EmergencyType))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + incidentSelectColumns + ` FROM emergency_incidents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	query += limitClause(filter.Limit, filter.Offset, &args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer closeRows(rows)

	var incidents []models.EmergencyIncident
	for rows.Next() {
		var incident models.EmergencyIncident
		if err = scanIncident(rows, &incident); err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	err = rows.Err()
	return incidents, err
}

// AppendIncidentEvidence adds evidence references to an incident. Evidence
// capture is best effort, so callers tolerate ErrNotFound here.
func (s *Store) AppendIncidentEvidence(ctx context.Context, orgID, id string, refs []models.EvidenceRef) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("update", "emergency_incidents", start, err) }()

	incident, err := s.GetIncident(ctx, orgID, id)
	if err != nil {
		return err
	}
	merged, err := json.Marshal(append(incident.Evidence, refs...))
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE emergency_incidents SET evidence = ? WHERE id = ? AND organization_id = ?`,
		string(merged), id, orgID)
	if err != nil {
		return fmt.Errorf("failed to append evidence: %w", err)
	}
	return nil
}

// ResolveIncident closes an active incident with attribution. Closing is
// an explicit human action; a second close returns ErrAlreadyResolved.
func (s *Store) ResolveIncident(ctx context.Context, orgID, id, resolvedBy string, at time.Time) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("update", "emergency_incidents", start, err) }()

	res, err := s.db.ExecContext(ctx, `
		UPDATE emergency_incidents
		SET status = ?, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND organization_id = ? AND status = ?`,
		string(models.IncidentStatusResolved), resolvedBy, at,
		id, orgID, string(models.IncidentStatusActive))
	if err != nil {
		return fmt.Errorf("failed to resolve incident: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		var status string
		lookupErr := s.db.QueryRowContext(ctx,
			`SELECT status FROM emergency_incidents WHERE id = ? AND organization_id = ?`,
			id, orgID).Scan(&status)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			err = ErrNotFound
			return err
		}
		if lookupErr != nil {
			return fmt.Errorf("failed to check incident state: %w", lookupErr)
		}
		err = ErrAlreadyResolved
		return err
	}
	return nil
}

func scanIncident(scanner interface {
	Scan(dest ...interface{}) error
}, incident *models.EmergencyIncident) error {
	var (
		emergencyType, level, status string
		evidence                     interface{}
		resolvedBy                   sql.NullString
		resolvedAt                   sql.NullTime
	)
	if err := scanner.Scan(
		&incident.ID,
		&incident.OrganizationID,
		&incident.SourceEventID,
		&emergencyType,
		&level,
		&incident.CameraID,
		&incident.CameraName,
		&incident.Location,
		&status,
		&evidence,
		&incident.DetectedAt,
		&incident.CreatedAt,
		&resolvedBy,
		&resolvedAt,
	); err != nil {
		return err
	}

	incident.EmergencyType = models.EmergencyType(emergencyType)
	incident.ResponseLevel = models.ResponseLevel(level)
	incident.Status = models.IncidentStatus(status)
	incident.DetectedAt = normalizeTime(incident.DetectedAt)
	incident.CreatedAt = normalizeTime(incident.CreatedAt)
	if resolvedBy.Valid {
		incident.ResolvedBy = resolvedBy.String
	}
	if resolvedAt.Valid {
		t := normalizeTime(resolvedAt.Time)
		incident.ResolvedAt = &t
	}
	if err := rehydrateJSON(evidence, &incident.Evidence); err != nil {
		return fmt.Errorf("failed to decode evidence: %w", err)
	}
	return nil
}
