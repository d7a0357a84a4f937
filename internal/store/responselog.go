// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

// AppendResponseLog records one executed, failed, or skipped response
// action for an incident. The table is append-only; entries are never
// updated or deleted.
func (s *Store) AppendResponseLog(ctx context.Context, entry *models.EmergencyResponseLog) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("insert", "emergency_response_logs", start, err) }()

	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emergency_response_logs (
			id, incident_id, sequence, action_type, status,
			payload, detail, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.IncidentID, entry.Sequence, entry.ActionType,
		string(entry.Status), string(payload), entry.Detail, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert response log: %w", err)
	}
	return nil
}

// ListResponseLogs returns an incident's audit trail in execution order.
func (s *Store) ListResponseLogs(ctx context.Context, incidentID string) (out []models.EmergencyResponseLog, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "emergency_response_logs", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, incident_id, sequence, action_type, status,
		       payload, COALESCE(detail, ''), timestamp
		FROM emergency_response_logs
		WHERE incident_id = ?
		ORDER BY sequence ASC`,
		incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query response logs: %w", err)
	}
	defer closeRows(rows)

	var entries []models.EmergencyResponseLog
	for rows.Next() {
		var (
			entry   models.EmergencyResponseLog
			status  string
			payload interface{}
		)
		if err = rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&entry.Sequence,
			&entry.ActionType,
			&status,
			&payload,
			&entry.Detail,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan response log: %w", err)
		}
		entry.Status = models.ActionStatus(status)
		entry.Timestamp = normalizeTime(entry.Timestamp)
		if err = rehydrateJSON(payload, &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload: %w", err)
		}
		entries = append(entries, entry)
	}
	err = rows.Err()
	return entries, err
}
