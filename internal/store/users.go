// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

// UpsertUser provisions or updates a user profile. User management itself
// lives upstream; this table only mirrors the slice the fan-out engine
// needs to resolve recipients.
func (s *Store) UpsertUser(ctx context.Context, u *models.UserProfile) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("upsert", "users", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, organization_id, display_name, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			organization_id = excluded.organization_id,
			display_name = excluded.display_name,
			active = excluded.active`,
		u.ID, u.OrganizationID, u.DisplayName, u.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// ListActiveUsers returns the active users of an organization, ordered by
// id for deterministic fan-out.
func (s *Store) ListActiveUsers(ctx context.Context, orgID string) (out []models.UserProfile, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "users", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, COALESCE(display_name, ''), active
		FROM users
		WHERE organization_id = ? AND active
		ORDER BY id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.UserProfile
	for rows.Next() {
		var u models.UserProfile
		if err = rows.Scan(&u.ID, &u.OrganizationID, &u.DisplayName, &u.Active); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	err = rows.Err()
	return users, err
}
