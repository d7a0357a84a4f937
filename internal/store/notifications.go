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

const notificationSelectColumns = `
	id, user_id, organization_id, type, title, body, severity,
	COALESCE(ref_id, ''), created_at, read_at`

// CreateNotification persists one in-app notification for one recipient.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("insert", "notifications", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, user_id, organization_id, type, title, body,
			severity, ref_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.OrganizationID, string(n.Type), n.Title, n.Body,
		string(n.Severity), n.RefID, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, filter models.NotificationFilter) (out []models.Notification, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "notifications", start, err) }()

	var (
		where []string
		args  []interface{}
	)
	if filter.OrganizationID != "" {
		where = append(where, "organization_id = ?")
		args = append(args, filter.OrganizationID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Unread {
		where = append(where, "read_at IS NULL")
	}

	query := `SELECT ` + notificationSelectColumns + ` FROM notifications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	query += limitClause(filter.Limit, filter.Offset, &args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer closeRows(rows)

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err = scanNotification(rows, &n); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	err = rows.Err()
	return notifications, err
}

// MarkNotificationRead stamps read_at. Marking an already-read
// notification is a no-op that preserves the original read time.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string, at time.Time) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("update", "notifications", start, err) }()

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = ?
		WHERE id = ? AND user_id = ? AND read_at IS NULL`,
		at, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		var exists bool
		lookupErr := s.db.QueryRowContext(ctx,
			`SELECT true FROM notifications WHERE id = ? AND user_id = ?`,
			id, userID).Scan(&exists)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			err = ErrNotFound
			return err
		}
		if lookupErr != nil {
			return fmt.Errorf("failed to check notification: %w", lookupErr)
		}
		// Already read: idempotent success.
	}
	return nil
}

// CountUnread returns how many unread notifications a user has.
func (s *Store) CountUnread(ctx context.Context, userID string) (count int, err error) {
	start := time.Now()
	defer func() { metrics.ObserveStoreQuery("select", "notifications", start, err) }()

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func scanNotification(scanner interface {
	Scan(dest ...interface{}) error
}, n *models.Notification) error {
	var (
		ntype, severity string
		readAt          sql.NullTime
	)
	if err := scanner.Scan(
		&n.ID,
		&n.UserID,
		&n.OrganizationID,
		&ntype,
		&n.Title,
		&n.Body,
		&severity,
		&n.RefID,
		&n.CreatedAt,
		&readAt,
	); err != nil {
		return err
	}

	n.Type = models.NotificationType(ntype)
	n.Severity = models.Severity(severity)
	n.CreatedAt = normalizeTime(n.CreatedAt)
	if readAt.Valid {
		t := normalizeTime(readAt.Time)
		n.ReadAt = &t
	}
	return nil
}
