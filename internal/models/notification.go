// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package models

import "time"

// NotificationType classifies an in-app notification record.
type NotificationType string

const (
	NotificationTypeAlert          NotificationType = "alert"
	NotificationTypeDetectionEvent NotificationType = "detection_event"
	NotificationTypeEmergencyAlert NotificationType = "emergency_alert"
	NotificationTypeSystem         NotificationType = "system"
)

// Notification is the durable in-app record created for one recipient of
// one alert or incident. ReadAt is null until the user marks it read; the
// pipeline never sets it.
type Notification struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	OrganizationID string           `json:"organization_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
	Severity       Severity         `json:"severity"`
	RefID          string           `json:"ref_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
}

// NotificationFilter defines filtering options for notification queries.
type NotificationFilter struct {
	OrganizationID string `json:"organization_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Unread         bool   `json:"unread,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
}
