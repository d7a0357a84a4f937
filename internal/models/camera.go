// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package models

import "time"

// Camera is the slice of the camera entity the pipeline reasons about.
// Stream acquisition and protocol negotiation live outside this system.
type Camera struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Location       string    `json:"location,omitempty"`
	Online         bool      `json:"online"`
	LastSeenAt     time.Time `json:"last_seen_at,omitempty"`
}

// UserProfile is the slice of the user entity the fan-out engine consumes:
// an id, the owning organization, and whether the user is active.
type UserProfile struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	DisplayName    string `json:"display_name,omitempty"`
	Active         bool   `json:"active"`
}

// EventFilter defines filtering options for detection event queries.
type EventFilter struct {
	OrganizationID string      `json:"organization_id,omitempty"`
	CameraID       string      `json:"camera_id,omitempty"`
	Categories     []Category  `json:"categories,omitempty"`
	Status         EventStatus `json:"status,omitempty"`
	Since          *time.Time  `json:"since,omitempty"`
	Until          *time.Time  `json:"until,omitempty"`
	Limit          int         `json:"limit,omitempty"`
	Offset         int         `json:"offset,omitempty"`
}
