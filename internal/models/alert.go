// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package models

import "time"

// Alert is a persisted, severity-ranked, human-facing record derived from a
// qualifying DetectionEvent. One alert references exactly one source event;
// an event spawns at most one alert.
//
// IsResolved is false until an operator resolves the alert. ResolvedAt is
// set iff IsResolved is true, and is immutable thereafter.
type Alert struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	CameraID       string     `json:"camera_id"`
	CameraName     string     `json:"camera_name"`
	Category       Category   `json:"category"`
	Severity       Severity   `json:"severity"`
	Description    string     `json:"description"`
	Confidence     float64    `json:"confidence"`
	SourceEventID  string     `json:"source_event_id"`
	IsResolved     bool       `json:"is_resolved"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// AlertFilter defines filtering options for alert queries.
type AlertFilter struct {
	OrganizationID string     `json:"organization_id,omitempty"`
	CameraID       string     `json:"camera_id,omitempty"`
	Categories     []Category `json:"categories,omitempty"`
	Severities     []Severity `json:"severities,omitempty"`
	Resolved       *bool      `json:"resolved,omitempty"`
	Since          *time.Time `json:"since,omitempty"`
	Until          *time.Time `json:"until,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
}
