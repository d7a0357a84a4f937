// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package models

import "time"

// IncidentStatus is the lifecycle state of an emergency incident. Incidents
// close only by explicit human action, never automatically.
type IncidentStatus string

const (
	IncidentStatusActive   IncidentStatus = "active"
	IncidentStatusResolved IncidentStatus = "resolved"
)

// ResponseLevel ranks how aggressively an incident is responded to.
type ResponseLevel string

const (
	ResponseLevelStandard  ResponseLevel = "standard"
	ResponseLevelImmediate ResponseLevel = "immediate"
)

// EvidenceRef points at one captured piece of evidence for an incident.
type EvidenceRef struct {
	Kind       string    `json:"kind"` // primary_image, context_snapshot
	ImageRef   string    `json:"image_ref"`
	CapturedAt time.Time `json:"captured_at"`
}

// EmergencyIncident is an emergency-response case opened for a
// critical-category detection. Exactly one incident exists per source
// detection event; retried handling of the same event returns the existing
// incident.
type EmergencyIncident struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	SourceEventID  string         `json:"source_event_id"`
	EmergencyType  EmergencyType  `json:"emergency_type"`
	ResponseLevel  ResponseLevel  `json:"response_level"`
	CameraID       string         `json:"camera_id"`
	CameraName     string         `json:"camera_name"`
	Location       string         `json:"location,omitempty"`
	Status         IncidentStatus `json:"status"`
	Evidence       []EvidenceRef  `json:"evidence,omitempty"`
	DetectedAt     time.Time      `json:"detected_at"`
	CreatedAt      time.Time      `json:"created_at"`
	ResolvedBy     string         `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time     `json:"resolved_at,omitempty"`
}

// ActionStatus is the recorded outcome of one orchestrated response action.
type ActionStatus string

const (
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

// EmergencyResponseLog is one entry of an incident's append-only audit
// trail: one executed (or skipped) action, in execution order.
type EmergencyResponseLog struct {
	ID         string            `json:"id"`
	IncidentID string            `json:"incident_id"`
	Sequence   int               `json:"sequence"`
	ActionType string            `json:"action_type"`
	Status     ActionStatus      `json:"status"`
	Payload    map[string]string `json:"payload,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// IncidentFilter defines filtering options for incident queries.
type IncidentFilter struct {
	OrganizationID string        `json:"organization_id,omitempty"`
	EmergencyType  EmergencyType `json:"emergency_type,omitempty"`
	Status         IncidentStatus `json:"status,omitempty"`
	Limit          int           `json:"limit,omitempty"`
	Offset         int           `json:"offset,omitempty"`
}
