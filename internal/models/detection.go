// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package models

import (
	"time"
)

// Rect is a bounding area within a camera frame, in pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RawDetection is the inbound payload produced by the external AI vision
// collaborator for one classified frame. It carries no identity of its own;
// the pipeline assigns one when it is accepted.
type RawDetection struct {
	OrganizationID string            `json:"organization_id" validate:"required"`
	CameraID       string            `json:"camera_id" validate:"required"`
	CameraName     string            `json:"camera_name"`
	Category       Category          `json:"category" validate:"required"`
	Confidence     float64           `json:"confidence" validate:"min=0,max=1"`
	Description    string            `json:"description,omitempty"`
	BoundingAreas  []Rect            `json:"bounding_areas,omitempty"`
	ImageRef       string            `json:"image_ref,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	DetectedAt     time.Time         `json:"detected_at,omitempty"`
}

// EventStatus is the human-review state of a detection event. The pipeline
// only ever writes StatusPending; every transition after that is an explicit
// operator action.
type EventStatus string

const (
	EventStatusPending       EventStatus = "pending"
	EventStatusConfirmed     EventStatus = "confirmed"
	EventStatusFalsePositive EventStatus = "false_positive"
	EventStatusIgnored       EventStatus = "ignored"
)

// Valid reports whether the status is a known review state.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPending, EventStatusConfirmed, EventStatusFalsePositive, EventStatusIgnored:
		return true
	}
	return false
}

// DetectionEvent is a persisted, accepted detection. Immutable once created
// except for Status, which transitions only via operator review.
type DetectionEvent struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organization_id"`
	CameraID       string            `json:"camera_id"`
	CameraName     string            `json:"camera_name"`
	Category       Category          `json:"category"`
	Confidence     float64           `json:"confidence"`
	Severity       Severity          `json:"severity"`
	Description    string            `json:"description,omitempty"`
	BoundingAreas  []Rect            `json:"bounding_areas,omitempty"`
	ImageRef       string            `json:"image_ref,omitempty"`
	Status         EventStatus       `json:"status"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	DetectedAt     time.Time         `json:"detected_at"`
	CreatedAt      time.Time         `json:"created_at"`
}
