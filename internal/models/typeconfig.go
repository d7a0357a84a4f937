// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package models

import "time"

// DetectionTypeConfig is the per-organization, per-category configuration
// the intake gate consults: whether the category is enabled, the confidence
// floor, the default severity, and whether alerts of this category notify.
//
// ConfidenceThreshold is clamped to [0.5, 0.99] when user-edited; built-in
// defaults may sit below that floor but are never negative or above 1.
type DetectionTypeConfig struct {
	OrganizationID      string   `json:"organization_id,omitempty"` // empty = built-in default
	Category            Category `json:"category"`
	DisplayName         string   `json:"display_name"`
	Description         string   `json:"description,omitempty"`
	Enabled             bool     `json:"enabled"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	Severity            Severity `json:"severity"`
	NotifyEnabled       bool     `json:"notify_enabled"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

// Threshold clamp bounds for user-editable configs.
const (
	MinConfidenceThreshold = 0.5
	MaxConfidenceThreshold = 0.99
)

// ClampThreshold forces a user-supplied threshold into the editable range.
func ClampThreshold(v float64) float64 {
	if v < MinConfidenceThreshold {
		return MinConfidenceThreshold
	}
	if v > MaxConfidenceThreshold {
		return MaxConfidenceThreshold
	}
	return v
}
