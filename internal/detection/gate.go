// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package detection implements the detection-to-response pipeline: the
// intake gate, the dedup window, the event and alert recorder, and the
// pipeline that sequences them and hands qualifying alerts to fan-out
// and emergency orchestration.
package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/registry"
)

// RejectReason classifies why the gate declined a raw detection. These are
// expected outcomes, not errors.
type RejectReason string

const (
	RejectUnknownCategory RejectReason = "unknown_category"
	RejectTypeDisabled    RejectReason = "type_disabled"
	RejectBelowThreshold  RejectReason = "below_threshold"
	RejectDeduplicated    RejectReason = "deduplicated"
)

// Rejection describes a declined detection.
type Rejection struct {
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// Gate applies per-category configuration to raw detections. It makes a
// pure accept/reject decision and owns no storage state.
type Gate struct {
	registry *registry.Registry
}

// NewGate creates a gate over the type-config registry.
func NewGate(r *registry.Registry) *Gate {
	return &Gate{registry: r}
}

// Accept decides whether a raw detection enters the pipeline. On
// acceptance it returns a fully-populated DetectionEvent carrying the
// resolved severity: the detection's own severity metadata if valid,
// otherwise the category's configured default. The event is not yet
// persisted; that is the recorder's job.
func (g *Gate) Accept(ctx context.Context, raw *models.RawDetection) (*models.DetectionEvent, *Rejection) {
	if !raw.Category.Known() {
		return nil, &Rejection{
			Reason: RejectUnknownCategory,
			Detail: fmt.Sprintf("category %q is not recognized", raw.Category),
		}
	}

	cfg, err := g.registry.Resolve(ctx, raw.OrganizationID, raw.Category)
	if err != nil {
		return nil, &Rejection{Reason: RejectUnknownCategory, Detail: err.Error()}
	}
	if !cfg.Enabled {
		return nil, &Rejection{
			Reason: RejectTypeDisabled,
			Detail: fmt.Sprintf("detection type %q is disabled for this organization", raw.Category),
		}
	}
	if raw.Confidence < cfg.ConfidenceThreshold {
		return nil, &Rejection{
			Reason: RejectBelowThreshold,
			Detail: fmt.Sprintf("confidence %.2f below threshold %.2f", raw.Confidence, cfg.ConfidenceThreshold),
		}
	}

	severity := cfg.Severity
	if meta := models.Severity(raw.Metadata["severity"]); meta.Valid() {
		severity = meta
	}

	detectedAt := raw.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}

	event := &models.DetectionEvent{
		ID:             uuid.NewString(),
		OrganizationID: raw.OrganizationID,
		CameraID:       raw.CameraID,
		CameraName:     raw.CameraName,
		Category:       raw.Category,
		Confidence:     raw.Confidence,
		Severity:       severity,
		Description:    raw.Description,
		BoundingAreas:  raw.BoundingAreas,
		ImageRef:       raw.ImageRef,
		Status:         models.EventStatusPending,
		Metadata:       raw.Metadata,
		DetectedAt:     detectedAt,
		CreatedAt:      time.Now().UTC(),
	}

	logging.Ctx(ctx).Debug().
		Str("organization_id", event.OrganizationID).
		Str("camera_id", event.CameraID).
		Str("category", string(event.Category)).
		Float64("confidence", event.Confidence).
		Msg("Detection accepted by intake gate")
	return event, nil
}

// NotifyEnabled reports whether the organization's configuration for a
// category wants alert fan-out. A resolution failure defaults to
// notifying; suppressing sends on a config read error is the wrong
// failure direction.
func (g *Gate) NotifyEnabled(ctx context.Context, orgID string, category models.Category) bool {
	cfg, err := g.registry.Resolve(ctx, orgID, category)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("category", string(category)).
			Msg("Could not resolve notify flag, defaulting to enabled")
		return true
	}
	return cfg.NotifyEnabled
}
