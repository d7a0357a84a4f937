// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package detection

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/models"
)

// EventStore persists accepted detection events.
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.DetectionEvent) error
}

// PersonMatch is the result of a face lookup against the known-persons
// collection.
type PersonMatch struct {
	Name             string
	PersonOfInterest bool
}

// POILookup resolves a matched face against the known-persons collection.
// It is an external collaborator; the recorder only consumes the match.
type POILookup interface {
	Lookup(ctx context.Context, orgID, faceID string) (PersonMatch, error)
}

// CrowdLimits supplies the per-organization person-count threshold above
// which a crowd alert fires. A limit of zero disables crowd alerting.
type CrowdLimits interface {
	Limit(ctx context.Context, orgID string) (int, error)
}

// StaticCrowdLimits applies one fixed limit to every organization.
type StaticCrowdLimits int

func (s StaticCrowdLimits) Limit(context.Context, string) (int, error) {
	return int(s), nil
}

// Recorder persists accepted detections and decides alert-worthiness.
type Recorder struct {
	events EventStore
	poi    POILookup
	crowd  CrowdLimits
}

// NewRecorder creates a recorder. poi may be nil when face matching is
// not deployed; crowd may be nil to disable crowd alerting.
func NewRecorder(events EventStore, poi POILookup, crowd CrowdLimits) *Recorder {
	if crowd == nil {
		crowd = StaticCrowdLimits(0)
	}
	return &Recorder{events: events, poi: poi, crowd: crowd}
}

// Record persists the detection event. Every accepted detection is
// persisted regardless of alert-worthiness so all detections remain
// auditable. A persistence failure is fatal to this detection's
// processing; the caller retries the whole submission.
func (r *Recorder) Record(ctx context.Context, event *models.DetectionEvent) error {
	if err := r.events.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to persist detection event: %w", err)
	}
	return nil
}

// EvaluateForAlert decides whether the event qualifies as an alert and
// builds it. Returns nil when the category only warrants a reviewable
// event. The alert is not yet persisted.
func (r *Recorder) EvaluateForAlert(ctx context.Context, event *models.DetectionEvent) *models.Alert {
	place := placeName(event)
	pct := int(event.Confidence*100 + 0.5)

	var (
		severity    models.Severity
		description string
	)

	switch event.Category {
	case models.CategoryTheft:
		if event.Confidence <= 0.8 {
			return nil
		}
		severity = models.SeverityHigh
		description = fmt.Sprintf("Suspected theft at %s (%d%% confidence)", place, pct)

	case models.CategoryIntrusion:
		if event.Confidence <= 0.8 {
			return nil
		}
		severity = models.SeverityHigh
		description = fmt.Sprintf("Intrusion detected at %s (%d%% confidence)", place, pct)

	case models.CategoryFall:
		if event.Confidence <= 0.7 {
			return nil
		}
		severity = models.SeverityHigh
		description = fmt.Sprintf("Person down at %s (%d%% confidence)", place, pct)

	case models.CategoryFire:
		if event.Confidence <= 0.6 {
			return nil
		}
		severity = models.SeverityCritical
		description = fmt.Sprintf("Fire or smoke detected at %s (%d%% confidence)", place, pct)

	case models.CategoryFace:
		severity, description = r.evaluateFace(ctx, event, place, pct)

	case models.CategoryPerson:
		count, ok := r.evaluateCrowd(ctx, event)
		if !ok {
			return nil
		}
		severity = models.SeverityMedium
		description = fmt.Sprintf("Crowd of %d people at %s (%d%% confidence)", count, place, pct)

	default:
		// Visible only as a DetectionEvent for manual review.
		return nil
	}

	return &models.Alert{
		ID:             uuid.NewString(),
		OrganizationID: event.OrganizationID,
		CameraID:       event.CameraID,
		CameraName:     event.CameraName,
		Category:       event.Category,
		Severity:       severity,
		Description:    description,
		Confidence:     event.Confidence,
		SourceEventID:  event.ID,
		CreatedAt:      time.Now().UTC(),
	}
}

// evaluateFace applies the person-of-interest rule. A lookup failure is a
// downstream failure: evaluation proceeds without POI elevation, logged
// as degraded, and the operator still gets the informational alert.
func (r *Recorder) evaluateFace(ctx context.Context, event *models.DetectionEvent, place string, pct int) (models.Severity, string) {
	faceID := event.Metadata["face_id"]
	if r.poi != nil && faceID != "" {
		match, err := r.poi.Lookup(ctx, event.OrganizationID, faceID)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("organization_id", event.OrganizationID).
				Str("face_id", faceID).
				Msg("Person-of-interest lookup failed, alerting without elevation")
		} else if match.PersonOfInterest && event.Confidence > 0.85 {
			return models.SeverityHigh,
				fmt.Sprintf("Person of interest %s identified at %s (%d%% confidence)", match.Name, place, pct)
		}
	}
	return models.SeverityLow,
		fmt.Sprintf("Unrecognized person at %s (%d%% confidence)", place, pct)
}

// evaluateCrowd reports the detected person count and whether it exceeds
// the organization's configured limit.
func (r *Recorder) evaluateCrowd(ctx context.Context, event *models.DetectionEvent) (int, bool) {
	raw := event.Metadata["person_count"]
	if raw == "" {
		return 0, false
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return 0, false
	}
	limit, err := r.crowd.Limit(ctx, event.OrganizationID)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("organization_id", event.OrganizationID).
			Msg("Crowd limit lookup failed, skipping crowd alert")
		return 0, false
	}
	if limit <= 0 || count <= limit {
		return 0, false
	}
	return count, true
}

// placeName renders where the detection happened. Never empty; falls back
// to the camera id.
func placeName(event *models.DetectionEvent) string {
	name := event.CameraName
	if name == "" {
		name = "camera " + event.CameraID
	}
	if loc := event.Metadata["location"]; loc != "" {
		return name + " (" + loc + ")"
	}
	return name
}
