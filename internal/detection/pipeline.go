// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/notify"
	"github.com/camsentry/camsentry/internal/validation"
)

// AlertStore persists alerts derived from detection events.
type AlertStore interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
}

// Notifier fans an alert out to the organization's users.
type Notifier interface {
	FanOutAlert(ctx context.Context, alert *models.Alert) notify.FanOutResult
}

// EmergencyHandler opens and orchestrates an emergency incident for a
// critical-category detection event.
type EmergencyHandler interface {
	Handle(ctx context.Context, event *models.DetectionEvent) (*models.EmergencyIncident, error)
}

// Broadcaster republishes pipeline state changes to dashboard sessions.
type Broadcaster interface {
	DetectionCreated(ctx context.Context, event *models.DetectionEvent)
	AlertCreated(ctx context.Context, alert *models.Alert)
	CriticalAlert(ctx context.Context, alert *models.Alert)
}

// Result aggregates what one detection submission produced. Rejection and
// Event are mutually exclusive. FanOut and Incident are set only when an
// alert was created and the corresponding stage ran.
type Result struct {
	Rejection *Rejection                `json:"rejection,omitempty"`
	Event     *models.DetectionEvent    `json:"event,omitempty"`
	Alert     *models.Alert             `json:"alert,omitempty"`
	FanOut    *notify.FanOutResult      `json:"fan_out,omitempty"`
	Incident  *models.EmergencyIncident `json:"incident,omitempty"`
}

// Accepted reports whether the detection made it past gate and dedup.
func (r Result) Accepted() bool {
	return r.Event != nil
}

// Pipeline sequences the stages for one detection: gate, dedup window,
// recorder, fan-out, emergency orchestration, broadcast. Stages after
// event persistence are downstream: their failures are captured in the
// result and logs, never returned as errors.
type Pipeline struct {
	gate      *Gate
	window    WindowStore
	recorder  *Recorder
	alerts    AlertStore
	notifier  Notifier
	emergency EmergencyHandler
	broadcast Broadcaster

	now func() time.Time
}

// NewPipeline wires the stages together. notifier, emergency, and
// broadcast may be nil; the corresponding stage is then skipped.
func NewPipeline(gate *Gate, window WindowStore, recorder *Recorder, alerts AlertStore,
	notifier Notifier, emergency EmergencyHandler, broadcast Broadcaster) *Pipeline {
	return &Pipeline{
		gate:      gate,
		window:    window,
		recorder:  recorder,
		alerts:    alerts,
		notifier:  notifier,
		emergency: emergency,
		broadcast: broadcast,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit runs one raw detection through the whole pipeline.
//
// Rejections (unknown category, disabled type, below threshold,
// deduplicated) come back in the result with a nil error. A persistence
// failure for the DetectionEvent or Alert is returned as an error so the
// caller can retry the submission. Downstream failures (fan-out,
// orchestration) are logged and reflected in the result only.
func (p *Pipeline) Submit(ctx context.Context, raw *models.RawDetection) (Result, error) {
	start := time.Now()
	metrics.DetectionsReceived.Inc()

	if err := validation.ValidateStruct(raw); err != nil {
		return Result{}, fmt.Errorf("invalid detection payload: %w", err)
	}

	event, rejection := p.gate.Accept(ctx, raw)
	if rejection != nil {
		metrics.DetectionsRejected.WithLabelValues(string(raw.Category), string(rejection.Reason)).Inc()
		logging.Ctx(ctx).Debug().
			Str("camera_id", raw.CameraID).
			Str("category", string(raw.Category)).
			Str("reason", string(rejection.Reason)).
			Msg("Detection rejected")
		return Result{Rejection: rejection}, nil
	}

	acquired, err := p.window.Acquire(ctx, event.OrganizationID, event.CameraID, event.Category, p.now())
	if err != nil {
		// WindowStore implementations fail open themselves; an error here
		// still must not lose the detection.
		logging.Ctx(ctx).Warn().Err(err).Msg("Dedup window check errored, proceeding")
		acquired = true
	}
	if !acquired {
		rejection := &Rejection{
			Reason: RejectDeduplicated,
			Detail: fmt.Sprintf("repeat %s detection on camera %s within dedup window", event.Category, event.CameraID),
		}
		metrics.DetectionsRejected.WithLabelValues(string(event.Category), string(RejectDeduplicated)).Inc()
		return Result{Rejection: rejection}, nil
	}

	if err := p.recorder.Record(ctx, event); err != nil {
		// The retry must get a fresh window; a failed persistence cannot
		// be allowed to consume the dedup slot.
		if relErr := p.window.Release(ctx, event.OrganizationID, event.CameraID, event.Category); relErr != nil {
			logging.Ctx(ctx).Warn().Err(relErr).
				Str("camera_id", event.CameraID).
				Str("category", string(event.Category)).
				Msg("Could not release dedup window after persistence failure")
		}
		return Result{}, err
	}
	metrics.DetectionsAccepted.WithLabelValues(string(event.Category)).Inc()
	if p.broadcast != nil {
		p.broadcast.DetectionCreated(ctx, event)
	}

	result := Result{Event: event}

	alert := p.recorder.EvaluateForAlert(ctx, event)
	if alert == nil {
		metrics.PipelineDuration.WithLabelValues(string(event.Category)).Observe(time.Since(start).Seconds())
		return result, nil
	}

	if err := p.alerts.CreateAlert(ctx, alert); err != nil {
		return result, fmt.Errorf("failed to persist alert: %w", err)
	}
	result.Alert = alert
	metrics.AlertsCreated.WithLabelValues(string(alert.Category), string(alert.Severity)).Inc()
	logging.Ctx(ctx).Info().
		Str("alert_id", alert.ID).
		Str("organization_id", alert.OrganizationID).
		Str("category", string(alert.Category)).
		Str("severity", string(alert.Severity)).
		Msg("Alert created")

	if p.broadcast != nil {
		p.broadcast.AlertCreated(ctx, alert)
		if alert.Severity == models.SeverityCritical {
			p.broadcast.CriticalAlert(ctx, alert)
		}
	}

	if p.notifier != nil {
		if p.gate.NotifyEnabled(ctx, alert.OrganizationID, alert.Category) {
			fanOut := p.notifier.FanOutAlert(ctx, alert)
			result.FanOut = &fanOut
		} else {
			logging.Ctx(ctx).Debug().
				Str("alert_id", alert.ID).
				Str("category", string(alert.Category)).
				Msg("Fan-out skipped, notify disabled for detection type")
		}
	}

	if _, isEmergency := models.EmergencyTypeFor(event.Category); isEmergency && p.emergency != nil {
		incident, err := p.emergency.Handle(ctx, event)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("event_id", event.ID).
				Msg("Emergency orchestration failed")
		} else {
			result.Incident = incident
		}
	}

	metrics.PipelineDuration.WithLabelValues(string(event.Category)).Observe(time.Since(start).Seconds())
	return result, nil
}
