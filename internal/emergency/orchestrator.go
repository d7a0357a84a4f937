// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package emergency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

// IncidentStore is the persistence surface for incidents.
type IncidentStore interface {
	CreateIncidentIfAbsent(ctx context.Context, incident *models.EmergencyIncident) (*models.EmergencyIncident, bool, error)
	AppendIncidentEvidence(ctx context.Context, orgID, id string, refs []models.EvidenceRef) error
}

// ResponseLogStore appends audit-trail entries.
type ResponseLogStore interface {
	AppendResponseLog(ctx context.Context, entry *models.EmergencyResponseLog) error
}

// EvidenceCapturer pulls context snapshots around the detection moment
// from the source camera. Best effort; failures never block the incident.
type EvidenceCapturer interface {
	Capture(ctx context.Context, event *models.DetectionEvent, window time.Duration) ([]models.EvidenceRef, error)
}

// Broadcaster republishes incident creation to dashboard sessions.
type Broadcaster interface {
	IncidentCreated(ctx context.Context, incident *models.EmergencyIncident)
}

// Orchestrator turns a critical detection event into an incident and runs
// its response plan. Steps execute strictly in order, each one
// independently time-bounded, tried, and logged; a failed step never
// blocks the ones after it.
type Orchestrator struct {
	incidents IncidentStore
	logs      ResponseLogStore
	executors map[string]ActionExecutor
	evidence  EvidenceCapturer
	broadcast Broadcaster

	actionTimeout time.Duration
	snapshotWin   time.Duration
	plan          planConfig
}

// NewOrchestrator assembles the orchestrator. evidence and broadcast may
// be nil.
func NewOrchestrator(cfg config.EmergencyConfig, incidents IncidentStore, logs ResponseLogStore,
	evidence EvidenceCapturer, broadcast Broadcaster) *Orchestrator {
	return &Orchestrator{
		incidents:     incidents,
		logs:          logs,
		executors:     make(map[string]ActionExecutor),
		evidence:      evidence,
		broadcast:     broadcast,
		actionTimeout: cfg.ActionTimeout,
		snapshotWin:   cfg.ContextSnapshotWindow,
		plan: planConfig{
			policeConfidence:  cfg.PoliceConfidenceThreshold,
			recordingDuration: cfg.RecordingDuration,
		},
	}
}

// Register binds an executor to one or more action types. Later
// registrations for the same type win.
func (o *Orchestrator) Register(executor ActionExecutor, actionTypes ...string) {
	for _, t := range actionTypes {
		o.executors[t] = executor
	}
}

// RegisterDefaults wires every plan action to the standard executors.
func (o *Orchestrator) RegisterDefaults(services *ServiceContactExecutor, building *BuildingExecutor,
	camera *CameraExecutor, messaging *MessagingExecutor) {
	o.Register(services, ActionContactFireBrigade, ActionContactMedicalServices, ActionContactPolice)
	o.Register(building, ActionActivateBuildingSystems, ActionActivateLockdown, ActionUnlockDoors)
	o.Register(camera, ActionActivateCameraAudio, ActionStartRecording)
	o.Register(messaging, ActionMassNotifyUsers, ActionNotifyStakeholders, ActionNotifyCareTeam, ActionNotifySecurityTeam)
}

// Handle opens (or finds) the incident for a detection event and executes
// its response plan. Handling is idempotent per source event: a retried
// call returns the existing incident without re-running any action.
func (o *Orchestrator) Handle(ctx context.Context, event *models.DetectionEvent) (*models.EmergencyIncident, error) {
	emergencyType, ok := models.EmergencyTypeFor(event.Category)
	if !ok {
		return nil, fmt.Errorf("category %q is not emergency-capable", event.Category)
	}

	incident := &models.EmergencyIncident{
		ID:             uuid.NewString(),
		OrganizationID: event.OrganizationID,
		SourceEventID:  event.ID,
		EmergencyType:  emergencyType,
		ResponseLevel:  responseLevelFor(emergencyType),
		CameraID:       event.CameraID,
		CameraName:     event.CameraName,
		Location:       event.Metadata["location"],
		Status:         models.IncidentStatusActive,
		DetectedAt:     event.DetectedAt,
		CreatedAt:      time.Now().UTC(),
	}

	incident, created, err := o.incidents.CreateIncidentIfAbsent(ctx, incident)
	if err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}
	if !created {
		logging.Ctx(ctx).Info().
			Str("incident_id", incident.ID).
			Str("event_id", event.ID).
			Msg("Incident already exists for event, skipping orchestration")
		return incident, nil
	}

	metrics.IncidentsCreated.WithLabelValues(string(emergencyType)).Inc()
	logging.Ctx(ctx).Warn().
		Str("incident_id", incident.ID).
		Str("emergency_type", string(emergencyType)).
		Str("camera_id", incident.CameraID).
		Str("response_level", string(incident.ResponseLevel)).
		Msg("Emergency incident opened")

	if o.broadcast != nil {
		o.broadcast.IncidentCreated(ctx, incident)
	}

	o.captureEvidence(ctx, incident, event)
	o.executePlan(ctx, incident, event)
	return incident, nil
}

// captureEvidence attaches the event's primary image plus best-effort
// context snapshots. An incident with zero evidence is still valid.
func (o *Orchestrator) captureEvidence(ctx context.Context, incident *models.EmergencyIncident, event *models.DetectionEvent) {
	var refs []models.EvidenceRef
	if event.ImageRef != "" {
		refs = append(refs, models.EvidenceRef{
			Kind:       "primary_image",
			ImageRef:   event.ImageRef,
			CapturedAt: event.DetectedAt,
		})
	}
	if o.evidence != nil {
		snapshots, err := o.evidence.Capture(ctx, event, o.snapshotWin)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("incident_id", incident.ID).
				Msg("Context snapshot capture failed")
		} else {
			refs = append(refs, snapshots...)
		}
	}
	if len(refs) == 0 {
		return
	}
	if err := o.incidents.AppendIncidentEvidence(ctx, incident.OrganizationID, incident.ID, refs); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("incident_id", incident.ID).
			Msg("Failed to attach evidence to incident")
		return
	}
	incident.Evidence = append(incident.Evidence, refs...)
}

// executePlan runs every step of the incident's plan in order. Each step
// produces exactly one response-log entry: completed, failed, or skipped.
func (o *Orchestrator) executePlan(ctx context.Context, incident *models.EmergencyIncident, event *models.DetectionEvent) {
	steps := planFor(incident.EmergencyType, o.plan)
	for i, step := range steps {
		entry := &models.EmergencyResponseLog{
			ID:         uuid.NewString(),
			IncidentID: incident.ID,
			Sequence:   i + 1,
			ActionType: step.Type,
		}

		if step.Skip != nil {
			if skip, reason := step.Skip(event); skip {
				entry.Status = models.ActionStatusSkipped
				entry.Detail = reason
				o.appendLog(ctx, entry)
				continue
			}
		}

		action := Action{Type: step.Type, Payload: step.Build(incident, event)}
		entry.Payload = action.Payload

		executor, ok := o.executors[step.Type]
		if !ok {
			entry.Status = models.ActionStatusFailed
			entry.Detail = fmt.Sprintf("no executor registered for action %q", step.Type)
			o.appendLog(ctx, entry)
			continue
		}

		actionCtx, cancel := context.WithTimeout(ctx, o.actionTimeout)
		result := executor.Execute(actionCtx, incident, action)
		cancel()

		entry.Status = result.Status
		entry.Detail = result.Detail
		o.appendLog(ctx, entry)

		if result.Status == models.ActionStatusFailed {
			logging.Ctx(ctx).Error().
				Str("incident_id", incident.ID).
				Str("action", step.Type).
				Str("detail", result.Detail).
				Msg("Response action failed, continuing sequence")
		}
	}
}

func (o *Orchestrator) appendLog(ctx context.Context, entry *models.EmergencyResponseLog) {
	entry.Timestamp = time.Now().UTC()
	metrics.ResponseActions.WithLabelValues(entry.ActionType, string(entry.Status)).Inc()
	if err := o.logs.AppendResponseLog(ctx, entry); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("incident_id", entry.IncidentID).
			Str("action", entry.ActionType).
			Msg("Failed to append response log entry")
	}
}
