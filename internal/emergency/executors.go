// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package emergency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/notify"
)

// ServicesContact is the external emergency-services integration (fire
// brigade, ambulance, police dispatch).
type ServicesContact interface {
	Contact(ctx context.Context, service string, details map[string]string) error
}

// BuildingControl is the building-management integration: alarms,
// sprinklers, lockdown, door control.
type BuildingControl interface {
	Activate(ctx context.Context, orgID string, systems []string) error
	UnlockDoors(ctx context.Context, orgID, reason string) error
}

// CameraControl drives the source camera: two-way audio and continuous
// recording.
type CameraControl interface {
	PlayAudio(ctx context.Context, cameraID, message string) error
	StartRecording(ctx context.Context, cameraID string, duration time.Duration) error
}

// Contact is one stakeholder reachable out-of-band.
type Contact struct {
	Name  string
	Role  string
	Email string
	Phone string
}

// StakeholderDirectory resolves an organization's out-of-band contacts by
// role (building manager, security, care team, family).
type StakeholderDirectory interface {
	ListContacts(ctx context.Context, orgID string, roles []string) ([]Contact, error)
}

// ServiceContactExecutor handles the contact_* actions. Calls run through
// a circuit breaker so a dead dispatch integration fails fast; the
// orchestrator logs the failure and moves to the next step either way.
type ServiceContactExecutor struct {
	client  ServicesContact
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewServiceContactExecutor wraps a dispatch client.
func NewServiceContactExecutor(client ServicesContact) *ServiceContactExecutor {
	return &ServiceContactExecutor{
		client: client,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "emergency-services",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (e *ServiceContactExecutor) Execute(ctx context.Context, _ *models.EmergencyIncident, action Action) ActionResult {
	service := action.Payload["service"]
	_, err := e.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, e.client.Contact(ctx, service, action.Payload)
	})
	if err != nil {
		return failed(fmt.Errorf("contacting %s: %w", service, err))
	}
	return completed(fmt.Sprintf("%s dispatched to %s", service, action.Payload["location"]))
}

// BuildingExecutor handles building-system activations and door control.
type BuildingExecutor struct {
	control BuildingControl
}

func NewBuildingExecutor(control BuildingControl) *BuildingExecutor {
	return &BuildingExecutor{control: control}
}

func (e *BuildingExecutor) Execute(ctx context.Context, incident *models.EmergencyIncident, action Action) ActionResult {
	orgID := incident.OrganizationID
	switch action.Type {
	case ActionUnlockDoors:
		if err := e.control.UnlockDoors(ctx, orgID, action.Payload["reason"]); err != nil {
			return failed(err)
		}
		return completed("doors unlocked for emergency access")
	default:
		systems := strings.Split(action.Payload["systems"], ",")
		if err := e.control.Activate(ctx, orgID, systems); err != nil {
			return failed(err)
		}
		return completed("activated " + action.Payload["systems"])
	}
}

// CameraExecutor handles source-camera actions.
type CameraExecutor struct {
	control CameraControl
}

func NewCameraExecutor(control CameraControl) *CameraExecutor {
	return &CameraExecutor{control: control}
}

func (e *CameraExecutor) Execute(ctx context.Context, _ *models.EmergencyIncident, action Action) ActionResult {
	cameraID := action.Payload["camera_id"]
	switch action.Type {
	case ActionActivateCameraAudio:
		if err := e.control.PlayAudio(ctx, cameraID, action.Payload["message"]); err != nil {
			return failed(err)
		}
		return completed("two-way audio playing on camera " + cameraID)
	case ActionStartRecording:
		duration, err := time.ParseDuration(action.Payload["duration"])
		if err != nil {
			return failed(fmt.Errorf("invalid recording duration %q: %w", action.Payload["duration"], err))
		}
		if err := e.control.StartRecording(ctx, cameraID, duration); err != nil {
			return failed(err)
		}
		return completed(fmt.Sprintf("recording on camera %s for %s", cameraID, duration))
	default:
		return failed(fmt.Errorf("camera executor cannot handle action %q", action.Type))
	}
}

// MessagingExecutor handles the notify actions: mass notification of the
// organization's users through the fan-out engine, and direct stakeholder
// contact over SMS and email through the messaging gateway.
type MessagingExecutor struct {
	engine       *notify.Engine
	gateway      notify.Gateway
	stakeholders StakeholderDirectory
}

func NewMessagingExecutor(engine *notify.Engine, gateway notify.Gateway, stakeholders StakeholderDirectory) *MessagingExecutor {
	return &MessagingExecutor{engine: engine, gateway: gateway, stakeholders: stakeholders}
}

func (e *MessagingExecutor) Execute(ctx context.Context, incident *models.EmergencyIncident, action Action) ActionResult {
	switch action.Type {
	case ActionMassNotifyUsers:
		result := e.engine.FanOutIncident(ctx, incident, action.Payload["title"], action.Payload["body"])
		if result.Created == 0 && result.Recipients > 0 {
			return failed(fmt.Errorf("no notifications created for %d recipients", result.Recipients))
		}
		return completed(fmt.Sprintf("notified %d of %d users (%d push failures)",
			result.Created, result.Recipients, result.PushFailed))

	default:
		return e.contactStakeholders(ctx, incident, action)
	}
}

func (e *MessagingExecutor) contactStakeholders(ctx context.Context, incident *models.EmergencyIncident, action Action) ActionResult {
	roles := strings.Split(action.Payload["roles"], ",")
	contacts, err := e.stakeholders.ListContacts(ctx, incident.OrganizationID, roles)
	if err != nil {
		return failed(fmt.Errorf("resolving stakeholders: %w", err))
	}
	if len(contacts) == 0 {
		return completed("no stakeholders configured for roles " + action.Payload["roles"])
	}

	body := action.Payload["subject"]
	if action.Payload["priority"] == "immediate" {
		body = "IMMEDIATE: " + body
	}

	var sent, sendFailed int
	for _, contact := range contacts {
		var sendErr error
		switch {
		case contact.Phone != "":
			sendErr = e.gateway.SendSMS(ctx, contact.Phone, body)
		case contact.Email != "":
			sendErr = e.gateway.SendEmail(ctx, contact.Email, action.Payload["subject"], body)
		default:
			continue
		}
		if sendErr != nil {
			sendFailed++
			logging.Ctx(ctx).Warn().Err(sendErr).
				Str("stakeholder", contact.Name).
				Str("incident_id", incident.ID).
				Msg("Stakeholder contact failed")
			continue
		}
		sent++
	}
	if sent == 0 && sendFailed > 0 {
		return failed(fmt.Errorf("all %d stakeholder contacts failed", sendFailed))
	}
	return completed(fmt.Sprintf("contacted %d stakeholders (%d failures)", sent, sendFailed))
}

// LogServicesContact is the placeholder dispatch integration: it records
// the contact in the structured log and succeeds. Real deployments
// substitute a provider-specific ServicesContact.
type LogServicesContact struct{}

func (LogServicesContact) Contact(ctx context.Context, service string, details map[string]string) error {
	logging.Ctx(ctx).Info().
		Str("service", service).
		Str("location", details["location"]).
		Str("incident_id", details["incident_id"]).
		Msg("Emergency service contacted")
	return nil
}

// LogBuildingControl is the placeholder building-management integration.
type LogBuildingControl struct{}

func (LogBuildingControl) Activate(ctx context.Context, orgID string, systems []string) error {
	logging.Ctx(ctx).Info().
		Str("organization_id", orgID).
		Strs("systems", systems).
		Msg("Building systems activated")
	return nil
}

func (LogBuildingControl) UnlockDoors(ctx context.Context, orgID, reason string) error {
	logging.Ctx(ctx).Info().
		Str("organization_id", orgID).
		Str("reason", reason).
		Msg("Doors unlocked")
	return nil
}

// LogCameraControl is the placeholder camera integration.
type LogCameraControl struct{}

func (LogCameraControl) PlayAudio(ctx context.Context, cameraID, message string) error {
	logging.Ctx(ctx).Info().
		Str("camera_id", cameraID).
		Str("message", message).
		Msg("Camera audio activated")
	return nil
}

func (LogCameraControl) StartRecording(ctx context.Context, cameraID string, duration time.Duration) error {
	logging.Ctx(ctx).Info().
		Str("camera_id", cameraID).
		Dur("duration", duration).
		Msg("Continuous recording started")
	return nil
}

// NoStakeholders is an empty stakeholder directory.
type NoStakeholders struct{}

func (NoStakeholders) ListContacts(context.Context, string, []string) ([]Contact, error) {
	return nil, nil
}
