// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package emergency orchestrates the scripted response to critical
// detections: idempotent incident creation, best-effort evidence capture,
// and a category-specific ordered action sequence where every step is
// independently tried and logged.
package emergency

import (
	"fmt"
	"time"

	"github.com/camsentry/camsentry/internal/models"
)

// Action type names. Each maps to an executor registered with the
// orchestrator.
const (
	ActionContactFireBrigade      = "contact_fire_brigade"
	ActionContactMedicalServices  = "contact_medical_services"
	ActionContactPolice           = "contact_police"
	ActionActivateBuildingSystems = "activate_building_systems"
	ActionActivateLockdown        = "activate_lockdown"
	ActionActivateCameraAudio     = "activate_camera_audio"
	ActionUnlockDoors             = "unlock_doors"
	ActionStartRecording          = "start_recording"
	ActionMassNotifyUsers         = "mass_notify_users"
	ActionNotifyStakeholders      = "notify_stakeholders"
	ActionNotifyCareTeam          = "notify_care_team"
	ActionNotifySecurityTeam      = "notify_security_team"
)

// Step is one entry of a response plan. Build produces the action payload
// from the incident and its source event; skip short-circuits the step
// with a logged skipped entry instead of executing it.
type Step struct {
	Type  string
	Build func(incident *models.EmergencyIncident, event *models.DetectionEvent) map[string]string
	Skip  func(event *models.DetectionEvent) (bool, string)
}

// planConfig carries the tunables plans close over.
type planConfig struct {
	policeConfidence  float64
	recordingDuration time.Duration
}

// planFor returns the ordered action sequence for an emergency type.
// Every plan has exactly four steps; the response-log entry count per
// incident always equals the plan length.
func planFor(emergencyType models.EmergencyType, cfg planConfig) []Step {
	switch emergencyType {
	case models.EmergencyTypeFire:
		return []Step{
			{Type: ActionContactFireBrigade, Build: serviceContactPayload("fire_brigade")},
			{Type: ActionActivateBuildingSystems, Build: func(incident *models.EmergencyIncident, _ *models.DetectionEvent) map[string]string {
				return map[string]string{
					"organization_id": incident.OrganizationID,
					"systems":         "evacuation_alert,sprinklers,fire_doors",
				}
			}},
			{Type: ActionMassNotifyUsers, Build: func(incident *models.EmergencyIncident, _ *models.DetectionEvent) map[string]string {
				return map[string]string{
					"title": "EVACUATE NOW",
					"body":  fmt.Sprintf("Fire detected at %s. Evacuate the building immediately.", incidentPlace(incident)),
				}
			}},
			{Type: ActionNotifyStakeholders, Build: stakeholderPayload("building_manager,security,facilities", "")},
		}

	case models.EmergencyTypeFall, models.EmergencyTypeMedical:
		return []Step{
			{Type: ActionContactMedicalServices, Build: serviceContactPayload("ambulance")},
			{Type: ActionActivateCameraAudio, Build: func(incident *models.EmergencyIncident, _ *models.DetectionEvent) map[string]string {
				return map[string]string{
					"camera_id": incident.CameraID,
					"message":   "Help is on the way. Please stay still, assistance has been called.",
				}
			}},
			{Type: ActionNotifyCareTeam, Build: stakeholderPayload("care_team,family,medical", "")},
			{Type: ActionUnlockDoors, Build: func(incident *models.EmergencyIncident, _ *models.DetectionEvent) map[string]string {
				return map[string]string{
					"organization_id": incident.OrganizationID,
					"reason":          "emergency_access",
				}
			}},
		}

	case models.EmergencyTypeSecurity, models.EmergencyTypeIntrusion:
		return []Step{
			{
				Type:  ActionContactPolice,
				Build: serviceContactPayload("police"),
				Skip: func(event *models.DetectionEvent) (bool, string) {
					if event.Confidence > cfg.policeConfidence {
						return false, ""
					}
					return true, fmt.Sprintf("confidence %.2f at or below police contact threshold %.2f",
						event.Confidence, cfg.policeConfidence)
				},
			},
			{Type: ActionActivateLockdown, Build: func(incident *models.EmergencyIncident, _ *models.DetectionEvent) map[string]string {
				return map[string]string{
					"organization_id": incident.OrganizationID,
					"systems":         "lockdown,alarm,lighting",
				}
			}},
			{Type: ActionNotifySecurityTeam, Build: stakeholderPayload("security,management", "immediate")},
			{Type: ActionStartRecording, Build: func(incident *models.EmergencyIncident, _ *models.DetectionEvent) map[string]string {
				return map[string]string{
					"camera_id": incident.CameraID,
					"duration":  cfg.recordingDuration.String(),
				}
			}},
		}

	default:
		return nil
	}
}

func serviceContactPayload(service string) func(*models.EmergencyIncident, *models.DetectionEvent) map[string]string {
	return func(incident *models.EmergencyIncident, event *models.DetectionEvent) map[string]string {
		return map[string]string{
			"service":         service,
			"organization_id": incident.OrganizationID,
			"incident_id":     incident.ID,
			"location":        incidentPlace(incident),
			"confidence":      fmt.Sprintf("%.2f", event.Confidence),
		}
	}
}

func stakeholderPayload(roles, priority string) func(*models.EmergencyIncident, *models.DetectionEvent) map[string]string {
	return func(incident *models.EmergencyIncident, _ *models.DetectionEvent) map[string]string {
		payload := map[string]string{
			"roles":   roles,
			"subject": fmt.Sprintf("%s incident at %s", incident.EmergencyType, incidentPlace(incident)),
		}
		if priority != "" {
			payload["priority"] = priority
		}
		return payload
	}
}

func incidentPlace(incident *models.EmergencyIncident) string {
	if incident.Location != "" {
		return fmt.Sprintf("%s, %s", incident.CameraName, incident.Location)
	}
	if incident.CameraName != "" {
		return incident.CameraName
	}
	return "camera " + incident.CameraID
}

// responseLevelFor ranks how aggressively the incident type is handled.
// Life-safety emergencies are immediate; property-safety ones standard.
func responseLevelFor(emergencyType models.EmergencyType) models.ResponseLevel {
	switch emergencyType {
	case models.EmergencyTypeFire, models.EmergencyTypeFall, models.EmergencyTypeMedical:
		return models.ResponseLevelImmediate
	default:
		return models.ResponseLevelStandard
	}
}
