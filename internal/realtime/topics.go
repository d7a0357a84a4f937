// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package realtime

// Broadcast subjects are organization-scoped: orgs.<org>.<entity>. The
// stream captures the whole orgs.> space, so the websocket bridge needs a
// single wildcard subscription regardless of tenant count.
const (
	// TopicWildcard matches every broadcast subject.
	TopicWildcard = "orgs.>"

	topicDetections    = "detections"
	topicAlerts        = "alerts"
	topicCritical      = "critical"
	topicNotifications = "notifications"
	topicIncidents     = "incidents"
	topicCameras       = "cameras"
)

func topicFor(organizationID, entity string) string {
	return "orgs." + organizationID + "." + entity
}
