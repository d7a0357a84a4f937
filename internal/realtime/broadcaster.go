// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package realtime

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

// Sink is where broadcast envelopes go. Production wires the JetStream
// Publisher; HubSink short-circuits to the local websocket hub when the
// bus is disabled.
type Sink interface {
	Publish(ctx context.Context, topic string, envelope []byte, msgID string) error
}

// Broadcaster turns pipeline outcomes into realtime envelopes. Broadcast
// is strictly best-effort: a failed publish is counted and logged, never
// surfaced to the caller, because detection processing must not depend on
// dashboard delivery.
type Broadcaster struct {
	sink Sink
}

// NewBroadcaster creates a broadcaster over the given sink.
func NewBroadcaster(sink Sink) *Broadcaster {
	return &Broadcaster{sink: sink}
}

// DetectionCreated announces a newly persisted detection event.
func (b *Broadcaster) DetectionCreated(ctx context.Context, event *models.DetectionEvent) {
	b.publish(ctx, topicFor(event.OrganizationID, topicDetections), Message{
		Type:           MessageTypeDetection,
		OrganizationID: event.OrganizationID,
		Data:           event,
	}, event.ID)
}

// AlertCreated announces a newly created alert.
func (b *Broadcaster) AlertCreated(ctx context.Context, alert *models.Alert) {
	b.publish(ctx, topicFor(alert.OrganizationID, topicAlerts), Message{
		Type:           MessageTypeAlert,
		OrganizationID: alert.OrganizationID,
		Data:           alert,
	}, alert.ID)
}

// CriticalAlert re-announces a critical-severity alert on the dedicated
// critical subject, so consumers that only care about life-safety traffic
// can subscribe narrowly.
func (b *Broadcaster) CriticalAlert(ctx context.Context, alert *models.Alert) {
	b.publish(ctx, topicFor(alert.OrganizationID, topicCritical), Message{
		Type:           MessageTypeCriticalAlert,
		OrganizationID: alert.OrganizationID,
		Data:           alert,
	}, alert.ID)
}

// NotificationCreated announces a new in-app notification.
func (b *Broadcaster) NotificationCreated(ctx context.Context, n *models.Notification) {
	b.publish(ctx, topicFor(n.OrganizationID, topicNotifications), Message{
		Type:           MessageTypeNotification,
		OrganizationID: n.OrganizationID,
		Data:           n,
	}, n.ID)
}

// IncidentCreated announces a new emergency incident.
func (b *Broadcaster) IncidentCreated(ctx context.Context, incident *models.EmergencyIncident) {
	b.publish(ctx, topicFor(incident.OrganizationID, topicIncidents), Message{
		Type:           MessageTypeIncident,
		OrganizationID: incident.OrganizationID,
		Data:           incident,
	}, incident.ID)
}

// CameraStatus announces a camera going online or offline.
func (b *Broadcaster) CameraStatus(ctx context.Context, camera *models.Camera) {
	state := "offline"
	if camera.Online {
		state = "online"
	}
	b.publish(ctx, topicFor(camera.OrganizationID, topicCameras), Message{
		Type:           MessageTypeCameraStatus,
		OrganizationID: camera.OrganizationID,
		Data:           camera,
	}, camera.ID+"/"+state)
}

func (b *Broadcaster) publish(ctx context.Context, topic string, msg Message, entityID string) {
	envelope, err := json.Marshal(msg)
	if err != nil {
		metrics.BroadcastsDropped.Inc()
		logging.Error().Err(err).
			Str("message_type", msg.Type).
			Msg("failed to marshal broadcast envelope")
		return
	}

	// Message type plus entity ID keys JetStream deduplication. The same
	// alert fans out on both the alerts and critical subjects, so the ID
	// alone would collapse the second publish.
	msgID := msg.Type + "/" + entityID

	if err := b.sink.Publish(ctx, topic, envelope, msgID); err != nil {
		metrics.BroadcastsDropped.Inc()
		logging.Warn().Err(err).
			Str("topic", topic).
			Str("message_type", msg.Type).
			Msg("failed to publish broadcast")
		return
	}
	metrics.BroadcastsPublished.WithLabelValues(msg.Type).Inc()
}

// HubSink delivers envelopes straight to the local hub, bypassing the
// bus. Used when NATS is disabled (single-instance deployments).
type HubSink struct {
	hub *Hub
}

// NewHubSink creates a sink over the given hub.
func NewHubSink(hub *Hub) *HubSink {
	return &HubSink{hub: hub}
}

// Publish decodes the envelope and enqueues it on the hub.
func (s *HubSink) Publish(_ context.Context, _ string, envelope []byte, _ string) error {
	var msg Message
	if err := json.Unmarshal(envelope, &msg); err != nil {
		return err
	}
	s.hub.Broadcast(msg)
	return nil
}
