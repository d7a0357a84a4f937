// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/camsentry/camsentry/internal/models"
)

type sinkRecord struct {
	topic    string
	envelope []byte
	msgID    string
}

type memSink struct {
	records []sinkRecord
	fail    bool
}

func (s *memSink) Publish(_ context.Context, topic string, envelope []byte, msgID string) error {
	if s.fail {
		return errors.New("bus unavailable")
	}
	s.records = append(s.records, sinkRecord{topic: topic, envelope: envelope, msgID: msgID})
	return nil
}

func testAlert() *models.Alert {
	return &models.Alert{
		ID:             "alert-1",
		OrganizationID: "org-a",
		CameraID:       "cam-1",
		Category:       models.CategoryFire,
		Severity:       models.SeverityCritical,
		Description:    "Fire or smoke detected at lobby",
		Confidence:     0.92,
		SourceEventID:  "event-1",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestBroadcasterTopicsAndEnvelopes(t *testing.T) {
	sink := &memSink{}
	b := NewBroadcaster(sink)
	ctx := context.Background()

	b.DetectionCreated(ctx, &models.DetectionEvent{ID: "event-1", OrganizationID: "org-a"})
	b.AlertCreated(ctx, testAlert())
	b.CriticalAlert(ctx, testAlert())
	b.NotificationCreated(ctx, &models.Notification{ID: "notif-1", OrganizationID: "org-a"})
	b.IncidentCreated(ctx, &models.EmergencyIncident{ID: "incident-1", OrganizationID: "org-a"})

	wantTopics := []string{
		"orgs.org-a.detections",
		"orgs.org-a.alerts",
		"orgs.org-a.critical",
		"orgs.org-a.notifications",
		"orgs.org-a.incidents",
	}
	wantTypes := []string{
		MessageTypeDetection,
		MessageTypeAlert,
		MessageTypeCriticalAlert,
		MessageTypeNotification,
		MessageTypeIncident,
	}

	if len(sink.records) != len(wantTopics) {
		t.Fatalf("expected %d publishes, got %d", len(wantTopics), len(sink.records))
	}
	for i, rec := range sink.records {
		if rec.topic != wantTopics[i] {
			t.Errorf("publish %d: expected topic %q, got %q", i, wantTopics[i], rec.topic)
		}
		var msg Message
		if err := json.Unmarshal(rec.envelope, &msg); err != nil {
			t.Fatalf("publish %d: unmarshal envelope: %v", i, err)
		}
		if msg.Type != wantTypes[i] {
			t.Errorf("publish %d: expected type %q, got %q", i, wantTypes[i], msg.Type)
		}
		if msg.OrganizationID != "org-a" {
			t.Errorf("publish %d: expected organization org-a, got %q", i, msg.OrganizationID)
		}
	}
}

func TestBroadcasterCriticalGetsDistinctMessageID(t *testing.T) {
	sink := &memSink{}
	b := NewBroadcaster(sink)
	ctx := context.Background()

	alert := testAlert()
	b.AlertCreated(ctx, alert)
	b.CriticalAlert(ctx, alert)

	if len(sink.records) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(sink.records))
	}
	if sink.records[0].msgID == sink.records[1].msgID {
		t.Errorf("alert and critical publishes share message ID %q; server-side dedup would drop the critical copy", sink.records[0].msgID)
	}
}

func TestBroadcasterPublishFailureIsSwallowed(t *testing.T) {
	b := NewBroadcaster(&memSink{fail: true})

	// Must not panic or block the caller.
	b.AlertCreated(context.Background(), testAlert())
}

func TestHubSinkDeliversLocally(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub, "org-a")
	registerClient(hub, client)

	b := NewBroadcaster(NewHubSink(hub))
	b.AlertCreated(context.Background(), testAlert())

	msg := receiveMessage(t, client)
	if msg.Type != MessageTypeAlert {
		t.Errorf("expected type %q, got %q", MessageTypeAlert, msg.Type)
	}
	if msg.OrganizationID != "org-a" {
		t.Errorf("expected organization org-a, got %q", msg.OrganizationID)
	}
}
