// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/camsentry/camsentry/internal/models"
)

type fakeDirectory struct {
	users []models.UserProfile
	err   error
}

func (f *fakeDirectory) ListActiveUsers(context.Context, string) ([]models.UserProfile, error) {
	return f.users, f.err
}

type fakeNotificationStore struct {
	mu      sync.Mutex
	created []models.Notification
	failFor map[string]bool
}

func (f *fakeNotificationStore) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[n.UserID] {
		return errors.New("store unavailable")
	}
	f.created = append(f.created, *n)
	return nil
}

type fakeGateway struct {
	mu      sync.Mutex
	pushes  []string
	failFor map[string]bool
}

func (f *fakeGateway) SendPush(_ context.Context, userID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, userID)
	if f.failFor[userID] {
		return errors.New("device unreachable")
	}
	return nil
}

func (f *fakeGateway) SendEmail(context.Context, string, string, string) error { return nil }
func (f *fakeGateway) SendSMS(context.Context, string, string) error           { return nil }

func threeUsers() []models.UserProfile {
	return []models.UserProfile{
		{ID: "user-1", OrganizationID: "org-a", Active: true},
		{ID: "user-2", OrganizationID: "org-a", Active: true},
		{ID: "user-3", OrganizationID: "org-a", Active: true},
	}
}

func highAlert() *models.Alert {
	return &models.Alert{
		ID:             "alert-1",
		OrganizationID: "org-a",
		CameraID:       "cam-3",
		CameraName:     "Stockroom",
		Category:       models.CategoryTheft,
		Severity:       models.SeverityHigh,
		Description:    "Suspected theft at Stockroom (87% confidence)",
		Confidence:     0.87,
		SourceEventID:  "event-1",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestFanOutHighSeverityPushesAll(t *testing.T) {
	store := &fakeNotificationStore{}
	gateway := &fakeGateway{}
	engine := NewEngine(&fakeDirectory{users: threeUsers()}, store, gateway, nil, 4)

	result := engine.FanOutAlert(context.Background(), highAlert())

	if result.Recipients != 3 || result.Created != 3 {
		t.Errorf("result = %+v, want 3 recipients and 3 created", result)
	}
	if result.PushAttempted != 3 || result.PushFailed != 0 {
		t.Errorf("result = %+v, want 3 push attempts and 0 failures", result)
	}
	if len(store.created) != 3 {
		t.Errorf("store has %d notifications, want 3", len(store.created))
	}
	for _, n := range store.created {
		if n.Type != models.NotificationTypeAlert || n.RefID != "alert-1" {
			t.Errorf("notification = %+v, want type alert referencing alert-1", n)
		}
		if n.ReadAt != nil {
			t.Error("pipeline must never set ReadAt")
		}
	}
}

func TestFanOutPushFailureKeepsRecords(t *testing.T) {
	store := &fakeNotificationStore{}
	gateway := &fakeGateway{failFor: map[string]bool{"user-2": true}}
	engine := NewEngine(&fakeDirectory{users: threeUsers()}, store, gateway, nil, 4)

	result := engine.FanOutAlert(context.Background(), highAlert())

	if result.Created != 3 {
		t.Errorf("Created = %d, want 3 despite push failure", result.Created)
	}
	if result.PushAttempted != 3 || result.PushFailed != 1 {
		t.Errorf("result = %+v, want 3 attempts with 1 failure", result)
	}
	if len(store.created) != 3 {
		t.Errorf("store has %d notifications, want all 3 retained", len(store.created))
	}
}

func TestFanOutLowSeveritySkipsPush(t *testing.T) {
	store := &fakeNotificationStore{}
	gateway := &fakeGateway{}
	engine := NewEngine(&fakeDirectory{users: threeUsers()}, store, gateway, nil, 4)

	alert := highAlert()
	alert.Severity = models.SeverityLow
	result := engine.FanOutAlert(context.Background(), alert)

	if result.Created != 3 {
		t.Errorf("Created = %d, want 3", result.Created)
	}
	if result.PushAttempted != 0 || len(gateway.pushes) != 0 {
		t.Errorf("low severity triggered %d pushes, want 0", len(gateway.pushes))
	}
}

func TestFanOutCreateFailureSkipsPush(t *testing.T) {
	store := &fakeNotificationStore{failFor: map[string]bool{"user-1": true}}
	gateway := &fakeGateway{}
	engine := NewEngine(&fakeDirectory{users: threeUsers()}, store, gateway, nil, 4)

	result := engine.FanOutAlert(context.Background(), highAlert())

	if result.Created != 2 || result.CreateFailed != 1 {
		t.Errorf("result = %+v, want 2 created and 1 create failure", result)
	}
	// user-1 has no in-app record, so no push may be attempted for them.
	for _, pushed := range gateway.pushes {
		if pushed == "user-1" {
			t.Error("push attempted for recipient without an in-app record")
		}
	}
	if result.PushAttempted != 2 {
		t.Errorf("PushAttempted = %d, want 2", result.PushAttempted)
	}
}

func TestFanOutDirectoryFailure(t *testing.T) {
	engine := NewEngine(&fakeDirectory{err: errors.New("directory down")}, &fakeNotificationStore{}, &fakeGateway{}, nil, 4)

	result := engine.FanOutAlert(context.Background(), highAlert())
	if result != (FanOutResult{}) {
		t.Errorf("result = %+v, want zero result on directory failure", result)
	}
}

func TestFanOutIncidentPushesRegardlessOfSeverity(t *testing.T) {
	store := &fakeNotificationStore{}
	gateway := &fakeGateway{}
	engine := NewEngine(&fakeDirectory{users: threeUsers()}, store, gateway, nil, 4)

	incident := &models.EmergencyIncident{
		ID:             "incident-1",
		OrganizationID: "org-a",
		EmergencyType:  models.EmergencyTypeFire,
	}
	result := engine.FanOutIncident(context.Background(), incident, "EVACUATE", "Fire detected in Warehouse Bay 3")

	if result.Created != 3 || result.PushAttempted != 3 {
		t.Errorf("result = %+v, want 3 created and 3 pushed", result)
	}
	for _, n := range store.created {
		if n.Type != models.NotificationTypeEmergencyAlert || n.Severity != models.SeverityCritical {
			t.Errorf("notification = %+v, want critical emergency_alert", n)
		}
	}
}
