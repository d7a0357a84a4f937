// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"github.com/camsentry/camsentry/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	s := New(db)
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to initialize schema: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return s
}

func testEvent(orgID string) *models.DetectionEvent {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.DetectionEvent{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		CameraID:       "cam-entrance-1",
		CameraName:     "Front Entrance",
		Category:       models.CategoryPerson,
		Confidence:     0.91,
		Severity:       models.SeverityLow,
		Description:    "Person detected at Front Entrance",
		BoundingAreas:  []models.Rect{{X: 120, Y: 40, Width: 64, Height: 128}},
		ImageRef:       "frames/abc123.jpg",
		Status:         models.EventStatusPending,
		Metadata:       map[string]string{"model": "yolo-v8"},
		DetectedAt:     now,
		CreatedAt:      now,
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	event := testEvent("org-a")
	if err := s.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	got, err := s.GetEvent(ctx, "org-a", event.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.Category != models.CategoryPerson {
		t.Errorf("Category = %q, want %q", got.Category, models.CategoryPerson)
	}
	if got.Status != models.EventStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if len(got.BoundingAreas) != 1 || got.BoundingAreas[0].Width != 64 {
		t.Errorf("BoundingAreas = %+v, want one 64-wide rect", got.BoundingAreas)
	}
	if got.Metadata["model"] != "yolo-v8" {
		t.Errorf("Metadata = %+v, want model=yolo-v8", got.Metadata)
	}

	// Tenant isolation: another org cannot see the event.
	if _, err := s.GetEvent(ctx, "org-b", event.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEvent from wrong org = %v, want ErrNotFound", err)
	}
}

func TestListEventsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	person := testEvent("org-a")
	if err := s.CreateEvent(ctx, person); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	fire := testEvent("org-a")
	fire.ID = uuid.NewString()
	fire.Category = models.CategoryFire
	fire.Severity = models.SeverityCritical
	if err := s.CreateEvent(ctx, fire); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}
	other := testEvent("org-b")
	other.ID = uuid.NewString()
	if err := s.CreateEvent(ctx, other); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	all, err := s.ListEvents(ctx, models.EventFilter{OrganizationID: "org-a"})
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListEvents returned %d events, want 2", len(all))
	}

	fires, err := s.ListEvents(ctx, models.EventFilter{
		OrganizationID: "org-a",
		Categories:     []models.Category{models.CategoryFire},
	})
	if err != nil {
		t.Fatalf("ListEvents with category filter failed: %v", err)
	}
	if len(fires) != 1 || fires[0].ID != fire.ID {
		t.Errorf("category filter returned %d events, want the fire event", len(fires))
	}

	limited, err := s.ListEvents(ctx, models.EventFilter{OrganizationID: "org-a", Limit: 1})
	if err != nil {
		t.Fatalf("ListEvents with limit failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit=1 returned %d events", len(limited))
	}
}

func TestUpdateEventStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	event := testEvent("org-a")
	if err := s.CreateEvent(ctx, event); err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if err := s.UpdateEventStatus(ctx, "org-a", event.ID, models.EventStatusConfirmed); err != nil {
		t.Fatalf("UpdateEventStatus failed: %v", err)
	}
	got, err := s.GetEvent(ctx, "org-a", event.ID)
	if err != nil {
		t.Fatalf("GetEvent failed: %v", err)
	}
	if got.Status != models.EventStatusConfirmed {
		t.Errorf("Status = %q, want confirmed", got.Status)
	}

	if err := s.UpdateEventStatus(ctx, "org-a", event.ID, "bogus"); err == nil {
		t.Error("UpdateEventStatus accepted invalid status")
	}
	if err := s.UpdateEventStatus(ctx, "org-a", uuid.NewString(), models.EventStatusIgnored); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateEventStatus on missing event = %v, want ErrNotFound", err)
	}
}

func testAlert(orgID, sourceEventID string) *models.Alert {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Alert{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		CameraID:       "cam-entrance-1",
		CameraName:     "Front Entrance",
		Category:       models.CategoryTheft,
		Severity:       models.SeverityHigh,
		Description:    "Suspected theft at Front Entrance",
		Confidence:     0.87,
		SourceEventID:  sourceEventID,
		CreatedAt:      now,
	}
}

func TestResolveAlertFirstWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alert := testAlert("org-a", uuid.NewString())
	if err := s.CreateAlert(ctx, alert); err != nil {
		t.Fatalf("CreateAlert failed: %v", err)
	}

	first := time.Now().UTC().Truncate(time.Microsecond)
	if err := s.ResolveAlert(ctx, "org-a", alert.ID, "operator-1", first); err != nil {
		t.Fatalf("first ResolveAlert failed: %v", err)
	}

	err := s.ResolveAlert(ctx, "org-a", alert.ID, "operator-2", first.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second ResolveAlert = %v, want ErrAlreadyResolved", err)
	}

	got, err := s.GetAlert(ctx, "org-a", alert.ID)
	if err != nil {
		t.Fatalf("GetAlert failed: %v", err)
	}
	if !got.IsResolved {
		t.Error("alert not marked resolved")
	}
	if got.ResolvedBy != "operator-1" {
		t.Errorf("ResolvedBy = %q, want operator-1 (first resolution wins)", got.ResolvedBy)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(first) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, first)
	}

	if err := s.ResolveAlert(ctx, "org-a", uuid.NewString(), "operator-1", first); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResolveAlert on missing alert = %v, want ErrNotFound", err)
	}
}

func TestListAlertsResolvedFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	open := testAlert("org-a", uuid.NewString())
	if err := s.CreateAlert(ctx, open); err != nil {
		t.Fatalf("CreateAlert failed: %v", err)
	}
	closed := testAlert("org-a", uuid.NewString())
	closed.ID = uuid.NewString()
	if err := s.CreateAlert(ctx, closed); err != nil {
		t.Fatalf("CreateAlert failed: %v", err)
	}
	if err := s.ResolveAlert(ctx, "org-a", closed.ID, "operator-1", time.Now().UTC()); err != nil {
		t.Fatalf("ResolveAlert failed: %v", err)
	}

	unresolved := false
	got, err := s.ListAlerts(ctx, models.AlertFilter{OrganizationID: "org-a", Resolved: &unresolved})
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != open.ID {
		t.Errorf("unresolved filter returned %d alerts, want only the open one", len(got))
	}
}

func TestNotificationMarkRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	n := &models.Notification{
		ID:             uuid.NewString(),
		UserID:         "user-1",
		OrganizationID: "org-a",
		Type:           models.NotificationTypeAlert,
		Title:          "High severity alert",
		Body:           "Suspected theft at Front Entrance",
		Severity:       models.SeverityHigh,
		RefID:          uuid.NewString(),
		CreatedAt:      now,
	}
	if err := s.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}

	count, err := s.CountUnread(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountUnread failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountUnread = %d, want 1", count)
	}

	first := now.Add(time.Minute)
	if err := s.MarkNotificationRead(ctx, "user-1", n.ID, first); err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	// Second mark is an idempotent no-op preserving the original read time.
	if err := s.MarkNotificationRead(ctx, "user-1", n.ID, first.Add(time.Hour)); err != nil {
		t.Fatalf("repeated MarkNotificationRead failed: %v", err)
	}

	list, err := s.ListNotifications(ctx, models.NotificationFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListNotifications returned %d, want 1", len(list))
	}
	if list[0].ReadAt == nil || !list[0].ReadAt.Equal(first) {
		t.Errorf("ReadAt = %v, want %v", list[0].ReadAt, first)
	}

	unread, err := s.ListNotifications(ctx, models.NotificationFilter{UserID: "user-1", Unread: true})
	if err != nil {
		t.Fatalf("ListNotifications unread failed: %v", err)
	}
	if len(unread) != 0 {
		t.Errorf("unread filter returned %d, want 0", len(unread))
	}

	if err := s.MarkNotificationRead(ctx, "user-2", n.ID, first); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkNotificationRead for wrong user = %v, want ErrNotFound", err)
	}
}

func testIncident(orgID, sourceEventID string) *models.EmergencyIncident {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.EmergencyIncident{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		SourceEventID:  sourceEventID,
		EmergencyType:  models.EmergencyTypeFire,
		ResponseLevel:  models.ResponseLevelImmediate,
		CameraID:       "cam-warehouse-3",
		CameraName:     "Warehouse Bay 3",
		Location:       "Building C",
		Status:         models.IncidentStatusActive,
		DetectedAt:     now,
		CreatedAt:      now,
	}
}

func TestCreateIncidentIfAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sourceEventID := uuid.NewString()
	incident := testIncident("org-a", sourceEventID)

	got, created, err := s.CreateIncidentIfAbsent(ctx, incident)
	if err != nil {
		t.Fatalf("CreateIncidentIfAbsent failed: %v", err)
	}
	if !created || got.ID != incident.ID {
		t.Fatalf("first call: created=%v id=%s, want created=true id=%s", created, got.ID, incident.ID)
	}

	// Retried handling of the same source event returns the original.
	retry := testIncident("org-a", sourceEventID)
	got2, created2, err := s.CreateIncidentIfAbsent(ctx, retry)
	if err != nil {
		t.Fatalf("retried CreateIncidentIfAbsent failed: %v", err)
	}
	if created2 {
		t.Error("retry reported created=true, want false")
	}
	if got2.ID != incident.ID {
		t.Errorf("retry returned incident %s, want original %s", got2.ID, incident.ID)
	}

	list, err := s.ListIncidents(ctx, models.IncidentFilter{OrganizationID: "org-a"})
	if err != nil {
		t.Fatalf("ListIncidents failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListIncidents returned %d incidents, want 1", len(list))
	}
}

func TestIncidentEvidenceAndResolve(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	incident := testIncident("org-a", uuid.NewString())
	if _, _, err := s.CreateIncidentIfAbsent(ctx, incident); err != nil {
		t.Fatalf("CreateIncidentIfAbsent failed: %v", err)
	}

	captured := time.Now().UTC().Truncate(time.Microsecond)
	refs := []models.EvidenceRef{
		{Kind: "primary_image", ImageRef: "frames/fire-1.jpg", CapturedAt: captured},
		{Kind: "context_snapshot", ImageRef: "frames/fire-ctx.jpg", CapturedAt: captured},
	}
	if err := s.AppendIncidentEvidence(ctx, "org-a", incident.ID, refs); err != nil {
		t.Fatalf("AppendIncidentEvidence failed: %v", err)
	}

	got, err := s.GetIncident(ctx, "org-a", incident.ID)
	if err != nil {
		t.Fatalf("GetIncident failed: %v", err)
	}
	if len(got.Evidence) != 2 {
		t.Errorf("Evidence has %d refs, want 2", len(got.Evidence))
	}

	first := time.Now().UTC().Truncate(time.Microsecond)
	if err := s.ResolveIncident(ctx, "org-a", incident.ID, "operator-1", first); err != nil {
		t.Fatalf("ResolveIncident failed: %v", err)
	}
	if err := s.ResolveIncident(ctx, "org-a", incident.ID, "operator-2", first); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second ResolveIncident = %v, want ErrAlreadyResolved", err)
	}

	resolved, err := s.GetIncident(ctx, "org-a", incident.ID)
	if err != nil {
		t.Fatalf("GetIncident failed: %v", err)
	}
	if resolved.Status != models.IncidentStatusResolved || resolved.ResolvedBy != "operator-1" {
		t.Errorf("incident = %s by %q, want resolved by operator-1", resolved.Status, resolved.ResolvedBy)
	}
}

func TestResponseLogOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	incident := testIncident("org-a", uuid.NewString())
	if _, _, err := s.CreateIncidentIfAbsent(ctx, incident); err != nil {
		t.Fatalf("CreateIncidentIfAbsent failed: %v", err)
	}

	actions := []struct {
		actionType string
		status     models.ActionStatus
	}{
		{"notify_emergency_services", models.ActionStatusCompleted},
		{"trigger_building_alarm", models.ActionStatusFailed},
		{"start_recording", models.ActionStatusCompleted},
		{"notify_org_users", models.ActionStatusCompleted},
	}
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, a := range actions {
		entry := &models.EmergencyResponseLog{
			ID:         uuid.NewString(),
			IncidentID: incident.ID,
			Sequence:   i + 1,
			ActionType: a.actionType,
			Status:     a.status,
			Payload:    map[string]string{"attempt": "1"},
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		if err := s.AppendResponseLog(ctx, entry); err != nil {
			t.Fatalf("AppendResponseLog(%s) failed: %v", a.actionType, err)
		}
	}

	logs, err := s.ListResponseLogs(ctx, incident.ID)
	if err != nil {
		t.Fatalf("ListResponseLogs failed: %v", err)
	}
	if len(logs) != len(actions) {
		t.Fatalf("got %d log entries, want %d", len(logs), len(actions))
	}
	for i, entry := range logs {
		if entry.Sequence != i+1 {
			t.Errorf("entry %d has sequence %d", i, entry.Sequence)
		}
		if entry.ActionType != actions[i].actionType {
			t.Errorf("entry %d action = %q, want %q", i, entry.ActionType, actions[i].actionType)
		}
		if entry.Status != actions[i].status {
			t.Errorf("entry %d status = %q, want %q", i, entry.Status, actions[i].status)
		}
	}
}

func TestTypeConfigUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetTypeConfig(ctx, "org-a", models.CategoryMotion); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTypeConfig without override = %v, want ErrNotFound", err)
	}

	cfg := &models.DetectionTypeConfig{
		OrganizationID:      "org-a",
		Category:            models.CategoryMotion,
		DisplayName:         "Motion",
		Enabled:             false,
		ConfidenceThreshold: 0.75,
		Severity:            models.SeverityLow,
		NotifyEnabled:       false,
		UpdatedAt:           time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.UpsertTypeConfig(ctx, cfg); err != nil {
		t.Fatalf("UpsertTypeConfig failed: %v", err)
	}

	got, err := s.GetTypeConfig(ctx, "org-a", models.CategoryMotion)
	if err != nil {
		t.Fatalf("GetTypeConfig failed: %v", err)
	}
	if got.Enabled || got.ConfidenceThreshold != 0.75 {
		t.Errorf("got enabled=%v threshold=%v, want disabled 0.75", got.Enabled, got.ConfidenceThreshold)
	}

	cfg.Enabled = true
	cfg.ConfidenceThreshold = 0.8
	if err := s.UpsertTypeConfig(ctx, cfg); err != nil {
		t.Fatalf("second UpsertTypeConfig failed: %v", err)
	}
	configs, err := s.ListTypeConfigs(ctx, "org-a")
	if err != nil {
		t.Fatalf("ListTypeConfigs failed: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("ListTypeConfigs returned %d rows, want 1 after upsert", len(configs))
	}
	if !configs[0].Enabled || configs[0].ConfidenceThreshold != 0.8 {
		t.Errorf("upsert did not replace: %+v", configs[0])
	}
}

func TestListActiveUsersScopedAndOrdered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []models.UserProfile{
		{ID: "user-b", OrganizationID: "org-a", DisplayName: "Second", Active: true},
		{ID: "user-a", OrganizationID: "org-a", DisplayName: "First", Active: true},
		{ID: "user-c", OrganizationID: "org-a", DisplayName: "Gone", Active: false},
		{ID: "user-d", OrganizationID: "org-b", DisplayName: "Other org", Active: true},
	}
	for i := range seed {
		if err := s.UpsertUser(ctx, &seed[i]); err != nil {
			t.Fatalf("UpsertUser(%s) failed: %v", seed[i].ID, err)
		}
	}

	users, err := s.ListActiveUsers(ctx, "org-a")
	if err != nil {
		t.Fatalf("ListActiveUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2 (inactive and cross-org excluded)", len(users))
	}
	if users[0].ID != "user-a" || users[1].ID != "user-b" {
		t.Errorf("unexpected order: %s, %s", users[0].ID, users[1].ID)
	}

	// Deactivation removes the user from fan-out without deleting the row.
	seed[1].Active = false
	if err := s.UpsertUser(ctx, &seed[1]); err != nil {
		t.Fatalf("deactivating UpsertUser failed: %v", err)
	}
	users, err = s.ListActiveUsers(ctx, "org-a")
	if err != nil {
		t.Fatalf("ListActiveUsers after deactivate failed: %v", err)
	}
	if len(users) != 1 || users[0].ID != "user-b" {
		t.Errorf("expected only user-b after deactivation, got %+v", users)
	}
}
