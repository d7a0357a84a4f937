// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/metrics"
	"github.com/camsentry/camsentry/internal/models"
)

// UserDirectory is the external collaborator resolving an organization's
// active users.
type UserDirectory interface {
	ListActiveUsers(ctx context.Context, orgID string) ([]models.UserProfile, error)
}

// NotificationStore persists in-app notification records.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Broadcaster republishes created notifications to dashboard sessions.
type Broadcaster interface {
	NotificationCreated(ctx context.Context, n *models.Notification)
}

// FanOutResult summarizes one fan-out: how many recipients were resolved,
// how many in-app records were durably created, and how push delivery
// went. Push failures never roll back in-app records.
type FanOutResult struct {
	Recipients    int `json:"recipients"`
	Created       int `json:"created"`
	CreateFailed  int `json:"create_failed"`
	PushAttempted int `json:"push_attempted"`
	PushFailed    int `json:"push_failed"`
}

// Engine dispatches notifications to every active user of an
// organization. Recipients are independent, so dispatch runs on a bounded
// worker pool with no cross-recipient ordering guarantee. Per recipient,
// the in-app record is created before the push attempt so a push failure
// never leaves a user with zero record of the event.
type Engine struct {
	users     UserDirectory
	store     NotificationStore
	gateway   Gateway
	broadcast Broadcaster
	workers   int
}

// NewEngine creates a fan-out engine. broadcast may be nil.
func NewEngine(users UserDirectory, store NotificationStore, gateway Gateway, broadcast Broadcaster, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	if gateway == nil {
		gateway = NoopGateway{}
	}
	return &Engine{
		users:     users,
		store:     store,
		gateway:   gateway,
		broadcast: broadcast,
		workers:   workers,
	}
}

// FanOutAlert notifies the alert's organization. Push delivery happens
// only for high and critical severity.
func (e *Engine) FanOutAlert(ctx context.Context, alert *models.Alert) FanOutResult {
	push := alert.Severity.AtLeast(models.SeverityHigh)
	return e.fanOut(ctx, alert.OrganizationID, push, func(userID string) *models.Notification {
		return &models.Notification{
			ID:             uuid.NewString(),
			UserID:         userID,
			OrganizationID: alert.OrganizationID,
			Type:           models.NotificationTypeAlert,
			Title:          alertTitle(alert),
			Body:           alert.Description,
			Severity:       alert.Severity,
			RefID:          alert.ID,
			CreatedAt:      time.Now().UTC(),
		}
	})
}

// FanOutIncident mass-notifies the incident's organization with an
// emergency message. Every recipient gets a push regardless of channel
// preferences; emergencies override quiet defaults.
func (e *Engine) FanOutIncident(ctx context.Context, incident *models.EmergencyIncident, title, body string) FanOutResult {
	return e.fanOut(ctx, incident.OrganizationID, true, func(userID string) *models.Notification {
		return &models.Notification{
			ID:             uuid.NewString(),
			UserID:         userID,
			OrganizationID: incident.OrganizationID,
			Type:           models.NotificationTypeEmergencyAlert,
			Title:          title,
			Body:           body,
			Severity:       models.SeverityCritical,
			RefID:          incident.ID,
			CreatedAt:      time.Now().UTC(),
		}
	})
}

func (e *Engine) fanOut(ctx context.Context, orgID string, push bool, build func(userID string) *models.Notification) FanOutResult {
	users, err := e.users.ListActiveUsers(ctx, orgID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("organization_id", orgID).
			Msg("Failed to resolve fan-out recipients")
		return FanOutResult{}
	}

	var (
		mu     sync.Mutex
		result = FanOutResult{Recipients: len(users)}
		wg     sync.WaitGroup
		sem    = make(chan struct{}, e.workers)
	)

	for _, user := range users {
		wg.Add(1)
		sem <- struct{}{}
		go func(user models.UserProfile) {
			defer wg.Done()
			defer func() { <-sem }()

			created, pushAttempted, pushFailed := e.dispatch(ctx, build(user.ID), push)

			mu.Lock()
			if created {
				result.Created++
			} else {
				result.CreateFailed++
			}
			if pushAttempted {
				result.PushAttempted++
			}
			if pushFailed {
				result.PushFailed++
			}
			mu.Unlock()
		}(user)
	}
	wg.Wait()

	logging.Ctx(ctx).Info().
		Str("organization_id", orgID).
		Int("recipients", result.Recipients).
		Int("created", result.Created).
		Int("push_attempted", result.PushAttempted).
		Int("push_failed", result.PushFailed).
		Msg("Notification fan-out complete")
	return result
}

// dispatch handles one recipient: durable in-app record first, push
// second. A failed in-app create skips the push so no user is ever
// pushed about an event they have no record of.
func (e *Engine) dispatch(ctx context.Context, n *models.Notification, push bool) (created, pushAttempted, pushFailed bool) {
	if err := e.store.CreateNotification(ctx, n); err != nil {
		logging.Ctx(ctx).Error().Err(err).
			Str("user_id", n.UserID).
			Msg("Failed to create in-app notification")
		return false, false, false
	}
	metrics.NotificationsCreated.Inc()
	if e.broadcast != nil {
		e.broadcast.NotificationCreated(ctx, n)
	}

	if !push {
		return true, false, false
	}
	if err := e.gateway.SendPush(ctx, n.UserID, n.Title, n.Body); err != nil {
		metrics.PushSends.WithLabelValues("failed").Inc()
		logging.Ctx(ctx).Warn().Err(err).
			Str("user_id", n.UserID).
			Str("ref_id", n.RefID).
			Msg("Push send failed, in-app record retained")
		return true, true, true
	}
	metrics.PushSends.WithLabelValues("ok").Inc()
	return true, true, false
}

func alertTitle(alert *models.Alert) string {
	switch alert.Severity {
	case models.SeverityCritical:
		return "Critical alert: " + string(alert.Category)
	case models.SeverityHigh:
		return "High severity alert: " + string(alert.Category)
	default:
		return "Alert: " + string(alert.Category)
	}
}
