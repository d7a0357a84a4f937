// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package realtime

import (
	"context"
	"sort"
	"sync"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to dashboard sessions.
const (
	MessageTypeDetection     = "detection_created"
	MessageTypeAlert         = "alert_created"
	MessageTypeCriticalAlert = "critical_alert"
	MessageTypeNotification  = "notification_created"
	MessageTypeIncident      = "incident_created"
	MessageTypeCameraStatus  = "camera_status"
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
)

// Message is one realtime envelope. OrganizationID scopes delivery: a
// message is only forwarded to sessions of that organization. An empty
// OrganizationID addresses every connected session (ping/pong control
// traffic only; entity messages always carry a tenant).
type Message struct {
	Type           string      `json:"type"`
	OrganizationID string      `json:"organization_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
}

// Hub maintains the set of active dashboard sessions and fans broadcast
// messages out to the sessions of the matching organization.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Call RunWithContext to start delivery.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// RunWithContext runs the hub event loop until ctx is canceled. It is
// shaped for supervision: the returned error is always ctx.Err().
//
// DETERMINISM: Priority-based selection prevents non-deterministic
// ordering when multiple channels are ready simultaneously:
//   - Priority 1: Context cancellation (shutdown)
//   - Priority 2: Client lifecycle events (Register/Unregister)
//   - Priority 3: Broadcast messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (highest priority, non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
		}

		// Priority 3: Handle broadcast messages or wait for any event (blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logging.Info().
		Str("organization_id", client.organizationID).
		Int("total_clients", count).
		Msg("websocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logging.Info().
		Str("organization_id", client.organizationID).
		Int("total_clients", count).
		Msg("websocket client disconnected")
}

// Broadcast enqueues a message for delivery. Never blocks: if the hub's
// buffer is full the message is dropped and counted, the pipeline must
// not stall on slow dashboards.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		metrics.BroadcastsDropped.Inc()
		logging.Warn().
			Str("message_type", msg.Type).
			Str("organization_id", msg.OrganizationID).
			Msg("broadcast channel full, dropping message")
	}
}

// broadcastToClients delivers a message to every session of the message's
// organization, in a deterministic order.
//
// DETERMINISM: Sorts clients by their monotonic ID so delivery order is
// reproducible across runs, which keeps tests and race investigations sane.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	// Track clients to remove (can't modify map during iteration)
	var toRemove []*Client

	for _, client := range clients {
		if message.OrganizationID != "" && client.organizationID != message.OrganizationID {
			continue
		}
		select {
		case client.send <- message:
		default:
			// Send buffer full or closed, mark for removal
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketClients.Set(float64(len(h.clients)))
	}
}

// GetClientCount returns the number of connected sessions.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}

	// ctx.Err() is not logged as an error: cancellation is the normal
	// shutdown path and must not alarm operators watching error logs.
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// closeAllClients closes every session in ID order during shutdown.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketClients.Set(0)
}
