// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package realtime

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/camsentry/camsentry/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub starts a hub and stops it when the test ends.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(10 * time.Millisecond)
	return hub
}

// createTestClient creates a client without a real connection.
func createTestClient(hub *Hub, organizationID string) *Client {
	return &Client{
		id:             clientIDCounter.Add(1),
		organizationID: organizationID,
		hub:            hub,
		send:           make(chan Message, 256),
	}
}

func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func receiveMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message delivered: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubOrganizationScopedDelivery(t *testing.T) {
	hub := setupHub(t)

	orgA := createTestClient(hub, "org-a")
	orgB := createTestClient(hub, "org-b")
	registerClient(hub, orgA)
	registerClient(hub, orgB)

	hub.Broadcast(Message{
		Type:           MessageTypeAlert,
		OrganizationID: "org-a",
		Data:           map[string]string{"id": "alert-1"},
	})

	msg := receiveMessage(t, orgA)
	if msg.Type != MessageTypeAlert {
		t.Errorf("expected type %q, got %q", MessageTypeAlert, msg.Type)
	}
	if msg.OrganizationID != "org-a" {
		t.Errorf("expected organization org-a, got %q", msg.OrganizationID)
	}
	assertNoMessage(t, orgB)
}

func TestHubBroadcastWithoutOrganizationReachesAll(t *testing.T) {
	hub := setupHub(t)

	orgA := createTestClient(hub, "org-a")
	orgB := createTestClient(hub, "org-b")
	registerClient(hub, orgA)
	registerClient(hub, orgB)

	hub.Broadcast(Message{Type: MessageTypePong})

	if msg := receiveMessage(t, orgA); msg.Type != MessageTypePong {
		t.Errorf("org-a: expected pong, got %q", msg.Type)
	}
	if msg := receiveMessage(t, orgB); msg.Type != MessageTypePong {
		t.Errorf("org-b: expected pong, got %q", msg.Type)
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := setupHub(t)

	client := createTestClient(hub, "org-a")
	registerClient(hub, client)

	if got := hub.GetClientCount(); got != 1 {
		t.Fatalf("expected 1 client after register, got %d", got)
	}

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if got := hub.GetClientCount(); got != 0 {
		t.Fatalf("expected 0 clients after unregister, got %d", got)
	}
	// The hub closes the send channel on unregister.
	if _, ok := <-client.send; ok {
		t.Error("expected send channel to be closed")
	}
}

func TestHubRunWithContextCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- hub.RunWithContext(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop after cancellation")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	client := createTestClient(hub, "org-a")
	registerClient(hub, client)

	cancel()
	<-done

	if _, ok := <-client.send; ok {
		t.Error("expected send channel to be closed at shutdown")
	}
	if got := hub.GetClientCount(); got != 0 {
		t.Errorf("expected 0 clients after shutdown, got %d", got)
	}
}

func TestHubBroadcastNeverBlocks(t *testing.T) {
	// Hub not running: the buffer fills and further broadcasts drop.
	hub := NewHub()

	for i := 0; i < 300; i++ {
		hub.Broadcast(Message{Type: MessageTypeDetection, OrganizationID: "org-a"})
	}

	if got := len(hub.broadcast); got != cap(hub.broadcast) {
		t.Errorf("expected buffer full at %d, got %d", cap(hub.broadcast), got)
	}
}

func TestHubSlowClientIsEvicted(t *testing.T) {
	hub := setupHub(t)

	slow := createTestClient(hub, "org-a")
	// Saturate the client buffer so the next delivery fails.
	slow.send = make(chan Message)
	registerClient(hub, slow)

	hub.Broadcast(Message{Type: MessageTypeAlert, OrganizationID: "org-a"})
	time.Sleep(50 * time.Millisecond)

	if got := hub.GetClientCount(); got != 0 {
		t.Errorf("expected slow client to be evicted, got %d clients", got)
	}
}
