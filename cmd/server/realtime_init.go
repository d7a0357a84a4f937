// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package main

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/realtime"
)

// realtimeComponents bundles everything the realtime layer owns so main
// can wire services into the supervisor tree and tear the layer down in
// one place. When NATS is disabled only Broadcaster is set and events
// short-circuit to the local hub.
type realtimeComponents struct {
	Embedded    *realtime.EmbeddedServer
	Conn        *nats.Conn
	Publisher   *realtime.Publisher
	Subscriber  *realtime.Subscriber
	Bridge      *realtime.Bridge
	Broadcaster *realtime.Broadcaster
}

// initRealtime builds the broadcast path. With NATS enabled the path is
// broadcaster -> JetStream -> bridge -> hub, which survives process
// restarts of either end. Without NATS the broadcaster feeds the hub
// directly.
func initRealtime(ctx context.Context, cfg *config.Config, hub *realtime.Hub) (*realtimeComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled, realtime events go directly to the websocket hub")
		return &realtimeComponents{
			Broadcaster: realtime.NewBroadcaster(realtime.NewHubSink(hub)),
		}, nil
	}

	// Copy so the embedded server can rewrite the client URL without
	// touching the loaded configuration.
	natsCfg := cfg.NATS

	components := &realtimeComponents{}

	if natsCfg.EmbeddedServer {
		embedded, err := realtime.NewEmbeddedServer(&natsCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.Embedded = embedded
		natsCfg.URL = embedded.ClientURL()
		logging.Info().Str("url", natsCfg.URL).Msg("Embedded NATS server started")
	}

	nc, err := nats.Connect(natsCfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(natsCfg.MaxReconnects),
		nats.ReconnectWait(natsCfg.ReconnectWait),
	)
	if err != nil {
		components.Close(ctx)
		return nil, fmt.Errorf("connect to NATS at %s: %w", natsCfg.URL, err)
	}
	components.Conn = nc

	streams, err := realtime.NewStreamManager(nc, &natsCfg)
	if err != nil {
		components.Close(ctx)
		return nil, fmt.Errorf("create stream manager: %w", err)
	}
	if _, err := streams.EnsureStream(ctx); err != nil {
		components.Close(ctx)
		return nil, fmt.Errorf("ensure broadcast stream %s: %w", natsCfg.StreamName, err)
	}
	logging.Info().Str("stream", natsCfg.StreamName).Msg("JetStream broadcast stream ready")

	publisher, err := realtime.NewPublisher(&natsCfg, nil)
	if err != nil {
		components.Close(ctx)
		return nil, fmt.Errorf("create realtime publisher: %w", err)
	}
	components.Publisher = publisher

	subscriber, err := realtime.NewSubscriber(&natsCfg, nil)
	if err != nil {
		components.Close(ctx)
		return nil, fmt.Errorf("create realtime subscriber: %w", err)
	}
	components.Subscriber = subscriber

	components.Bridge = realtime.NewBridge(hub, subscriber, &natsCfg)
	components.Broadcaster = realtime.NewBroadcaster(publisher)

	return components, nil
}

// Close tears the realtime layer down in reverse dependency order.
func (c *realtimeComponents) Close(ctx context.Context) {
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing realtime publisher")
		}
	}
	if c.Subscriber != nil {
		if err := c.Subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing realtime subscriber")
		}
	}
	if c.Conn != nil {
		c.Conn.Close()
	}
	if c.Embedded != nil {
		if err := c.Embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}
