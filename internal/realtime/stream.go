// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/camsentry/camsentry/internal/config"
)

// duplicateWindow is how long JetStream remembers message IDs. Publish
// retries of the same detection/alert inside this window collapse to a
// single stream entry.
const duplicateWindow = 2 * time.Minute

// StreamManager handles the broadcast stream lifecycle.
type StreamManager struct {
	js  jetstream.JetStream
	nc  *nats.Conn
	cfg config.NATSConfig
}

// NewStreamManager creates a stream manager over an established connection.
func NewStreamManager(nc *nats.Conn, cfg *config.NATSConfig) (*StreamManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &StreamManager{
		js:  js,
		nc:  nc,
		cfg: *cfg,
	}, nil
}

// EnsureStream creates or updates the broadcast stream. One stream
// captures all organizations; subjects follow the orgs.<org>.<entity>
// hierarchy so consumers can filter per tenant without extra streams.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:       m.cfg.StreamName,
		Subjects:   []string{TopicWildcard},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     m.cfg.RetentionAge,
		MaxBytes:   m.cfg.MaxStore,
		Duplicates: duplicateWindow,
		Storage:    jetstream.FileStorage,
		// AllowDirect enables direct get requests for late-joining dashboards
		AllowDirect: true,
		// Discard old messages when limits reached
		Discard: jetstream.DiscardOld,
	}

	// Try to get existing stream
	_, err := m.js.Stream(ctx, m.cfg.StreamName)
	if err == nil {
		stream, err := m.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream: %w", err)
		}
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	return stream, nil
}

// GetStreamInfo returns current stream state.
func (m *StreamManager) GetStreamInfo(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := m.js.Stream(ctx, m.cfg.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}
	return stream.Info(ctx)
}
