// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/logging"
)

// Bridge forwards bus envelopes to the websocket hub. It subscribes to
// the full orgs.> space; the hub does the per-organization routing.
//
// Subscription failures retry with exponential backoff up to a bounded
// attempt count, then the bridge gives up and returns the error so the
// supervisor can decide whether to restart it.
type Bridge struct {
	hub    *Hub
	source MessageSource

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewBridge wires a message source to the hub using cfg's reconnect policy.
func NewBridge(hub *Hub, source MessageSource, cfg *config.NATSConfig) *Bridge {
	maxAttempts := cfg.BridgeMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	initial := cfg.BridgeInitialBackoff
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxB := cfg.BridgeMaxBackoff
	if maxB < initial {
		maxB = initial
	}
	return &Bridge{
		hub:            hub,
		source:         source,
		maxAttempts:    maxAttempts,
		initialBackoff: initial,
		maxBackoff:     maxB,
	}
}

// Serve runs the bridge until ctx is canceled or the retry budget is
// exhausted. Shaped for supervision: cancellation returns ctx.Err().
func (b *Bridge) Serve(ctx context.Context) error {
	backoff := b.initialBackoff
	attempts := 0

	for {
		messages, err := b.source.Subscribe(ctx, TopicWildcard)
		if err != nil {
			attempts++
			if attempts >= b.maxAttempts {
				return fmt.Errorf("subscribe after %d attempts: %w", attempts, err)
			}
			logging.Warn().Err(err).
				Int("attempt", attempts).
				Dur("backoff", backoff).
				Msg("bridge subscribe failed, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > b.maxBackoff {
				backoff = b.maxBackoff
			}
			continue
		}

		// Healthy subscription resets the retry budget.
		attempts = 0
		backoff = b.initialBackoff

		if err := b.forward(ctx, messages); err != nil {
			return err
		}
		logging.Warn().Msg("bridge message channel closed, resubscribing")
	}
}

// forward drains the subscription into the hub. Returns nil when the
// channel closes (resubscribe) and ctx.Err() on cancellation.
func (b *Bridge) forward(ctx context.Context, messages <-chan *message.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var envelope Message
			if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
				logging.Warn().Err(err).
					Str("message_uuid", msg.UUID).
					Msg("dropping malformed broadcast envelope")
				msg.Ack()
				continue
			}

			b.hub.Broadcast(envelope)
			msg.Ack()
		}
	}
}
