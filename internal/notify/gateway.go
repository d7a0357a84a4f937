// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package notify fans alerts and emergency messages out to organization
// users: a durable in-app notification per recipient, plus push delivery
// through the external messaging gateway for high and critical severity.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/logging"
)

// Gateway is the external messaging collaborator. Delivery retry policy
// belongs to the gateway, not to callers.
type Gateway interface {
	SendPush(ctx context.Context, userID, title, body string) error
	SendEmail(ctx context.Context, address, subject, body string) error
	SendSMS(ctx context.Context, number, body string) error
}

// HTTPGateway talks to the messaging gateway over HTTP. All sends share
// one circuit breaker so a dead gateway fails fast instead of tying up
// fan-out workers, and pushes are rate limited to the configured rate.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
}

// NewHTTPGateway builds a gateway client from configuration.
func NewHTTPGateway(cfg config.NotifyConfig) *HTTPGateway {
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "messaging-gateway",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Messaging gateway circuit breaker state changed")
		},
	})
	return &HTTPGateway{
		baseURL: cfg.GatewayURL,
		client:  &http.Client{Timeout: cfg.GatewayTimeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(cfg.PushPerSecond), int(cfg.PushPerSecond)+1),
	}
}

// SendPush delivers one push notification to one user.
func (g *HTTPGateway) SendPush(ctx context.Context, userID, title, body string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push rate limiter: %w", err)
	}
	return g.post(ctx, "/v1/push", map[string]string{
		"user_id": userID,
		"title":   title,
		"body":    body,
	})
}

// SendEmail delivers one email through the gateway.
func (g *HTTPGateway) SendEmail(ctx context.Context, address, subject, body string) error {
	return g.post(ctx, "/v1/email", map[string]string{
		"address": address,
		"subject": subject,
		"body":    body,
	})
}

// SendSMS delivers one SMS through the gateway.
func (g *HTTPGateway) SendSMS(ctx context.Context, number, body string) error {
	return g.post(ctx, "/v1/sms", map[string]string{
		"number": number,
		"body":   body,
	})
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload map[string]string) error {
	_, err := g.breaker.Execute(func() (struct{}, error) {
		buf, err := json.Marshal(payload)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to marshal gateway payload: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(buf))
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to build gateway request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("gateway request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}

// NoopGateway logs sends without delivering anything. Used when no
// messaging gateway is configured.
type NoopGateway struct{}

func (NoopGateway) SendPush(ctx context.Context, userID, title, _ string) error {
	logging.Ctx(ctx).Debug().Str("user_id", userID).Str("title", title).Msg("Push send skipped, no gateway configured")
	return nil
}

func (NoopGateway) SendEmail(ctx context.Context, address, subject, _ string) error {
	logging.Ctx(ctx).Debug().Str("address", address).Str("subject", subject).Msg("Email send skipped, no gateway configured")
	return nil
}

func (NoopGateway) SendSMS(ctx context.Context, number, _ string) error {
	logging.Ctx(ctx).Debug().Str("number", number).Msg("SMS send skipped, no gateway configured")
	return nil
}
