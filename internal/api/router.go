// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camsentry/camsentry/internal/config"
)

// Router assembles the HTTP surface.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates a router over the given handler set.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", OrganizationHeader, UserHeader, "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	// Health and metrics carry no tenant scope.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Detection ingest: the hottest endpoint, budgeted per organization.
	r.Route("/api/v1/detections", func(r chi.Router) {
		r.Use(RequireOrganization())
		r.With(IngestRateLimit(router.cfg.IngestRateLimit)).Post("/", router.handler.IngestDetection)
	})

	// Tenant-scoped read and workflow endpoints.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireOrganization())

		r.Get("/events", router.handler.ListEvents)
		r.Get("/events/{id}", router.handler.GetEvent)
		r.Patch("/events/{id}/status", router.handler.ReviewEvent)

		r.Get("/alerts", router.handler.ListAlerts)
		r.Get("/alerts/{id}", router.handler.GetAlert)
		r.Post("/alerts/{id}/resolve", router.handler.ResolveAlert)

		r.Get("/incidents", router.handler.ListIncidents)
		r.Get("/incidents/{id}", router.handler.GetIncident)
		r.Get("/incidents/{id}/log", router.handler.GetIncidentLog)
		r.Post("/incidents/{id}/resolve", router.handler.ResolveIncident)

		r.Get("/notifications", router.handler.ListNotifications)
		r.Get("/notifications/unread-count", router.handler.UnreadCount)
		r.Post("/notifications/{id}/read", router.handler.MarkNotificationRead)

		r.Get("/detection-types", router.handler.ListTypeConfigs)
		r.Get("/detection-types/{category}", router.handler.GetTypeConfig)
		r.Put("/detection-types/{category}", router.handler.PutTypeConfig)

		r.Post("/cameras/{id}/heartbeat", router.handler.CameraHeartbeat)

		r.Get("/ws", router.handler.WebSocket)
	})

	return r
}
