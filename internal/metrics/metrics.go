// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package metrics provides Prometheus instrumentation for the detection
// pipeline: intake outcomes, fan-out results, orchestrator action status,
// store latency, and websocket sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline Metrics
	// Received counts before validation, when the category string is not
	// yet trusted, so it carries no category label.
	DetectionsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camsentry_detections_received_total",
			Help: "Total raw detections submitted to the pipeline",
		},
	)

	DetectionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_detections_rejected_total",
			Help: "Total detections rejected by the intake gate or dedup window",
		},
		[]string{"category", "reason"},
	)

	DetectionsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_detections_accepted_total",
			Help: "Total detections persisted as events",
		},
		[]string{"category"},
	)

	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_alerts_created_total",
			Help: "Total alerts created, by category and severity",
		},
		[]string{"category", "severity"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camsentry_pipeline_duration_seconds",
			Help:    "End-to-end processing duration for one detection",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	// Fan-out Metrics
	NotificationsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camsentry_notifications_created_total",
			Help: "Total in-app notification records created",
		},
	)

	PushSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_push_sends_total",
			Help: "Total push-send attempts, by outcome",
		},
		[]string{"outcome"}, // sent, failed
	)

	// Emergency Orchestrator Metrics
	IncidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_incidents_created_total",
			Help: "Total emergency incidents opened, by emergency type",
		},
		[]string{"emergency_type"},
	)

	ResponseActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_response_actions_total",
			Help: "Total orchestrated response actions, by action type and status",
		},
		[]string{"action_type", "status"},
	)

	// Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camsentry_store_query_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "collection"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_store_query_errors_total",
			Help: "Total store operation errors",
		},
		[]string{"operation", "collection"},
	)

	// Realtime Metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camsentry_websocket_clients",
			Help: "Current number of connected dashboard sessions",
		},
	)

	BroadcastsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camsentry_broadcasts_published_total",
			Help: "Total realtime broadcast messages published, by entity type",
		},
		[]string{"entity"},
	)

	BroadcastsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camsentry_broadcasts_dropped_total",
			Help: "Total realtime broadcast messages dropped due to backpressure",
		},
	)
)

// ObserveStoreQuery records the duration of a store operation and its error
// outcome in one call.
func ObserveStoreQuery(operation, collection string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation, collection).Inc()
	}
}
