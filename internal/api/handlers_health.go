// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthLive reports process liveness. Always 200 while the process can
// serve requests at all.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
	})
}

// HealthReady reports readiness: the store must answer a ping. Load
// balancers route traffic away on 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.store.Ping(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeDatabaseError, "database not ready")
		return
	}
	rw.Success(HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
	})
}

// Health reports overall status with per-component detail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	components := map[string]string{}
	status := "healthy"

	if err := h.store.Ping(r.Context()); err != nil {
		components["database"] = "unhealthy: " + err.Error()
		status = "degraded"
	} else {
		components["database"] = "healthy"
	}

	if h.hub != nil {
		components["websocket"] = "healthy"
	} else {
		components["websocket"] = "disabled"
	}

	rw.Success(HealthStatus{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	})
}
