// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camsentry/camsentry/internal/models"
)

type cameraHeartbeatRequest struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	Online   bool   `json:"online"`
}

// CameraHeartbeat records a camera's liveness report and pushes a
// camera_status message to the organization's dashboards. Camera
// inventory itself lives upstream; this endpoint only relays state.
func (h *Handler) CameraHeartbeat(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req cameraHeartbeatRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	camera := &models.Camera{
		ID:             chi.URLParam(r, "id"),
		OrganizationID: organizationFromContext(r.Context()),
		Name:           req.Name,
		Location:       req.Location,
		Online:         req.Online,
		LastSeenAt:     time.Now().UTC(),
	}

	if h.cameras != nil {
		h.cameras.CameraStatus(r.Context(), camera)
	}
	rw.Success(camera)
}
