// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/store"
)

// ListIncidents returns the organization's emergency incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, offset := parseLimitOffset(r)

	filter := models.IncidentFilter{
		OrganizationID: organizationFromContext(r.Context()),
		EmergencyType:  models.EmergencyType(r.URL.Query().Get("type")),
		Status:         models.IncidentStatus(r.URL.Query().Get("status")),
		Limit:          limit,
		Offset:         offset,
	}

	incidents, err := h.store.ListIncidents(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(incidents, &PaginationMeta{
		Count:  len(incidents),
		Limit:  limit,
		Offset: offset,
	})
}

// GetIncident returns one incident.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	incident, err := h.store.GetIncident(r.Context(), organizationFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("incident not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(incident)
}

// GetIncidentLog returns the incident's response audit trail in execution
// order. The incident lookup enforces tenancy before the log is read.
func (h *Handler) GetIncidentLog(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	incident, err := h.store.GetIncident(r.Context(), organizationFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("incident not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	logs, err := h.store.ListResponseLogs(r.Context(), incident.ID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(logs)
}

// ResolveIncident closes an active incident. Closing is explicit and
// operator-driven; nothing in the pipeline resolves incidents.
func (h *Handler) ResolveIncident(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req resolveRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.ResolvedBy == "" {
		rw.BadRequest("resolved_by is required")
		return
	}

	org := organizationFromContext(r.Context())
	id := chi.URLParam(r, "id")

	err := h.store.ResolveIncident(r.Context(), org, id, req.ResolvedBy, time.Now().UTC())
	switch {
	case errors.Is(err, store.ErrNotFound):
		rw.NotFound("incident not found")
		return
	case errors.Is(err, store.ErrAlreadyResolved):
		rw.Conflict("incident is already resolved")
		return
	case err != nil:
		rw.DatabaseError(err)
		return
	}

	incident, err := h.store.GetIncident(r.Context(), org, id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(incident)
}
