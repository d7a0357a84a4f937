// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/store"
)

// ListAlerts returns the organization's alerts, filtered.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	categories, ok := parseCategories(rw, r)
	if !ok {
		return
	}
	since, ok := parseTimeParam(rw, r, "since")
	if !ok {
		return
	}
	until, ok := parseTimeParam(rw, r, "until")
	if !ok {
		return
	}
	limit, offset := parseLimitOffset(r)

	filter := models.AlertFilter{
		OrganizationID: organizationFromContext(r.Context()),
		CameraID:       r.URL.Query().Get("camera_id"),
		Categories:     categories,
		Since:          since,
		Until:          until,
		Limit:          limit,
		Offset:         offset,
	}
	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity := models.Severity(raw)
		if !severity.Valid() {
			rw.BadRequest("unknown severity " + raw)
			return
		}
		filter.Severities = []models.Severity{severity}
	}
	if raw := r.URL.Query().Get("resolved"); raw != "" {
		resolved, err := strconv.ParseBool(raw)
		if err != nil {
			rw.BadRequest("resolved must be a boolean")
			return
		}
		filter.Resolved = &resolved
	}

	alerts, err := h.store.ListAlerts(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(alerts, &PaginationMeta{
		Count:  len(alerts),
		Limit:  limit,
		Offset: offset,
	})
}

// GetAlert returns one alert.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	alert, err := h.store.GetAlert(r.Context(), organizationFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("alert not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(alert)
}

type resolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// ResolveAlert marks an alert resolved. The first resolution wins; a
// second attempt gets 409 with the alert unchanged.
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
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

	err := h.store.ResolveAlert(r.Context(), org, id, req.ResolvedBy, time.Now().UTC())
	switch {
	case errors.Is(err, store.ErrNotFound):
		rw.NotFound("alert not found")
		return
	case errors.Is(err, store.ErrAlreadyResolved):
		rw.Conflict("alert is already resolved")
		return
	case err != nil:
		rw.DatabaseError(err)
		return
	}

	alert, err := h.store.GetAlert(r.Context(), org, id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(alert)
}
