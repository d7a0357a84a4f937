// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/store"
	"github.com/camsentry/camsentry/internal/validation"
)

// IngestResponse summarizes what one detection submission produced.
type IngestResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	Detail   string `json:"detail,omitempty"`

	Event    *models.DetectionEvent    `json:"event,omitempty"`
	Alert    *models.Alert             `json:"alert,omitempty"`
	Incident *models.EmergencyIncident `json:"incident,omitempty"`
}

// IngestDetection accepts one raw detection from the AI vision provider
// and runs it through the full pipeline. A gated-out detection is not an
// error: the provider gets 200 with the rejection reason so it can tune
// locally. Only malformed payloads and persistence failures are errors.
func (h *Handler) IngestDetection(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var raw models.RawDetection
	if !decodeBody(rw, r, &raw) {
		return
	}
	// The tenant header is authoritative; the payload may not name
	// another organization.
	org := organizationFromContext(r.Context())
	if raw.OrganizationID == "" {
		raw.OrganizationID = org
	} else if raw.OrganizationID != org {
		rw.BadRequest("organization_id does not match " + OrganizationHeader)
		return
	}

	result, err := h.pipeline.Submit(r.Context(), &raw)
	if err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			apiErr := verr.ToAPIError()
			rw.ValidationError(apiErr.Message, apiErr.Details)
			return
		}
		rw.DatabaseError(err)
		return
	}

	if result.Rejection != nil {
		rw.Success(IngestResponse{
			Accepted: false,
			Reason:   string(result.Rejection.Reason),
			Detail:   result.Rejection.Detail,
		})
		return
	}

	rw.Created(IngestResponse{
		Accepted: true,
		Event:    result.Event,
		Alert:    result.Alert,
		Incident: result.Incident,
	})
}

// ListEvents returns the organization's detection events, filtered.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
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

	filter := models.EventFilter{
		OrganizationID: organizationFromContext(r.Context()),
		CameraID:       r.URL.Query().Get("camera_id"),
		Categories:     categories,
		Since:          since,
		Until:          until,
		Limit:          limit,
		Offset:         offset,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.EventStatus(raw)
		if !status.Valid() {
			rw.BadRequest("unknown status " + raw)
			return
		}
		filter.Status = status
	}

	events, err := h.store.ListEvents(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(events, &PaginationMeta{
		Count:  len(events),
		Limit:  limit,
		Offset: offset,
	})
}

// GetEvent returns one detection event.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	event, err := h.store.GetEvent(r.Context(), organizationFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("detection event not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(event)
}

type reviewEventRequest struct {
	Status models.EventStatus `json:"status"`
}

// ReviewEvent records an operator's review verdict on a detection event.
// The pipeline only ever writes pending; every later transition comes
// through here.
func (h *Handler) ReviewEvent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req reviewEventRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if !req.Status.Valid() || req.Status == models.EventStatusPending {
		rw.BadRequest("status must be confirmed, false_positive, or ignored")
		return
	}

	org := organizationFromContext(r.Context())
	err := h.store.UpdateEventStatus(r.Context(), org, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("detection event not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	event, err := h.store.GetEvent(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(event)
}
