// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camsentry/camsentry/internal/models"
)

// ListTypeConfigs returns the organization's effective configuration for
// every detection category: stored overrides layered over defaults.
func (h *Handler) ListTypeConfigs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	configs, err := h.registry.List(r.Context(), organizationFromContext(r.Context()))
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(configs)
}

// GetTypeConfig returns the effective configuration for one category.
func (h *Handler) GetTypeConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	category := models.Category(chi.URLParam(r, "category"))
	if !category.Known() {
		rw.NotFound("unknown detection category " + string(category))
		return
	}

	cfg, err := h.registry.Resolve(r.Context(), organizationFromContext(r.Context()), category)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(cfg)
}

type putTypeConfigRequest struct {
	DisplayName         string          `json:"display_name"`
	Description         string          `json:"description"`
	Enabled             bool            `json:"enabled"`
	ConfidenceThreshold float64         `json:"confidence_threshold"`
	Severity            models.Severity `json:"severity"`
	NotifyEnabled       bool            `json:"notify_enabled"`
}

// PutTypeConfig stores an organization override for one category. The
// threshold is clamped to the supported range; the response carries the
// values actually stored.
func (h *Handler) PutTypeConfig(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	category := models.Category(chi.URLParam(r, "category"))
	if !category.Known() {
		rw.NotFound("unknown detection category " + string(category))
		return
	}

	var req putTypeConfigRequest
	if !decodeBody(rw, r, &req) {
		return
	}

	stored, err := h.registry.Put(r.Context(), models.DetectionTypeConfig{
		OrganizationID:      organizationFromContext(r.Context()),
		Category:            category,
		DisplayName:         req.DisplayName,
		Description:         req.Description,
		Enabled:             req.Enabled,
		ConfidenceThreshold: req.ConfidenceThreshold,
		Severity:            req.Severity,
		NotifyEnabled:       req.NotifyEnabled,
	})
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stored)
}
