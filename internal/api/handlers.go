// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/camsentry/camsentry/internal/detection"
	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/realtime"
	"github.com/camsentry/camsentry/internal/registry"
	"github.com/camsentry/camsentry/internal/store"
)

// maxBodyBytes caps request bodies. Detection payloads are small; anything
// bigger is malformed or hostile.
const maxBodyBytes = 1 << 20

// defaultListLimit applies when a list request names no limit.
const defaultListLimit = 50

// maxListLimit caps a single page.
const maxListLimit = 500

// Handler holds the collaborators behind the HTTP surface.
type Handler struct {
	pipeline *detection.Pipeline
	store    *store.Store
	registry *registry.Registry
	hub      *realtime.Hub
	cameras  CameraStatusBroadcaster
}

// CameraStatusBroadcaster announces camera heartbeat transitions.
type CameraStatusBroadcaster interface {
	CameraStatus(ctx context.Context, camera *models.Camera)
}

// NewHandler creates the handler set. hub and cameras may be nil when the
// realtime surface is disabled.
func NewHandler(pipeline *detection.Pipeline, st *store.Store, reg *registry.Registry,
	hub *realtime.Hub, cameras CameraStatusBroadcaster) *Handler {
	return &Handler{
		pipeline: pipeline,
		store:    st,
		registry: reg,
		hub:      hub,
		cameras:  cameras,
	}
}

// decodeBody reads a bounded JSON body into dst. Returns false after
// writing the error response.
func decodeBody(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		rw.BadRequest("invalid JSON body: " + err.Error())
		return false
	}
	return true
}

// parseLimitOffset reads limit/offset query params with list defaults.
func parseLimitOffset(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

// parseTimeParam reads an RFC3339 query param. Returns nil when absent.
func parseTimeParam(rw *ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		rw.BadRequest(name + " must be RFC3339")
		return nil, false
	}
	return &t, true
}

// parseCategories reads a comma-separated category filter.
func parseCategories(rw *ResponseWriter, r *http.Request) ([]models.Category, bool) {
	raw := r.URL.Query().Get("category")
	if raw == "" {
		return nil, true
	}
	var out []models.Category
	for _, part := range strings.Split(raw, ",") {
		c := models.Category(strings.TrimSpace(part))
		if !c.Known() {
			rw.BadRequest("unknown category " + string(c))
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}
