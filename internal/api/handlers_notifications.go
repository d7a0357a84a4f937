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

// requireUser extracts the acting user header. Returns "" after writing
// the error response.
func requireUser(rw *ResponseWriter, r *http.Request) string {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		rw.BadRequest("missing " + UserHeader + " header")
	}
	return userID
}

// ListNotifications returns the acting user's in-app notifications,
// newest first. ?unread=true narrows to unread ones.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := requireUser(rw, r)
	if userID == "" {
		return
	}
	limit, offset := parseLimitOffset(r)

	filter := models.NotificationFilter{
		OrganizationID: organizationFromContext(r.Context()),
		UserID:         userID,
		Limit:          limit,
		Offset:         offset,
	}
	if raw := r.URL.Query().Get("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			rw.BadRequest("unread must be a boolean")
			return
		}
		filter.Unread = unread
	}

	notifications, err := h.store.ListNotifications(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.SuccessWithPagination(notifications, &PaginationMeta{
		Count:  len(notifications),
		Limit:  limit,
		Offset: offset,
	})
}

// MarkNotificationRead stamps a notification's read time. Marking an
// already-read notification is a no-op that keeps the original read time.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := requireUser(rw, r)
	if userID == "" {
		return
	}

	err := h.store.MarkNotificationRead(r.Context(), userID, chi.URLParam(r, "id"), time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			rw.NotFound("notification not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]bool{"read": true})
}

// UnreadCount returns the acting user's unread notification count, for
// the dashboard badge.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := requireUser(rw, r)
	if userID == "" {
		return
	}

	count, err := h.store.CountUnread(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(map[string]int{"unread": count})
}
