// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by the CORS layer; the upgrade itself accepts
	// whatever made it through.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket upgrades a dashboard session and pins it to the requesting
// organization. The session only ever receives that tenant's messages.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError,
			"realtime surface is disabled")
		return
	}

	org := organizationFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn, org)
	client.Start()
}
