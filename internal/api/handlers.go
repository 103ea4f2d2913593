// DVRWatch - Channels DVR Event Monitoring and Alert Dispatch
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dvrwatch

// Package api serves the DVRWatch HTTP surface: health and status, session
// and activity inspection, manual test alerts, and the dashboard WebSocket.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/dvrwatch/internal/engine"
	"github.com/tomtom215/dvrwatch/internal/models"
	"github.com/tomtom215/dvrwatch/internal/websocket"
)

// DiskState reports the disk monitor's current armed state.
type DiskState interface {
	Low() bool
}

// Handlers holds the dependencies of the HTTP endpoints.
type Handlers struct {
	engine    *engine.Engine
	disk      DiskState
	hub       *websocket.Hub
	version   string
	startedAt time.Time
}

// NewHandlers creates the endpoint set. disk may be nil when the disk
// monitor is not enabled.
func NewHandlers(eng *engine.Engine, disk DiskState, hub *websocket.Hub, version string) *Handlers {
	return &Handlers{
		engine:    eng,
		disk:      disk,
		hub:       hub,
		version:   version,
		startedAt: time.Now(),
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	FeedConnected bool   `json:"feed_connected"`
}

// handleHealth reports liveness. The process is healthy even while the
// feed reconnects; the connector state is informational.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		FeedConnected: h.engine.ConnectionStatus().Connected,
	})
}

type statusResponse struct {
	Feed      interface{}                 `json:"feed"`
	Sessions  map[models.ActivityKind]int `json:"sessions"`
	Caches    interface{}                 `json:"caches"`
	Providers []string                    `json:"providers"`
	DiskLow   *bool                       `json:"disk_low,omitempty"`
	WSClients int                         `json:"websocket_clients"`
	ActivityN int                         `json:"activity_entries"`
}

func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Feed:      h.engine.ConnectionStatus(),
		Sessions:  h.engine.SessionCounts(),
		Caches:    h.engine.CacheStats(),
		Providers: h.engine.Providers(),
		ActivityN: len(h.engine.RecentActivity(0)),
	}
	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}
	if h.disk != nil {
		low := h.disk.Low()
		resp.DiskLow = &low
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.engine.Sessions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (h *Handlers) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records := h.engine.RecentActivity(limit)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (h *Handlers) handleClearActivity(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearActivity()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleTestAlert sends a synthetic alert through the real providers and
// returns their outcomes, so an operator can verify wiring end to end.
func (h *Handlers) handleTestAlert(w http.ResponseWriter, r *http.Request) {
	kind := models.ActivityKind(chi.URLParam(r, "kind"))

	attempts, err := h.engine.TestAlert(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	for _, attempt := range attempts {
		if attempt.Outcome == models.OutcomeFailure {
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, map[string]interface{}{
		"kind":     kind,
		"attempts": attempts,
	})
}

func (h *Handlers) handleReconnect(w http.ResponseWriter, r *http.Request) {
	h.engine.ForceReconnect()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reconnecting"})
}

func (h *Handlers) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": h.engine.Providers(),
	})
}

func (h *Handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "websocket hub not running")
		return
	}
	websocket.ServeWS(h.hub, w, r)
}
