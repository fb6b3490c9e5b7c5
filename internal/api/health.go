package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/speechlab/align-engine/internal/database"
	"github.com/speechlab/align-engine/internal/engine"
	"github.com/speechlab/align-engine/internal/mqttclient"
)

type HealthResponse struct {
	Status        string             `json:"status"`
	Version       string             `json:"version"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Checks        map[string]string  `json:"checks"`
	Watcher       *WatcherStatusData `json:"watcher,omitempty"`
	Queue         *engine.QueueStats `json:"queue,omitempty"`
}

type HealthHandler struct {
	db        *database.DB
	mqtt      *mqttclient.Client
	live      LiveDataSource
	pool      *engine.Pool
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, mqtt *mqttclient.Client, live LiveDataSource, pool *engine.Pool, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		mqtt:      mqtt,
		live:      live,
		pool:      pool,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	// Database check
	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = "error"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	// MQTT check
	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	// File watcher check
	var watcher *WatcherStatusData
	if h.live != nil {
		if ws := h.live.WatcherStatus(); ws != nil {
			watcher = ws
			checks["file_watcher"] = ws.Status
		}
	}

	// Queue check
	var queue *engine.QueueStats
	if h.pool != nil {
		qs := h.pool.Stats()
		queue = &qs
		if qs.Pending >= h.pool.QueueSize() {
			checks["queue"] = "saturated"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["queue"] = "ok"
		}
	} else {
		checks["queue"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
		Watcher:       watcher,
		Queue:         queue,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(resp)
}
