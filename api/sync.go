package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/garnizeh/pqrs/internal/syncengine"
	"github.com/garnizeh/pqrs/pkg/models"
	"github.com/garnizeh/pqrs/pkg/repository"
)

// Drainer is satisfied by *syncengine.Engine.
type Drainer interface {
	Drain(ctx context.Context) (syncengine.Result, error)
	Syncing() bool
}

// ConnectivitySetter is satisfied by *connectivity.Monitor.
type ConnectivitySetter interface {
	Online() bool
	Set(online bool)
}

// SyncHandler exposes the sync queue and manual drains.
type SyncHandler struct {
	engine  Drainer
	queue   repository.SyncQueue
	monitor ConnectivitySetter
}

func NewSyncHandler(engine Drainer, queue repository.SyncQueue, monitor ConnectivitySetter) *SyncHandler {
	return &SyncHandler{engine: engine, queue: queue, monitor: monitor}
}

// SyncNow runs a drain and returns its counts.
func (h *SyncHandler) SyncNow(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Drain(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, res, http.StatusOK)
}

func (h *SyncHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queue.ListQueue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.QueueEntry{}
	}

	resp := map[string]any{
		"size":    len(entries),
		"syncing": h.engine.Syncing(),
		"online":  h.monitor.Online(),
		"items":   entries,
	}
	writeJSON(w, resp, http.StatusOK)
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

// SetConnectivity overrides the connectivity state. Going online triggers
// a drain through the monitor's reconnect listeners.
func (h *SyncHandler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Online == nil {
		http.Error(w, `body must be {"online": true|false}`, http.StatusBadRequest)
		return
	}

	h.monitor.Set(*req.Online)
	writeJSON(w, map[string]bool{"online": h.monitor.Online()}, http.StatusOK)
}
