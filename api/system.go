package api

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *db.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OnlineReporter is satisfied by *connectivity.Monitor.
type OnlineReporter interface {
	Online() bool
}

// SystemHandler serves liveness and build information. Both dependencies
// are optional.
type SystemHandler struct {
	DB     Pinger
	Remote OnlineReporter
}

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Database string `json:"database,omitempty"`
	Online   *bool  `json:"online,omitempty"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Service: "pqrs"}
	status := http.StatusOK

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Database = "ok"
		if err := h.DB.Ping(ctx); err != nil {
			resp.Status, resp.Database = "degraded", "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	if h.Remote != nil {
		online := h.Remote.Online()
		resp.Online = &online
	}

	writeJSON(w, resp, status)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": version, "buildTime": buildTime}, http.StatusOK)
	}
}
