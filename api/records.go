package api

import (
	"encoding/json"
	"net/http"

	"github.com/garnizeh/pqrs/internal/records"
	"github.com/garnizeh/pqrs/pkg/models"
	"github.com/gorilla/mux"
)

// RecordsHandler exposes defect record CRUD and per-record submission.
type RecordsHandler struct {
	svc *records.Service
}

func NewRecordsHandler(svc *records.Service) *RecordsHandler {
	return &RecordsHandler{svc: svc}
}

type submitResponse struct {
	QueueID int64  `json:"queue_id"`
	Status  string `json:"status"`
}

func decodeRecord(r *http.Request) (*models.DefectRecord, error) {
	var rec models.DefectRecord
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&rec); err != nil {
		return nil, models.NewValidationError([]string{"invalid JSON body: " + err.Error()})
	}
	return &rec, nil
}

func (h *RecordsHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.svc.Create(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, created, http.StatusCreated)
}

func (h *RecordsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	state := models.SyncState(r.URL.Query().Get("state"))
	recs, err := h.svc.List(r.Context(), state)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []models.DefectRecord{}
	}

	writeJSON(w, map[string]any{"total": len(recs), "items": recs}, http.StatusOK)
}

func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if rec == nil {
		writeError(w, models.ErrNotFound)
		return
	}

	writeJSON(w, rec, http.StatusOK)
}

func (h *RecordsHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], rec)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, updated, http.StatusOK)
}

func (h *RecordsHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SubmitRecord queues the record and requests a drain. The response does
// not wait for delivery.
func (h *RecordsHandler) SubmitRecord(w http.ResponseWriter, r *http.Request) {
	qid, err := h.svc.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, submitResponse{QueueID: qid, Status: string(models.SyncQueued)}, http.StatusAccepted)
}
