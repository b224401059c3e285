package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/garnizeh/pqrs/pkg/gateway"
	"github.com/garnizeh/pqrs/pkg/models"
	"github.com/garnizeh/pqrs/pkg/repository"
)

// PayloadValidator is satisfied by *schemas.Loader.
type PayloadValidator interface {
	Validate(ctx context.Context, version string, doc []byte) ([]string, error)
}

// ReceiverHandler is the receiving side of the submission endpoint. It lets
// one deployment act as the system of record for others.
type ReceiverHandler struct {
	receipts      repository.ReceiptRepo
	validator     PayloadValidator
	schemaVersion string
	secret        string
	now           func() time.Time
}

// NewReceiverHandler returns a receiver. An empty secret disables bearer
// token checks. A nil validator accepts any well-formed JSON object.
func NewReceiverHandler(receipts repository.ReceiptRepo, validator PayloadValidator, schemaVersion, secret string) *ReceiverHandler {
	return &ReceiverHandler{
		receipts:      receipts,
		validator:     validator,
		schemaVersion: schemaVersion,
		secret:        secret,
		now:           time.Now,
	}
}

type receiverReply struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (h *ReceiverHandler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	raw := bearerToken(r)
	if raw == "" {
		return false
	}
	return gateway.VerifyToken(h.secret, raw) == nil
}

// Receive accepts one submission and answers in the envelope the gateway
// client expects.
func (h *ReceiverHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, receiverReply{Error: "unauthorized"}, http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, receiverReply{Error: "could not read body"}, http.StatusBadRequest)
		return
	}

	var p gateway.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		writeJSON(w, receiverReply{Error: "invalid JSON body"}, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(p.Title) == "" {
		writeJSON(w, receiverReply{Error: "Title is required"}, http.StatusBadRequest)
		return
	}

	if h.validator != nil {
		problems, err := h.validator.Validate(r.Context(), h.schemaVersion, body)
		if err != nil {
			logger.Error("receiver: schema validation failed", slog.String("case_number", p.Title), slog.Any("err", err))
			writeJSON(w, receiverReply{Error: "schema unavailable"}, http.StatusInternalServerError)
			return
		}
		if len(problems) > 0 {
			writeJSON(w, receiverReply{Error: strings.Join(problems, "; ")}, http.StatusBadRequest)
			return
		}
	}

	rc := &models.Receipt{CaseNumber: p.Title, PayloadJSON: string(body), ReceivedAt: h.now().UTC()}
	if err := h.receipts.SaveReceipt(r.Context(), rc); err != nil {
		logger.Error("receiver: save failed", slog.String("case_number", p.Title), slog.Any("err", err))
		writeJSON(w, receiverReply{Error: "could not store submission"}, http.StatusInternalServerError)
		return
	}

	logger.Info("receiver: submission stored", slog.String("case_number", p.Title))
	writeJSON(w, receiverReply{
		Success:   true,
		Message:   "submission received",
		ID:        p.Title,
		Timestamp: rc.ReceivedAt.Format(time.RFC3339),
	}, http.StatusOK)
}

// Status reports whether a case number has been received.
func (h *ReceiverHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, receiverReply{Error: "unauthorized"}, http.StatusUnauthorized)
		return
	}

	caseNumber := r.URL.Query().Get("radicado")
	if caseNumber == "" {
		writeJSON(w, receiverReply{Error: "radicado query parameter is required"}, http.StatusBadRequest)
		return
	}

	rc, err := h.receipts.GetReceipt(r.Context(), caseNumber)
	if err != nil {
		writeError(w, err)
		return
	}

	st := gateway.CaseStatus{CaseNumber: caseNumber}
	if rc != nil {
		st.Synced = true
		st.LastSync = rc.ReceivedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, st, http.StatusOK)
}

// Head answers reachability probes.
func (h *ReceiverHandler) Head(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
