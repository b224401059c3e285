package api

import (
	"encoding/json"
	"net/http"

	"github.com/garnizeh/pqrs/internal/severity"
	"github.com/garnizeh/pqrs/pkg/models"
)

type severityRequest struct {
	Measurement models.Measurement `json:"measurement"`
	Risk        models.Risk        `json:"risk"`
	Context     *models.Context    `json:"context,omitempty"`
}

type severityResponse struct {
	AreaM2 float64 `json:"area_m2"`
	severity.Result
}

// PreviewSeverity scores a measurement and risk assessment without storing
// anything, for the capture form.
func PreviewSeverity(w http.ResponseWriter, r *http.Request) {
	var req severityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.NewValidationError([]string{"invalid JSON body: " + err.Error()}))
		return
	}

	var problems []string
	problems = append(problems, severity.ValidateMeasurement(req.Measurement)...)
	problems = append(problems, severity.ValidateRisk(req.Risk)...)
	problems = append(problems, severity.ValidateContext(req.Context)...)
	if err := models.NewValidationError(problems); err != nil {
		writeError(w, err)
		return
	}

	m := req.Measurement
	m.AreaM2 = severity.Area(m.LengthM, m.WidthM)
	writeJSON(w, severityResponse{AreaM2: m.AreaM2, Result: severity.Calculate(m, req.Risk, req.Context)}, http.StatusOK)
}
