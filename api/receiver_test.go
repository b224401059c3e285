package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/pqrs/api"
	dbfs "github.com/garnizeh/pqrs/db"
	"github.com/garnizeh/pqrs/internal/db"
	sqlite "github.com/garnizeh/pqrs/internal/repository/sqlite"
	"github.com/garnizeh/pqrs/internal/schemas"
	"github.com/garnizeh/pqrs/pkg/gateway"
	"github.com/garnizeh/pqrs/pkg/models"
)

const syncSecret = "sync-secret"

func setupReceiver(t *testing.T, secret string) http.Handler {
	t.Helper()
	ctx := context.Background()
	d, err := db.New(ctx, filepath.Join(t.TempDir(), "receiver.db"), nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := sqlite.New(d, nil)
	loader, err := schemas.NewLoader(ctx, repo)
	if err != nil {
		t.Fatalf("schemas.NewLoader: %v", err)
	}

	h := api.NewReceiverHandler(repo, loader, schemas.CurrentVersion, secret)
	mux := http.NewServeMux()
	mux.HandleFunc(api.ReceiverPath, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.Receive(w, r)
		case http.MethodGet:
			h.Status(w, r)
		case http.MethodHead:
			h.Head(w, r)
		default:
			http.NotFound(w, r)
		}
	})
	return mux
}

func samplePayload() gateway.Payload {
	return gateway.BuildPayload(models.DefectRecord{
		ID:             "rec-1",
		Radicado:       "PQRS-20250314-00042",
		Type:           models.TypeReclamo,
		Classification: models.ClassCalzada,
		Location:       models.Location{Lat: 6.2442, Lon: -75.5812},
		Measurement:    models.Measurement{LengthM: 2, WidthM: 1.5, DepthCM: 10, AreaM2: 3},
		Risk:           models.Risk{PedestrianExposure: 2, VehicleExposure: 1},
		Severity:       models.Severity{Score: 45, Level: models.LevelMedium, SLAHours: 72},
		Evidence:       models.Evidence{Photos: []string{"a.jpg", "b.jpg"}},
		Operation:      models.Operation{Responsible: "Secretaría de Infraestructura", Status: models.StatusRegistered},
		Timestamp:      time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		FormVersion:    "1.0",
	})
}

func bearer(t *testing.T) string {
	t.Helper()
	tok, err := gateway.SignToken(syncSecret, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return "Bearer " + tok
}

func TestReceiver_ReceiveAndStatus(t *testing.T) {
	h := setupReceiver(t, syncSecret)
	body, _ := json.Marshal(samplePayload())

	req := httptest.NewRequest(http.MethodPost, api.ReceiverPath, bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var rep struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !rep.Success || rep.ID != "PQRS-20250314-00042" {
		t.Fatalf("unexpected reply %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, api.ReceiverPath+"?radicado=PQRS-20250314-00042", nil)
	req.Header.Set("Authorization", bearer(t))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var st gateway.CaseStatus
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.Synced || st.LastSync == "" {
		t.Fatalf("expected case to be synced, got %+v", st)
	}

	req = httptest.NewRequest(http.MethodGet, api.ReceiverPath+"?radicado=PQRS-20250314-99999", nil)
	req.Header.Set("Authorization", bearer(t))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	st = gateway.CaseStatus{}
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.Synced {
		t.Fatalf("unknown case reported as synced")
	}
}

func TestReceiver_Rejections(t *testing.T) {
	h := setupReceiver(t, syncSecret)
	valid, _ := json.Marshal(samplePayload())

	noTitle := samplePayload()
	noTitle.Title = ""
	noTitleBody, _ := json.Marshal(noTitle)

	badLevel := map[string]any{}
	_ = json.Unmarshal(valid, &badLevel)
	badLevel["SeveridadNivel"] = "Extrema"
	badLevelBody, _ := json.Marshal(badLevel)

	tests := []struct {
		name       string
		auth       string
		body       []byte
		wantStatus int
	}{
		{name: "missing token", body: valid, wantStatus: http.StatusUnauthorized},
		{name: "wrong token", auth: "Bearer nope", body: valid, wantStatus: http.StatusUnauthorized},
		{name: "malformed body", auth: bearer(t), body: []byte("{"), wantStatus: http.StatusBadRequest},
		{name: "missing title", auth: bearer(t), body: noTitleBody, wantStatus: http.StatusBadRequest},
		{name: "schema violation", auth: bearer(t), body: badLevelBody, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, api.ReceiverPath, bytes.NewReader(tt.body))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), `"success":false`) {
				t.Fatalf("expected failure envelope, got %s", w.Body.String())
			}
		})
	}
}

func TestReceiver_StatusRequiresCaseNumber(t *testing.T) {
	h := setupReceiver(t, "")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, api.ReceiverPath, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected json content-type, got %q", ct)
	}
	if body := w.Body.String(); !strings.Contains(body, `"success":false`) || !strings.Contains(body, `"error":"radicado query parameter is required"`) {
		t.Fatalf("unexpected body %s", body)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodHead, api.ReceiverPath, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for HEAD got %d", w.Code)
	}
}

func TestReceiver_AcceptsGatewayClient(t *testing.T) {
	srv := httptest.NewServer(setupReceiver(t, syncSecret))
	defer srv.Close()

	cfg := gateway.DefaultConfig()
	cfg.Endpoint = srv.URL + api.ReceiverPath
	cfg.Secret = syncSecret
	c, err := gateway.NewClient(cfg, srv.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	res, err := c.Submit(ctx, samplePayload())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.ID != "PQRS-20250314-00042" {
		t.Fatalf("unexpected id %q", res.ID)
	}
	st, err := c.Status(ctx, "PQRS-20250314-00042")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Synced {
		t.Fatalf("expected submitted case to be reported as synced")
	}
}
