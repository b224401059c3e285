package models

import (
	"strings"
	"time"
)

// Domain models matching the database schema in db/migrations/0001_init.sql

type RequestType string

const (
	TypePeticion   RequestType = "Petición"
	TypeQueja      RequestType = "Queja"
	TypeReclamo    RequestType = "Reclamo"
	TypeSugerencia RequestType = "Sugerencia"
	TypeDenuncia   RequestType = "Denuncia"
)

type Channel string

const (
	ChannelApp        Channel = "App"
	ChannelLinea      Channel = "Línea"
	ChannelWeb        Channel = "Web"
	ChannelPresencial Channel = "Presencial"
	ChannelOtro       Channel = "Otro"
)

type Classification string

const (
	ClassCalzada        Classification = "Calzada"
	ClassAnden          Classification = "Andén"
	ClassSenalizacion   Classification = "Señalización"
	ClassDrenaje        Classification = "Drenaje"
	ClassEspacioPublico Classification = "Espacio público"
	ClassAlumbrado      Classification = "Alumbrado"
	ClassVegetacion     Classification = "Vegetación"
	ClassOtro           Classification = "Otro"
)

// SeverityLevel is the three-level priority derived from the severity score.
type SeverityLevel string

const (
	LevelLow    SeverityLevel = "Baja"
	LevelMedium SeverityLevel = "Media"
	LevelHigh   SeverityLevel = "Alta"
)

// WorkflowStatus follows Draft -> Registered -> Submitted -> Resolved.
type WorkflowStatus string

const (
	StatusDraft      WorkflowStatus = "Borrador"
	StatusRegistered WorkflowStatus = "Registrado"
	StatusSubmitted  WorkflowStatus = "Enviado"
	StatusResolved   WorkflowStatus = "Atendido"
)

type SyncState string

const (
	SyncLocalOnly SyncState = "local_only"
	SyncQueued    SyncState = "queued"
	SyncSynced    SyncState = "synced"
	SyncError     SyncState = "error"
)

// Valid reports whether s is one of the known sync states.
func (s SyncState) Valid() bool {
	switch s {
	case SyncLocalOnly, SyncQueued, SyncSynced, SyncError:
		return true
	}
	return false
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

type Location struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Address      string  `json:"address,omitempty"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	District     string  `json:"district,omitempty"`
	RoadCode     string  `json:"road_code,omitempty"`
}

// Measurement holds the defect size. Length and width are meters, depth is
// centimeters. AreaM2 is derived and overwritten on every save.
type Measurement struct {
	LengthM float64 `json:"length_m"`
	WidthM  float64 `json:"width_m"`
	DepthCM float64 `json:"depth_cm,omitempty"`
	AreaM2  float64 `json:"area_m2"`
}

type Risk struct {
	PedestrianExposure int `json:"pedestrian_exposure"`
	VehicleExposure    int `json:"vehicle_exposure"`
	RoadSpeed          int `json:"road_speed"`
	FacilityProximity  int `json:"facility_proximity"`
}

type Context struct {
	AgeDays          int `json:"age_days"`
	Recurrence       int `json:"recurrence"`
	CriticalCorridor int `json:"critical_corridor"`
}

type Severity struct {
	Score    int           `json:"score"`
	Level    SeverityLevel `json:"level"`
	SLAHours int           `json:"sla_hours"`
}

type Evidence struct {
	Photos []string `json:"photos"`
	Video  string   `json:"video,omitempty"`
}

type Operation struct {
	Responsible string         `json:"responsible"`
	Crew        string         `json:"crew,omitempty"`
	Status      WorkflowStatus `json:"status"`
}

// DefectRecord is one field-reported infrastructure defect.
type DefectRecord struct {
	ID             string         `json:"id"`
	Radicado       string         `json:"radicado"`
	Type           RequestType    `json:"type"`
	Channel        Channel        `json:"channel,omitempty"`
	Location       Location       `json:"location"`
	Classification Classification `json:"classification"`
	Measurement    Measurement    `json:"measurement"`
	Risk           Risk           `json:"risk"`
	Context        *Context       `json:"context,omitempty"`
	Severity       Severity       `json:"severity"`
	Evidence       Evidence       `json:"evidence"`
	Operation      Operation      `json:"operation"`
	Observations   string         `json:"observations,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	FormVersion    string         `json:"form_version"`

	SyncState       SyncState  `json:"sync_state"`
	SyncError       string     `json:"sync_error,omitempty"`
	SyncAttempts    int        `json:"sync_attempts,omitempty"`
	LastSyncAttempt *time.Time `json:"last_sync_attempt,omitempty"`
}

// Clone returns a deep copy so that later edits cannot leak into a snapshot.
func (r *DefectRecord) Clone() *DefectRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Context != nil {
		ctx := *r.Context
		c.Context = &ctx
	}
	if r.Evidence.Photos != nil {
		c.Evidence.Photos = append([]string(nil), r.Evidence.Photos...)
	}
	if r.LastSyncAttempt != nil {
		t := *r.LastSyncAttempt
		c.LastSyncAttempt = &t
	}
	return &c
}

// MissingFields lists required fields that are empty.
func (r *DefectRecord) MissingFields() []string {
	var problems []string
	if strings.TrimSpace(r.Radicado) == "" {
		problems = append(problems, "radicado is required")
	}
	if r.Type == "" {
		problems = append(problems, "type is required")
	}
	if r.Classification == "" {
		problems = append(problems, "classification is required")
	}
	if strings.TrimSpace(r.Operation.Responsible) == "" {
		problems = append(problems, "responsible party is required")
	}
	return problems
}

// SyncStatus is the set of columns only the sync engine may change.
type SyncStatus struct {
	State       SyncState
	Error       string
	Attempts    int
	LastAttempt *time.Time
}

// QueueEntry is a pending mutation of a record awaiting delivery.
type QueueEntry struct {
	ID          int64        `json:"queue_id"`
	RecordID    string       `json:"record_id"`
	Action      Action       `json:"action"`
	Snapshot    DefectRecord `json:"payload_snapshot"`
	Attempts    int          `json:"attempts"`
	LastAttempt *time.Time   `json:"last_attempt,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Agent struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	Crew         string `json:"crew,omitempty" db:"crew"`
	Updated      int64  `json:"updated" db:"updated"`
	PasswordHash string `json:"-" db:"password_hash"`
}

type PayloadSchema struct {
	ID          int64  `json:"id" db:"id"`
	Version     string `json:"version" db:"version"`
	Description string `json:"description,omitempty" db:"description"`
	SchemaJSON  string `json:"schema_json" db:"schema_json"`
	Created     int64  `json:"created" db:"created"`
	Updated     int64  `json:"updated" db:"updated"`
}

// Receipt is a submission accepted by the receiving endpoint.
type Receipt struct {
	CaseNumber  string    `json:"case_number"`
	PayloadJSON string    `json:"-"`
	ReceivedAt  time.Time `json:"received_at"`
}
