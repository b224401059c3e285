package gateway

import (
	"strings"
	"time"

	"github.com/garnizeh/pqrs/pkg/models"
)

// Payload is the flat submission document. Field names are part of the
// remote contract and must not change.
type Payload struct {
	Title              string  `json:"Title"`
	Tipo               string  `json:"Tipo"`
	Clasificacion      string  `json:"Clasificacion"`
	Estado             string  `json:"Estado"`
	Latitud            float64 `json:"Latitud"`
	Longitud           float64 `json:"Longitud"`
	Direccion          string  `json:"Direccion"`
	Barrio             string  `json:"Barrio"`
	Comuna             string  `json:"Comuna"`
	LargoM             float64 `json:"Largo_m"`
	AnchoM             float64 `json:"Ancho_m"`
	ProfundidadCM      float64 `json:"Profundidad_cm"`
	AreaM2             float64 `json:"Area_m2"`
	ExposicionPeaton   int     `json:"ExposicionPeaton"`
	ExposicionVehiculo int     `json:"ExposicionVehiculo"`
	VelocidadVia       int     `json:"VelocidadVia"`
	ProxEquipamientos  int     `json:"ProxEquipamientos"`
	SeveridadScore     int     `json:"SeveridadScore"`
	SeveridadNivel     string  `json:"SeveridadNivel"`
	SLAHoras           int     `json:"SLA_Horas"`
	Responsable        string  `json:"Responsable"`
	Cuadrilla          string  `json:"Cuadrilla"`
	Fotos              string  `json:"Fotos"`
	Video              string  `json:"Video"`
	Observaciones      string  `json:"Observaciones"`
	Timestamp          string  `json:"Timestamp"`
	FormVersion        string  `json:"FormVersion"`
}

// BuildPayload maps a record snapshot onto the remote document.
func BuildPayload(rec models.DefectRecord) Payload {
	return Payload{
		Title:              rec.Radicado,
		Tipo:               string(rec.Type),
		Clasificacion:      string(rec.Classification),
		Estado:             string(rec.Operation.Status),
		Latitud:            rec.Location.Lat,
		Longitud:           rec.Location.Lon,
		Direccion:          rec.Location.Address,
		Barrio:             rec.Location.Neighborhood,
		Comuna:             rec.Location.District,
		LargoM:             rec.Measurement.LengthM,
		AnchoM:             rec.Measurement.WidthM,
		ProfundidadCM:      rec.Measurement.DepthCM,
		AreaM2:             rec.Measurement.AreaM2,
		ExposicionPeaton:   rec.Risk.PedestrianExposure,
		ExposicionVehiculo: rec.Risk.VehicleExposure,
		VelocidadVia:       rec.Risk.RoadSpeed,
		ProxEquipamientos:  rec.Risk.FacilityProximity,
		SeveridadScore:     rec.Severity.Score,
		SeveridadNivel:     string(rec.Severity.Level),
		SLAHoras:           rec.Severity.SLAHours,
		Responsable:        rec.Operation.Responsible,
		Cuadrilla:          rec.Operation.Crew,
		Fotos:              strings.Join(rec.Evidence.Photos, ","),
		Video:              rec.Evidence.Video,
		Observaciones:      rec.Observations,
		Timestamp:          rec.Timestamp.UTC().Format(time.RFC3339),
		FormVersion:        rec.FormVersion,
	}
}
