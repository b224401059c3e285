// Package severity computes the severity index of a defect:
//
//	IS = 0.4*T + 0.4*R + 0.2*C
//
// T is the size component (area and depth), R the risk component and C the
// context component (age, recurrence, critical corridor).
package severity

import (
	"fmt"
	"math"

	"github.com/garnizeh/pqrs/pkg/models"
)

const (
	MaxLengthM = 100.0
	MaxWidthM  = 100.0
	MaxDepthCM = 100.0

	HighThreshold   = 70
	MediumThreshold = 40

	HighSLAHours   = 24
	MediumSLAHours = 72
	LowSLAHours    = 168
)

// Components are the rounded partial scores, for display only.
type Components struct {
	Size    int `json:"size"`
	Risk    int `json:"risk"`
	Context int `json:"context"`
}

type Result struct {
	Score      int                  `json:"score"`
	Level      models.SeverityLevel `json:"level"`
	SLAHours   int                  `json:"sla_hours"`
	Components Components           `json:"components"`
}

// Severity returns the part of the result stored on a record.
func (r Result) Severity() models.Severity {
	return models.Severity{Score: r.Score, Level: r.Level, SLAHours: r.SLAHours}
}

// Calculate is pure and deterministic. ctx may be nil.
func Calculate(m models.Measurement, r models.Risk, ctx *models.Context) Result {
	areaTerm := math.Min(60, m.AreaM2/10*60)
	depthTerm := math.Min(40, m.DepthCM/100*40)
	size := math.Min(100, areaTerm+depthTerm)

	risk := math.Min(100, float64(r.PedestrianExposure*15+r.VehicleExposure*15+r.RoadSpeed*15+r.FacilityProximity*10))

	var context float64
	if ctx != nil {
		age := math.Min(100, float64(ctx.AgeDays)*5)
		context = math.Min(100, age+float64(ctx.Recurrence*15)+float64(ctx.CriticalCorridor*10))
	}

	score := int(math.Round(0.4*size + 0.4*risk + 0.2*context))
	level, sla := Classify(score)

	return Result{
		Score:    score,
		Level:    level,
		SLAHours: sla,
		Components: Components{
			Size:    int(math.Round(size)),
			Risk:    int(math.Round(risk)),
			Context: int(math.Round(context)),
		},
	}
}

// Classify maps a score to its level and SLA target in hours.
func Classify(score int) (models.SeverityLevel, int) {
	switch {
	case score >= HighThreshold:
		return models.LevelHigh, HighSLAHours
	case score >= MediumThreshold:
		return models.LevelMedium, MediumSLAHours
	default:
		return models.LevelLow, LowSLAHours
	}
}

// Area returns length*width rounded to two decimals.
func Area(lengthM, widthM float64) float64 {
	return math.Round(lengthM*widthM*100) / 100
}

func ValidateMeasurement(m models.Measurement) []string {
	var problems []string

	switch {
	case m.LengthM <= 0 || math.IsNaN(m.LengthM):
		problems = append(problems, "length must be greater than 0 m")
	case m.LengthM > MaxLengthM:
		problems = append(problems, fmt.Sprintf("length cannot exceed %.0f m", MaxLengthM))
	}

	switch {
	case m.WidthM <= 0 || math.IsNaN(m.WidthM):
		problems = append(problems, "width must be greater than 0 m")
	case m.WidthM > MaxWidthM:
		problems = append(problems, fmt.Sprintf("width cannot exceed %.0f m", MaxWidthM))
	}

	switch {
	case m.DepthCM < 0 || math.IsNaN(m.DepthCM):
		problems = append(problems, "depth cannot be negative")
	case m.DepthCM > MaxDepthCM:
		problems = append(problems, fmt.Sprintf("depth cannot exceed %.0f cm", MaxDepthCM))
	}

	return problems
}

func ValidateRisk(r models.Risk) []string {
	var problems []string
	check := func(name string, v, max int) {
		if v < 0 || v > max {
			problems = append(problems, fmt.Sprintf("%s must be between 0 and %d", name, max))
		}
	}
	check("pedestrian exposure", r.PedestrianExposure, 3)
	check("vehicle exposure", r.VehicleExposure, 3)
	check("road speed", r.RoadSpeed, 3)
	check("facility proximity", r.FacilityProximity, 2)
	return problems
}

func ValidateContext(c *models.Context) []string {
	if c == nil {
		return nil
	}
	var problems []string
	if c.AgeDays < 0 {
		problems = append(problems, "age in days cannot be negative")
	}
	if c.Recurrence < 0 || c.Recurrence > 2 {
		problems = append(problems, "recurrence must be between 0 and 2")
	}
	if c.CriticalCorridor != 0 && c.CriticalCorridor != 1 {
		problems = append(problems, "critical corridor must be 0 or 1")
	}
	return problems
}

// Validate returns the problems with the scoring inputs of rec.
func Validate(rec *models.DefectRecord) []string {
	var problems []string
	problems = append(problems, ValidateMeasurement(rec.Measurement)...)
	problems = append(problems, ValidateRisk(rec.Risk)...)
	problems = append(problems, ValidateContext(rec.Context)...)
	return problems
}

// Apply validates the scoring inputs of rec and refreshes its derived
// area and severity. Stored severity is only ever a cache of this call.
func Apply(rec *models.DefectRecord) error {
	if err := models.NewValidationError(Validate(rec)); err != nil {
		return err
	}

	rec.Measurement.AreaM2 = Area(rec.Measurement.LengthM, rec.Measurement.WidthM)
	rec.Severity = Calculate(rec.Measurement, rec.Risk, rec.Context).Severity()
	return nil
}
