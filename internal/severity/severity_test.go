package severity_test

import (
	"errors"
	"testing"

	"github.com/garnizeh/pqrs/internal/severity"
	"github.com/garnizeh/pqrs/pkg/models"
)

func TestCalculate_Scenarios(t *testing.T) {
	cases := []struct {
		name      string
		m         models.Measurement
		r         models.Risk
		ctx       *models.Context
		wantScore int
		wantLevel models.SeverityLevel
		wantSLA   int
		wantSize  int
		wantRisk  int
	}{
		{
			name:      "small pothole low risk",
			m:         models.Measurement{LengthM: 2.0, WidthM: 1.5, AreaM2: severity.Area(2.0, 1.5)},
			r:         models.Risk{PedestrianExposure: 2, VehicleExposure: 1},
			wantScore: 25, wantLevel: models.LevelLow, wantSLA: 168, wantSize: 18, wantRisk: 45,
		},
		{
			name:      "deep pothole capped risk",
			m:         models.Measurement{LengthM: 3.0, WidthM: 2.0, DepthCM: 50, AreaM2: severity.Area(3.0, 2.0)},
			r:         models.Risk{PedestrianExposure: 3, VehicleExposure: 3, RoadSpeed: 2, FacilityProximity: 1},
			wantScore: 62, wantLevel: models.LevelMedium, wantSLA: 72, wantSize: 56, wantRisk: 100,
		},
		{
			name:      "everything at maximum",
			m:         models.Measurement{LengthM: 10, WidthM: 10, DepthCM: 100, AreaM2: 100},
			r:         models.Risk{PedestrianExposure: 3, VehicleExposure: 3, RoadSpeed: 3, FacilityProximity: 2},
			ctx:       &models.Context{AgeDays: 30, Recurrence: 2, CriticalCorridor: 1},
			wantScore: 100, wantLevel: models.LevelHigh, wantSLA: 24, wantSize: 100, wantRisk: 100,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := severity.Calculate(c.m, c.r, c.ctx)
			if got.Score != c.wantScore {
				t.Fatalf("score: want %d got %d", c.wantScore, got.Score)
			}
			if got.Level != c.wantLevel || got.SLAHours != c.wantSLA {
				t.Fatalf("level/sla: want %s/%d got %s/%d", c.wantLevel, c.wantSLA, got.Level, got.SLAHours)
			}
			if got.Components.Size != c.wantSize || got.Components.Risk != c.wantRisk {
				t.Fatalf("components: want T=%d R=%d got %+v", c.wantSize, c.wantRisk, got.Components)
			}
		})
	}
}

func TestCalculate_ContextComponent(t *testing.T) {
	m := models.Measurement{LengthM: 1, WidthM: 1, AreaM2: 1}
	r := models.Risk{}

	// age is capped at 100 on its own before the other terms are added
	got := severity.Calculate(m, r, &models.Context{AgeDays: 40, Recurrence: 0, CriticalCorridor: 0})
	if got.Components.Context != 100 {
		t.Fatalf("expected context 100 got %d", got.Components.Context)
	}

	got = severity.Calculate(m, r, &models.Context{AgeDays: 2, Recurrence: 1, CriticalCorridor: 1})
	if got.Components.Context != 35 {
		t.Fatalf("expected context 35 got %d", got.Components.Context)
	}

	if c := severity.Calculate(m, r, nil).Components.Context; c != 0 {
		t.Fatalf("expected context 0 without context, got %d", c)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	cases := []struct {
		score int
		level models.SeverityLevel
		sla   int
	}{
		{0, models.LevelLow, 168},
		{39, models.LevelLow, 168},
		{40, models.LevelMedium, 72},
		{69, models.LevelMedium, 72},
		{70, models.LevelHigh, 24},
		{100, models.LevelHigh, 24},
	}
	for _, c := range cases {
		level, sla := severity.Classify(c.score)
		if level != c.level || sla != c.sla {
			t.Fatalf("score %d: want %s/%d got %s/%d", c.score, c.level, c.sla, level, sla)
		}
	}
}

func TestCalculate_Monotonic(t *testing.T) {
	base := models.Risk{PedestrianExposure: 1, VehicleExposure: 1, RoadSpeed: 1, FacilityProximity: 1}

	prev := -1
	for a := 0.0; a <= 12; a += 0.25 {
		got := severity.Calculate(models.Measurement{AreaM2: a}, base, nil).Score
		if got < prev {
			t.Fatalf("score decreased with area %.2f: %d < %d", a, got, prev)
		}
		prev = got
	}

	prev = -1
	for d := 0.0; d <= 100; d += 5 {
		got := severity.Calculate(models.Measurement{AreaM2: 2, DepthCM: d}, base, nil).Score
		if got < prev {
			t.Fatalf("score decreased with depth %.0f: %d < %d", d, got, prev)
		}
		prev = got
	}

	bump := []func(r *models.Risk){
		func(r *models.Risk) { r.PedestrianExposure++ },
		func(r *models.Risk) { r.VehicleExposure++ },
		func(r *models.Risk) { r.RoadSpeed++ },
		func(r *models.Risk) { r.FacilityProximity++ },
	}
	limits := []int{3, 3, 3, 2}
	for i, f := range bump {
		r := models.Risk{}
		prev := severity.Calculate(models.Measurement{AreaM2: 2}, r, nil).Score
		for step := 0; step < limits[i]; step++ {
			f(&r)
			got := severity.Calculate(models.Measurement{AreaM2: 2}, r, nil).Score
			if got < prev {
				t.Fatalf("risk factor %d: score decreased %d < %d", i, got, prev)
			}
			prev = got
		}
	}
}

func TestArea(t *testing.T) {
	cases := []struct {
		l, w, want float64
	}{
		{2.0, 1.5, 3.00},
		{1.234, 2.345, 2.89},
		{0.333, 0.333, 0.11},
		{100, 100, 10000},
	}
	for _, c := range cases {
		if got := severity.Area(c.l, c.w); got != c.want {
			t.Fatalf("Area(%v,%v): want %v got %v", c.l, c.w, c.want, got)
		}
	}
}

func TestValidateMeasurement(t *testing.T) {
	cases := []struct {
		name     string
		m        models.Measurement
		problems int
	}{
		{"valid", models.Measurement{LengthM: 1, WidthM: 1}, 0},
		{"valid upper bounds", models.Measurement{LengthM: 100, WidthM: 100, DepthCM: 100}, 0},
		{"zero length", models.Measurement{LengthM: 0, WidthM: 1}, 1},
		{"negative width", models.Measurement{LengthM: 1, WidthM: -1}, 1},
		{"too long and wide", models.Measurement{LengthM: 101, WidthM: 100.5}, 2},
		{"negative depth", models.Measurement{LengthM: 1, WidthM: 1, DepthCM: -1}, 1},
		{"too deep", models.Measurement{LengthM: 1, WidthM: 1, DepthCM: 101}, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := severity.ValidateMeasurement(c.m); len(got) != c.problems {
				t.Fatalf("want %d problems got %v", c.problems, got)
			}
		})
	}
}

func TestApply(t *testing.T) {
	rec := &models.DefectRecord{
		Measurement: models.Measurement{LengthM: 3, WidthM: 2, DepthCM: 50, AreaM2: 999},
		Risk:        models.Risk{PedestrianExposure: 3, VehicleExposure: 3, RoadSpeed: 2, FacilityProximity: 1},
		Severity:    models.Severity{Score: 1, Level: models.LevelHigh, SLAHours: 1},
	}
	if err := severity.Apply(rec); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if rec.Measurement.AreaM2 != 6 {
		t.Fatalf("expected area recomputed to 6 got %v", rec.Measurement.AreaM2)
	}
	if rec.Severity.Score != 62 || rec.Severity.Level != models.LevelMedium || rec.Severity.SLAHours != 72 {
		t.Fatalf("expected hand-set severity replaced, got %+v", rec.Severity)
	}

	bad := &models.DefectRecord{
		Measurement: models.Measurement{LengthM: 0, WidthM: 1},
		Risk:        models.Risk{FacilityProximity: 3},
		Context:     &models.Context{Recurrence: 5},
	}
	err := severity.Apply(bad)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError got %v", err)
	}
	if len(verr.Problems) != 3 {
		t.Fatalf("expected 3 problems got %v", verr.Problems)
	}
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected error to wrap ErrValidation")
	}
}
