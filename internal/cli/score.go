package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garnizeh/pqrs/internal/severity"
	"github.com/garnizeh/pqrs/pkg/models"
)

// ScoreResult is the output of the score command.
type ScoreResult struct {
	AreaM2 float64 `json:"area_m2"`
	severity.Result
}

// NewScoreCommand computes a severity score from flags, without a database.
func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		m models.Measurement
		r models.Risk
		c models.Context
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the severity index of a defect",
		Example: `  pqrsctl score --length 3 --width 2 --depth 50 --pedestrian 3 --vehicle 3 --speed 2 --proximity 1
  pqrsctl score --length 0.5 --width 0.5 --age-days 20 --recurrence 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			withCtx := cmd.Flags().Changed("age-days") || cmd.Flags().Changed("recurrence") || cmd.Flags().Changed("corridor")

			var ctx *models.Context
			if withCtx {
				ctx = &c
			}
			var problems []string
			problems = append(problems, severity.ValidateMeasurement(m)...)
			problems = append(problems, severity.ValidateRisk(r)...)
			problems = append(problems, severity.ValidateContext(ctx)...)
			if len(problems) > 0 {
				return f.Fail(NewExitError(ExitCommandError, strings.Join(problems, "; ")), problems, func(w io.Writer) {
					for _, p := range problems {
						fmt.Fprintf(w, "✗ %s\n", p)
					}
				})
			}

			m.AreaM2 = severity.Area(m.LengthM, m.WidthM)
			res := ScoreResult{AreaM2: m.AreaM2, Result: severity.Calculate(m, r, ctx)}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Area: %.2f m²\n", res.AreaM2)
				fmt.Fprintf(w, "Score: %d (%s), SLA %dh\n", res.Score, res.Level, res.SLAHours)
				fmt.Fprintf(w, "Components: size %d, risk %d, context %d\n",
					res.Components.Size, res.Components.Risk, res.Components.Context)
			})
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&m.LengthM, "length", 0, "length in meters")
	fl.Float64Var(&m.WidthM, "width", 0, "width in meters")
	fl.Float64Var(&m.DepthCM, "depth", 0, "depth in centimeters")
	fl.IntVar(&r.PedestrianExposure, "pedestrian", 0, "pedestrian exposure (0-3)")
	fl.IntVar(&r.VehicleExposure, "vehicle", 0, "vehicle exposure (0-3)")
	fl.IntVar(&r.RoadSpeed, "speed", 0, "road speed class (0-3)")
	fl.IntVar(&r.FacilityProximity, "proximity", 0, "proximity to schools or hospitals (0-2)")
	fl.IntVar(&c.AgeDays, "age-days", 0, "days since the defect appeared")
	fl.IntVar(&c.Recurrence, "recurrence", 0, "recurrence (0-2)")
	fl.IntVar(&c.CriticalCorridor, "corridor", 0, "critical corridor (0|1)")
	_ = cmd.MarkFlagRequired("length")
	_ = cmd.MarkFlagRequired("width")

	return cmd
}
