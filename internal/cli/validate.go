package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/garnizeh/pqrs/internal/schemas"
)

// ValidationResult is the output of the validate command.
type ValidationResult struct {
	File     string   `json:"file"`
	Version  string   `json:"version"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// NewValidateCommand checks a submission payload against a stored schema.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "validate <payload.json>",
		Short: "Validate a submission payload against the payload schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "read payload", err), nil, nil)
			}

			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			loader, err := schemas.NewLoader(cmd.Context(), s.repo)
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "load schemas", err), nil, nil)
			}
			problems, err := loader.Validate(cmd.Context(), version, doc)
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "validate", err), nil, nil)
			}

			res := ValidationResult{File: args[0], Version: version, Valid: len(problems) == 0, Problems: problems}
			if !res.Valid {
				return f.Fail(NewExitError(ExitFailure, fmt.Sprintf("%s: %d problem(s)", args[0], len(problems))), res, func(w io.Writer) {
					for _, p := range problems {
						fmt.Fprintf(w, "✗ %s\n", p)
					}
				})
			}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s matches schema %s\n", args[0], version)
			})
		},
	}
	cmd.Flags().StringVar(&version, "schema", schemas.CurrentVersion, "payload schema version")
	return cmd
}
