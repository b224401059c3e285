package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garnizeh/pqrs/internal/records"
	"github.com/garnizeh/pqrs/pkg/models"
)

// NewRecordsCommand groups record inspection subcommands.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record"},
		Short:   "List, show and delete defect records",
	}
	cmd.AddCommand(newRecordsListCommand(rootOpts))
	cmd.AddCommand(newRecordsShowCommand(rootOpts))
	cmd.AddCommand(newRecordsDeleteCommand(rootOpts))
	return cmd
}

func newRecordsListCommand(rootOpts *RootOptions) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			svc := records.NewService(s.repo, nil, s.logger)
			recs, err := svc.List(cmd.Context(), models.SyncState(state))
			if err != nil {
				if errors.Is(err, models.ErrValidation) {
					return f.Fail(WrapExitError(ExitCommandError, "list records", err), nil, nil)
				}
				return f.Fail(WrapExitError(ExitFailure, "list records", err), nil, nil)
			}
			if recs == nil {
				recs = []models.DefectRecord{}
			}

			return f.Success(recs, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RADICADO\tCLASSIFICATION\tSEVERITY\tSLA\tSYNC\tID")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%s\t%d %s\t%dh\t%s\t%s\n",
						r.Radicado, r.Classification, r.Severity.Score, r.Severity.Level, r.Severity.SLAHours, r.SyncState, r.ID)
				}
				tw.Flush()
				fmt.Fprintf(w, "%d record(s)\n", len(recs))
			})
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only records in this sync state (local_only|queued|synced|error)")
	return cmd
}

func newRecordsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			rec, err := s.repo.Get(cmd.Context(), args[0])
			if err != nil {
				return f.Fail(WrapExitError(ExitFailure, "get record", err), nil, nil)
			}
			if rec == nil {
				return f.Fail(NewExitError(ExitFailure, fmt.Sprintf("record %s not found", args[0])), nil, nil)
			}

			return f.Success(rec, func(w io.Writer) { printRecord(w, rec) })
		},
	}
}

func printRecord(w io.Writer, r *models.DefectRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", r.ID)
	fmt.Fprintf(tw, "Radicado\t%s\n", r.Radicado)
	fmt.Fprintf(tw, "Type\t%s\n", r.Type)
	fmt.Fprintf(tw, "Classification\t%s\n", r.Classification)
	fmt.Fprintf(tw, "Location\t%.6f, %.6f %s\n", r.Location.Lat, r.Location.Lon, r.Location.Address)
	fmt.Fprintf(tw, "Size\t%.2f x %.2f m, %.0f cm deep (%.2f m²)\n",
		r.Measurement.LengthM, r.Measurement.WidthM, r.Measurement.DepthCM, r.Measurement.AreaM2)
	fmt.Fprintf(tw, "Severity\t%d %s, SLA %dh\n", r.Severity.Score, r.Severity.Level, r.Severity.SLAHours)
	fmt.Fprintf(tw, "Responsible\t%s\n", r.Operation.Responsible)
	fmt.Fprintf(tw, "Status\t%s\n", r.Operation.Status)
	fmt.Fprintf(tw, "Captured\t%s\n", r.Timestamp.Format("2006-01-02 15:04"))
	fmt.Fprintf(tw, "Sync\t%s (attempts %d)\n", r.SyncState, r.SyncAttempts)
	if r.SyncError != "" {
		fmt.Fprintf(tw, "Sync error\t%s\n", r.SyncError)
	}
	tw.Flush()
}

func newRecordsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			svc := records.NewService(s.repo, nil, s.logger)
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return f.Fail(WrapExitError(ExitFailure, "delete record", err), nil, nil)
			}

			return f.Success(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %s\n", args[0])
			})
		},
	}
}
