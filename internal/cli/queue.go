package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garnizeh/pqrs/pkg/models"
)

// NewQueueCommand groups sync queue inspection subcommands.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect the sync queue",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pending entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			entries, err := s.repo.ListQueue(cmd.Context())
			if err != nil {
				return f.Fail(WrapExitError(ExitFailure, "list queue", err), nil, nil)
			}
			if entries == nil {
				entries = []models.QueueEntry{}
			}

			return f.Success(entries, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "QUEUE ID\tRADICADO\tACTION\tATTEMPTS\tCREATED\tLAST ERROR")
				for _, e := range entries {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
						e.ID, e.Snapshot.Radicado, e.Action, e.Attempts, e.CreatedAt.Format("2006-01-02 15:04:05"), e.LastError)
				}
				tw.Flush()
				fmt.Fprintf(w, "%d pending\n", len(entries))
			})
		},
	})
	return cmd
}
