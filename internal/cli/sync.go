package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/garnizeh/pqrs/internal/connectivity"
	"github.com/garnizeh/pqrs/internal/syncengine"
	"github.com/garnizeh/pqrs/pkg/gateway"
)

// NewSyncCommand groups manual synchronization subcommands.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize queued records with the remote endpoint",
	}
	cmd.AddCommand(newSyncNowCommand(rootOpts))
	return cmd
}

func newSyncNowCommand(rootOpts *RootOptions) *cobra.Command {
	var endpoint string
	cmd := &cobra.Command{
		Use:   "now",
		Short: "Probe the endpoint and drain the queue once",
		Long: `Probe the remote endpoint and, when it answers, drain the queue once.

Do not run while a server is draining the same database: the drain guard
only covers a single process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			if endpoint != "" {
				s.cfg.Sync.Endpoint = endpoint
			}
			if err := s.cfg.Sync.Validate(); err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "sync config", err), nil, nil)
			}

			gw, err := gateway.NewDefaultClient(s.cfg.Sync.Gateway())
			if err != nil {
				return f.Fail(WrapExitError(ExitCommandError, "gateway", err), nil, nil)
			}
			defer gw.Close()

			monitor := connectivity.NewMonitor(gw, s.cfg.Sync.ProbeInterval, s.logger)
			monitor.Probe(cmd.Context())

			engine := syncengine.New(s.repo, s.repo, gw, monitor, syncengine.Config{MaxAttempts: s.cfg.Sync.MaxAttempts}, s.logger)
			res, err := engine.Drain(cmd.Context())
			if err != nil {
				return f.Fail(WrapExitError(ExitFailure, "drain", err), nil, nil)
			}

			if err := f.Success(res, func(w io.Writer) { printResult(w, res) }); err != nil {
				return err
			}
			if res.Failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d entries failed", res.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "submission endpoint URL (overrides config)")
	return cmd
}

func printResult(w io.Writer, res syncengine.Result) {
	if res.Offline {
		fmt.Fprintf(w, "Offline: endpoint unreachable, %d entries left queued\n", res.Remaining)
		return
	}
	fmt.Fprintf(w, "Synced %d, failed %d, purged %d, remaining %d\n",
		res.Succeeded, res.Failed, res.Purged, res.Remaining)
}
