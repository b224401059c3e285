package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garnizeh/pqrs/internal/db"
)

// DBResult describes the outcome of a db subcommand.
type DBResult struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Source string `json:"source,omitempty"`
}

// NewDBCommand groups database maintenance subcommands.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Initialize, back up and restore the field database",
	}
	cmd.AddCommand(newDBInitCommand(rootOpts))
	cmd.AddCommand(newDBBackupCommand(rootOpts))
	cmd.AddCommand(newDBRestoreCommand(rootOpts))
	return cmd
}

func newDBInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			res := DBResult{Action: "init", Path: s.cfg.DatabasePath}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Database initialized at %s\n", res.Path)
			})
		},
	}
}

func newDBBackupCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database",
		Long: `Write a consistent copy of the database with VACUUM INTO.

The copy is taken inside SQLite, so it is safe while the server is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.open(cmd.Context(), cmd)
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			defer s.Close()

			dst := output
			if dst == "" {
				dst = s.cfg.DatabasePath + ".bak"
			}
			if err := backup(cmd.Context(), s.db, dst, force); err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}

			res := DBResult{Action: "backup", Path: dst, Source: s.cfg.DatabasePath}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Database backup written to %s\n", dst)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "backup file (default <database>.bak)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing backup file")
	return cmd
}

func backup(ctx context.Context, d *db.DB, dst string, force bool) error {
	if _, err := os.Stat(dst); err == nil {
		if !force {
			return NewExitError(ExitCommandError, fmt.Sprintf("%s already exists; use --force to overwrite", dst))
		}
		if err := os.Remove(dst); err != nil {
			return WrapExitError(ExitCommandError, "remove old backup", err)
		}
	}
	if _, err := d.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		return WrapExitError(ExitFailure, "backup", err)
	}
	return nil
}

func newDBRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the database with a backup",
		Long: `Replace the database with a backup file.

The backup is opened and checked for migration history before it is
copied over the database. Stop the server first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			logger := rootOpts.logger(cmd)

			src := args[0]
			if err := checkBackup(cmd.Context(), src); err != nil {
				return f.Fail(asExitError(err), nil, nil)
			}
			if err := copyFile(src, cfg.DatabasePath); err != nil {
				return f.Fail(WrapExitError(ExitFailure, "restore", err), nil, nil)
			}
			logger.Info("database restored", "from", src, "to", cfg.DatabasePath)

			res := DBResult{Action: "restore", Path: cfg.DatabasePath, Source: src}
			return f.Success(res, func(w io.Writer) {
				fmt.Fprintf(w, "Database restored from %s\n", src)
			})
		},
	}
}

func checkBackup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "backup not found", err)
	}
	d, err := db.New(ctx, path, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "open backup", err)
	}
	defer d.Close()

	var n int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&n); err != nil || n == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s is not a pqrs database", path))
	}
	return nil
}

// copyFile writes src to a temp file next to dst and renames it into place.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".restore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func asExitError(err error) *ExitError {
	var e *ExitError
	if errors.As(err, &e) {
		return e
	}
	return WrapExitError(ExitFailure, "command failed", err)
}
