package cli

import (
	"context"
	"log/slog"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/pqrs/db"
	"github.com/garnizeh/pqrs/internal/config"
	"github.com/garnizeh/pqrs/internal/db"
	"github.com/garnizeh/pqrs/internal/repository/sqlite"
	"github.com/garnizeh/pqrs/pkg/gateway"
)

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// logger writes styled diagnostics to stderr so JSON output stays clean.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := charmLog.WarnLevel
	if o.Verbose {
		level = charmLog.DebugLevel
	}
	handler := charmLog.NewWithOptions(cmd.ErrOrStderr(), charmLog.Options{
		Level:           level,
		Prefix:          "pqrsctl",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Formatter:       charmLog.TextFormatter,
	})
	l := slog.New(handler)
	gateway.SetLogger(l)
	return l
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if o.DBPath != "" {
		cfg.DatabasePath = o.DBPath
	}
	return cfg, nil
}

// session is an open, migrated database plus the repository over it.
type session struct {
	cfg    *config.Config
	db     *db.DB
	repo   *sqlite.SQLiteRepo
	logger *slog.Logger
}

func (s *session) Close() error { return s.db.Close() }

func (o *RootOptions) open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd)

	d, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		_ = d.Close()
		return nil, WrapExitError(ExitCommandError, "migrate database", err)
	}
	logger.Debug("database ready", "path", cfg.DatabasePath)

	return &session{cfg: cfg, db: d, repo: sqlite.New(d, logger), logger: logger}, nil
}
