package sqlite

import (
	"io"
	"time"

	"log/slog"

	"github.com/garnizeh/pqrs/internal/db"
	"github.com/garnizeh/pqrs/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *slog.Logger
	clock  func() time.Time
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.RecordStore = (*SQLiteRepo)(nil)
var _ repository.SyncQueue = (*SQLiteRepo)(nil)
var _ repository.AgentRepo = (*SQLiteRepo)(nil)
var _ repository.SchemaRepo = (*SQLiteRepo)(nil)
var _ repository.ReceiptRepo = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *slog.Logger) *SQLiteRepo {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SQLiteRepo{conn: conn, logger: logger, clock: time.Now}
}

// WithClock replaces the time source used for created/updated stamps.
func (r *SQLiteRepo) WithClock(clock func() time.Time) *SQLiteRepo {
	r.clock = clock
	return r
}

func (r *SQLiteRepo) now() time.Time {
	return r.clock().UTC()
}

func millis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
