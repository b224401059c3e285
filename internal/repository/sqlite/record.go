package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/pqrs/internal/severity"
	"github.com/garnizeh/pqrs/pkg/models"
	"github.com/google/uuid"
)

const recordColumns = `id, data, sync_state, sync_error, sync_attempts, last_sync_attempt`

// Save validates, derives area and severity, and upserts the record by id. On
// an existing id only the record body is replaced; the sync columns keep their
// stored values. The caller's record is updated only when the save succeeds.
func (r *SQLiteRepo) Save(ctx context.Context, in *models.DefectRecord) (string, error) {
	if in == nil {
		return "", fmt.Errorf("record is nil")
	}
	rec := in.Clone()

	problems := rec.MissingFields()
	problems = append(problems, severity.Validate(rec)...)
	if err := models.NewValidationError(problems); err != nil {
		return "", err
	}
	if err := severity.Apply(rec); err != nil {
		return "", err
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := r.now()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	if !rec.SyncState.Valid() {
		rec.SyncState = models.SyncLocalOnly
	}

	body := rec.Clone()
	body.SyncState, body.SyncError, body.SyncAttempts, body.LastSyncAttempt = "", "", 0, nil
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var owner string
	err = tx.QueryRowContext(ctx, `SELECT id FROM records WHERE radicado = ?`, rec.Radicado).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", fmt.Errorf("check radicado: %w", err)
	case owner != rec.ID:
		return "", fmt.Errorf("radicado %s already used by record %s: %w", rec.Radicado, owner, models.ErrConflict)
	}

	q := `INSERT INTO records (id, radicado, data, severity_level, timestamp, sync_state, sync_error, sync_attempts, last_sync_attempt, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET radicado = excluded.radicado, data = excluded.data, severity_level = excluded.severity_level, timestamp = excluded.timestamp, updated = excluded.updated`
	_, err = tx.ExecContext(ctx, q,
		rec.ID, rec.Radicado, string(data), string(rec.Severity.Level), rec.Timestamp.UTC().UnixMilli(),
		string(rec.SyncState), rec.SyncError, rec.SyncAttempts, millis(rec.LastSyncAttempt),
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("radicado %s: %w", rec.Radicado, models.ErrConflict)
		}
		return "", fmt.Errorf("save record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}

	*in = *rec
	return rec.ID, nil
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (*models.DefectRecord, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *SQLiteRepo) List(ctx context.Context) ([]models.DefectRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM records`)
}

// ListByState reads through idx_records_sync_state.
func (r *SQLiteRepo) ListByState(ctx context.Context, state models.SyncState) ([]models.DefectRecord, error) {
	return r.queryRecords(ctx, `SELECT `+recordColumns+` FROM records INDEXED BY idx_records_sync_state WHERE sync_state = ?`, string(state))
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM records WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) UpdateSyncState(ctx context.Context, id string, st models.SyncStatus) error {
	if !st.State.Valid() {
		return fmt.Errorf("invalid sync state %q", st.State)
	}
	_, err := r.conn.Exec(ctx,
		`UPDATE records SET sync_state = ?, sync_error = ?, sync_attempts = ?, last_sync_attempt = ?, updated = ? WHERE id = ?`,
		string(st.State), st.Error, st.Attempts, millis(st.LastAttempt), r.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) queryRecords(ctx context.Context, q string, args ...any) ([]models.DefectRecord, error) {
	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DefectRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.DefectRecord, error) {
	var (
		id          string
		data        string
		state       string
		syncErr     string
		attempts    int
		lastAttempt sql.NullInt64
	)
	if err := s.Scan(&id, &data, &state, &syncErr, &attempts, &lastAttempt); err != nil {
		return nil, err
	}

	var rec models.DefectRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	rec.ID = id
	rec.SyncState = models.SyncState(state)
	rec.SyncError = syncErr
	rec.SyncAttempts = attempts
	if lastAttempt.Valid {
		t := fromMillis(lastAttempt.Int64)
		rec.LastSyncAttempt = &t
	}
	return &rec, nil
}
