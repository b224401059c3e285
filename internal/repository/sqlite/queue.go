package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garnizeh/pqrs/pkg/models"
)

// Enqueue appends a mutation for rec. The record is serialized at call time,
// later edits to rec do not reach the stored snapshot.
func (r *SQLiteRepo) Enqueue(ctx context.Context, rec *models.DefectRecord, action models.Action) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("record is nil")
	}
	if rec.ID == "" {
		return 0, fmt.Errorf("enqueue: record id is required")
	}
	payload, err := snapshot(rec, action)
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}

	q := `INSERT INTO sync_queue (record_id, action, payload, attempts, created_at) VALUES (?, ?, ?, 0, ?)`
	res, err := r.conn.Exec(ctx, q, rec.ID, string(action), string(payload), r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("enqueue failed: %w", err)
	}
	return res.LastInsertId()
}

func snapshot(rec *models.DefectRecord, action models.Action) ([]byte, error) {
	if action != models.ActionCreate && action != models.ActionUpdate {
		return nil, fmt.Errorf("unknown action %q", action)
	}
	payload, err := json.Marshal(rec.Clone())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return payload, nil
}

func (r *SQLiteRepo) EntryForRecord(ctx context.Context, recordID string) (*models.QueueEntry, error) {
	q := `SELECT id, record_id, action, attempts, last_attempt, last_error, created_at FROM sync_queue WHERE record_id = ? ORDER BY created_at ASC, id ASC LIMIT 1`
	var (
		e           models.QueueEntry
		action      string
		lastAttempt sql.NullInt64
		createdAt   int64
	)
	err := r.conn.QueryRow(ctx, q, recordID).Scan(&e.ID, &e.RecordID, &action, &e.Attempts, &lastAttempt, &e.LastError, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue entry for record %s: %w", recordID, err)
	}
	e.Action = models.Action(action)
	e.CreatedAt = fromMillis(createdAt)
	if lastAttempt.Valid {
		t := fromMillis(lastAttempt.Int64)
		e.LastAttempt = &t
	}
	return &e, nil
}

func (r *SQLiteRepo) RefreshEntry(ctx context.Context, id int64, rec *models.DefectRecord, action models.Action) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}
	payload, err := snapshot(rec, action)
	if err != nil {
		return fmt.Errorf("refresh entry %d: %w", id, err)
	}
	if _, err := r.conn.Exec(ctx, `UPDATE sync_queue SET action = ?, payload = ? WHERE id = ?`, string(action), string(payload), id); err != nil {
		return fmt.Errorf("refresh entry %d: %w", id, err)
	}
	return nil
}

// ListQueue returns the queue in FIFO order. An entry whose snapshot cannot
// be decoded is returned with an empty snapshot so the engine purges it.
func (r *SQLiteRepo) ListQueue(ctx context.Context) ([]models.QueueEntry, error) {
	q := `SELECT id, record_id, action, payload, attempts, last_attempt, last_error, created_at FROM sync_queue ORDER BY created_at ASC, id ASC`
	rows, err := r.conn.QueryRows(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var out []models.QueueEntry
	for rows.Next() {
		var (
			e           models.QueueEntry
			action      string
			payload     string
			lastAttempt sql.NullInt64
			createdAt   int64
		)
		if err := rows.Scan(&e.ID, &e.RecordID, &action, &payload, &e.Attempts, &lastAttempt, &e.LastError, &createdAt); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.Action = models.Action(action)
		e.CreatedAt = fromMillis(createdAt)
		if lastAttempt.Valid {
			t := fromMillis(lastAttempt.Int64)
			e.LastAttempt = &t
		}
		if err := json.Unmarshal([]byte(payload), &e.Snapshot); err != nil {
			r.logger.Warn("undecodable queue snapshot", "queue_id", e.ID, "err", err)
			e.Snapshot = models.DefectRecord{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) UpdateEntry(ctx context.Context, e *models.QueueEntry) error {
	if e == nil {
		return fmt.Errorf("queue entry is nil")
	}
	_, err := r.conn.Exec(ctx, `UPDATE sync_queue SET attempts = ?, last_attempt = ?, last_error = ? WHERE id = ?`,
		e.Attempts, millis(e.LastAttempt), e.LastError, e.ID)
	if err != nil {
		return fmt.Errorf("update queue entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) RemoveEntry(ctx context.Context, id int64) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) QueueSize(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM sync_queue`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
