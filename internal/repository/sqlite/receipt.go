package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/pqrs/pkg/models"
)

// SaveReceipt records an accepted submission. A resubmission of the same
// case number replaces the previous payload.
func (r *SQLiteRepo) SaveReceipt(ctx context.Context, rc *models.Receipt) error {
	if rc == nil || rc.CaseNumber == "" {
		return fmt.Errorf("receipt case number is required")
	}
	if rc.ReceivedAt.IsZero() {
		rc.ReceivedAt = r.now()
	}
	_, err := r.conn.Exec(ctx, `INSERT INTO received_submissions (case_number, payload, received_at) VALUES (?, ?, ?)
		ON CONFLICT(case_number) DO UPDATE SET payload = excluded.payload, received_at = excluded.received_at`,
		rc.CaseNumber, rc.PayloadJSON, rc.ReceivedAt.UTC().UnixMilli())
	return err
}

func (r *SQLiteRepo) GetReceipt(ctx context.Context, caseNumber string) (*models.Receipt, error) {
	var (
		rc models.Receipt
		at int64
	)
	err := r.conn.QueryRow(ctx, `SELECT case_number, payload, received_at FROM received_submissions WHERE case_number = ?`, caseNumber).
		Scan(&rc.CaseNumber, &rc.PayloadJSON, &at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rc.ReceivedAt = fromMillis(at)
	return &rc, nil
}
