package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/pqrs/pkg/models"
)

func (r *SQLiteRepo) CreateAgent(ctx context.Context, a *models.Agent) (int64, error) {
	if a == nil {
		return 0, fmt.Errorf("agent is nil")
	}

	res, err := r.conn.Exec(ctx, `INSERT INTO agents (name, email, crew, updated, password_hash) VALUES (?, ?, ?, ?, ?)`,
		a.Name, a.Email, a.Crew, r.now().UnixMilli(), a.PasswordHash)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (r *SQLiteRepo) GetAgentByID(ctx context.Context, id int64) (*models.Agent, error) {
	return r.getAgent(ctx, `SELECT id, name, email, crew, updated, password_hash FROM agents WHERE id = ?`, id)
}

func (r *SQLiteRepo) GetAgentByEmail(ctx context.Context, email string) (*models.Agent, error) {
	return r.getAgent(ctx, `SELECT id, name, email, crew, updated, password_hash FROM agents WHERE email = ?`, email)
}

func (r *SQLiteRepo) getAgent(ctx context.Context, q string, arg any) (*models.Agent, error) {
	var a models.Agent
	if err := r.conn.QueryRow(ctx, q, arg).Scan(&a.ID, &a.Name, &a.Email, &a.Crew, &a.Updated, &a.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &a, nil
}
