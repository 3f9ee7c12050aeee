package repositories

import (
	"context"
	"database/sql"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type ActionLogRepository struct {
	DB *sql.DB
}

func (r *ActionLogRepository) Append(ctx context.Context, entry models.ActionLog) error {
	const q = `INSERT INTO action_logs (action_type, status, description, details, created_at)
	           VALUES (?, ?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, q, entry.ActionType, entry.Status, entry.Description, entry.Details, entry.CreatedAt)
	return err
}

func (r *ActionLogRepository) Recent(ctx context.Context, limit, offset int) ([]models.ActionLog, error) {
	const q = `SELECT id, action_type, status, description, details, created_at
	           FROM action_logs ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.ActionLog
	for rows.Next() {
		var e models.ActionLog
		if err := rows.Scan(&e.ID, &e.ActionType, &e.Status, &e.Description, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
