package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type InstallmentPlanRepository struct {
	DB *sql.DB
}

func (r *InstallmentPlanRepository) Create(ctx context.Context, p models.InstallmentPlan) (int, error) {
	const q = `INSERT INTO installment_plans (invoice_id, contract_id, remaining_amount, count, due_day, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q, p.InvoiceID, p.ContractID, p.RemainingAmount, p.Count, p.DueDay, p.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (r *InstallmentPlanRepository) GetByInvoiceID(ctx context.Context, invoiceID int) (models.InstallmentPlan, error) {
	const q = `SELECT id, invoice_id, contract_id, remaining_amount, count, due_day, consumed_at, created_at
	           FROM installment_plans WHERE invoice_id = ?`
	var p models.InstallmentPlan
	var consumed sql.NullTime
	err := r.DB.QueryRowContext(ctx, q, invoiceID).Scan(
		&p.ID, &p.InvoiceID, &p.ContractID, &p.RemainingAmount, &p.Count, &p.DueDay, &consumed, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.InstallmentPlan{}, models.ErrPlanNotFound
	}
	if err != nil {
		return models.InstallmentPlan{}, err
	}
	if consumed.Valid {
		p.ConsumedAt = &consumed.Time
	}
	return p, nil
}

// Consume marks the plan as expanded. The conditional write makes it
// exactly-once: a second caller sees zero rows and skips generation.
func (r *InstallmentPlanRepository) Consume(ctx context.Context, invoiceID int, now time.Time) (bool, error) {
	const q = `UPDATE installment_plans SET consumed_at = ? WHERE invoice_id = ? AND consumed_at IS NULL`
	res, err := r.DB.ExecContext(ctx, q, now, invoiceID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
