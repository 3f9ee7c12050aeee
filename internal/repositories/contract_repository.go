package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type ContractRepository struct {
	DB *sql.DB
}

func (r *ContractRepository) Create(ctx context.Context, c models.Contract) (int, error) {
	const q = `INSERT INTO contracts (sale_id, user_id, items, total_value, installment_count, status, signature_url, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q, c.SaleID, c.UserID, c.Items, c.TotalValue, c.InstallmentCount, c.Status, c.SignatureURL, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id int) (models.Contract, error) {
	const q = `SELECT id, sale_id, user_id, items, total_value, installment_count, status, signature_url, created_at
	           FROM contracts WHERE id = ?`
	var c models.Contract
	err := r.DB.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.SaleID, &c.UserID, &c.Items, &c.TotalValue, &c.InstallmentCount, &c.Status, &c.SignatureURL, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contract{}, models.ErrContractNotFound
	}
	if err != nil {
		return models.Contract{}, err
	}
	return c, nil
}

// Cancel moves a contract to Cancelado unless it is already there.
// Cancellation is terminal, so the write is a no-op on repeat.
func (r *ContractRepository) Cancel(ctx context.Context, id int) (bool, error) {
	const q = `UPDATE contracts SET status = ? WHERE id = ? AND status != ?`
	res, err := r.DB.ExecContext(ctx, q, models.ContractStatusCancelled, id, models.ContractStatusCancelled)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// CancelBySale cancels the contract written during the given checkout.
func (r *ContractRepository) CancelBySale(ctx context.Context, saleID string) (bool, error) {
	const q = `UPDATE contracts SET status = ? WHERE sale_id = ? AND status != ?`
	res, err := r.DB.ExecContext(ctx, q, models.ContractStatusCancelled, saleID, models.ContractStatusCancelled)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// AttachSignature stores the uploaded signature and promotes the contract to
// Assinado. Only contracts still waiting for a signature are eligible.
func (r *ContractRepository) AttachSignature(ctx context.Context, id int, signatureURL string) (bool, error) {
	const q = `UPDATE contracts SET signature_url = ?, status = ? WHERE id = ? AND status = ?`
	res, err := r.DB.ExecContext(ctx, q, signatureURL, models.ContractStatusSigned, id, models.ContractStatusAwaitingSignature)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// PendingSignatureOlderThan lists contracts still unsigned at the cutoff.
func (r *ContractRepository) PendingSignatureOlderThan(ctx context.Context, cutoff time.Time) ([]models.Contract, error) {
	const q = `SELECT id, sale_id, user_id, items, total_value, installment_count, status, signature_url, created_at
	           FROM contracts WHERE status = ? AND created_at < ?`
	rows, err := r.DB.QueryContext(ctx, q, models.ContractStatusAwaitingSignature, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := rows.Scan(&c.ID, &c.SaleID, &c.UserID, &c.Items, &c.TotalValue, &c.InstallmentCount, &c.Status, &c.SignatureURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}
