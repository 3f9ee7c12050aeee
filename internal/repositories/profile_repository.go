package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type ProfileRepository struct {
	DB *sql.DB
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int) (models.Profile, error) {
	const q = `SELECT user_id, credit_limit, credit_score, coins_balance, preferred_due_day, last_due_date_change, created_at
	           FROM profiles WHERE user_id = ?`
	var p models.Profile
	var lastChange sql.NullTime
	err := r.DB.QueryRowContext(ctx, q, userID).Scan(
		&p.UserID, &p.CreditLimit, &p.CreditScore, &p.CoinsBalance, &p.PreferredDueDay, &lastChange, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, models.ErrProfileNotFound
	}
	if err != nil {
		return models.Profile{}, err
	}
	if lastChange.Valid {
		p.LastDueDateChange = &lastChange.Time
	}
	return p, nil
}

// DebitCoins decrements the coin balance only when it covers the amount.
// The guard lives in the WHERE clause so concurrent spends cannot drive the
// balance negative.
func (r *ProfileRepository) DebitCoins(ctx context.Context, userID, amount int) error {
	const q = `UPDATE profiles SET coins_balance = coins_balance - ? WHERE user_id = ? AND coins_balance >= ?`
	res, err := r.DB.ExecContext(ctx, q, amount, userID, amount)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrInsufficientBalance
	}
	return nil
}

func (r *ProfileRepository) AwardCoins(ctx context.Context, userID, amount int) error {
	const q = `UPDATE profiles SET coins_balance = coins_balance + ? WHERE user_id = ?`
	res, err := r.DB.ExecContext(ctx, q, amount, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) UpdateDueDay(ctx context.Context, userID, day int, changedAt time.Time) error {
	const q = `UPDATE profiles SET preferred_due_day = ?, last_due_date_change = ? WHERE user_id = ?`
	res, err := r.DB.ExecContext(ctx, q, day, changedAt, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) UpdateCredit(ctx context.Context, userID int, creditLimit float64, creditScore int) error {
	const q = `UPDATE profiles SET credit_limit = ?, credit_score = ? WHERE user_id = ?`
	res, err := r.DB.ExecContext(ctx, q, creditLimit, creditScore, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrProfileNotFound
	}
	return nil
}
