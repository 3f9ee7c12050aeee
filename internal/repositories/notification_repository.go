package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type NotificationRepository struct {
	DB *sql.DB
}

func (r *NotificationRepository) Create(ctx context.Context, n models.Notification) (int, error) {
	const q = `INSERT INTO notifications (user_id, title, message, type, is_read, created_at)
	           VALUES (?, ?, ?, ?, FALSE, ?)`
	res, err := r.DB.ExecContext(ctx, q, n.UserID, n.Title, n.Message, n.Type, n.CreatedAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// SentToday reports whether the user already got a notification with this
// title today. Keeps the sweeper from stacking duplicate reminders when the
// scheduler fires more than once a day.
func (r *NotificationRepository) SentToday(ctx context.Context, userID int, title string, day time.Time) (bool, error) {
	const q = `SELECT 1 FROM notifications WHERE user_id = ? AND title = ? AND DATE(created_at) = DATE(?) LIMIT 1`
	var x int
	err := r.DB.QueryRowContext(ctx, q, userID, title, day).Scan(&x)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *NotificationRepository) UnreadByUser(ctx context.Context, userID int) ([]models.Notification, error) {
	const q = `SELECT id, user_id, title, message, type, is_read, created_at
	           FROM notifications WHERE user_id = ? AND is_read = FALSE ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ?`, id)
	return err
}

// SaveDeviceToken registers an FCM token, replacing a stale owner if the
// token moved to another account.
func (r *NotificationRepository) SaveDeviceToken(ctx context.Context, userID int, token string) error {
	const q = `INSERT INTO device_tokens (user_id, token)
	           VALUES (?, ?)
	           ON DUPLICATE KEY UPDATE user_id = VALUES(user_id)`
	_, err := r.DB.ExecContext(ctx, q, userID, token)
	return err
}

// DeviceTokens lists the registered FCM tokens for a user.
func (r *NotificationRepository) DeviceTokens(ctx context.Context, userID int) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT token FROM device_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
