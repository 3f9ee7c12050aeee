package models

import "time"

const (
	NotificationTypeCashback     = "cashback"
	NotificationTypeReminder     = "reminder"
	NotificationTypeCancellation = "cancellation"
)

// Notification is a user-facing message. Append-only.
type Notification struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
