package models

import "time"

// Profile holds the credit state of a customer. One row per user.
type Profile struct {
	UserID            int        `json:"user_id"`
	CreditLimit       float64    `json:"credit_limit"`
	CreditScore       int        `json:"credit_score"`
	CoinsBalance      int        `json:"coins_balance"`
	PreferredDueDay   int        `json:"preferred_due_day"`
	LastDueDateChange *time.Time `json:"last_due_date_change,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// DueDayCooldown is the minimum interval between preferred due day changes.
const DueDayCooldown = 90 * 24 * time.Hour
