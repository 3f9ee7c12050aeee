package models

import "time"

const (
	ActionStatusSuccess = "SUCCESS"
	ActionStatusFailure = "FAILURE"
)

// ActionLog is an append-only audit row. Writing it is best-effort: a failed
// append never blocks the operation it describes.
type ActionLog struct {
	ID          int       `json:"id"`
	ActionType  string    `json:"action_type"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
