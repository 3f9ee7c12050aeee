package services

import (
	"context"
	"log"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

// logAction appends an audit row. Best-effort: an append failure is written
// to the error log and otherwise ignored, the primary operation goes on.
func logAction(ctx context.Context, store ActionLogStore, errorLog *log.Logger, actionType, status, description, details string) {
	if store == nil {
		return
	}
	err := store.Append(ctx, models.ActionLog{
		ActionType:  actionType,
		Status:      status,
		Description: description,
		Details:     details,
		CreatedAt:   timeutil.Now(),
	})
	if err != nil && errorLog != nil {
		errorLog.Printf("action log: failed to append %s/%s: %v", actionType, status, err)
	}
}
