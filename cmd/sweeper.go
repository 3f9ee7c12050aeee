package main

import (
	"context"
	"log"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/services"
)

const sweepRunTimeout = 2 * time.Minute

// startExpirationSweeper runs the cleanup passes on a fixed interval: stale
// down payments, unsigned contracts and due-date reminders. The first run
// fires immediately so a restart never extends an expiry window.
func startExpirationSweeper(ctx context.Context, sweeper *services.SweeperService, interval time.Duration, infoLog, errorLog *log.Logger) {
	if sweeper == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, sweepRunTimeout)
			summary, err := sweeper.Sweep(runCtx)
			cancel()
			if err != nil {
				if errorLog != nil {
					errorLog.Printf("sweeper: run failed: %v", err)
				}
				return
			}
			if summary.Skipped {
				return
			}
			if infoLog != nil && (summary.DownPaymentsVoided > 0 || summary.ContractsCancelled > 0 || summary.RemindersSent > 0) {
				infoLog.Printf("sweeper: voided %d down payments, cancelled %d contracts, sent %d reminders",
					summary.DownPaymentsVoided, summary.ContractsCancelled, summary.RemindersSent)
			}
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}
