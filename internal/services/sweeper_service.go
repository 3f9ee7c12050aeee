package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

const (
	// Open down payments are cancelled after this long.
	DownPaymentTimeout = 12 * time.Hour
	// Unsigned contracts are cancelled after this long.
	SignatureTimeout = 24 * time.Hour
	// Installment reminders go out this many days before the due date,
	// and again on the day itself.
	ReminderLeadDays = 3

	sweepLockKey = "sweep:lock"
	sweepLockTTL = 5 * time.Minute
)

// SweepLocker serializes overlapping sweep triggers. TryLock reports whether
// this run got the lock; Unlock releases it after the run.
type SweepLocker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// SweeperService is the periodic cleanup job: it cancels stale checkouts and
// sends due-date reminders. Each row is best-effort; one bad row never stops
// the rest of the sweep.
type SweeperService struct {
	Invoices  InvoiceStore
	Contracts ContractStore
	Notifier  Notifier
	Actions   ActionLogStore
	Lock      SweepLocker
	InfoLog   *log.Logger
	ErrorLog  *log.Logger
}

type SweepSummary struct {
	Skipped            bool `json:"skipped"`
	DownPaymentsVoided int  `json:"down_payments_voided"`
	SiblingsCancelled  int  `json:"siblings_cancelled"`
	ContractsCancelled int  `json:"contracts_cancelled"`
	RemindersSent      int  `json:"reminders_sent"`
	Failures           int  `json:"failures"`
}

// Sweep runs the three passes once. Re-running is always safe: every
// cancellation is a conditional write and reminders dedupe per day. The
// advisory lock only keeps overlapping triggers from doing the same scan
// twice.
func (s *SweeperService) Sweep(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary

	unlock, acquired := s.tryLock(ctx)
	if !acquired {
		summary.Skipped = true
		s.InfoLog.Printf("sweep: another run holds the lock, skipping")
		return summary, nil
	}
	defer unlock()

	now := timeutil.Now()
	s.expireDownPayments(ctx, now, &summary)
	s.expireUnsignedContracts(ctx, now, &summary)
	s.sendReminders(ctx, now, &summary)

	logAction(ctx, s.Actions, s.ErrorLog, "sweep", models.ActionStatusSuccess,
		"scheduled sweep finished",
		fmt.Sprintf("down_payments=%d siblings=%d contracts=%d reminders=%d failures=%d",
			summary.DownPaymentsVoided, summary.SiblingsCancelled, summary.ContractsCancelled,
			summary.RemindersSent, summary.Failures))
	return summary, nil
}

// expireDownPayments cancels down payments unpaid past the 12h window, along
// with every sibling row of the same checkout.
func (s *SweeperService) expireDownPayments(ctx context.Context, now time.Time, summary *SweepSummary) {
	expired, err := s.Invoices.ExpiredDownPayments(ctx, now.Add(-DownPaymentTimeout))
	if err != nil {
		s.ErrorLog.Printf("sweep: failed to list expired down payments: %v", err)
		summary.Failures++
		return
	}

	for _, inv := range expired {
		applied, err := s.Invoices.Transition(ctx, inv.ID, models.InvoiceStatusCancelled)
		if err != nil {
			s.ErrorLog.Printf("sweep: failed to cancel invoice %d: %v", inv.ID, err)
			summary.Failures++
			continue
		}
		if !applied {
			// Settled between the scan and the write. Leave it alone.
			continue
		}
		summary.DownPaymentsVoided++

		siblings, err := s.Invoices.CancelBySale(ctx, inv.SaleID, inv.ID)
		if err != nil {
			s.ErrorLog.Printf("sweep: failed to cancel siblings of sale %s: %v", inv.SaleID, err)
			summary.Failures++
		} else {
			summary.SiblingsCancelled += siblings
		}

		cancelled, err := s.Contracts.CancelBySale(ctx, inv.SaleID)
		if err != nil {
			s.ErrorLog.Printf("sweep: failed to cancel contract of sale %s: %v", inv.SaleID, err)
			summary.Failures++
		} else if cancelled {
			summary.ContractsCancelled++
		}

		s.Notifier.Notify(ctx, inv.UserID, "Compra cancelada",
			"A entrada da sua compra não foi paga em 12 horas e o pedido foi cancelado.",
			models.NotificationTypeCancellation)
	}
}

// expireUnsignedContracts cancels contracts unsigned past the 24h window and
// the signature-gated invoices of the same checkout.
func (s *SweeperService) expireUnsignedContracts(ctx context.Context, now time.Time, summary *SweepSummary) {
	pending, err := s.Contracts.PendingSignatureOlderThan(ctx, now.Add(-SignatureTimeout))
	if err != nil {
		s.ErrorLog.Printf("sweep: failed to list unsigned contracts: %v", err)
		summary.Failures++
		return
	}

	for _, contract := range pending {
		applied, err := s.Contracts.Cancel(ctx, contract.ID)
		if err != nil {
			s.ErrorLog.Printf("sweep: failed to cancel contract %d: %v", contract.ID, err)
			summary.Failures++
			continue
		}
		if !applied {
			continue
		}
		summary.ContractsCancelled++

		cancelled, err := s.Invoices.CancelAwaitingSignatureBySale(ctx, contract.SaleID)
		if err != nil {
			s.ErrorLog.Printf("sweep: failed to cancel invoices of sale %s: %v", contract.SaleID, err)
			summary.Failures++
		} else {
			summary.SiblingsCancelled += cancelled
		}

		s.Notifier.Notify(ctx, contract.UserID, "Contrato cancelado",
			"Seu contrato não foi assinado em 24 horas e a compra foi cancelada.",
			models.NotificationTypeCancellation)
	}
}

// sendReminders notifies users whose installments are due today or in three
// days. A reminder with the same title is sent at most once per user per day.
func (s *SweeperService) sendReminders(ctx context.Context, now time.Time, summary *SweepSummary) {
	passes := []struct {
		day   time.Time
		title string
	}{
		{now, "Fatura vence hoje"},
		{now.AddDate(0, 0, ReminderLeadDays), fmt.Sprintf("Fatura vence em %d dias", ReminderLeadDays)},
	}

	for _, pass := range passes {
		due, err := s.Invoices.DueOn(ctx, pass.day)
		if err != nil {
			s.ErrorLog.Printf("sweep: failed to list invoices due %s: %v", pass.day.Format("2006-01-02"), err)
			summary.Failures++
			continue
		}
		for _, inv := range due {
			sent, err := s.Notifier.SentToday(ctx, inv.UserID, pass.title)
			if err != nil {
				s.ErrorLog.Printf("sweep: reminder dedupe check failed for user %d: %v", inv.UserID, err)
				summary.Failures++
				continue
			}
			if sent {
				continue
			}
			s.Notifier.Notify(ctx, inv.UserID, pass.title,
				fmt.Sprintf("Sua fatura de R$ %.2f vence em %s.", inv.Amount, inv.DueDate.Format("02/01/2006")),
				models.NotificationTypeReminder)
			summary.RemindersSent++
		}
	}
}

// tryLock takes the advisory lock. Without one configured the sweep relies on
// the scheduler's own single-instance guarantee.
func (s *SweeperService) tryLock(ctx context.Context) (func(), bool) {
	if s.Lock == nil {
		return func() {}, true
	}
	ok, err := s.Lock.TryLock(ctx)
	if err != nil {
		// Lock store down must not stop the sweep; the passes are idempotent.
		s.ErrorLog.Printf("sweep: advisory lock unavailable: %v", err)
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	return func() {
		if err := s.Lock.Unlock(ctx); err != nil {
			s.ErrorLog.Printf("sweep: failed to release lock: %v", err)
		}
	}, true
}

// RedisSweepLock backs SweepLocker with a Redis SET NX key so only one
// instance sweeps at a time.
type RedisSweepLock struct {
	Client *redis.Client
}

func (l *RedisSweepLock) TryLock(ctx context.Context) (bool, error) {
	return l.Client.SetNX(ctx, sweepLockKey, timeutil.Now().Format(time.RFC3339), sweepLockTTL).Result()
}

func (l *RedisSweepLock) Unlock(ctx context.Context) error {
	return l.Client.Del(context.WithoutCancel(ctx), sweepLockKey).Err()
}
