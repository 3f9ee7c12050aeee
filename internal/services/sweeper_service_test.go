package services

import (
	"context"
	"testing"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

type sweeperFixture struct {
	svc       *SweeperService
	invoices  *fakeInvoiceStore
	contracts *fakeContractStore
	notifier  *fakeNotifier
	actions   *fakeActionLog
}

func newSweeperFixture() *sweeperFixture {
	f := &sweeperFixture{
		invoices:  newFakeInvoiceStore(),
		contracts: newFakeContractStore(),
		notifier:  newFakeNotifier(),
		actions:   &fakeActionLog{},
	}
	f.svc = &SweeperService{
		Invoices:  f.invoices,
		Contracts: f.contracts,
		Notifier:  f.notifier,
		Actions:   f.actions,
		InfoLog:   discardLog(),
		ErrorLog:  discardLog(),
	}
	return f
}

func TestSweepExpiresStaleDownPayments(t *testing.T) {
	f := newSweeperFixture()
	now := timeutil.Now()

	stale := f.invoices.add(models.Invoice{
		SaleID: "S1", UserID: 7, Amount: 400, Status: models.InvoiceStatusOpen,
		DownPayment: true, CreatedAt: now.Add(-13 * time.Hour),
	})
	fresh := f.invoices.add(models.Invoice{
		SaleID: "S2", UserID: 8, Amount: 400, Status: models.InvoiceStatusOpen,
		DownPayment: true, CreatedAt: now.Add(-11 * time.Hour),
	})
	sibling := f.invoices.add(models.Invoice{
		SaleID: "S1", UserID: 7, Amount: 200, Status: models.InvoiceStatusOpen,
		CreatedAt: now.Add(-13 * time.Hour), DueDate: now.AddDate(0, 1, 0),
	})
	_, _ = f.contracts.Create(context.Background(), models.Contract{
		SaleID: "S1", UserID: 7, Status: models.ContractStatusSigned, CreatedAt: now.Add(-13 * time.Hour),
	})

	summary, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if summary.DownPaymentsVoided != 1 {
		t.Fatalf("expected 1 voided down payment, got %d", summary.DownPaymentsVoided)
	}

	got, _ := f.invoices.GetByID(context.Background(), stale.ID)
	if got.Status != models.InvoiceStatusCancelled {
		t.Fatalf("13h-old entry not cancelled: %s", got.Status)
	}
	got, _ = f.invoices.GetByID(context.Background(), fresh.ID)
	if got.Status != models.InvoiceStatusOpen {
		t.Fatalf("11h-old entry should stay open: %s", got.Status)
	}
	got, _ = f.invoices.GetByID(context.Background(), sibling.ID)
	if got.Status != models.InvoiceStatusCancelled {
		t.Fatalf("sibling installment not cancelled: %s", got.Status)
	}
	contract, _ := f.contracts.GetByID(context.Background(), 1)
	if contract.Status != models.ContractStatusCancelled {
		t.Fatalf("contract not cancelled: %s", contract.Status)
	}
	if len(f.notifier.sent) == 0 || f.notifier.sent[0].Type != models.NotificationTypeCancellation {
		t.Fatalf("expected cancellation notification, got %+v", f.notifier.sent)
	}
}

func TestSweepCancelsUnsignedContracts(t *testing.T) {
	f := newSweeperFixture()
	now := timeutil.Now()

	_, _ = f.contracts.Create(context.Background(), models.Contract{
		SaleID: "S1", UserID: 7, Status: models.ContractStatusAwaitingSignature,
		CreatedAt: now.Add(-25 * time.Hour),
	})
	_, _ = f.contracts.Create(context.Background(), models.Contract{
		SaleID: "S2", UserID: 8, Status: models.ContractStatusAwaitingSignature,
		CreatedAt: now.Add(-23 * time.Hour),
	})
	gated := f.invoices.add(models.Invoice{
		SaleID: "S1", UserID: 7, Amount: 400, Status: models.InvoiceStatusAwaitingSignature,
		DownPayment: true, CreatedAt: now.Add(-25 * time.Hour),
	})

	summary, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if summary.ContractsCancelled != 1 {
		t.Fatalf("expected 1 cancelled contract, got %d", summary.ContractsCancelled)
	}

	c1, _ := f.contracts.GetByID(context.Background(), 1)
	if c1.Status != models.ContractStatusCancelled {
		t.Fatalf("25h-old contract not cancelled: %s", c1.Status)
	}
	c2, _ := f.contracts.GetByID(context.Background(), 2)
	if c2.Status != models.ContractStatusAwaitingSignature {
		t.Fatalf("23h-old contract should stay pending: %s", c2.Status)
	}
	got, _ := f.invoices.GetByID(context.Background(), gated.ID)
	if got.Status != models.InvoiceStatusCancelled {
		t.Fatalf("signature-gated invoice not cancelled: %s", got.Status)
	}
}

func TestSweepSendsReminders(t *testing.T) {
	f := newSweeperFixture()
	now := timeutil.Now()

	f.invoices.add(models.Invoice{
		SaleID: "S1", UserID: 7, Amount: 300, Status: models.InvoiceStatusOpen,
		DueDate: now, CreatedAt: now.AddDate(0, -1, 0),
	})
	f.invoices.add(models.Invoice{
		SaleID: "S2", UserID: 8, Amount: 300, Status: models.InvoiceStatusOpen,
		DueDate: now.AddDate(0, 0, 3), CreatedAt: now.AddDate(0, -1, 0),
	})
	// down payments never get due-date reminders
	f.invoices.add(models.Invoice{
		SaleID: "S3", UserID: 9, Amount: 300, Status: models.InvoiceStatusOpen,
		DownPayment: true, DueDate: now, CreatedAt: now.Add(-time.Hour),
	})

	summary, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if summary.RemindersSent != 2 {
		t.Fatalf("expected 2 reminders, got %d", summary.RemindersSent)
	}

	// a second sweep the same day sends nothing new
	summary, err = f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if summary.RemindersSent != 0 {
		t.Fatalf("reminders duplicated: %d", summary.RemindersSent)
	}
}

func TestSweepWritesSummary(t *testing.T) {
	f := newSweeperFixture()

	if _, err := f.svc.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	entries := f.actions.byType("sweep")
	if len(entries) != 1 || entries[0].Status != models.ActionStatusSuccess {
		t.Fatalf("expected one sweep summary entry, got %+v", entries)
	}
}

type fakeSweepLock struct {
	held     bool
	released int
}

func (l *fakeSweepLock) TryLock(ctx context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeSweepLock) Unlock(ctx context.Context) error {
	l.held = false
	l.released++
	return nil
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	f := newSweeperFixture()
	lock := &fakeSweepLock{held: true}
	f.svc.Lock = lock

	summary, err := f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if !summary.Skipped {
		t.Fatalf("expected contended sweep to be skipped, got %+v", summary)
	}
	if entries := f.actions.byType("sweep"); len(entries) != 0 {
		t.Fatalf("skipped sweep must not write a summary, got %+v", entries)
	}

	lock.held = false
	summary, err = f.svc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep: %v", err)
	}
	if summary.Skipped {
		t.Fatalf("free lock should let the sweep run")
	}
	if lock.held || lock.released != 1 {
		t.Fatalf("lock not released after the run: held=%v released=%d", lock.held, lock.released)
	}
}
