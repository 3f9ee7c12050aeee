package services

import (
	"context"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

func discardLog() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type reconcilerFixture struct {
	svc      *ReconcilerService
	invoices *fakeInvoiceStore
	plans    *fakePlanStore
	profiles *fakeProfileStore
	gateway  *fakeGateway
	notifier *fakeNotifier
	actions  *fakeActionLog
}

func newReconcilerFixture() *reconcilerFixture {
	f := &reconcilerFixture{
		invoices: newFakeInvoiceStore(),
		plans:    newFakePlanStore(),
		profiles: newFakeProfileStore(),
		gateway:  newFakeGateway(),
		notifier: newFakeNotifier(),
		actions:  &fakeActionLog{},
	}
	f.svc = &ReconcilerService{
		Invoices: f.invoices,
		Plans:    f.plans,
		Profiles: f.profiles,
		Settings: &fakeSettingsStore{settings: models.DefaultSettings()},
		Gateway:  f.gateway,
		Notifier: f.notifier,
		Actions:  f.actions,
		InfoLog:  discardLog(),
		ErrorLog: discardLog(),
	}
	return f
}

func paymentEvent(id string) WebhookPayload {
	var p WebhookPayload
	p.Type = "payment"
	p.Data.ID = id
	return p
}

func TestReconcilerDownPaymentApproval(t *testing.T) {
	f := newReconcilerFixture()
	f.profiles.profiles[7] = &models.Profile{UserID: 7, CreditLimit: 1000}

	inv := f.invoices.add(models.Invoice{
		SaleID: "S1", UserID: 7, Amount: 300, Status: models.InvoiceStatusOpen,
		PaymentID: "pay-1", DownPayment: true, CreatedAt: timeutil.Now(),
	})
	_, err := f.plans.Create(context.Background(), models.InstallmentPlan{
		InvoiceID: inv.ID, ContractID: 1, RemainingAmount: 900, Count: 3, DueDay: 10, CreatedAt: timeutil.Now(),
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	f.gateway.payments["pay-1"] = Payment{ID: "pay-1", Status: "approved", TransactionAmount: 300}

	outcome, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1"))
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}

	got, _ := f.invoices.GetByID(context.Background(), inv.ID)
	if got.Status != models.InvoiceStatusPaid {
		t.Fatalf("expected Paga, got %s", got.Status)
	}

	// floor(300 * 1.5/100 * 100) = 450 coins
	if f.profiles.awarded[7] != 450 {
		t.Fatalf("expected 450 cashback coins, got %d", f.profiles.awarded[7])
	}
	if len(f.notifier.sent) == 0 || f.notifier.sent[0].Type != models.NotificationTypeCashback {
		t.Fatalf("expected cashback notification, got %+v", f.notifier.sent)
	}

	var installments []models.Invoice
	for _, sibling := range f.invoices.bySale("S1") {
		if sibling.ID != inv.ID {
			installments = append(installments, sibling)
		}
	}
	if len(installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(installments))
	}
	var sum float64
	months := map[string]bool{}
	for _, gen := range installments {
		if math.Abs(gen.Amount-300) > 0.01 {
			t.Fatalf("expected installment of 300, got %v", gen.Amount)
		}
		if gen.DueDate.Day() != 10 {
			t.Fatalf("expected due day 10, got %d", gen.DueDate.Day())
		}
		if gen.Status != models.InvoiceStatusOpen {
			t.Fatalf("expected open installment, got %s", gen.Status)
		}
		sum += gen.Amount
		months[timeutil.MonthKey(gen.DueDate)] = true
	}
	if math.Abs(sum-900) > 0.01 {
		t.Fatalf("expected installments summing 900, got %v", sum)
	}
	if len(months) != 3 {
		t.Fatalf("expected three distinct months, got %v", months)
	}
}

func TestReconcilerDuplicateDeliveryIsNoop(t *testing.T) {
	f := newReconcilerFixture()
	f.profiles.profiles[7] = &models.Profile{UserID: 7, CreditLimit: 1000}

	inv := f.invoices.add(models.Invoice{
		SaleID: "S1", UserID: 7, Amount: 300, Status: models.InvoiceStatusOpen,
		PaymentID: "pay-1", DownPayment: true, CreatedAt: timeutil.Now(),
	})
	_, _ = f.plans.Create(context.Background(), models.InstallmentPlan{
		InvoiceID: inv.ID, ContractID: 1, RemainingAmount: 900, Count: 3, DueDay: 10,
	})
	f.gateway.payments["pay-1"] = Payment{ID: "pay-1", Status: "approved", TransactionAmount: 300}

	if _, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1")); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	outcome, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1"))
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if outcome != OutcomeStale {
		t.Fatalf("expected stale, got %s", outcome)
	}

	if f.profiles.awarded[7] != 450 {
		t.Fatalf("cashback credited twice: %d", f.profiles.awarded[7])
	}
	if n := len(f.invoices.bySale("S1")); n != 4 {
		t.Fatalf("expected 4 invoices (1 entry + 3 installments), got %d", n)
	}
}

func TestReconcilerIgnoresNonPaymentEvents(t *testing.T) {
	f := newReconcilerFixture()

	var p WebhookPayload
	p.Type = "merchant_order"
	p.Data.ID = "123"
	outcome, err := f.svc.ProcessEvent(context.Background(), p)
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}

	outcome, err = f.svc.ProcessEvent(context.Background(), paymentEvent(""))
	if err != nil || outcome != OutcomeIgnored {
		t.Fatalf("expected ignored for empty id, got %s, %v", outcome, err)
	}
}

func TestReconcilerIgnoresPendingStatus(t *testing.T) {
	f := newReconcilerFixture()
	f.invoices.add(models.Invoice{UserID: 7, Status: models.InvoiceStatusOpen, PaymentID: "pay-1"})
	f.gateway.payments["pay-1"] = Payment{ID: "pay-1", Status: "pending"}

	outcome, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1"))
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Fatalf("expected ignored, got %s", outcome)
	}
}

func TestReconcilerCancellationMapping(t *testing.T) {
	cases := []struct {
		name       string
		detail     string
		wantStatus string
	}{
		{"expired detail", "expired", models.InvoiceStatusExpired},
		{"plain cancellation", "by_payer", models.InvoiceStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newReconcilerFixture()
			f.profiles.profiles[7] = &models.Profile{UserID: 7}
			inv := f.invoices.add(models.Invoice{UserID: 7, Amount: 100, Status: models.InvoiceStatusOpen, PaymentID: "pay-1"})
			f.gateway.payments["pay-1"] = Payment{ID: "pay-1", Status: "cancelled", StatusDetail: tc.detail}

			outcome, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1"))
			if err != nil {
				t.Fatalf("ProcessEvent: %v", err)
			}
			if outcome != OutcomeApplied {
				t.Fatalf("expected applied, got %s", outcome)
			}
			got, _ := f.invoices.GetByID(context.Background(), inv.ID)
			if got.Status != tc.wantStatus {
				t.Fatalf("expected %s, got %s", tc.wantStatus, got.Status)
			}
			if f.profiles.awarded[7] != 0 {
				t.Fatalf("cashback on cancellation: %d", f.profiles.awarded[7])
			}
		})
	}
}

func TestReconcilerExternalReferenceFallback(t *testing.T) {
	f := newReconcilerFixture()
	f.profiles.profiles[7] = &models.Profile{UserID: 7}

	// payment_id never landed on the invoice: the gateway called back first.
	inv := f.invoices.add(models.Invoice{UserID: 7, Amount: 100, Status: models.InvoiceStatusOpen})
	f.gateway.payments["pay-9"] = Payment{
		ID: "pay-9", Status: "approved", TransactionAmount: 100,
		ExternalReference: "1",
	}

	outcome, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-9"))
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	got, _ := f.invoices.GetByID(context.Background(), inv.ID)
	if got.Status != models.InvoiceStatusPaid {
		t.Fatalf("expected Paga, got %s", got.Status)
	}
	if got.PaymentID != "pay-9" {
		t.Fatalf("expected payment_id backfill, got %q", got.PaymentID)
	}
}

func TestReconcilerLatePaymentIsSurfaced(t *testing.T) {
	f := newReconcilerFixture()
	f.invoices.add(models.Invoice{UserID: 7, Amount: 100, Status: models.InvoiceStatusCancelled, PaymentID: "pay-1"})
	f.gateway.payments["pay-1"] = Payment{ID: "pay-1", Status: "approved", TransactionAmount: 100}

	outcome, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1"))
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}
	if outcome != OutcomeStale {
		t.Fatalf("expected stale, got %s", outcome)
	}
	late := f.actions.byType("late_payment")
	if len(late) != 1 || late[0].Status != models.ActionStatusFailure {
		t.Fatalf("expected one late_payment failure entry, got %+v", late)
	}
}

func TestReconcilerUnknownInvoiceFails(t *testing.T) {
	f := newReconcilerFixture()
	f.gateway.payments["pay-1"] = Payment{ID: "pay-1", Status: "approved"}

	if _, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1")); err == nil {
		t.Fatalf("expected error for unmatched payment")
	}
	if len(f.actions.byType("webhook")) == 0 {
		t.Fatalf("expected failure action log entry")
	}
}

func TestReconcilerDueDayClamping(t *testing.T) {
	f := newReconcilerFixture()
	f.profiles.profiles[7] = &models.Profile{UserID: 7}

	inv := f.invoices.add(models.Invoice{
		SaleID: "S1", UserID: 7, Amount: 100, Status: models.InvoiceStatusOpen,
		PaymentID: "pay-1", DownPayment: true,
	})
	_, _ = f.plans.Create(context.Background(), models.InstallmentPlan{
		InvoiceID: inv.ID, ContractID: 1, RemainingAmount: 600, Count: 6, DueDay: 31,
	})
	f.gateway.payments["pay-1"] = Payment{ID: "pay-1", Status: "approved", TransactionAmount: 100}

	if _, err := f.svc.ProcessEvent(context.Background(), paymentEvent("pay-1")); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	for _, gen := range f.invoices.bySale("S1") {
		if gen.ID == inv.ID {
			continue
		}
		lastOfMonth := time.Date(gen.DueDate.Year(), gen.DueDate.Month()+1, 0, 0, 0, 0, 0, gen.DueDate.Location()).Day()
		if gen.DueDate.Day() != 31 && gen.DueDate.Day() != lastOfMonth {
			t.Fatalf("due day %d is neither 31 nor clamped to month end %d", gen.DueDate.Day(), lastOfMonth)
		}
	}
}
