package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/financing"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

// ReconcileOutcome summarizes what a webhook delivery did to the ledger.
type ReconcileOutcome string

const (
	// OutcomeIgnored: not a payment event, or a gateway status we do not act on.
	OutcomeIgnored ReconcileOutcome = "ignored"
	// OutcomeApplied: the invoice transitioned.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeStale: the invoice had already left the open set; the
	// delivery is a replay or arrived after settlement. No-op.
	OutcomeStale ReconcileOutcome = "stale"
)

// ReconcilerService turns gateway payment events into irreversible ledger
// transitions, exactly once. All coordination is the conditional status
// write; there is no in-process shared state, so concurrent deliveries of
// the same event are safe.
type ReconcilerService struct {
	Invoices InvoiceStore
	Plans    PlanStore
	Profiles ProfileStore
	Settings SettingsStore
	Gateway  PaymentGateway
	Notifier Notifier
	Actions  ActionLogStore
	InfoLog  *log.Logger
	ErrorLog *log.Logger
}

// ProcessEvent handles one webhook delivery. A returned error means the
// caller must answer 5xx so the gateway redelivers; every other outcome is
// final and answered 2xx.
func (s *ReconcilerService) ProcessEvent(ctx context.Context, payload WebhookPayload) (ReconcileOutcome, error) {
	if payload.Type != "payment" || strings.TrimSpace(payload.Data.ID) == "" {
		return OutcomeIgnored, nil
	}

	// The webhook body's status is never trusted; re-query the gateway.
	payment, err := s.Gateway.GetPayment(ctx, payload.Data.ID)
	if err != nil {
		s.fail(ctx, "webhook", payload.Data.ID, err)
		return "", fmt.Errorf("fetch payment %s: %w", payload.Data.ID, err)
	}

	target, ok := mapGatewayStatus(payment.Status, payment.StatusDetail)
	if !ok {
		s.InfoLog.Printf("webhook: payment %s status %q needs no action", payment.ID, payment.Status)
		return OutcomeIgnored, nil
	}

	invoice, err := s.locateInvoice(ctx, payment)
	if err != nil {
		s.fail(ctx, "webhook", payment.ID, err)
		return "", err
	}

	applied, err := s.Invoices.Transition(ctx, invoice.ID, target)
	if err != nil {
		s.fail(ctx, "webhook", payment.ID, err)
		return "", fmt.Errorf("transition invoice %d: %w", invoice.ID, err)
	}
	if !applied {
		return s.handleStale(ctx, invoice, payment, target), nil
	}

	if target == models.InvoiceStatusPaid {
		if err := s.settle(ctx, invoice, payment); err != nil {
			// The transition already happened; redelivery will land on the
			// stale path, so the failure is surfaced to operators instead
			// of retried blindly.
			s.fail(ctx, "webhook_settlement", payment.ID, err)
			return "", err
		}
	}

	logAction(ctx, s.Actions, s.ErrorLog, "invoice_transition", models.ActionStatusSuccess,
		fmt.Sprintf("invoice %d -> %s", invoice.ID, target),
		fmt.Sprintf("payment=%s amount=%.2f", payment.ID, payment.TransactionAmount))
	return OutcomeApplied, nil
}

// mapGatewayStatus translates the gateway vocabulary into ledger statuses.
// Everything not listed is a no-op.
func mapGatewayStatus(status, detail string) (string, bool) {
	switch status {
	case "approved":
		return models.InvoiceStatusPaid, true
	case "cancelled":
		if strings.Contains(detail, "expired") {
			return models.InvoiceStatusExpired, true
		}
		return models.InvoiceStatusCancelled, true
	}
	return "", false
}

// locateInvoice finds the invoice a payment belongs to. payment_id is the
// primary key but unreliable: the gateway may call back before our own
// payment-intent write landed. external_reference carries the invoice id as
// a fallback, and the payment_id is backfilled when it is used.
func (s *ReconcilerService) locateInvoice(ctx context.Context, payment Payment) (models.Invoice, error) {
	invoice, err := s.Invoices.GetByPaymentID(ctx, payment.ID)
	if err == nil {
		return invoice, nil
	}
	if !errors.Is(err, models.ErrInvoiceNotFound) {
		return models.Invoice{}, err
	}

	ref := strings.TrimSpace(payment.ExternalReference)
	if ref == "" {
		return models.Invoice{}, fmt.Errorf("payment %s: %w", payment.ID, models.ErrInvoiceNotFound)
	}
	invoiceID, convErr := strconv.Atoi(ref)
	if convErr != nil {
		return models.Invoice{}, fmt.Errorf("payment %s: bad external_reference %q: %w", payment.ID, ref, models.ErrInvoiceNotFound)
	}
	invoice, err = s.Invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return models.Invoice{}, fmt.Errorf("payment %s: %w", payment.ID, err)
	}
	if err := s.Invoices.BackfillPaymentID(ctx, invoice.ID, payment.ID); err != nil {
		s.ErrorLog.Printf("webhook: failed to backfill payment_id on invoice %d: %v", invoice.ID, err)
	}
	return invoice, nil
}

func (s *ReconcilerService) handleStale(ctx context.Context, invoice models.Invoice, payment Payment, target string) ReconcileOutcome {
	current, err := s.Invoices.GetByID(ctx, invoice.ID)
	if err != nil {
		current = invoice
	}

	// A payment approved after the 12h expiry already cancelled the
	// invoice. The money is real; the transition is still refused but the
	// case is surfaced to operators instead of vanishing.
	if target == models.InvoiceStatusPaid &&
		(current.Status == models.InvoiceStatusCancelled || current.Status == models.InvoiceStatusExpired) {
		s.ErrorLog.Printf("webhook: late payment %s for %s invoice %d (%.2f), needs manual refund",
			payment.ID, current.Status, invoice.ID, payment.TransactionAmount)
		logAction(ctx, s.Actions, s.ErrorLog, "late_payment", models.ActionStatusFailure,
			fmt.Sprintf("payment %s for invoice %d already %s", payment.ID, invoice.ID, current.Status),
			fmt.Sprintf("amount=%.2f", payment.TransactionAmount))
		return OutcomeStale
	}

	s.InfoLog.Printf("webhook: stale event for invoice %d (status %s), dropped", invoice.ID, current.Status)
	return OutcomeStale
}

// settle runs the side effects of a paid invoice: cashback coins and, for a
// down payment, expansion of the installment plan. The plan's conditional
// consumption keeps the expansion exactly-once even here.
func (s *ReconcilerService) settle(ctx context.Context, invoice models.Invoice, payment Payment) error {
	settings, err := s.Settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	amount := payment.TransactionAmount
	if amount == 0 {
		amount = invoice.Amount
	}
	if coins := financing.CashbackCoins(amount, settings.CashbackPct); coins > 0 {
		if err := s.Profiles.AwardCoins(ctx, invoice.UserID, coins); err != nil {
			return fmt.Errorf("award cashback: %w", err)
		}
		s.Notifier.Notify(ctx, invoice.UserID, "Cashback recebido",
			fmt.Sprintf("Você ganhou %d moedas pelo pagamento de R$ %.2f.", coins, amount),
			models.NotificationTypeCashback)
	}

	if !invoice.DownPayment {
		return nil
	}
	return s.expandInstallments(ctx, invoice)
}

func (s *ReconcilerService) expandInstallments(ctx context.Context, invoice models.Invoice) error {
	plan, err := s.Plans.GetByInvoiceID(ctx, invoice.ID)
	if errors.Is(err, models.ErrPlanNotFound) {
		// Down payment without a plan: single-installment crediário.
		return nil
	}
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if plan.RemainingAmount <= 0 || plan.Count <= 0 {
		return nil
	}

	now := timeutil.Now()
	consumed, err := s.Plans.Consume(ctx, invoice.ID, now)
	if err != nil {
		return fmt.Errorf("consume plan: %w", err)
	}
	if !consumed {
		s.InfoLog.Printf("webhook: plan for invoice %d already consumed, skipping expansion", invoice.ID)
		return nil
	}

	values, err := financing.SplitInstallments(plan.RemainingAmount, plan.Count)
	if err != nil {
		return err
	}
	installments := make([]models.Invoice, plan.Count)
	for i := 0; i < plan.Count; i++ {
		due := timeutil.DueDate(now, i+1, plan.DueDay)
		installments[i] = models.Invoice{
			SaleID:        invoice.SaleID,
			UserID:        invoice.UserID,
			Month:         timeutil.MonthLabel(due),
			DueDate:       due,
			Amount:        values[i],
			Status:        models.InvoiceStatusOpen,
			PaymentMethod: invoice.PaymentMethod,
			CreatedAt:     now,
		}
	}
	if err := s.Invoices.CreateBatch(ctx, installments); err != nil {
		return fmt.Errorf("create installments: %w", err)
	}

	s.InfoLog.Printf("invoice %d paid: generated %d installments of contract %d", invoice.ID, plan.Count, plan.ContractID)
	return nil
}

func (s *ReconcilerService) fail(ctx context.Context, actionType, paymentID string, err error) {
	s.ErrorLog.Printf("%s: payment %s: %v", actionType, paymentID, err)
	logAction(ctx, s.Actions, s.ErrorLog, actionType, models.ActionStatusFailure,
		fmt.Sprintf("payment %s", paymentID), err.Error())
}
