package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/financing"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

const (
	SaleTypeCrediario = "crediario"
	SaleTypeDirect    = "direct"
)

// SaleService orchestrates a new purchase: coupon, coins, contract, first
// invoice, installment plan, gateway payment intent. Every row carries the
// same minted sale_id so later cancellation can find the whole checkout
// without timestamp guessing.
type SaleService struct {
	Profiles  ProfileStore
	Contracts ContractStore
	Invoices  InvoiceStore
	Plans     PlanStore
	Settings  SettingsStore
	Gateway   PaymentGateway
	Storage   SignatureUploader
	Actions   ActionLogStore
	Notifier  Notifier
	InfoLog   *log.Logger
	ErrorLog  *log.Logger
}

type CreateSaleRequest struct {
	UserID        int     `json:"user_id"`
	Items         string  `json:"items"`
	Total         float64 `json:"total"`
	Installments  int     `json:"installments"`
	SaleType      string  `json:"sale_type"`
	PaymentMethod string  `json:"payment_method"`
	DownPayment   float64 `json:"down_payment"`
	CouponCode    string  `json:"coupon_code"`
	CoinsToSpend  int     `json:"coins_to_spend"`
	DueDay        int     `json:"due_day"`
	Signature     []byte  `json:"-"`
}

type CreateSaleResult struct {
	SaleID            string  `json:"sale_id"`
	ContractID        int     `json:"contract_id"`
	InvoiceID         int     `json:"invoice_id"`
	Total             float64 `json:"total"`
	PaymentID         string  `json:"payment_id,omitempty"`
	QRCode            string  `json:"qr_code,omitempty"`
	Barcode           string  `json:"barcode,omitempty"`
	RedirectURL       string  `json:"payment_url,omitempty"`
	RequiresSignature bool    `json:"requires_signature"`
	PaymentFailed     bool    `json:"payment_failed"`
	PaymentError      string  `json:"payment_error,omitempty"`
}

// CreateSale runs the checkout. Gateway failure after the ledger writes does
// not roll anything back: the sale stays recorded and the payment artifact is
// reported failed for manual retry.
func (s *SaleService) CreateSale(ctx context.Context, req CreateSaleRequest) (CreateSaleResult, error) {
	if err := s.validate(&req); err != nil {
		return CreateSaleResult{}, err
	}

	settings, err := s.Settings.Load(ctx)
	if err != nil {
		return CreateSaleResult{}, fmt.Errorf("load settings: %w", err)
	}

	// Coins discount at one cent per coin. The discounted total is computed
	// up front but the balance is only debited after every refusal path has
	// passed, so a rejected sale leaves the wallet untouched.
	total := financing.ApplyCoupon(req.Total, req.CouponCode)
	if req.CoinsToSpend > 0 {
		total = math.Max(0, total-float64(req.CoinsToSpend)/100)
	}

	now := timeutil.Now()
	crediario := req.SaleType == SaleTypeCrediario

	var remaining float64
	if crediario {
		profile, err := s.Profiles.GetByUserID(ctx, req.UserID)
		if err != nil {
			return CreateSaleResult{}, err
		}
		if req.DueDay == 0 {
			req.DueDay = profile.PreferredDueDay
		}

		available, err := s.availableCredit(ctx, profile)
		if err != nil {
			return CreateSaleResult{}, err
		}
		requiredEntry, err := financing.RequiredDownPayment(total, settings.MinEntryPct, available, req.Installments, settings.MonthlyInterestPct)
		if err != nil {
			return CreateSaleResult{}, err
		}
		if req.DownPayment < requiredEntry {
			return CreateSaleResult{}, models.ErrInsufficientCredit
		}

		// The financed remainder carries compound interest; the plan stores
		// the grossed-up figure, installment expansion divides it evenly.
		instValue, err := financing.InstallmentValue(total-req.DownPayment, settings.MonthlyInterestPct, req.Installments)
		if err != nil {
			return CreateSaleResult{}, err
		}
		remaining = instValue * float64(req.Installments)
	}

	// The balance check and the debit are a single conditional write, but
	// the sale rows that follow are separate writes; see the concurrency
	// notes in DESIGN.md.
	if req.CoinsToSpend > 0 {
		if err := s.Profiles.DebitCoins(ctx, req.UserID, req.CoinsToSpend); err != nil {
			return CreateSaleResult{}, err
		}
	}

	saleID := uuid.New().String()
	signed := true
	signatureURL := ""
	if crediario {
		signatureURL, signed = s.uploadSignature(req.Signature, saleID)
	}

	contract := models.Contract{
		SaleID:           saleID,
		UserID:           req.UserID,
		Items:            req.Items,
		TotalValue:       total,
		InstallmentCount: req.Installments,
		SignatureURL:     signatureURL,
		CreatedAt:        now,
	}
	switch {
	case !crediario:
		contract.Status = models.ContractStatusActive
	case signed:
		contract.Status = models.ContractStatusSigned
	default:
		contract.Status = models.ContractStatusAwaitingSignature
	}

	contractID, err := s.Contracts.Create(ctx, contract)
	if err != nil {
		return CreateSaleResult{}, fmt.Errorf("create contract: %w", err)
	}

	invoice := models.Invoice{
		SaleID:        saleID,
		UserID:        req.UserID,
		Month:         timeutil.MonthLabel(now),
		DueDate:       now,
		Status:        models.InvoiceStatusOpen,
		PaymentMethod: req.PaymentMethod,
		DownPayment:   crediario,
		CreatedAt:     now,
	}
	if crediario {
		invoice.Amount = req.DownPayment
		if !signed {
			invoice.Status = models.InvoiceStatusAwaitingSignature
		}
	} else {
		invoice.Amount = total
	}

	invoiceID, err := s.Invoices.Create(ctx, invoice)
	if err != nil {
		return CreateSaleResult{}, fmt.Errorf("create invoice: %w", err)
	}

	if crediario && remaining > 0 && req.Installments > 0 {
		_, err := s.Plans.Create(ctx, models.InstallmentPlan{
			InvoiceID:       invoiceID,
			ContractID:      contractID,
			RemainingAmount: remaining,
			Count:           req.Installments,
			DueDay:          req.DueDay,
			CreatedAt:       now,
		})
		if err != nil {
			return CreateSaleResult{}, fmt.Errorf("create installment plan: %w", err)
		}
	}

	result := CreateSaleResult{
		SaleID:            saleID,
		ContractID:        contractID,
		InvoiceID:         invoiceID,
		Total:             total,
		RequiresSignature: !signed,
	}

	// Payment intent only for an invoice that can actually be paid now.
	if signed && GatewayRequired(req.PaymentMethod) {
		s.createPaymentIntent(ctx, &result, invoice, invoiceID)
	}

	logAction(ctx, s.Actions, s.ErrorLog, "sale_created", models.ActionStatusSuccess,
		fmt.Sprintf("sale %s for user %d", saleID, req.UserID),
		fmt.Sprintf("contract=%d invoice=%d total=%.2f type=%s", contractID, invoiceID, total, req.SaleType))
	s.InfoLog.Printf("sale %s created: contract %d, invoice %d, total %.2f", saleID, contractID, invoiceID, total)

	return result, nil
}

func (s *SaleService) validate(req *CreateSaleRequest) error {
	if req.UserID <= 0 {
		return models.Validationf("user_id is required")
	}
	if req.Total <= 0 {
		return models.Validationf("total must be positive")
	}
	req.SaleType = strings.ToLower(strings.TrimSpace(req.SaleType))
	switch req.SaleType {
	case SaleTypeCrediario:
		if req.Installments < 1 {
			return models.Validationf("installments must be at least 1 for crediario")
		}
		if req.DownPayment < 0 {
			return models.Validationf("down_payment cannot be negative")
		}
		// Zero means "use the profile's preferred day".
		if req.DueDay != 0 && (req.DueDay < 1 || req.DueDay > 31) {
			return models.Validationf("due_day must be between 1 and 31, or 0 for the preferred day")
		}
	case SaleTypeDirect:
		req.Installments = 1
	default:
		return models.Validationf("sale_type must be crediario or direct")
	}
	if req.CoinsToSpend < 0 {
		return models.Validationf("coins_to_spend cannot be negative")
	}
	return nil
}

func (s *SaleService) availableCredit(ctx context.Context, profile models.Profile) (float64, error) {
	open, err := s.Invoices.OpenByUser(ctx, profile.UserID)
	if err != nil {
		return 0, err
	}
	byMonth := make(map[string]float64, len(open))
	for _, inv := range open {
		byMonth[timeutil.MonthKey(inv.DueDate)] += inv.Amount
	}
	return financing.AvailableMonthlyCredit(profile.CreditLimit, byMonth), nil
}

func (s *SaleService) uploadSignature(signature []byte, saleID string) (string, bool) {
	if len(signature) == 0 {
		return "", false
	}
	if s.Storage == nil {
		return "", false
	}
	url, err := s.Storage.UploadSignature(signature, saleID+".png")
	if err != nil {
		s.ErrorLog.Printf("sale %s: signature upload failed: %v", saleID, err)
		return "", false
	}
	return url, true
}

func (s *SaleService) createPaymentIntent(ctx context.Context, result *CreateSaleResult, invoice models.Invoice, invoiceID int) {
	resp, err := s.Gateway.CreatePayment(ctx, CreatePaymentRequest{
		InvoiceID:   invoiceID,
		Amount:      invoice.Amount,
		Method:      invoice.PaymentMethod,
		Description: fmt.Sprintf("Fatura %s", invoice.Month),
	})
	if err != nil {
		// Sale stays recorded; the artifact is retried manually.
		s.ErrorLog.Printf("sale %s: payment intent failed: %v", result.SaleID, err)
		logAction(ctx, s.Actions, s.ErrorLog, "payment_intent", models.ActionStatusFailure,
			fmt.Sprintf("invoice %d", invoiceID), err.Error())
		result.PaymentFailed = true
		result.PaymentError = err.Error()
		return
	}

	if err := s.Invoices.AttachPaymentArtifact(ctx, invoiceID, resp.PaymentID, resp.QRCode, resp.Barcode, resp.RedirectURL); err != nil {
		s.ErrorLog.Printf("sale %s: failed to store payment artifact: %v", result.SaleID, err)
		result.PaymentFailed = true
		result.PaymentError = err.Error()
		return
	}
	if strings.EqualFold(invoice.PaymentMethod, MethodBoleto) {
		if err := s.Invoices.MarkSlipIssued(ctx, invoiceID); err != nil {
			s.ErrorLog.Printf("sale %s: failed to mark slip issued: %v", result.SaleID, err)
		}
	}

	result.PaymentID = resp.PaymentID
	result.QRCode = resp.QRCode
	result.Barcode = resp.Barcode
	result.RedirectURL = resp.RedirectURL
}

// SignContract completes a signature-gated checkout: upload the blob, move
// the contract to Assinado and release its invoices for payment.
func (s *SaleService) SignContract(ctx context.Context, contractID int, signature []byte) error {
	if len(signature) == 0 {
		return models.Validationf("signature is required")
	}
	contract, err := s.Contracts.GetByID(ctx, contractID)
	if err != nil {
		return err
	}

	url := ""
	if s.Storage != nil {
		url, err = s.Storage.UploadSignature(signature, contract.SaleID+".png")
		if err != nil {
			return fmt.Errorf("upload signature: %w", err)
		}
	}

	applied, err := s.Contracts.AttachSignature(ctx, contractID, url)
	if err != nil {
		return err
	}
	if !applied {
		return models.Validationf("contract %d is not awaiting signature", contractID)
	}
	if _, err := s.Invoices.ReleaseAwaitingSignatureBySale(ctx, contract.SaleID); err != nil {
		return fmt.Errorf("release invoices: %w", err)
	}

	logAction(ctx, s.Actions, s.ErrorLog, "contract_signed", models.ActionStatusSuccess,
		fmt.Sprintf("contract %d", contractID), "")
	return nil
}

// ChangeDueDay updates the preferred installment due day, at most once every
// 90 days.
func (s *SaleService) ChangeDueDay(ctx context.Context, userID, day int) error {
	if day < 1 || day > 31 {
		return models.Validationf("due_day must be between 1 and 31")
	}
	profile, err := s.Profiles.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	now := timeutil.Now()
	if profile.LastDueDateChange != nil && now.Sub(*profile.LastDueDateChange) < models.DueDayCooldown {
		return models.ErrDueDayCooldown
	}
	return s.Profiles.UpdateDueDay(ctx, userID, day, now)
}
