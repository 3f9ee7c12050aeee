package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type fakeInvoiceStore struct {
	invoices map[int]*models.Invoice
	nextID   int
	failNext error
}

func newFakeInvoiceStore() *fakeInvoiceStore {
	return &fakeInvoiceStore{invoices: make(map[int]*models.Invoice), nextID: 1}
}

func (f *fakeInvoiceStore) add(inv models.Invoice) *models.Invoice {
	inv.ID = f.nextID
	f.nextID++
	f.invoices[inv.ID] = &inv
	return f.invoices[inv.ID]
}

func (f *fakeInvoiceStore) Create(ctx context.Context, inv models.Invoice) (int, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return 0, err
	}
	return f.add(inv).ID, nil
}

func (f *fakeInvoiceStore) CreateBatch(ctx context.Context, invoices []models.Invoice) error {
	for _, inv := range invoices {
		if _, err := f.Create(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeInvoiceStore) GetByID(ctx context.Context, id int) (models.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return *inv, nil
}

func (f *fakeInvoiceStore) GetByPaymentID(ctx context.Context, paymentID string) (models.Invoice, error) {
	for _, inv := range f.invoices {
		if inv.PaymentID == paymentID {
			return *inv, nil
		}
	}
	return models.Invoice{}, models.ErrInvoiceNotFound
}

func (f *fakeInvoiceStore) BackfillPaymentID(ctx context.Context, invoiceID int, paymentID string) error {
	if inv, ok := f.invoices[invoiceID]; ok && inv.PaymentID == "" {
		inv.PaymentID = paymentID
	}
	return nil
}

func (f *fakeInvoiceStore) Transition(ctx context.Context, invoiceID int, toStatus string) (bool, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return false, nil
	}
	if !slices.Contains(models.OpenInvoiceStatuses, inv.Status) {
		return false, nil
	}
	inv.Status = toStatus
	return true, nil
}

func (f *fakeInvoiceStore) AttachPaymentArtifact(ctx context.Context, invoiceID int, paymentID, qr, barcode, payURL string) error {
	inv, ok := f.invoices[invoiceID]
	if !ok {
		return models.ErrInvoiceNotFound
	}
	inv.PaymentID = paymentID
	inv.QRCode = qr
	inv.Barcode = barcode
	inv.PaymentURL = payURL
	return nil
}

func (f *fakeInvoiceStore) MarkSlipIssued(ctx context.Context, invoiceID int) error {
	if inv, ok := f.invoices[invoiceID]; ok && inv.Status == models.InvoiceStatusOpen {
		inv.Status = models.InvoiceStatusSlipIssued
	}
	return nil
}

func (f *fakeInvoiceStore) OpenByUser(ctx context.Context, userID int) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.UserID == userID && slices.Contains(models.OpenInvoiceStatuses, inv.Status) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceStore) ExpiredDownPayments(ctx context.Context, cutoff time.Time) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.DownPayment && inv.Status == models.InvoiceStatusOpen && inv.CreatedAt.Before(cutoff) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceStore) DueOn(ctx context.Context, day time.Time) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.DownPayment || !slices.Contains(models.OpenInvoiceStatuses, inv.Status) {
			continue
		}
		if inv.DueDate.Year() == day.Year() && inv.DueDate.YearDay() == day.YearDay() {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvoiceStore) CancelBySale(ctx context.Context, saleID string, exceptID int) (int, error) {
	count := 0
	for _, inv := range f.invoices {
		if inv.SaleID != saleID || inv.ID == exceptID {
			continue
		}
		if !inv.Settled() {
			inv.Status = models.InvoiceStatusCancelled
			count++
		}
	}
	return count, nil
}

func (f *fakeInvoiceStore) CancelAwaitingSignatureBySale(ctx context.Context, saleID string) (int, error) {
	count := 0
	for _, inv := range f.invoices {
		if inv.SaleID == saleID && inv.Status == models.InvoiceStatusAwaitingSignature {
			inv.Status = models.InvoiceStatusCancelled
			count++
		}
	}
	return count, nil
}

func (f *fakeInvoiceStore) ReleaseAwaitingSignatureBySale(ctx context.Context, saleID string) (int, error) {
	count := 0
	for _, inv := range f.invoices {
		if inv.SaleID == saleID && inv.Status == models.InvoiceStatusAwaitingSignature {
			inv.Status = models.InvoiceStatusOpen
			count++
		}
	}
	return count, nil
}

func (f *fakeInvoiceStore) bySale(saleID string) []models.Invoice {
	var out []models.Invoice
	for _, inv := range f.invoices {
		if inv.SaleID == saleID {
			out = append(out, *inv)
		}
	}
	return out
}

type fakeProfileStore struct {
	profiles map[int]*models.Profile
	awarded  map[int]int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[int]*models.Profile), awarded: make(map[int]int)}
}

func (f *fakeProfileStore) GetByUserID(ctx context.Context, userID int) (models.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return models.Profile{}, models.ErrProfileNotFound
	}
	return *p, nil
}

func (f *fakeProfileStore) DebitCoins(ctx context.Context, userID, amount int) error {
	p, ok := f.profiles[userID]
	if !ok || p.CoinsBalance < amount {
		return models.ErrInsufficientBalance
	}
	p.CoinsBalance -= amount
	return nil
}

func (f *fakeProfileStore) AwardCoins(ctx context.Context, userID, amount int) error {
	p, ok := f.profiles[userID]
	if !ok {
		return models.ErrProfileNotFound
	}
	p.CoinsBalance += amount
	f.awarded[userID] += amount
	return nil
}

func (f *fakeProfileStore) UpdateDueDay(ctx context.Context, userID, day int, changedAt time.Time) error {
	p, ok := f.profiles[userID]
	if !ok {
		return models.ErrProfileNotFound
	}
	p.PreferredDueDay = day
	p.LastDueDateChange = &changedAt
	return nil
}

type fakeContractStore struct {
	contracts map[int]*models.Contract
	nextID    int
}

func newFakeContractStore() *fakeContractStore {
	return &fakeContractStore{contracts: make(map[int]*models.Contract), nextID: 1}
}

func (f *fakeContractStore) Create(ctx context.Context, c models.Contract) (int, error) {
	c.ID = f.nextID
	f.nextID++
	f.contracts[c.ID] = &c
	return c.ID, nil
}

func (f *fakeContractStore) GetByID(ctx context.Context, id int) (models.Contract, error) {
	c, ok := f.contracts[id]
	if !ok {
		return models.Contract{}, models.ErrContractNotFound
	}
	return *c, nil
}

func (f *fakeContractStore) Cancel(ctx context.Context, id int) (bool, error) {
	c, ok := f.contracts[id]
	if !ok || c.Status == models.ContractStatusCancelled {
		return false, nil
	}
	c.Status = models.ContractStatusCancelled
	return true, nil
}

func (f *fakeContractStore) CancelBySale(ctx context.Context, saleID string) (bool, error) {
	for _, c := range f.contracts {
		if c.SaleID == saleID && c.Status != models.ContractStatusCancelled {
			c.Status = models.ContractStatusCancelled
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContractStore) AttachSignature(ctx context.Context, id int, signatureURL string) (bool, error) {
	c, ok := f.contracts[id]
	if !ok || c.Status != models.ContractStatusAwaitingSignature {
		return false, nil
	}
	c.Status = models.ContractStatusSigned
	c.SignatureURL = signatureURL
	return true, nil
}

func (f *fakeContractStore) PendingSignatureOlderThan(ctx context.Context, cutoff time.Time) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range f.contracts {
		if c.Status == models.ContractStatusAwaitingSignature && c.CreatedAt.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

type fakePlanStore struct {
	plans  map[int]*models.InstallmentPlan
	nextID int
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{plans: make(map[int]*models.InstallmentPlan), nextID: 1}
}

func (f *fakePlanStore) Create(ctx context.Context, p models.InstallmentPlan) (int, error) {
	p.ID = f.nextID
	f.nextID++
	f.plans[p.InvoiceID] = &p
	return p.ID, nil
}

func (f *fakePlanStore) GetByInvoiceID(ctx context.Context, invoiceID int) (models.InstallmentPlan, error) {
	p, ok := f.plans[invoiceID]
	if !ok {
		return models.InstallmentPlan{}, models.ErrPlanNotFound
	}
	return *p, nil
}

func (f *fakePlanStore) Consume(ctx context.Context, invoiceID int, now time.Time) (bool, error) {
	p, ok := f.plans[invoiceID]
	if !ok || p.ConsumedAt != nil {
		return false, nil
	}
	p.ConsumedAt = &now
	return true, nil
}

type fakeSettingsStore struct {
	settings models.Settings
}

func (f *fakeSettingsStore) Load(ctx context.Context) (models.Settings, error) {
	return f.settings, nil
}

type fakeGateway struct {
	payments   map[string]Payment
	createResp CreatePaymentResponse
	createErr  error
	created    []CreatePaymentRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{payments: make(map[string]Payment)}
}

func (f *fakeGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return CreatePaymentResponse{}, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, paymentID string) (Payment, error) {
	p, ok := f.payments[paymentID]
	if !ok {
		return Payment{}, errors.New("payment not found")
	}
	return p, nil
}

type sentNotification struct {
	UserID int
	Title  string
	Type   string
}

type fakeNotifier struct {
	sent      []sentNotification
	sentToday map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sentToday: make(map[string]bool)}
}

func (f *fakeNotifier) Notify(ctx context.Context, userID int, title, message, ntype string) {
	f.sent = append(f.sent, sentNotification{UserID: userID, Title: title, Type: ntype})
	f.sentToday[fmt.Sprintf("%d|%s", userID, title)] = true
}

func (f *fakeNotifier) SentToday(ctx context.Context, userID int, title string) (bool, error) {
	return f.sentToday[fmt.Sprintf("%d|%s", userID, title)], nil
}

type fakeActionLog struct {
	entries []models.ActionLog
}

func (f *fakeActionLog) Append(ctx context.Context, entry models.ActionLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeActionLog) byType(actionType string) []models.ActionLog {
	var out []models.ActionLog
	for _, e := range f.entries {
		if e.ActionType == actionType {
			out = append(out, e)
		}
	}
	return out
}

type fakeUploader struct {
	err error
}

func (f *fakeUploader) UploadSignature(data []byte, fileName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example/signatures/" + fileName, nil
}
