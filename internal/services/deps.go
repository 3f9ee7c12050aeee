package services

import (
	"context"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

// Narrow store contracts the services depend on. The concrete
// implementations live in internal/repositories; tests substitute fakes.

type ProfileStore interface {
	GetByUserID(ctx context.Context, userID int) (models.Profile, error)
	DebitCoins(ctx context.Context, userID, amount int) error
	AwardCoins(ctx context.Context, userID, amount int) error
	UpdateDueDay(ctx context.Context, userID, day int, changedAt time.Time) error
}

type ContractStore interface {
	Create(ctx context.Context, c models.Contract) (int, error)
	GetByID(ctx context.Context, id int) (models.Contract, error)
	Cancel(ctx context.Context, id int) (bool, error)
	CancelBySale(ctx context.Context, saleID string) (bool, error)
	AttachSignature(ctx context.Context, id int, signatureURL string) (bool, error)
	PendingSignatureOlderThan(ctx context.Context, cutoff time.Time) ([]models.Contract, error)
}

type InvoiceStore interface {
	Create(ctx context.Context, inv models.Invoice) (int, error)
	CreateBatch(ctx context.Context, invoices []models.Invoice) error
	GetByID(ctx context.Context, id int) (models.Invoice, error)
	GetByPaymentID(ctx context.Context, paymentID string) (models.Invoice, error)
	BackfillPaymentID(ctx context.Context, invoiceID int, paymentID string) error
	Transition(ctx context.Context, invoiceID int, toStatus string) (bool, error)
	AttachPaymentArtifact(ctx context.Context, invoiceID int, paymentID, qr, barcode, payURL string) error
	MarkSlipIssued(ctx context.Context, invoiceID int) error
	OpenByUser(ctx context.Context, userID int) ([]models.Invoice, error)
	ExpiredDownPayments(ctx context.Context, cutoff time.Time) ([]models.Invoice, error)
	DueOn(ctx context.Context, day time.Time) ([]models.Invoice, error)
	CancelBySale(ctx context.Context, saleID string, exceptID int) (int, error)
	CancelAwaitingSignatureBySale(ctx context.Context, saleID string) (int, error)
	ReleaseAwaitingSignatureBySale(ctx context.Context, saleID string) (int, error)
}

type PlanStore interface {
	Create(ctx context.Context, p models.InstallmentPlan) (int, error)
	GetByInvoiceID(ctx context.Context, invoiceID int) (models.InstallmentPlan, error)
	Consume(ctx context.Context, invoiceID int, now time.Time) (bool, error)
}

type SettingsStore interface {
	Load(ctx context.Context) (models.Settings, error)
}

type ActionLogStore interface {
	Append(ctx context.Context, entry models.ActionLog) error
}

type Notifier interface {
	Notify(ctx context.Context, userID int, title, message, ntype string)
	SentToday(ctx context.Context, userID int, title string) (bool, error)
}

type PaymentGateway interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (CreatePaymentResponse, error)
	GetPayment(ctx context.Context, paymentID string) (Payment, error)
}

type SignatureUploader interface {
	UploadSignature(data []byte, fileName string) (string, error)
}
