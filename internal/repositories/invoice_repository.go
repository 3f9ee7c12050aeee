package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
)

type InvoiceRepository struct {
	DB *sql.DB
}

const invoiceColumns = `id, sale_id, user_id, month, due_date, amount, status, payment_method,
	payment_id, qr_code, barcode, payment_url, down_payment, notes, created_at`

func scanInvoice(row interface{ Scan(...any) error }) (models.Invoice, error) {
	var inv models.Invoice
	var paymentID, qr, barcode, payURL, notes sql.NullString
	err := row.Scan(
		&inv.ID, &inv.SaleID, &inv.UserID, &inv.Month, &inv.DueDate, &inv.Amount, &inv.Status,
		&inv.PaymentMethod, &paymentID, &qr, &barcode, &payURL, &inv.DownPayment, &notes, &inv.CreatedAt,
	)
	if err != nil {
		return models.Invoice{}, err
	}
	inv.PaymentID = paymentID.String
	inv.QRCode = qr.String
	inv.Barcode = barcode.String
	inv.PaymentURL = payURL.String
	inv.Notes = notes.String
	return inv, nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv models.Invoice) (int, error) {
	const q = `INSERT INTO invoices (sale_id, user_id, month, due_date, amount, status, payment_method,
	           payment_id, qr_code, barcode, payment_url, down_payment, notes, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q,
		inv.SaleID, inv.UserID, inv.Month, inv.DueDate, inv.Amount, inv.Status, inv.PaymentMethod,
		nullable(inv.PaymentID), nullable(inv.QRCode), nullable(inv.Barcode), nullable(inv.PaymentURL),
		inv.DownPayment, nullable(inv.Notes), inv.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// CreateBatch inserts installments one by one. The store offers no multi-row
// transaction; a partial failure leaves earlier rows in place and the caller
// reports it for the gateway to retry against the consumed-plan guard.
func (r *InvoiceRepository) CreateBatch(ctx context.Context, invoices []models.Invoice) error {
	for _, inv := range invoices {
		if _, err := r.Create(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int) (models.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`
	inv, err := scanInvoice(r.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, err
}

func (r *InvoiceRepository) GetByPaymentID(ctx context.Context, paymentID string) (models.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE payment_id = ?`
	inv, err := scanInvoice(r.DB.QueryRowContext(ctx, q, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Invoice{}, models.ErrInvoiceNotFound
	}
	return inv, err
}

// BackfillPaymentID records the gateway reference on an invoice matched via
// external_reference, for the case where the webhook arrived before the
// sale's own payment-intent write completed.
func (r *InvoiceRepository) BackfillPaymentID(ctx context.Context, invoiceID int, paymentID string) error {
	const q = `UPDATE invoices SET payment_id = ? WHERE id = ? AND (payment_id IS NULL OR payment_id = '')`
	_, err := r.DB.ExecContext(ctx, q, paymentID, invoiceID)
	return err
}

// Transition applies a terminal status only while the invoice is still open.
// Zero rows affected means another delivery of the same event got there
// first, or the invoice was already settled; either way the caller treats it
// as a stale event.
func (r *InvoiceRepository) Transition(ctx context.Context, invoiceID int, toStatus string) (bool, error) {
	const q = `UPDATE invoices SET status = ? WHERE id = ? AND status IN (?, ?)`
	res, err := r.DB.ExecContext(ctx, q, toStatus, invoiceID, models.InvoiceStatusOpen, models.InvoiceStatusSlipIssued)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *InvoiceRepository) AttachPaymentArtifact(ctx context.Context, invoiceID int, paymentID, qr, barcode, payURL string) error {
	const q = `UPDATE invoices SET payment_id = ?, qr_code = ?, barcode = ?, payment_url = ? WHERE id = ?`
	_, err := r.DB.ExecContext(ctx, q, nullable(paymentID), nullable(qr), nullable(barcode), nullable(payURL), invoiceID)
	return err
}

func (r *InvoiceRepository) MarkSlipIssued(ctx context.Context, invoiceID int) error {
	const q = `UPDATE invoices SET status = ? WHERE id = ? AND status = ?`
	_, err := r.DB.ExecContext(ctx, q, models.InvoiceStatusSlipIssued, invoiceID, models.InvoiceStatusOpen)
	return err
}

// OpenByUser lists the invoices still counting against the user's credit.
func (r *InvoiceRepository) OpenByUser(ctx context.Context, userID int) ([]models.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ? AND status IN (?, ?)`
	rows, err := r.DB.QueryContext(ctx, q, userID, models.InvoiceStatusOpen, models.InvoiceStatusSlipIssued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *InvoiceRepository) GetByUser(ctx context.Context, userID int) ([]models.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ? ORDER BY due_date DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// ExpiredDownPayments lists down-payment invoices still open past the cutoff.
func (r *InvoiceRepository) ExpiredDownPayments(ctx context.Context, cutoff time.Time) ([]models.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices
	      WHERE down_payment = TRUE AND status = ? AND created_at < ?`
	rows, err := r.DB.QueryContext(ctx, q, models.InvoiceStatusOpen, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// DueOn lists open installment invoices due on the given calendar day.
// Down payments are excluded; they live under the 12h expiry rule instead.
func (r *InvoiceRepository) DueOn(ctx context.Context, day time.Time) ([]models.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices
	      WHERE down_payment = FALSE AND status IN (?, ?) AND DATE(due_date) = DATE(?)`
	rows, err := r.DB.QueryContext(ctx, q, models.InvoiceStatusOpen, models.InvoiceStatusSlipIssued, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

// CancelBySale cancels every non-terminal sibling of a checkout except the
// one already handled by the caller.
func (r *InvoiceRepository) CancelBySale(ctx context.Context, saleID string, exceptID int) (int, error) {
	const q = `UPDATE invoices SET status = ? WHERE sale_id = ? AND id != ? AND status IN (?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q, models.InvoiceStatusCancelled, saleID, exceptID,
		models.InvoiceStatusOpen, models.InvoiceStatusSlipIssued, models.InvoiceStatusAwaitingSignature)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// CancelAwaitingSignatureBySale cancels the signature-gated invoices of an
// unsigned checkout.
func (r *InvoiceRepository) CancelAwaitingSignatureBySale(ctx context.Context, saleID string) (int, error) {
	const q = `UPDATE invoices SET status = ? WHERE sale_id = ? AND status = ?`
	res, err := r.DB.ExecContext(ctx, q, models.InvoiceStatusCancelled, saleID, models.InvoiceStatusAwaitingSignature)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// ReleaseAwaitingSignatureBySale opens the invoices of a checkout once its
// contract is signed.
func (r *InvoiceRepository) ReleaseAwaitingSignatureBySale(ctx context.Context, saleID string) (int, error) {
	const q = `UPDATE invoices SET status = ? WHERE sale_id = ? AND status = ?`
	res, err := r.DB.ExecContext(ctx, q, models.InvoiceStatusOpen, saleID, models.InvoiceStatusAwaitingSignature)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func collectInvoices(rows *sql.Rows) ([]models.Invoice, error) {
	var invoices []models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
