package models

import "time"

const (
	InvoiceStatusOpen              = "Em aberto"
	InvoiceStatusSlipIssued        = "Boleto Gerado"
	InvoiceStatusAwaitingSignature = "Aguardando Assinatura"
	InvoiceStatusPaid              = "Paga"
	InvoiceStatusExpired           = "Expirado"
	InvoiceStatusCancelled         = "Cancelado"
)

// OpenInvoiceStatuses is the set of states a payment event may still settle.
// Transitions out of any other state are refused, which is what makes webhook
// replays harmless.
var OpenInvoiceStatuses = []string{InvoiceStatusOpen, InvoiceStatusSlipIssued}

// Invoice is one payable row: a down payment or a single installment.
// SaleID links every row written during the same checkout, so sibling
// invoices and the contract can be found without timestamp heuristics.
type Invoice struct {
	ID            int       `json:"id"`
	SaleID        string    `json:"sale_id"`
	UserID        int       `json:"user_id"`
	Month         string    `json:"month"`
	DueDate       time.Time `json:"due_date"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	PaymentMethod string    `json:"payment_method"`
	PaymentID     string    `json:"payment_id,omitempty"`
	QRCode        string    `json:"qr_code,omitempty"`
	Barcode       string    `json:"barcode,omitempty"`
	PaymentURL    string    `json:"payment_url,omitempty"`
	DownPayment   bool      `json:"down_payment"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Settled reports whether the invoice reached a terminal state.
func (i Invoice) Settled() bool {
	switch i.Status {
	case InvoiceStatusPaid, InvoiceStatusExpired, InvoiceStatusCancelled:
		return true
	}
	return false
}
