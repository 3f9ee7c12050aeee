package models

import "time"

// InstallmentPlan is the pending instruction attached to a down-payment
// invoice: when that invoice is paid, RemainingAmount is split into Count
// installments due on DueDay of the following months. ConsumedAt guards the
// expansion so it runs at most once.
type InstallmentPlan struct {
	ID              int        `json:"id"`
	InvoiceID       int        `json:"invoice_id"`
	ContractID      int        `json:"contract_id"`
	RemainingAmount float64    `json:"remaining_amount"`
	Count           int        `json:"count"`
	DueDay          int        `json:"due_day"`
	ConsumedAt      *time.Time `json:"consumed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
