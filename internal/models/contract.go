package models

import "time"

const (
	ContractStatusAwaitingSignature = "Aguardando Assinatura"
	ContractStatusSigned            = "Assinado"
	ContractStatusActive            = "Ativo"
	ContractStatusCancelled         = "Cancelado"
)

// Contract is a credit agreement created once per sale. Status only moves
// forward; Cancelado is terminal.
type Contract struct {
	ID               int       `json:"id"`
	SaleID           string    `json:"sale_id"`
	UserID           int       `json:"user_id"`
	Items            string    `json:"items"`
	TotalValue       float64   `json:"total_value"`
	InstallmentCount int       `json:"installment_count"`
	Status           string    `json:"status"`
	SignatureURL     string    `json:"signature_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
