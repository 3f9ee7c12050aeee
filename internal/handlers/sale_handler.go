package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/services"
)

type SaleHandler struct {
	Service *services.SaleService
}

func NewSaleHandler(s *services.SaleService) *SaleHandler {
	return &SaleHandler{Service: s}
}

type createSaleBody struct {
	UserID          int     `json:"user_id"`
	Items           string  `json:"items"`
	Total           float64 `json:"total"`
	Installments    int     `json:"installments"`
	SaleType        string  `json:"sale_type"`
	PaymentMethod   string  `json:"payment_method"`
	DownPayment     float64 `json:"down_payment"`
	CouponCode      string  `json:"coupon_code"`
	CoinsToSpend    int     `json:"coins_to_spend"`
	DueDay          int     `json:"due_day"`
	SignatureBase64 string  `json:"signature_base64"`
}

func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		http.Error(w, "sales not initialized", http.StatusInternalServerError)
		return
	}

	var body createSaleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signature, err := decodeSignature(body.SignatureBase64)
	if err != nil {
		http.Error(w, "invalid signature_base64", http.StatusBadRequest)
		return
	}

	result, err := h.Service.CreateSale(r.Context(), services.CreateSaleRequest{
		UserID:        body.UserID,
		Items:         body.Items,
		Total:         body.Total,
		Installments:  body.Installments,
		SaleType:      body.SaleType,
		PaymentMethod: body.PaymentMethod,
		DownPayment:   body.DownPayment,
		CouponCode:    body.CouponCode,
		CoinsToSpend:  body.CoinsToSpend,
		DueDay:        body.DueDay,
		Signature:     signature,
	})
	if err != nil {
		http.Error(w, err.Error(), saleErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *SaleHandler) SignContract(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		http.Error(w, "sales not initialized", http.StatusInternalServerError)
		return
	}

	contractID, ok := intParam(r, "id")
	if !ok {
		http.Error(w, "invalid contract id", http.StatusBadRequest)
		return
	}

	var body struct {
		SignatureBase64 string `json:"signature_base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	signature, err := decodeSignature(body.SignatureBase64)
	if err != nil {
		http.Error(w, "invalid signature_base64", http.StatusBadRequest)
		return
	}

	if err := h.Service.SignContract(r.Context(), contractID, signature); err != nil {
		http.Error(w, err.Error(), saleErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "signed"})
}

func (h *SaleHandler) ChangeDueDay(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		http.Error(w, "sales not initialized", http.StatusInternalServerError)
		return
	}

	userID, ok := intParam(r, "user_id")
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	var body struct {
		DueDay int `json:"due_day"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.ChangeDueDay(r.Context(), userID, body.DueDay); err != nil {
		http.Error(w, err.Error(), saleErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "due_day": body.DueDay})
}

func decodeSignature(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// saleErrorStatus maps service errors to HTTP statuses: bad input and
// refused business rules are the client's problem, everything else is ours.
func saleErrorStatus(err error) int {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInsufficientCredit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrDueDayCooldown):
		return http.StatusConflict
	case errors.Is(err, models.ErrProfileNotFound),
		errors.Is(err, models.ErrContractNotFound),
		errors.Is(err, models.ErrInvoiceNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
