package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/financing"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/repositories"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

type ProfileHandler struct {
	ProfileRepo *repositories.ProfileRepository
	InvoiceRepo *repositories.InvoiceRepository
}

func NewProfileHandler(p *repositories.ProfileRepository, i *repositories.InvoiceRepository) *ProfileHandler {
	return &ProfileHandler{ProfileRepo: p, InvoiceRepo: i}
}

// GetProfile returns the credit profile plus the spendable limit under the
// peak-month rule: the limit minus the heaviest single month of open
// installments.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if h.ProfileRepo == nil || h.InvoiceRepo == nil {
		http.Error(w, "profiles not initialized", http.StatusInternalServerError)
		return
	}

	userID, ok := intParam(r, "user_id")
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	profile, err := h.ProfileRepo.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, "get profile: "+err.Error(), http.StatusInternalServerError)
		return
	}

	open, err := h.InvoiceRepo.OpenByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "get open invoices: "+err.Error(), http.StatusInternalServerError)
		return
	}
	byMonth := make(map[string]float64, len(open))
	for _, inv := range open {
		byMonth[timeutil.MonthKey(inv.DueDate)] += inv.Amount
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"profile":          profile,
		"available_credit": financing.AvailableMonthlyCredit(profile.CreditLimit, byMonth),
		"open_invoices":    len(open),
	})
}

// UpdateCredit sets a customer's credit limit and score. Admin only; score
// recalculation itself happens outside this system.
func (h *ProfileHandler) UpdateCredit(w http.ResponseWriter, r *http.Request) {
	if h.ProfileRepo == nil {
		http.Error(w, "profiles not initialized", http.StatusInternalServerError)
		return
	}

	userID, ok := intParam(r, "user_id")
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	var body struct {
		CreditLimit float64 `json:"credit_limit"`
		CreditScore int     `json:"credit_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.CreditLimit < 0 || body.CreditScore < 0 {
		http.Error(w, "credit_limit and credit_score cannot be negative", http.StatusBadRequest)
		return
	}

	if err := h.ProfileRepo.UpdateCredit(r.Context(), userID, body.CreditLimit, body.CreditScore); err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, "update credit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
