package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/repositories"
)

type InvoiceHandler struct {
	InvoiceRepo *repositories.InvoiceRepository
}

func NewInvoiceHandler(r *repositories.InvoiceRepository) *InvoiceHandler {
	return &InvoiceHandler{InvoiceRepo: r}
}

// GetHistory lists every invoice of a user, newest due date first.
// ?status=open narrows to the payable set.
func (h *InvoiceHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.InvoiceRepo == nil {
		http.Error(w, "invoices not initialized", http.StatusInternalServerError)
		return
	}

	userID, ok := intParam(r, "user_id")
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	var (
		invoices []models.Invoice
		err      error
	)
	if strings.EqualFold(r.URL.Query().Get("status"), "open") {
		invoices, err = h.InvoiceRepo.OpenByUser(r.Context(), userID)
	} else {
		invoices, err = h.InvoiceRepo.GetByUser(r.Context(), userID)
	}
	if err != nil {
		http.Error(w, "get invoices: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(invoices)
}
