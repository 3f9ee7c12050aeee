package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/services"
)

type MercadoPagoHandler struct {
	Reconciler *services.ReconcilerService
}

func NewMercadoPagoHandler(rec *services.ReconcilerService) *MercadoPagoHandler {
	return &MercadoPagoHandler{Reconciler: rec}
}

// Webhook receives payment event deliveries. Anything the reconciler settled
// (applied, ignored, stale) is answered 200 so the gateway stops retrying;
// only a processing error earns a 5xx and a redelivery.
func (h *MercadoPagoHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.Reconciler == nil {
		http.Error(w, "reconciler not initialized", http.StatusInternalServerError)
		return
	}

	payload, err := services.ParseWebhook(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.Reconciler.ProcessEvent(r.Context(), payload)
	if err != nil {
		http.Error(w, "process event: "+err.Error(), webhookErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"outcome": string(outcome),
	})
}

// webhookErrorStatus keeps gateway trouble distinguishable from our own: a
// gateway-side reply is 502, everything else 500. Both make the gateway
// redeliver.
func webhookErrorStatus(err error) int {
	var gwErr *services.GatewayError
	if errors.As(err, &gwErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *MercadoPagoHandler) SuccessRedirect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (h *MercadoPagoHandler) FailureRedirect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "failure"})
}
