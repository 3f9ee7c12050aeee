package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/services"
)

type CronHandler struct {
	Sweeper *services.SweeperService
}

func NewCronHandler(s *services.SweeperService) *CronHandler {
	return &CronHandler{Sweeper: s}
}

// Sweep runs one cleanup pass on demand. The internal ticker covers normal
// operation; this endpoint exists for external schedulers and operators.
func (h *CronHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		http.Error(w, "sweeper not initialized", http.StatusInternalServerError)
		return
	}

	summary, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		http.Error(w, "sweep: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
