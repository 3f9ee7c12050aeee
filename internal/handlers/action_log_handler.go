package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/repositories"
)

const actionLogDefaultLimit = 50

type ActionLogHandler struct {
	Repo *repositories.ActionLogRepository
}

func NewActionLogHandler(r *repositories.ActionLogRepository) *ActionLogHandler {
	return &ActionLogHandler{Repo: r}
}

// GetRecent pages through the operational log, newest first. Failed entries
// (late payments, gateway errors) are the ones operators come here for.
func (h *ActionLogHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		http.Error(w, "action log not initialized", http.StatusInternalServerError)
		return
	}

	limit := actionLogDefaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}

	entries, err := h.Repo.Recent(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, "get action log: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.ActionLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"entries": entries,
		"limit":   limit,
		"offset":  offset,
	})
}
