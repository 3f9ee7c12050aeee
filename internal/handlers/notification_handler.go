package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/repositories"
)

type NotificationHandler struct {
	Repo *repositories.NotificationRepository
}

func NewNotificationHandler(r *repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{Repo: r}
}

func (h *NotificationHandler) GetUnread(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		http.Error(w, "notifications not initialized", http.StatusInternalServerError)
		return
	}

	userID, ok := intParam(r, "user_id")
	if !ok {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	notifications, err := h.Repo.UnreadByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "get notifications: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		http.Error(w, "notifications not initialized", http.StatusInternalServerError)
		return
	}

	id, ok := intParam(r, "id")
	if !ok {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	if err := h.Repo.MarkRead(r.Context(), id); err != nil {
		http.Error(w, "mark read: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RegisterDevice stores an FCM token so payment notifications reach the
// user's phone.
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	if h.Repo == nil {
		http.Error(w, "notifications not initialized", http.StatusInternalServerError)
		return
	}

	var body struct {
		UserID int    `json:"user_id"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.UserID <= 0 || strings.TrimSpace(body.Token) == "" {
		http.Error(w, "user_id and token are required", http.StatusBadRequest)
		return
	}

	if err := h.Repo.SaveDeviceToken(r.Context(), body.UserID, body.Token); err != nil {
		http.Error(w, "save token: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
