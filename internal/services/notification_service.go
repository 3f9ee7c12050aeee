package services

import (
	"context"
	"log"
	"time"

	"firebase.google.com/go/messaging"

	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/models"
	"github.com/costa007m5-ctrl/Hep-Cell-sub001/internal/timeutil"
)

type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) (int, error)
	SentToday(ctx context.Context, userID int, title string, day time.Time) (bool, error)
	DeviceTokens(ctx context.Context, userID int) ([]string, error)
}

// Broadcaster pushes a notification to connected websocket clients.
type Broadcaster interface {
	Broadcast(userID int, n models.Notification)
}

// NotificationService is the fire-and-forget side channel: insert the row,
// push over websocket, push over FCM. Failures are logged and swallowed so
// notification trouble never blocks a ledger write.
type NotificationService struct {
	Repo     NotificationStore
	FCM      *messaging.Client
	Hub      Broadcaster
	ErrorLog *log.Logger
}

func (s *NotificationService) Notify(ctx context.Context, userID int, title, message, ntype string) {
	n := models.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      ntype,
		CreatedAt: timeutil.Now(),
	}

	id, err := s.Repo.Create(ctx, n)
	if err != nil {
		s.ErrorLog.Printf("notification: failed to store for user %d: %v", userID, err)
		return
	}
	n.ID = id

	if s.Hub != nil {
		s.Hub.Broadcast(userID, n)
	}
	s.push(ctx, userID, title, message)
}

// SentToday exposes the same-day dedupe check used by the sweeper reminders.
func (s *NotificationService) SentToday(ctx context.Context, userID int, title string) (bool, error) {
	return s.Repo.SentToday(ctx, userID, title, timeutil.Now())
}

func (s *NotificationService) push(ctx context.Context, userID int, title, body string) {
	if s.FCM == nil {
		return
	}
	tokens, err := s.Repo.DeviceTokens(ctx, userID)
	if err != nil {
		s.ErrorLog.Printf("notification: failed to load device tokens for user %d: %v", userID, err)
		return
	}
	for _, token := range tokens {
		msg := &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Android: &messaging.AndroidConfig{Priority: "high"},
		}
		if _, err := s.FCM.Send(ctx, msg); err != nil {
			s.ErrorLog.Printf("notification: fcm send failed for user %d: %v", userID, err)
		}
	}
}
