package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"socialgraph/db"
	"socialgraph/models"
)

// NotificationService - создание и чтение уведомлений.
// Запись в БД обязательна, живая доставка (RabbitMQ -> WebSocket) best-effort.
type NotificationService struct {
	counters *CounterService
}

func NewNotificationService(counters *CounterService) *NotificationService {
	return &NotificationService{counters: counters}
}

// Create сохраняет уведомление и отправляет его получателю
func (ns *NotificationService) Create(ctx context.Context, userID int64, kind models.NotificationKind, actorID, subjectID int64, message string) error {
	notification := &models.Notification{
		UserID:    userID,
		Kind:      kind,
		ActorID:   actorID,
		SubjectID: subjectID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	ns.counters.Incr(ctx, userID, CounterNotifications, 1)

	// Живой пуш: через RabbitMQ, при недоступности напрямую в WebSocket
	event := NotifyEvent{
		NotificationID: notification.ID,
		UserID:         userID,
		Kind:           string(kind),
		ActorID:        actorID,
		SubjectID:      subjectID,
		Message:        message,
		CreatedAt:      notification.CreatedAt,
	}
	if err := PublishNotifyEvent(ctx, event); err != nil {
		log.Printf("DEBUG: RabbitMQ unavailable, pushing notification %d over WebSocket directly: %v", notification.ID, err)
		sendWsNotify(event)
	}
	return nil
}

// List возвращает уведомления пользователя, непрочитанные первыми
func (ns *NotificationService) List(ctx context.Context, userID int64, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var notifications []models.Notification
	err := db.GetReadOnlyDB(ctx).
		Where("user_id = ?", userID).
		Order("is_read ASC, created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead помечает все уведомления пользователя прочитанными
func (ns *NotificationService) MarkRead(ctx context.Context, userID int64) error {
	err := db.GetWriteDB(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	ns.counters.Reset(ctx, userID, CounterNotifications)
	return nil
}

// sendWsNotify пушит событие напрямую в открытые сокеты получателя
func sendWsNotify(event NotifyEvent) {
	pushMsg := struct {
		Event string `json:"event"`
		NotifyEvent
	}{
		Event:       "notification",
		NotifyEvent: event,
	}
	data, err := json.Marshal(pushMsg)
	if err != nil {
		log.Printf("ERROR: failed to marshal notification push: %v", err)
		return
	}
	GlobalWSConnManager.Send(event.UserID, data)
}
