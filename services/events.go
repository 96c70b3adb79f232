package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialgraph/db"
	"socialgraph/models"

	"gorm.io/gorm"
)

var ErrEventNotVisible = errors.New("event not found")

// EventService - мероприятия с меткой приватности.
// Видимость мероприятия считается той же функцией, что и у постов,
// владельцем выступает создатель.
type EventService struct {
	visibility *VisibilityService
}

func NewEventService(visibility *VisibilityService) *EventService {
	return &EventService{visibility: visibility}
}

// CreateEvent создает мероприятие
func (es *EventService) CreateEvent(ctx context.Context, creatorID int64, title, description, location string, startsAt time.Time, privacy models.Privacy) (*models.Event, error) {
	if title == "" {
		return nil, errors.New("event title cannot be empty")
	}
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	if !privacy.Valid() {
		return nil, fmt.Errorf("invalid privacy label: %q", privacy)
	}

	event := &models.Event{
		CreatorID:   creatorID,
		Title:       title,
		Description: description,
		Location:    location,
		StartsAt:    startsAt,
		Privacy:     privacy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	// Создатель участвует автоматически
	member := &models.EventMember{EventID: event.ID, UserID: creatorID, JoinedAt: time.Now()}
	if err := db.GetWriteDB(ctx).Create(member).Error; err != nil {
		return nil, fmt.Errorf("failed to add creator to event: %w", err)
	}

	return event, nil
}

// JoinEvent добавляет пользователя в участники видимого ему мероприятия
func (es *EventService) JoinEvent(ctx context.Context, userID, eventID int64) error {
	event, err := es.visibleEvent(ctx, userID, eventID)
	if err != nil {
		return err
	}

	var existing int64
	err = db.GetReadOnlyDB(ctx).Model(&models.EventMember{}).
		Where("event_id = ? AND user_id = ?", event.ID, userID).
		Count(&existing).Error
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if existing > 0 {
		return errors.New("you have already joined this event")
	}

	member := &models.EventMember{EventID: event.ID, UserID: userID, JoinedAt: time.Now()}
	if err := db.GetWriteDB(ctx).Create(member).Error; err != nil {
		return fmt.Errorf("failed to join event: %w", err)
	}
	return nil
}

// LeaveEvent убирает пользователя из участников
func (es *EventService) LeaveEvent(ctx context.Context, userID, eventID int64) error {
	res := db.GetWriteDB(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.EventMember{})
	if res.Error != nil {
		return fmt.Errorf("failed to leave event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("you are not a member of this event")
	}
	return nil
}

// ListVisibleEvents возвращает предстоящие мероприятия, видимые зрителю
func (es *EventService) ListVisibleEvents(ctx context.Context, viewerID int64, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var events []models.Event
	err := db.GetReadOnlyDB(ctx).
		Where("starts_at > ?", time.Now()).
		Order("starts_at ASC").
		Limit(limit * 3). // запас под отфильтрованные
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	visible := make([]models.Event, 0, limit)
	for _, event := range events {
		allowed, err := es.visibility.CanView(ctx, viewerID, event.CreatorID, event.Privacy)
		if err != nil {
			return nil, err
		}
		if allowed {
			visible = append(visible, event)
			if len(visible) == limit {
				break
			}
		}
	}
	return visible, nil
}

// GetEventMembers возвращает участников видимого мероприятия
func (es *EventService) GetEventMembers(ctx context.Context, viewerID, eventID int64) ([]models.User, error) {
	if _, err := es.visibleEvent(ctx, viewerID, eventID); err != nil {
		return nil, err
	}

	var members []models.User
	err := db.GetReadOnlyDB(ctx).
		Table("users u").
		Joins("JOIN event_members em ON em.user_id = u.id").
		Where("em.event_id = ?", eventID).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.city, u.created_at").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get event members: %w", err)
	}
	return members, nil
}

func (es *EventService) visibleEvent(ctx context.Context, viewerID, eventID int64) (*models.Event, error) {
	var event models.Event
	err := db.GetReadOnlyDB(ctx).First(&event, eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotVisible
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	allowed, err := es.visibility.CanView(ctx, viewerID, event.CreatorID, event.Privacy)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrEventNotVisible
	}
	return &event, nil
}
