package models

import "time"

// Event - мероприятие, создаваемое пользователем
type Event struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatorID   int64     `gorm:"index" json:"creator_id"`
	Title       string    `gorm:"size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `gorm:"size:255" json:"location"`
	StartsAt    time.Time `gorm:"index" json:"starts_at"`
	Privacy     Privacy   `gorm:"size:20;default:public" json:"privacy"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

// EventMember - участие пользователя в мероприятии
type EventMember struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID  int64     `gorm:"uniqueIndex:event_member_idx" json:"event_id"`
	UserID   int64     `gorm:"uniqueIndex:event_member_idx" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (EventMember) TableName() string {
	return "event_members"
}
