package models

import "time"

// NotificationKind - тип уведомления
type NotificationKind string

const (
	NotifyFriendRequest NotificationKind = "friend_request"
	NotifyFriendAccept  NotificationKind = "friend_accept"
	NotifyPostComment   NotificationKind = "post_comment"
	NotifyPostLike      NotificationKind = "post_like"
	NotifyEventInvite   NotificationKind = "event_invite"
)

// Notification - уведомление пользователя.
// SubjectID - ссылка на сущность-предмет (пост, событие, пользователь),
// интерпретация зависит от Kind.
type Notification struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64            `gorm:"index" json:"user_id"`
	Kind      NotificationKind `gorm:"size:30" json:"kind"`
	ActorID   int64            `json:"actor_id"`
	SubjectID int64            `json:"subject_id"`
	Message   string           `gorm:"size:255" json:"message"`
	IsRead    bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
