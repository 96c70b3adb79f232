package models

import "time"

// Privacy - метка приватности контента
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyFriends Privacy = "friends"
	PrivacyPrivate Privacy = "private"
)

// Valid проверяет, что метка приватности известна
func (p Privacy) Valid() bool {
	return p == PrivacyPublic || p == PrivacyFriends || p == PrivacyPrivate
}

// Post - модель поста пользователя
type Post struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	Privacy   Privacy   `gorm:"size:20;default:public" json:"privacy"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string {
	return "posts"
}

// Comment - комментарий к посту
type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"index" json:"post_id"`
	UserID    int64     `gorm:"index" json:"user_id"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}

// Like - лайк поста, не больше одного на пользователя
type Like struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PostID    int64     `gorm:"uniqueIndex:like_post_user_idx" json:"post_id"`
	UserID    int64     `gorm:"uniqueIndex:like_post_user_idx" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string {
	return "likes"
}

// FeedPost - структура для ленты с дополнительной информацией о пользователе
type FeedPost struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	Privacy   Privacy   `json:"privacy"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedResponse - ответ API для ленты
type FeedResponse struct {
	Posts   []FeedPost `json:"posts"`
	HasMore bool       `json:"has_more"`
	LastID  int64      `json:"last_id,omitempty"`
}
