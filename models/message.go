package models

import (
	"time"

	"gorm.io/gorm"
)

// Message - сообщение в переписке пары. Живет до блокировки:
// block вычищает переписку пары целиком в обоих направлениях.
// Флаг is_read питает счетчик непрочитанных у получателя.
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FromUserID int64     `gorm:"column:from_user_id;index:idx_messages_dialog" json:"from_id"`
	ToUserID   int64     `gorm:"column:to_user_id;index:idx_messages_dialog" json:"to_id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	IsRead     bool      `gorm:"default:false" json:"is_read"`
}

func (Message) TableName() string {
	return "messages"
}

// DialogBetween - scope выборки переписки пары независимо от направления
func DialogBetween(a, b int64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			a, b, b, a)
	}
}
