package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RelationState - состояние связи между двумя пользователями.
// Отсутствие записи означает "связи нет".
type RelationState string

const (
	RelationPending   RelationState = "pending"
	RelationAccepted  RelationState = "accepted"
	RelationRejected  RelationState = "rejected"
	RelationCancelled RelationState = "cancelled"
	RelationBlocked   RelationState = "blocked"
)

// RelationAction - закрытый набор действий над связью.
// Строковые коды разрешены только на границе API, внутри - только enum.
type RelationAction int

const (
	ActionAdd RelationAction = iota
	ActionAccept
	ActionReject
	ActionCancel
	ActionUnfriend
	ActionBlock
	ActionUnblock
)

var actionNames = map[RelationAction]string{
	ActionAdd:      "add",
	ActionAccept:   "accept",
	ActionReject:   "reject",
	ActionCancel:   "cancel",
	ActionUnfriend: "unfriend",
	ActionBlock:    "block",
	ActionUnblock:  "unblock",
}

func (a RelationAction) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseRelationAction разбирает строковый код действия с границы API
func ParseRelationAction(s string) (RelationAction, error) {
	for action, name := range actionNames {
		if name == s {
			return action, nil
		}
	}
	return 0, fmt.Errorf("unknown relation action: %q", s)
}

// Relationship - единственная запись для неупорядоченной пары пользователей.
// InitiatorID - кто перевел связь в текущее состояние: автор заявки или блокирующий.
// PairLo/PairHi - нормализованная пара для уникального индекса,
// заполняются хуком перед сохранением.
type Relationship struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	InitiatorID   int64         `gorm:"index" json:"initiator_id"`
	CounterpartID int64         `gorm:"index" json:"counterpart_id"`
	PairLo        int64         `gorm:"uniqueIndex:relationship_pair_idx" json:"-"`
	PairHi        int64         `gorm:"uniqueIndex:relationship_pair_idx" json:"-"`
	State         RelationState `gorm:"size:20" json:"state"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (Relationship) TableName() string {
	return "relationships"
}

// BeforeSave нормализует пару, чтобы уникальный индекс работал
// независимо от направления связи
func (r *Relationship) BeforeSave(_ *gorm.DB) error {
	r.PairLo, r.PairHi = NormalizePair(r.InitiatorID, r.CounterpartID)
	return nil
}

// Other возвращает вторую сторону связи относительно userID
func (r *Relationship) Other(userID int64) int64 {
	if r.InitiatorID == userID {
		return r.CounterpartID
	}
	return r.InitiatorID
}

// NormalizePair упорядочивает пару идентификаторов
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
