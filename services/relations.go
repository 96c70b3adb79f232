package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialgraph/db"
	"socialgraph/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var relationTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relation_transitions_total",
		Help: "Total number of relationship transition attempts",
	},
	[]string{"action", "result"},
)

// RelationStore - атомарные операции над записями связей.
// Все мутирующие методы принимают tx и должны вызываться внутри одной
// транзакции вместе с чтением состояния: read-decide-write для пары
// не должен перемежаться с другими переходами.
type RelationStore struct{}

func NewRelationStore() *RelationStore {
	return &RelationStore{}
}

// Get возвращает запись пары независимо от порядка аргументов, nil если записи нет
func (s *RelationStore) Get(tx *gorm.DB, a, b int64) (*models.Relationship, error) {
	lo, hi := models.NormalizePair(a, b)
	var rel models.Relationship
	err := tx.Where("pair_lo = ? AND pair_hi = ?", lo, hi).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return &rel, nil
}

// Create вставляет новую запись для пары. Уникальный индекс по нормализованной
// паре превращает гонку двух одновременных созданий в ErrConflict.
func (s *RelationStore) Create(tx *gorm.DB, initiatorID, counterpartID int64, state models.RelationState) (*models.Relationship, error) {
	now := time.Now()
	rel := &models.Relationship{
		InitiatorID:   initiatorID,
		CounterpartID: counterpartID,
		State:         state,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Create(rel).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to create relationship: %w", err)
	}
	return rel, nil
}

// CreatePending создает заявку в друзья
func (s *RelationStore) CreatePending(tx *gorm.DB, initiatorID, targetID int64) (*models.Relationship, error) {
	return s.Create(tx, initiatorID, targetID, models.RelationPending)
}

// Transition - compare-and-set по наблюдаемому состоянию: если запись уже
// в другом состоянии, возвращает ErrStaleState и вызывающий обязан перечитать
// и заново прогнать таблицу переходов. Повторная заявка после отказа
// переиспользует запись: инициатор переназначается и created_at сбрасывается,
// resetCreatedAt сбрасывает его и без смены инициатора.
func (s *RelationStore) Transition(tx *gorm.DB, rel *models.Relationship, newState models.RelationState, newInitiatorID int64, resetCreatedAt bool) (*models.Relationship, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"state":      newState,
		"updated_at": now,
	}
	if newInitiatorID != 0 && newInitiatorID != rel.InitiatorID {
		updates["initiator_id"] = newInitiatorID
		updates["counterpart_id"] = rel.Other(newInitiatorID)
		resetCreatedAt = true
	}
	if resetCreatedAt {
		updates["created_at"] = now
	}

	res := tx.Model(&models.Relationship{}).
		Where("id = ? AND state = ?", rel.ID, rel.State).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to transition relationship: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleState
	}

	var updated models.Relationship
	if err := tx.First(&updated, rel.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload relationship: %w", err)
	}
	return &updated, nil
}

// Replace - деструктивный переход: старая запись удаляется и создается новая
// с другим инициатором (block поверх чужой записи). CAS на удалении защищает
// от гонки с параллельным переходом.
func (s *RelationStore) Replace(tx *gorm.DB, rel *models.Relationship, newInitiatorID int64, newState models.RelationState) (*models.Relationship, error) {
	res := tx.Where("id = ? AND state = ?", rel.ID, rel.State).Delete(&models.Relationship{})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to replace relationship: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleState
	}
	return s.Create(tx, newInitiatorID, rel.Other(newInitiatorID), newState)
}

// Delete удаляет запись, пара возвращается в состояние "связи нет"
func (s *RelationStore) Delete(tx *gorm.DB, rel *models.Relationship) error {
	res := tx.Where("id = ? AND state = ?", rel.ID, rel.State).Delete(&models.Relationship{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete relationship: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStaleState
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

// RelationService исполняет действия над связями: проверки на границе,
// транзакционный read-decide-write и диспетчеризация эффектов после коммита
type RelationService struct {
	store      *RelationStore
	dispatcher *EffectDispatcher
}

func NewRelationService(dispatcher *EffectDispatcher) *RelationService {
	return &RelationService{
		store:      NewRelationStore(),
		dispatcher: dispatcher,
	}
}

// Apply выполняет действие actor -> target. Терминальные отказы таблицы
// возвращаются как InvalidTransitionError, гонка ретраится один раз,
// эффекты уходят только после успешного коммита.
func (rs *RelationService) Apply(ctx context.Context, actorID, targetID int64, action models.RelationAction) (*models.Relationship, error) {
	if actorID == targetID {
		relationTransitionsTotal.WithLabelValues(action.String(), "self_target").Inc()
		return nil, ErrSelfTarget
	}

	var exists int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("id = ?", targetID).Count(&exists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check target user: %w", err)
	}
	if exists == 0 {
		relationTransitionsTotal.WithLabelValues(action.String(), "not_found").Inc()
		return nil, ErrUserNotFound
	}

	rel, effects, err := rs.applyOnce(ctx, actorID, targetID, action)
	if errors.Is(err, ErrStaleState) || errors.Is(err, ErrConflict) {
		// Параллельный переход успел раньше: перечитываем состояние
		// и прогоняем таблицу еще раз
		rel, effects, err = rs.applyOnce(ctx, actorID, targetID, action)
		if errors.Is(err, ErrStaleState) || errors.Is(err, ErrConflict) {
			relationTransitionsTotal.WithLabelValues(action.String(), "transient").Inc()
			return nil, ErrTransient
		}
	}
	if err != nil {
		if IsInvalidTransition(err) {
			relationTransitionsTotal.WithLabelValues(action.String(), "rejected").Inc()
		} else {
			relationTransitionsTotal.WithLabelValues(action.String(), "error").Inc()
		}
		return nil, err
	}

	relationTransitionsTotal.WithLabelValues(action.String(), "ok").Inc()
	rs.dispatcher.Dispatch(ctx, effects)
	return rel, nil
}

// applyOnce - одна попытка read-decide-write в одной транзакции
func (rs *RelationService) applyOnce(ctx context.Context, actorID, targetID int64, action models.RelationAction) (*models.Relationship, []Effect, error) {
	var result *models.Relationship
	var effects []Effect

	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		rel, err := rs.store.Get(tx, actorID, targetID)
		if err != nil {
			return err
		}

		dec, err := Decide(rel, actorID, targetID, action)
		if err != nil {
			return err
		}

		switch dec.Op {
		case OpCreate:
			result, err = rs.store.Create(tx, dec.NewInitiatorID, targetID, dec.NewState)
		case OpUpdate:
			result, err = rs.store.Transition(tx, rel, dec.NewState, dec.NewInitiatorID, dec.ResetTimestamps)
		case OpReplace:
			result, err = rs.store.Replace(tx, rel, dec.NewInitiatorID, dec.NewState)
		case OpDelete:
			result = nil
			err = rs.store.Delete(tx, rel)
		default:
			err = fmt.Errorf("unknown decision op: %d", dec.Op)
		}
		if err != nil {
			return err
		}

		effects = dec.Effects
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, effects, nil
}

// Get возвращает текущую связь пары (nil, если связи нет)
func (rs *RelationService) Get(ctx context.Context, a, b int64) (*models.Relationship, error) {
	return rs.store.Get(db.GetReadOnlyDB(ctx), a, b)
}

// GetFriends возвращает список друзей пользователя
func (rs *RelationService) GetFriends(ctx context.Context, userID int64) ([]models.User, error) {
	var friends []models.User
	err := db.GetReadOnlyDB(ctx).
		Table("users u").
		Joins("JOIN relationships r ON (r.initiator_id = u.id AND r.counterpart_id = ?) OR (r.counterpart_id = u.id AND r.initiator_id = ?)", userID, userID).
		Where("r.state = ? AND u.id != ?", models.RelationAccepted, userID).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.city, u.created_at").
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	return friends, nil
}

// GetPendingRequests возвращает входящие заявки в друзья
func (rs *RelationService) GetPendingRequests(ctx context.Context, userID int64) ([]models.User, error) {
	var requesters []models.User
	err := db.GetReadOnlyDB(ctx).
		Table("users u").
		Joins("JOIN relationships r ON r.initiator_id = u.id").
		Where("r.counterpart_id = ? AND r.state = ?", userID, models.RelationPending).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.city, u.created_at").
		Find(&requesters).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending requests: %w", err)
	}
	return requesters, nil
}

// GetOutgoingRequests возвращает исходящие заявки пользователя
func (rs *RelationService) GetOutgoingRequests(ctx context.Context, userID int64) ([]models.User, error) {
	var targets []models.User
	err := db.GetReadOnlyDB(ctx).
		Table("users u").
		Joins("JOIN relationships r ON r.counterpart_id = u.id").
		Where("r.initiator_id = ? AND r.state = ?", userID, models.RelationPending).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.city, u.created_at").
		Find(&targets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get outgoing requests: %w", err)
	}
	return targets, nil
}

// GetBlockedUsers возвращает пользователей, заблокированных userID
func (rs *RelationService) GetBlockedUsers(ctx context.Context, userID int64) ([]models.User, error) {
	var blocked []models.User
	err := db.GetReadOnlyDB(ctx).
		Table("users u").
		Joins("JOIN relationships r ON r.counterpart_id = u.id").
		Where("r.initiator_id = ? AND r.state = ?", userID, models.RelationBlocked).
		Select("u.id, u.nickname, u.first_name, u.last_name, u.city, u.created_at").
		Find(&blocked).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get blocked users: %w", err)
	}
	return blocked, nil
}

// FriendIDs возвращает идентификаторы друзей (для построения ленты)
func (rs *RelationService) FriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.Relationship{}).
		Where("(initiator_id = ? OR counterpart_id = ?) AND state = ?", userID, userID, models.RelationAccepted).
		Select("CASE WHEN initiator_id = ? THEN counterpart_id ELSE initiator_id END", userID).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friend ids: %w", err)
	}
	return ids, nil
}
