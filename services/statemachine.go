package services

import (
	"fmt"

	"socialgraph/models"
)

// EffectKind - тип побочного эффекта, исполняемого после коммита перехода
type EffectKind string

const (
	EffectFriendRequest EffectKind = "friend_request"
	EffectFriendAccept  EffectKind = "friend_accept"
	EffectPurgeMessages EffectKind = "purge_messages"
)

// Effect - описание побочного эффекта. Диспетчеризуется ровно один раз
// на успешный переход, сбои доставки не откатывают сам переход.
type Effect struct {
	Kind        EffectKind `json:"kind"`
	RecipientID int64      `json:"recipient_id"`
	ActorID     int64      `json:"actor_id"`
	SubjectID   int64      `json:"subject_id"`
}

// DecisionOp - что стор должен сделать с записью
type DecisionOp int

const (
	// OpCreate - записи нет, создать новую
	OpCreate DecisionOp = iota
	// OpUpdate - сменить состояние существующей записи (CAS по наблюдаемому состоянию)
	OpUpdate
	// OpReplace - удалить запись и создать новую с актором-инициатором.
	// Блокировка поверх чужой записи деструктивна: инициатор определяет,
	// кому разрешен unblock, поэтому строку нельзя просто перекрасить.
	OpReplace
	// OpDelete - удалить запись, пара возвращается в состояние "связи нет"
	OpDelete
)

// Decision - результат разбора таблицы переходов
type Decision struct {
	Op             DecisionOp
	NewState       models.RelationState
	NewInitiatorID int64
	// ResetTimestamps - запись переиспользуется как новая заявка,
	// created_at должен быть сброшен даже без смены инициатора
	ResetTimestamps bool
	Effects         []Effect
}

// Decide - чистая функция таблицы переходов: по текущей записи (nil = связи нет),
// актору и действию возвращает решение или терминальный отказ.
// Стор и транзакции ее не касаются, решение исполняет RelationService.
func Decide(rel *models.Relationship, actorID, targetID int64, action models.RelationAction) (*Decision, error) {
	if rel == nil {
		return decideNone(actorID, targetID, action)
	}

	switch rel.State {
	case models.RelationPending:
		return decidePending(rel, actorID, targetID, action)
	case models.RelationAccepted:
		return decideAccepted(rel, actorID, targetID, action)
	case models.RelationRejected, models.RelationCancelled:
		return decideDormant(rel, actorID, targetID, action)
	case models.RelationBlocked:
		return decideBlocked(rel, actorID, action)
	default:
		return nil, fmt.Errorf("unknown relationship state: %q", rel.State)
	}
}

// blockDecision строит решение для block поверх любого небруненного состояния.
// Если актор уже инициатор записи - достаточно сменить состояние,
// иначе запись пересоздается, чтобы инициатором стал блокирующий.
func blockDecision(rel *models.Relationship, actorID, targetID int64) *Decision {
	op := OpReplace
	if rel.InitiatorID == actorID {
		op = OpUpdate
	}
	return &Decision{
		Op:             op,
		NewState:       models.RelationBlocked,
		NewInitiatorID: actorID,
		Effects: []Effect{
			{Kind: EffectPurgeMessages, RecipientID: targetID, ActorID: actorID},
		},
	}
}

func decideNone(actorID, targetID int64, action models.RelationAction) (*Decision, error) {
	switch action {
	case models.ActionAdd:
		return &Decision{
			Op:             OpCreate,
			NewState:       models.RelationPending,
			NewInitiatorID: actorID,
			Effects: []Effect{
				{Kind: EffectFriendRequest, RecipientID: targetID, ActorID: actorID},
			},
		}, nil
	case models.ActionBlock:
		return &Decision{
			Op:             OpCreate,
			NewState:       models.RelationBlocked,
			NewInitiatorID: actorID,
			Effects: []Effect{
				{Kind: EffectPurgeMessages, RecipientID: targetID, ActorID: actorID},
			},
		}, nil
	case models.ActionAccept:
		return nil, invalidTransition("there is no pending friend request from this user")
	case models.ActionReject:
		return nil, invalidTransition("there is no pending friend request to reject")
	case models.ActionCancel:
		return nil, invalidTransition("there is no pending friend request to cancel")
	case models.ActionUnfriend:
		return nil, invalidTransition("you are not friends with this user")
	case models.ActionUnblock:
		return nil, invalidTransition("this user is not blocked")
	default:
		return nil, fmt.Errorf("unknown relation action: %v", action)
	}
}

func decidePending(rel *models.Relationship, actorID, targetID int64, action models.RelationAction) (*Decision, error) {
	actorIsInitiator := rel.InitiatorID == actorID

	switch action {
	case models.ActionAdd:
		if actorIsInitiator {
			return nil, invalidTransition("you have already sent a friend request to this user")
		}
		// Встречная заявка трактуется как согласие
		return acceptDecision(rel), nil
	case models.ActionAccept:
		if actorIsInitiator {
			return nil, invalidTransition("you cannot accept your own friend request")
		}
		return acceptDecision(rel), nil
	case models.ActionReject:
		if actorIsInitiator {
			return nil, invalidTransition("only the recipient can reject a friend request")
		}
		return &Decision{Op: OpUpdate, NewState: models.RelationRejected, NewInitiatorID: rel.InitiatorID}, nil
	case models.ActionCancel:
		if !actorIsInitiator {
			return nil, invalidTransition("only the requester can cancel a friend request")
		}
		return &Decision{Op: OpDelete}, nil
	case models.ActionUnfriend:
		return nil, invalidTransition("you are not friends with this user")
	case models.ActionBlock:
		return blockDecision(rel, actorID, targetID), nil
	case models.ActionUnblock:
		return nil, invalidTransition("this user is not blocked")
	default:
		return nil, fmt.Errorf("unknown relation action: %v", action)
	}
}

// acceptDecision переводит заявку в принятую; уведомление уходит
// автору исходной заявки
func acceptDecision(rel *models.Relationship) *Decision {
	return &Decision{
		Op:             OpUpdate,
		NewState:       models.RelationAccepted,
		NewInitiatorID: rel.InitiatorID,
		Effects: []Effect{
			{Kind: EffectFriendAccept, RecipientID: rel.InitiatorID, ActorID: rel.CounterpartID},
		},
	}
}

func decideAccepted(rel *models.Relationship, actorID, targetID int64, action models.RelationAction) (*Decision, error) {
	switch action {
	case models.ActionAdd, models.ActionAccept:
		return nil, invalidTransition("you are already friends with this user")
	case models.ActionReject:
		return nil, invalidTransition("there is no pending friend request to reject")
	case models.ActionCancel:
		return nil, invalidTransition("there is no pending friend request to cancel")
	case models.ActionUnfriend:
		return &Decision{Op: OpDelete}, nil
	case models.ActionBlock:
		return blockDecision(rel, actorID, targetID), nil
	case models.ActionUnblock:
		return nil, invalidTransition("this user is not blocked")
	default:
		return nil, fmt.Errorf("unknown relation action: %v", action)
	}
}

// decideDormant - состояния rejected и cancelled: запись осталась,
// но повторная заявка разрешена любой из сторон и переиспользует запись
func decideDormant(rel *models.Relationship, actorID, targetID int64, action models.RelationAction) (*Decision, error) {
	switch action {
	case models.ActionAdd:
		return &Decision{
			Op:              OpUpdate,
			NewState:        models.RelationPending,
			NewInitiatorID:  actorID,
			ResetTimestamps: true,
			Effects: []Effect{
				{Kind: EffectFriendRequest, RecipientID: targetID, ActorID: actorID},
			},
		}, nil
	case models.ActionAccept:
		return nil, invalidTransition("there is no pending friend request from this user")
	case models.ActionReject:
		return nil, invalidTransition("there is no pending friend request to reject")
	case models.ActionCancel:
		return nil, invalidTransition("there is no pending friend request to cancel")
	case models.ActionUnfriend:
		return nil, invalidTransition("you are not friends with this user")
	case models.ActionBlock:
		return blockDecision(rel, actorID, targetID), nil
	case models.ActionUnblock:
		return nil, invalidTransition("this user is not blocked")
	default:
		return nil, fmt.Errorf("unknown relation action: %v", action)
	}
}

func decideBlocked(rel *models.Relationship, actorID int64, action models.RelationAction) (*Decision, error) {
	actorIsBlocker := rel.InitiatorID == actorID

	switch action {
	case models.ActionUnblock:
		if !actorIsBlocker {
			return nil, invalidTransition("only the user who blocked may unblock")
		}
		return &Decision{Op: OpDelete}, nil
	case models.ActionBlock:
		if actorIsBlocker {
			return nil, invalidTransition("this user is already blocked")
		}
		return nil, invalidTransition("this user has blocked you")
	case models.ActionAdd:
		if actorIsBlocker {
			return nil, invalidTransition("you have blocked this user")
		}
		return nil, invalidTransition("this user has blocked you")
	case models.ActionAccept, models.ActionReject, models.ActionCancel, models.ActionUnfriend:
		if actorIsBlocker {
			return nil, invalidTransition("you have blocked this user")
		}
		return nil, invalidTransition("this user has blocked you")
	default:
		return nil, fmt.Errorf("unknown relation action: %v", action)
	}
}
