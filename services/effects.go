package services

import (
	"context"
	"fmt"
	"log"

	"socialgraph/db"
	"socialgraph/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var effectDispatchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "effect_dispatches_total",
		Help: "Total number of relationship side effect dispatches",
	},
	[]string{"kind", "status"},
)

// EffectDispatcher исполняет эффекты закоммиченных переходов: уведомления,
// чистку переписки при блокировке, счетчики. Каждый эффект отправляется
// ровно один раз; сбой доставки логируется и не откатывает переход -
// доставка best-effort, консистентность связи - нет.
type EffectDispatcher struct {
	notifications *NotificationService
	messages      *MessageService
	counters      *CounterService
}

func NewEffectDispatcher(notifications *NotificationService, messages *MessageService, counters *CounterService) *EffectDispatcher {
	return &EffectDispatcher{
		notifications: notifications,
		messages:      messages,
		counters:      counters,
	}
}

// Dispatch разбирает список эффектов от машины состояний
func (d *EffectDispatcher) Dispatch(ctx context.Context, effects []Effect) {
	for _, eff := range effects {
		if err := d.dispatchOne(ctx, eff); err != nil {
			log.Printf("ERROR: effect %s for user %d failed: %v", eff.Kind, eff.RecipientID, err)
			effectDispatchesTotal.WithLabelValues(string(eff.Kind), "error").Inc()
			continue
		}
		effectDispatchesTotal.WithLabelValues(string(eff.Kind), "ok").Inc()
	}
}

func (d *EffectDispatcher) dispatchOne(ctx context.Context, eff Effect) error {
	switch eff.Kind {
	case EffectFriendRequest:
		err := d.notifications.Create(ctx, eff.RecipientID, models.NotifyFriendRequest, eff.ActorID, eff.ActorID,
			fmt.Sprintf("%s sent you a friend request", d.actorName(ctx, eff.ActorID)))
		if err != nil {
			return err
		}
		d.counters.Incr(ctx, eff.RecipientID, CounterFriendRequests, 1)
		return nil
	case EffectFriendAccept:
		err := d.notifications.Create(ctx, eff.RecipientID, models.NotifyFriendAccept, eff.ActorID, eff.ActorID,
			fmt.Sprintf("%s accepted your friend request", d.actorName(ctx, eff.ActorID)))
		if err != nil {
			return err
		}
		// Заявка закрыта - входящий счетчик получателя заявки уменьшается
		d.counters.Incr(ctx, eff.ActorID, CounterFriendRequests, -1)
		return nil
	case EffectPurgeMessages:
		return d.messages.PurgeTranscript(ctx, eff.ActorID, eff.RecipientID)
	default:
		return fmt.Errorf("unknown effect kind: %q", eff.Kind)
	}
}

// actorName возвращает имя актора для текста уведомления,
// при ошибке - нейтральную подстановку
func (d *EffectDispatcher) actorName(ctx context.Context, userID int64) string {
	var user models.User
	if err := db.GetReadOnlyDB(ctx).First(&user, userID).Error; err != nil {
		return "Someone"
	}
	return user.Nickname
}
