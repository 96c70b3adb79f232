package services

import (
	"context"

	"socialgraph/db"
	"socialgraph/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var visibilityChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "visibility_checks_total",
		Help: "Total number of content visibility checks",
	},
	[]string{"privacy", "decision"},
)

// VisibilityService решает, виден ли контент владельца зрителю.
// Решение - чистая функция от (зритель, владелец, приватность) и текущего
// состояния связи; оно пересчитывается на каждом доступе и никогда
// не кешируется: устаревшее "можно" после unfriend или block - утечка.
type VisibilityService struct {
	store *RelationStore
}

func NewVisibilityService() *VisibilityService {
	return &VisibilityService{store: NewRelationStore()}
}

// CanView проверяет видимость контента с меткой privacy.
// Блокировка со стороны владельца прячет от заблокированного весь контент,
// включая публичный - политика применяется одинаково на всех поверхностях
// (лента, профиль, комментарии, поиск, сообщения).
func (vs *VisibilityService) CanView(ctx context.Context, viewerID, ownerID int64, privacy models.Privacy) (bool, error) {
	if viewerID == ownerID {
		visibilityChecksTotal.WithLabelValues(string(privacy), "allow").Inc()
		return true, nil
	}

	rel, err := vs.store.Get(db.GetReadOnlyDB(ctx), viewerID, ownerID)
	if err != nil {
		return false, err
	}

	allowed := false
	switch {
	case rel != nil && rel.State == models.RelationBlocked && rel.InitiatorID == ownerID:
		allowed = false
	case privacy == models.PrivacyPublic:
		allowed = true
	case privacy == models.PrivacyFriends:
		allowed = rel != nil && rel.State == models.RelationAccepted
	default:
		// private и любые неизвестные метки видны только владельцу
		allowed = false
	}

	decision := "deny"
	if allowed {
		decision = "allow"
	}
	visibilityChecksTotal.WithLabelValues(string(privacy), decision).Inc()
	return allowed, nil
}

// BlockBetween возвращает запись блокировки между парой в любом направлении,
// nil если блокировки нет. Используется слоем сообщений: доставка запрещена,
// если любая из сторон заблокировала другую.
func (vs *VisibilityService) BlockBetween(ctx context.Context, a, b int64) (*models.Relationship, error) {
	rel, err := vs.store.Get(db.GetReadOnlyDB(ctx), a, b)
	if err != nil {
		return nil, err
	}
	if rel != nil && rel.State == models.RelationBlocked {
		return rel, nil
	}
	return nil, nil
}
