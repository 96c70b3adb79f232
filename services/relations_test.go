package services

import (
	"context"
	"testing"
	"time"

	"socialgraph/db"
	"socialgraph/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplyAddCreatesPendingAndNotifies(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	rel, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	require.NotNil(t, rel)
	require.Equal(t, models.RelationPending, rel.State)
	require.Equal(t, aliceID, rel.InitiatorID)
	require.Equal(t, bobID, rel.CounterpartID)

	// Эффект перехода: у получателя появилось уведомление о заявке
	var notifications []models.Notification
	require.NoError(t, db.ORM.Where("user_id = ?", bobID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, models.NotifyFriendRequest, notifications[0].Kind)
	require.Equal(t, aliceID, notifications[0].ActorID)
}

func TestApplySelfTarget(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()

	aliceID := createTestUser(t, "alice")

	_, err := rs.Apply(context.Background(), aliceID, aliceID, models.ActionAdd)
	require.ErrorIs(t, err, ErrSelfTarget)
}

func TestApplyUnknownTarget(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()

	aliceID := createTestUser(t, "alice")

	_, err := rs.Apply(context.Background(), aliceID, 99999, models.ActionAdd)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestApplyGetIsSymmetric(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)

	// Обе стороны видят одну и ту же запись независимо от порядка аргументов
	relAB, err := rs.Get(ctx, aliceID, bobID)
	require.NoError(t, err)
	relBA, err := rs.Get(ctx, bobID, aliceID)
	require.NoError(t, err)
	require.NotNil(t, relAB)
	require.NotNil(t, relBA)
	require.Equal(t, relAB.ID, relBA.ID)
}

func TestApplyAcceptMakesFriends(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	rel, err := rs.Apply(ctx, bobID, aliceID, models.ActionAccept)
	require.NoError(t, err)
	require.Equal(t, models.RelationAccepted, rel.State)

	friends, err := rs.GetFriends(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.Equal(t, bobID, friends[0].ID)

	friends, err = rs.GetFriends(ctx, bobID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.Equal(t, aliceID, friends[0].ID)

	// Уведомление о согласии уходит автору заявки
	var notifications []models.Notification
	require.NoError(t, db.ORM.Where("user_id = ? AND kind = ?", aliceID, models.NotifyFriendAccept).Find(&notifications).Error)
	require.Len(t, notifications, 1)
}

func TestApplyMutualAddAutoAccepts(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	rel, err := rs.Apply(ctx, bobID, aliceID, models.ActionAdd)
	require.NoError(t, err)
	require.Equal(t, models.RelationAccepted, rel.State)
}

func TestApplyUnfriendReturnsToNone(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, bobID, aliceID, models.ActionAccept)
	require.NoError(t, err)

	rel, err := rs.Apply(ctx, bobID, aliceID, models.ActionUnfriend)
	require.NoError(t, err)
	require.Nil(t, rel)

	got, err := rs.Get(ctx, aliceID, bobID)
	require.NoError(t, err)
	require.Nil(t, got)

	// После разрыва пара снова может подружиться с нуля
	rel, err = rs.Apply(ctx, bobID, aliceID, models.ActionAdd)
	require.NoError(t, err)
	require.Equal(t, models.RelationPending, rel.State)
	require.Equal(t, bobID, rel.InitiatorID)
}

func TestApplyRejectThenReAddReusesRecord(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	first, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	firstCreatedAt := first.CreatedAt

	rejected, err := rs.Apply(ctx, bobID, aliceID, models.ActionReject)
	require.NoError(t, err)
	require.Equal(t, models.RelationRejected, rejected.State)

	time.Sleep(10 * time.Millisecond)

	// Повторная заявка переиспользует запись: тот же id,
	// инициатор переназначен, created_at сброшен
	reopened, err := rs.Apply(ctx, bobID, aliceID, models.ActionAdd)
	require.NoError(t, err)
	require.Equal(t, first.ID, reopened.ID)
	require.Equal(t, models.RelationPending, reopened.State)
	require.Equal(t, bobID, reopened.InitiatorID)
	require.Equal(t, aliceID, reopened.CounterpartID)
	require.True(t, reopened.CreatedAt.After(firstCreatedAt))

	var total int64
	require.NoError(t, db.ORM.Model(&models.Relationship{}).Count(&total).Error)
	require.Equal(t, int64(1), total)
}

func TestApplyReAddBySameInitiatorResetsCreatedAt(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	first, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	firstCreatedAt := first.CreatedAt

	_, err = rs.Apply(ctx, bobID, aliceID, models.ActionReject)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	// Повторная заявка того же инициатора тоже считается новой:
	// created_at сбрасывается, хотя инициатор не сменился
	reopened, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	require.Equal(t, first.ID, reopened.ID)
	require.Equal(t, models.RelationPending, reopened.State)
	require.Equal(t, aliceID, reopened.InitiatorID)
	require.True(t, reopened.CreatedAt.After(firstCreatedAt))
}

func TestApplyBlockSwapsInitiator(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)

	// Блокирует получатель заявки: запись пересоздается, инициатором становится он
	rel, err := rs.Apply(ctx, bobID, aliceID, models.ActionBlock)
	require.NoError(t, err)
	require.Equal(t, models.RelationBlocked, rel.State)
	require.Equal(t, bobID, rel.InitiatorID)
	require.Equal(t, aliceID, rel.CounterpartID)

	// Разблокировать может только заблокировавший
	_, err = rs.Apply(ctx, aliceID, bobID, models.ActionUnblock)
	require.True(t, IsInvalidTransition(err))

	rel, err = rs.Apply(ctx, bobID, aliceID, models.ActionUnblock)
	require.NoError(t, err)
	require.Nil(t, rel)
}

func TestApplyBlockPurgesMessages(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.ORM.Create(&models.Message{
			FromUserID: aliceID, ToUserID: bobID, Text: "hi", CreatedAt: time.Now(),
		}).Error)
		require.NoError(t, db.ORM.Create(&models.Message{
			FromUserID: bobID, ToUserID: aliceID, Text: "hello", CreatedAt: time.Now(),
		}).Error)
	}

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionBlock)
	require.NoError(t, err)

	var remaining int64
	require.NoError(t, db.ORM.Model(&models.Message{}).
		Where("(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
			aliceID, bobID, bobID, aliceID).
		Count(&remaining).Error)
	require.Equal(t, int64(0), remaining)
}

func TestApplyBlockedPairCannotInteract(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionBlock)
	require.NoError(t, err)

	_, err = rs.Apply(ctx, bobID, aliceID, models.ActionAdd)
	require.True(t, IsInvalidTransition(err))
	require.EqualError(t, err, "this user has blocked you")

	_, err = rs.Apply(ctx, aliceID, bobID, models.ActionBlock)
	require.True(t, IsInvalidTransition(err))
	require.EqualError(t, err, "this user is already blocked")
}

func TestApplyFullLifecycle(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	// Заявка, отказ, повторная заявка с другой стороны, согласие, блокировка
	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, bobID, aliceID, models.ActionReject)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	rel, err := rs.Apply(ctx, bobID, aliceID, models.ActionAccept)
	require.NoError(t, err)
	require.Equal(t, models.RelationAccepted, rel.State)

	rel, err = rs.Apply(ctx, aliceID, bobID, models.ActionBlock)
	require.NoError(t, err)
	require.Equal(t, models.RelationBlocked, rel.State)
	require.Equal(t, aliceID, rel.InitiatorID)

	_, err = rs.Apply(ctx, bobID, aliceID, models.ActionAdd)
	require.True(t, IsInvalidTransition(err))
	require.EqualError(t, err, "this user has blocked you")

	// На протяжении всего цикла в таблице ровно одна запись на пару
	var total int64
	require.NoError(t, db.ORM.Model(&models.Relationship{}).Count(&total).Error)
	require.Equal(t, int64(1), total)
}

func TestRequestLists(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")
	carolID := createTestUser(t, "carol")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, carolID, bobID, models.ActionAdd)
	require.NoError(t, err)

	incoming, err := rs.GetPendingRequests(ctx, bobID)
	require.NoError(t, err)
	require.Len(t, incoming, 2)

	outgoing, err := rs.GetOutgoingRequests(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	require.Equal(t, bobID, outgoing[0].ID)
}

func TestGetBlockedUsersOnlyShowsOwnBlocks(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")
	carolID := createTestUser(t, "carol")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionBlock)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, carolID, aliceID, models.ActionBlock)
	require.NoError(t, err)

	blocked, err := rs.GetBlockedUsers(ctx, aliceID)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	require.Equal(t, bobID, blocked[0].ID)
}

func TestApplyConcurrentCancelOneWins(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)

	// Конкурирующий переход удаляет запись между чтением снимка и
	// CAS-удалением: первая попытка ловит ErrStaleState, транзакция
	// откатывается и Apply перечитывает пару заново
	raced := false
	err = db.ORM.Callback().Query().After("gorm:query").Register("cancel_vs_cancel", func(tx *gorm.DB) {
		if raced {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.Relationship); !ok {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM relationships")
	})
	require.NoError(t, err)
	defer db.ORM.Callback().Query().Remove("cancel_vs_cancel")

	rel, err := rs.Apply(ctx, aliceID, bobID, models.ActionCancel)
	require.NoError(t, err)
	require.Nil(t, rel)
	require.True(t, raced)

	var total int64
	require.NoError(t, db.ORM.Model(&models.Relationship{}).Count(&total).Error)
	require.Equal(t, int64(0), total)

	// Из двух cancel выигрывает ровно один, второй получает терминальный отказ
	_, err = rs.Apply(ctx, aliceID, bobID, models.ActionCancel)
	require.True(t, IsInvalidTransition(err))
	require.EqualError(t, err, "there is no pending friend request to cancel")
}

func TestTransitionStaleStateDetected(t *testing.T) {
	setupTestDB(t)
	store := NewRelationStore()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	rel, err := store.CreatePending(db.ORM, aliceID, bobID)
	require.NoError(t, err)

	// Снимок записи устарел: состояние уже изменилось
	stale := *rel
	_, err = store.Transition(db.ORM, rel, models.RelationAccepted, 0, false)
	require.NoError(t, err)

	_, err = store.Transition(db.ORM, &stale, models.RelationRejected, 0, false)
	require.ErrorIs(t, err, ErrStaleState)
}

func TestDeleteStaleStateDetected(t *testing.T) {
	setupTestDB(t)
	store := NewRelationStore()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	rel, err := store.CreatePending(db.ORM, aliceID, bobID)
	require.NoError(t, err)

	stale := *rel
	require.NoError(t, store.Delete(db.ORM, rel))

	// Повторное удаление по устаревшему снимку не проходит
	require.ErrorIs(t, store.Delete(db.ORM, &stale), ErrStaleState)
}

func TestCreateDuplicatePairConflicts(t *testing.T) {
	setupTestDB(t)
	store := NewRelationStore()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	_, err := store.CreatePending(db.ORM, aliceID, bobID)
	require.NoError(t, err)

	// Вторая запись для той же пары, даже во встречном направлении,
	// упирается в уникальный индекс по нормализованной паре
	_, err = store.CreatePending(db.ORM, bobID, aliceID)
	require.ErrorIs(t, err, ErrConflict)
}

func TestFriendIDs(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")
	carolID := createTestUser(t, "carol")

	_, err := rs.Apply(ctx, aliceID, bobID, models.ActionAdd)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, bobID, aliceID, models.ActionAccept)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, carolID, aliceID, models.ActionAdd)
	require.NoError(t, err)
	_, err = rs.Apply(ctx, aliceID, carolID, models.ActionAccept)
	require.NoError(t, err)

	ids, err := rs.FriendIDs(ctx, aliceID)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{bobID, carolID}, ids)

	// Незавершенные заявки в друзья не попадают
	ids, err = rs.FriendIDs(ctx, bobID)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{aliceID}, ids)
}
