package services

import (
	"context"
	"testing"

	"socialgraph/db"
	"socialgraph/models"

	"github.com/stretchr/testify/require"
)

func newTestCommentService() *CommentService {
	counters := NewCounterService()
	return NewCommentService(NewVisibilityService(), NewNotificationService(counters))
}

func newTestLikeService() *LikeService {
	counters := NewCounterService()
	return NewLikeService(NewVisibilityService(), NewNotificationService(counters))
}

func TestAddCommentNotifiesPostOwner(t *testing.T) {
	setupTestDB(t)
	ps := newTestPostService()
	cs := newTestCommentService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	post, err := ps.CreatePost(ctx, aliceID, "nice view", models.PrivacyPublic)
	require.NoError(t, err)

	comment, err := cs.AddComment(ctx, bobID, post.ID, "agreed!")
	require.NoError(t, err)
	require.NotZero(t, comment.ID)

	var notifications []models.Notification
	require.NoError(t, db.ORM.Where("user_id = ? AND kind = ?", aliceID, models.NotifyPostComment).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, post.ID, notifications[0].SubjectID)

	// Комментарий к собственному посту уведомления не создает
	_, err = cs.AddComment(ctx, aliceID, post.ID, "thanks")
	require.NoError(t, err)
	var selfNotifications int64
	require.NoError(t, db.ORM.Model(&models.Notification{}).
		Where("user_id = ? AND actor_id = ?", aliceID, aliceID).Count(&selfNotifications).Error)
	require.Equal(t, int64(0), selfNotifications)
}

func TestAddCommentRequiresVisiblePost(t *testing.T) {
	setupTestDB(t)
	ps := newTestPostService()
	cs := newTestCommentService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	post, err := ps.CreatePost(ctx, aliceID, "friends only", models.PrivacyFriends)
	require.NoError(t, err)

	_, err = cs.AddComment(ctx, bobID, post.ID, "can i join?")
	require.ErrorIs(t, err, ErrPostNotVisible)

	_, err = cs.AddComment(ctx, bobID, 99999, "hello?")
	require.ErrorIs(t, err, ErrPostNotVisible)
}

func TestGetCommentsRequiresVisiblePost(t *testing.T) {
	setupTestDB(t)
	rs := newTestRelationService()
	ps := newTestPostService()
	cs := newTestCommentService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")
	carolID := createTestUser(t, "carol")

	makeFriends(t, rs, aliceID, bobID)

	post, err := ps.CreatePost(ctx, aliceID, "friends only", models.PrivacyFriends)
	require.NoError(t, err)
	_, err = cs.AddComment(ctx, bobID, post.ID, "first")
	require.NoError(t, err)

	comments, err := cs.GetComments(ctx, bobID, post.ID, 50)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	_, err = cs.GetComments(ctx, carolID, post.ID, 50)
	require.ErrorIs(t, err, ErrPostNotVisible)
}

func TestDeleteCommentByAuthorOrPostOwner(t *testing.T) {
	setupTestDB(t)
	ps := newTestPostService()
	cs := newTestCommentService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")
	carolID := createTestUser(t, "carol")

	post, err := ps.CreatePost(ctx, aliceID, "open discussion", models.PrivacyPublic)
	require.NoError(t, err)

	first, err := cs.AddComment(ctx, bobID, post.ID, "one")
	require.NoError(t, err)
	second, err := cs.AddComment(ctx, bobID, post.ID, "two")
	require.NoError(t, err)

	// Посторонний удалить чужой комментарий не может
	require.Error(t, cs.DeleteComment(ctx, carolID, first.ID))

	// Автор комментария может
	require.NoError(t, cs.DeleteComment(ctx, bobID, first.ID))

	// Владелец поста тоже может
	require.NoError(t, cs.DeleteComment(ctx, aliceID, second.ID))

	comments, err := cs.GetComments(ctx, aliceID, post.ID, 50)
	require.NoError(t, err)
	require.Empty(t, comments)
}

func TestToggleLike(t *testing.T) {
	setupTestDB(t)
	ps := newTestPostService()
	ls := newTestLikeService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	post, err := ps.CreatePost(ctx, aliceID, "like me", models.PrivacyPublic)
	require.NoError(t, err)

	liked, err := ls.ToggleLike(ctx, bobID, post.ID)
	require.NoError(t, err)
	require.True(t, liked)

	count, err := ls.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	// Повторный лайк снимает предыдущий
	liked, err = ls.ToggleLike(ctx, bobID, post.ID)
	require.NoError(t, err)
	require.False(t, liked)

	count, err = ls.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestToggleLikeRequiresVisiblePost(t *testing.T) {
	setupTestDB(t)
	ps := newTestPostService()
	ls := newTestLikeService()
	ctx := context.Background()

	aliceID := createTestUser(t, "alice")
	bobID := createTestUser(t, "bob")

	post, err := ps.CreatePost(ctx, aliceID, "friends only", models.PrivacyFriends)
	require.NoError(t, err)

	_, err = ls.ToggleLike(ctx, bobID, post.ID)
	require.ErrorIs(t, err, ErrPostNotVisible)
}
