package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"socialgraph/db"
	"socialgraph/models"

	"gorm.io/gorm"
)

// CommentService - комментарии к постам. Любое чтение и запись
// проходит через проверку видимости родительского поста.
type CommentService struct {
	visibility    *VisibilityService
	notifications *NotificationService
}

func NewCommentService(visibility *VisibilityService, notifications *NotificationService) *CommentService {
	return &CommentService{
		visibility:    visibility,
		notifications: notifications,
	}
}

// AddComment добавляет комментарий, если пост виден автору комментария
func (cs *CommentService) AddComment(ctx context.Context, userID, postID int64, content string) (*models.Comment, error) {
	if content == "" {
		return nil, errors.New("comment cannot be empty")
	}

	post, err := cs.visiblePost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:    postID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if post.UserID != userID {
		var actor models.User
		name := "Someone"
		if err := db.GetReadOnlyDB(ctx).First(&actor, userID).Error; err == nil {
			name = actor.Nickname
		}
		if err := cs.notifications.Create(ctx, post.UserID, models.NotifyPostComment, userID, postID,
			fmt.Sprintf("%s commented on your post", name)); err != nil {
			// Уведомление best-effort, комментарий уже сохранен
			log.Printf("ERROR: failed to notify post owner about comment: %v", err)
		}
	}

	return comment, nil
}

// GetComments возвращает комментарии поста, если пост виден зрителю
func (cs *CommentService) GetComments(ctx context.Context, viewerID, postID int64, limit int) ([]models.Comment, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	if _, err := cs.visiblePost(ctx, viewerID, postID); err != nil {
		return nil, err
	}

	var comments []models.Comment
	err := db.GetReadOnlyDB(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}

// DeleteComment удаляет комментарий: может автор комментария или владелец поста
func (cs *CommentService) DeleteComment(ctx context.Context, userID, commentID int64) error {
	var comment models.Comment
	err := db.GetWriteDB(ctx).First(&comment, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.New("comment not found")
	}
	if err != nil {
		return fmt.Errorf("failed to get comment: %w", err)
	}

	if comment.UserID != userID {
		var post models.Post
		if err := db.GetReadOnlyDB(ctx).First(&post, comment.PostID).Error; err != nil {
			return fmt.Errorf("failed to get parent post: %w", err)
		}
		if post.UserID != userID {
			return errors.New("you cannot delete this comment")
		}
	}

	if err := db.GetWriteDB(ctx).Delete(&comment).Error; err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// visiblePost возвращает пост, если он виден зрителю.
// Невидимый пост неотличим от несуществующего.
func (cs *CommentService) visiblePost(ctx context.Context, viewerID, postID int64) (*models.Post, error) {
	var post models.Post
	err := db.GetReadOnlyDB(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotVisible
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	allowed, err := cs.visibility.CanView(ctx, viewerID, post.UserID, post.Privacy)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrPostNotVisible
	}
	return &post, nil
}
