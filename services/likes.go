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

// LikeService - лайки постов, с той же проверкой видимости, что и комментарии
type LikeService struct {
	visibility    *VisibilityService
	notifications *NotificationService
}

func NewLikeService(visibility *VisibilityService, notifications *NotificationService) *LikeService {
	return &LikeService{
		visibility:    visibility,
		notifications: notifications,
	}
}

// ToggleLike ставит или снимает лайк, возвращает true если лайк поставлен
func (ls *LikeService) ToggleLike(ctx context.Context, userID, postID int64) (bool, error) {
	var post models.Post
	err := db.GetReadOnlyDB(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrPostNotVisible
	}
	if err != nil {
		return false, fmt.Errorf("failed to get post: %w", err)
	}

	allowed, err := ls.visibility.CanView(ctx, userID, post.UserID, post.Privacy)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, ErrPostNotVisible
	}

	var existing models.Like
	err = db.GetWriteDB(ctx).Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
	if err == nil {
		// Повторный лайк снимает предыдущий
		if err := db.GetWriteDB(ctx).Delete(&existing).Error; err != nil {
			return false, fmt.Errorf("failed to remove like: %w", err)
		}
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check like: %w", err)
	}

	like := &models.Like{
		PostID:    postID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(like).Error; err != nil {
		return false, fmt.Errorf("failed to create like: %w", err)
	}

	if post.UserID != userID {
		var actor models.User
		name := "Someone"
		if err := db.GetReadOnlyDB(ctx).First(&actor, userID).Error; err == nil {
			name = actor.Nickname
		}
		if err := ls.notifications.Create(ctx, post.UserID, models.NotifyPostLike, userID, postID,
			fmt.Sprintf("%s liked your post", name)); err != nil {
			log.Printf("ERROR: failed to notify post owner about like: %v", err)
		}
	}

	return true, nil
}

// CountLikes возвращает количество лайков поста
func (ls *LikeService) CountLikes(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := db.GetReadOnlyDB(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}
