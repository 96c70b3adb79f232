package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"socialgraph/db"
	"socialgraph/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const (
	FEED_CACHE_TTL  = 24 * time.Hour // TTL для кеша ленты
	MAX_FEED_SIZE   = 1000           // Максимальное количество постов-кандидатов в ленте
	FEED_KEY_PREFIX = "user_feed:"   // Префикс для ключей ленты в Redis
	POST_KEY_PREFIX = "post:"        // Префикс для кеша постов
)

var ErrPostNotVisible = errors.New("post not found")

// PostService - посты с меткой приватности.
// В Redis лежат только кандидаты ленты: каждый пост перед выдачей
// проходит через VisibilityService, само решение о видимости не кешируется.
type PostService struct {
	visibility *VisibilityService
}

func NewPostService(visibility *VisibilityService) *PostService {
	return &PostService{visibility: visibility}
}

// CreatePost создает новый пост и обновляет ленты друзей
func (ps *PostService) CreatePost(ctx context.Context, userID int64, content string, privacy models.Privacy) (*models.Post, error) {
	if content == "" {
		return nil, errors.New("post content cannot be empty")
	}
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	if !privacy.Valid() {
		return nil, fmt.Errorf("invalid privacy label: %q", privacy)
	}

	post := &models.Post{
		UserID:    userID,
		Content:   content,
		Privacy:   privacy,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err := db.GetWriteDB(ctx).Create(post).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	// Обновление лент уходит в очередь, при недоступной очереди - прямой fallback.
	// Без Redis кеша лент нет и обновлять нечего: лента читается из БД.
	if QueueServiceInstance != nil && RedisClient != nil {
		go QueueServiceInstance.EnqueueFeedUpdate(context.Background(), userID, *post, "create")
	} else if RedisClient != nil {
		go ps.updateFriendsFeeds(context.Background(), userID, post)
	}

	return post, nil
}

// EditPost меняет текст или приватность поста
func (ps *PostService) EditPost(ctx context.Context, userID, postID int64, content string, privacy models.Privacy) (*models.Post, error) {
	var post models.Post
	err := db.GetWriteDB(ctx).Where("id = ? AND user_id = ?", postID, userID).First(&post).Error
	if err != nil {
		return nil, fmt.Errorf("post not found or access denied: %w", err)
	}

	if content != "" {
		post.Content = content
	}
	if privacy != "" {
		if !privacy.Valid() {
			return nil, fmt.Errorf("invalid privacy label: %q", privacy)
		}
		post.Privacy = privacy
	}
	post.UpdatedAt = time.Now()

	if err := db.GetWriteDB(ctx).Save(&post).Error; err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	// Метка приватности могла поменяться - кешированный кандидат устарел
	ps.recachePost(ctx, &post)

	return &post, nil
}

// DeletePost удаляет пост и убирает его из лент
func (ps *PostService) DeletePost(ctx context.Context, userID int64, postID int64) error {
	var post models.Post
	err := db.GetWriteDB(ctx).Where("id = ? AND user_id = ?", postID, userID).First(&post).Error
	if err != nil {
		return fmt.Errorf("post not found or access denied: %w", err)
	}

	err = db.GetWriteDB(ctx).Delete(&post).Error
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if QueueServiceInstance != nil && RedisClient != nil {
		go QueueServiceInstance.EnqueueFeedUpdate(context.Background(), userID, post, "delete")
	} else if RedisClient != nil {
		go ps.removePostFromFeeds(context.Background(), userID, postID)
	}

	return nil
}

// GetPost возвращает пост с проверкой видимости для зрителя
func (ps *PostService) GetPost(ctx context.Context, viewerID, postID int64) (*models.Post, error) {
	var post models.Post
	err := db.GetReadOnlyDB(ctx).First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotVisible
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	allowed, err := ps.visibility.CanView(ctx, viewerID, post.UserID, post.Privacy)
	if err != nil {
		return nil, err
	}
	if !allowed {
		// Невидимый пост неотличим от несуществующего
		return nil, ErrPostNotVisible
	}
	return &post, nil
}

// GetUserWall возвращает стену пользователя, отфильтрованную по видимости
func (ps *PostService) GetUserWall(ctx context.Context, viewerID, ownerID int64, lastID int64, limit int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := db.GetReadOnlyDB(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Limit(limit)
	if lastID > 0 {
		query = query.Where("id < ?", lastID)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get wall posts: %w", err)
	}

	visible := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		allowed, err := ps.visibility.CanView(ctx, viewerID, ownerID, post.Privacy)
		if err != nil {
			return nil, err
		}
		if allowed {
			visible = append(visible, post)
		}
	}
	return visible, nil
}

// GetUserFeed получает ленту пользователя с пагинацией.
// Кандидаты берутся из кеша или строятся из БД, после чего каждый пост
// заново проходит проверку видимости - состояние связи могло измениться
// после кеширования.
func (ps *PostService) GetUserFeed(ctx context.Context, userID int64, lastID int64, limit int) (*models.FeedResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)

	candidates, err := ps.getFeedFromCache(ctx, feedKey, lastID, limit)
	if err != nil || len(candidates) == 0 {
		candidates, err = ps.buildFeedFromDB(ctx, userID, lastID, limit)
		if err != nil {
			return nil, err
		}
		go ps.cacheFeed(context.Background(), feedKey, candidates)
	}

	visible, err := ps.filterVisible(ctx, userID, candidates)
	if err != nil {
		return nil, err
	}

	return &models.FeedResponse{
		Posts:   visible,
		HasMore: len(candidates) == limit,
		LastID:  getLastID(candidates),
	}, nil
}

// filterVisible прогоняет кандидатов через авторизатор видимости.
// Решение по одинаковой паре (автор, приватность) внутри одного чтения
// не пересчитывается, между чтениями - всегда.
func (ps *PostService) filterVisible(ctx context.Context, viewerID int64, posts []models.FeedPost) ([]models.FeedPost, error) {
	type ownerPrivacy struct {
		ownerID int64
		privacy models.Privacy
	}
	decided := make(map[ownerPrivacy]bool)

	visible := make([]models.FeedPost, 0, len(posts))
	for _, post := range posts {
		key := ownerPrivacy{post.UserID, post.Privacy}
		allowed, seen := decided[key]
		if !seen {
			var err error
			allowed, err = ps.visibility.CanView(ctx, viewerID, post.UserID, post.Privacy)
			if err != nil {
				return nil, err
			}
			decided[key] = allowed
		}
		if allowed {
			visible = append(visible, post)
		}
	}
	return visible, nil
}

// buildFeedFromDB строит кандидатов ленты из базы данных
func (ps *PostService) buildFeedFromDB(ctx context.Context, userID int64, lastID int64, limit int) ([]models.FeedPost, error) {
	var friendIDs []int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.Relationship{}).
		Where("(initiator_id = ? OR counterpart_id = ?) AND state = ?", userID, userID, models.RelationAccepted).
		Select("CASE WHEN initiator_id = ? THEN counterpart_id ELSE initiator_id END", userID).
		Scan(&friendIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}

	// Своя лента включает собственные посты
	friendIDs = append(friendIDs, userID)

	query := db.GetReadOnlyDB(ctx).
		Table("posts p").
		Select("p.id, p.user_id, u.first_name || ' ' || u.last_name as user_name, p.content, p.privacy, p.created_at").
		Joins("JOIN users u ON p.user_id = u.id").
		Where("p.user_id IN ?", friendIDs).
		Order("p.created_at DESC, p.id DESC").
		Limit(limit)
	if lastID > 0 {
		query = query.Where("p.id < ?", lastID)
	}

	var feedPosts []models.FeedPost
	err = query.Scan(&feedPosts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get feed posts: %w", err)
	}
	return feedPosts, nil
}

// getFeedFromCache получает кандидатов ленты из Redis
func (ps *PostService) getFeedFromCache(ctx context.Context, feedKey string, lastID int64, limit int) ([]models.FeedPost, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("redis not available")
	}

	var start, stop int64 = 0, int64(limit - 1)
	if lastID > 0 {
		rank := RedisClient.ZRevRank(ctx, feedKey, strconv.FormatInt(lastID, 10)).Val()
		start = rank + 1
		stop = start + int64(limit) - 1
	}

	postIDs, err := RedisClient.ZRevRange(ctx, feedKey, start, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(postIDs) == 0 {
		return []models.FeedPost{}, nil
	}

	pipe := RedisClient.Pipeline()
	cmds := make([]*redis.StringCmd, len(postIDs))
	for i, postID := range postIDs {
		cmds[i] = pipe.Get(ctx, POST_KEY_PREFIX+postID)
	}
	_, err = pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, err
	}

	var feedPosts []models.FeedPost
	for _, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			continue
		}
		var feedPost models.FeedPost
		if err := json.Unmarshal([]byte(val), &feedPost); err == nil {
			feedPosts = append(feedPosts, feedPost)
		}
	}
	return feedPosts, nil
}

// cacheFeed кеширует кандидатов ленты в Redis
func (ps *PostService) cacheFeed(ctx context.Context, feedKey string, posts []models.FeedPost) {
	if len(posts) == 0 || RedisClient == nil {
		return
	}

	pipe := RedisClient.Pipeline()
	pipe.Del(ctx, feedKey)

	for _, post := range posts {
		score := float64(post.CreatedAt.Unix())
		pipe.ZAdd(ctx, feedKey, &redis.Z{
			Score:  score,
			Member: strconv.FormatInt(post.ID, 10),
		})
		postData, _ := json.Marshal(post)
		pipe.Set(ctx, fmt.Sprintf("%s%d", POST_KEY_PREFIX, post.ID), postData, FEED_CACHE_TTL)
	}

	pipe.ZRemRangeByRank(ctx, feedKey, 0, -MAX_FEED_SIZE-1)
	pipe.Expire(ctx, feedKey, FEED_CACHE_TTL)
	pipe.Exec(ctx)
}

// updateFriendsFeeds добавляет новый пост в ленты друзей (fallback без очереди)
func (ps *PostService) updateFriendsFeeds(ctx context.Context, userID int64, post *models.Post) {
	var user models.User
	if err := db.GetReadOnlyDB(ctx).First(&user, userID).Error; err != nil {
		log.Printf("ERROR: failed to get author %d for feed update: %v", userID, err)
		return
	}

	feedPost := models.FeedPost{
		ID:        post.ID,
		UserID:    post.UserID,
		UserName:  user.FirstName + " " + user.LastName,
		Content:   post.Content,
		Privacy:   post.Privacy,
		CreatedAt: post.CreatedAt,
	}

	// Приватный пост - кандидат только для собственной ленты
	if post.Privacy != models.PrivacyPrivate {
		var friendIDs []int64
		err := db.GetReadOnlyDB(ctx).
			Model(&models.Relationship{}).
			Where("(initiator_id = ? OR counterpart_id = ?) AND state = ?", userID, userID, models.RelationAccepted).
			Select("CASE WHEN initiator_id = ? THEN counterpart_id ELSE initiator_id END", userID).
			Scan(&friendIDs).Error
		if err != nil {
			log.Printf("ERROR: failed to get friends for feed update: %v", err)
			return
		}
		for _, friendID := range friendIDs {
			ps.addPostToUserFeed(ctx, friendID, feedPost)
		}
	}

	ps.addPostToUserFeed(ctx, userID, feedPost)
}

// addPostToUserFeed добавляет кандидата в ленту конкретного пользователя
func (ps *PostService) addPostToUserFeed(ctx context.Context, userID int64, post models.FeedPost) {
	if RedisClient == nil {
		return
	}

	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
	postKey := fmt.Sprintf("%s%d", POST_KEY_PREFIX, post.ID)

	pipe := RedisClient.Pipeline()
	pipe.ZAdd(ctx, feedKey, &redis.Z{
		Score:  float64(post.CreatedAt.Unix()),
		Member: strconv.FormatInt(post.ID, 10),
	})

	postData, err := json.Marshal(post)
	if err != nil {
		log.Println("failed to marshal post for caching:", err)
		return
	}
	pipe.Set(ctx, postKey, postData, FEED_CACHE_TTL)
	pipe.ZRemRangeByRank(ctx, feedKey, 0, -MAX_FEED_SIZE-1)
	pipe.Expire(ctx, feedKey, FEED_CACHE_TTL)
	pipe.Exec(ctx)
}

// recachePost обновляет кешированные данные поста после редактирования
func (ps *PostService) recachePost(ctx context.Context, post *models.Post) {
	if RedisClient == nil {
		return
	}

	var user models.User
	if err := db.GetReadOnlyDB(ctx).First(&user, post.UserID).Error; err != nil {
		return
	}
	feedPost := models.FeedPost{
		ID:        post.ID,
		UserID:    post.UserID,
		UserName:  user.FirstName + " " + user.LastName,
		Content:   post.Content,
		Privacy:   post.Privacy,
		CreatedAt: post.CreatedAt,
	}
	postData, err := json.Marshal(feedPost)
	if err != nil {
		return
	}
	RedisClient.Set(ctx, fmt.Sprintf("%s%d", POST_KEY_PREFIX, post.ID), postData, FEED_CACHE_TTL)
}

// removePostFromFeeds удаляет пост из лент друзей и автора
func (ps *PostService) removePostFromFeeds(ctx context.Context, userID int64, postID int64) {
	if RedisClient == nil {
		return
	}

	var friendIDs []int64
	err := db.GetReadOnlyDB(ctx).
		Model(&models.Relationship{}).
		Where("(initiator_id = ? OR counterpart_id = ?) AND state = ?", userID, userID, models.RelationAccepted).
		Select("CASE WHEN initiator_id = ? THEN counterpart_id ELSE initiator_id END", userID).
		Scan(&friendIDs).Error
	if err != nil {
		return
	}

	for _, friendID := range friendIDs {
		ps.removePostFromUserFeed(ctx, friendID, postID)
	}
	ps.removePostFromUserFeed(ctx, userID, postID)
}

// removePostFromUserFeed удаляет пост из ленты конкретного пользователя
func (ps *PostService) removePostFromUserFeed(ctx context.Context, userID int64, postID int64) {
	if RedisClient == nil {
		return
	}

	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
	pipe := RedisClient.Pipeline()
	pipe.ZRem(ctx, feedKey, strconv.FormatInt(postID, 10))
	pipe.Del(ctx, fmt.Sprintf("%s%d", POST_KEY_PREFIX, postID))
	pipe.Exec(ctx)
}

// InvalidateUserFeed инвалидирует кеш ленты пользователя
func (ps *PostService) InvalidateUserFeed(ctx context.Context, userID int64) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not available")
	}
	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
	return RedisClient.Del(ctx, feedKey).Err()
}

// RebuildUserFeedFromDB перестраивает кеш ленты пользователя из БД
func (ps *PostService) RebuildUserFeedFromDB(ctx context.Context, userID int64) error {
	if RedisClient == nil {
		return fmt.Errorf("redis not available")
	}

	feedKey := fmt.Sprintf("%s%d", FEED_KEY_PREFIX, userID)
	RedisClient.Del(ctx, feedKey)

	feedPosts, err := ps.buildFeedFromDB(ctx, userID, 0, MAX_FEED_SIZE)
	if err != nil {
		return err
	}
	ps.cacheFeed(ctx, feedKey, feedPosts)
	return nil
}

func getLastID(posts []models.FeedPost) int64 {
	if len(posts) == 0 {
		return 0
	}
	return posts[len(posts)-1].ID
}
