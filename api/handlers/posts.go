package handlers

import (
	"errors"
	"net/http"

	"socialgraph/models"
	"socialgraph/services"

	"github.com/gin-gonic/gin"
)

// CreatePost создает новый пост
func CreatePost(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
		Privacy string `json:"privacy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	post, err := postService.CreatePost(c.Request.Context(), userID, req.Content, models.Privacy(req.Privacy))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// EditPost меняет текст или приватность поста
func EditPost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
		Privacy string `json:"privacy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	post, err := postService.EditPost(c.Request.Context(), userID, postID, req.Content, models.Privacy(req.Privacy))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost удаляет пост
func DeletePost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := postService.DeletePost(c.Request.Context(), userID, postID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// GetPost возвращает пост с проверкой видимости
func GetPost(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	post, err := postService.GetPost(c.Request.Context(), userID, postID)
	if err != nil {
		if errors.Is(err, services.ErrPostNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get post"})
		return
	}
	c.JSON(http.StatusOK, post)
}

// GetUserWall возвращает стену пользователя
func GetUserWall(c *gin.Context) {
	ownerID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	posts, err := postService.GetUserWall(c.Request.Context(), userID, ownerID,
		queryInt64(c, "last_id", 0), queryInt(c, "limit", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wall"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// GetFeed получает ленту постов друзей
func GetFeed(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	feed, err := postService.GetUserFeed(c.Request.Context(), userID,
		queryInt64(c, "last_id", 0), queryInt(c, "limit", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get feed"})
		return
	}
	c.JSON(http.StatusOK, feed)
}

// RebuildUserFeed перестраивает кеш ленты пользователя из БД (админский эндпоинт)
func RebuildUserFeed(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}

	if err := postService.RebuildUserFeedFromDB(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rebuild feed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feed rebuilt successfully"})
}

// GetQueueStats возвращает статистику очереди (админский эндпоинт)
func GetQueueStats(c *gin.Context) {
	if services.QueueServiceInstance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Queue service not available"})
		return
	}

	queueLength, err := services.QueueServiceInstance.GetQueueStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get queue stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"queue_length": queueLength,
		"workers":      services.QUEUE_WORKER_COUNT,
	})
}
