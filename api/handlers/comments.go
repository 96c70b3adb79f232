package handlers

import (
	"errors"
	"net/http"

	"socialgraph/services"

	"github.com/gin-gonic/gin"
)

// AddComment добавляет комментарий к видимому посту
func AddComment(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
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

	comment, err := commentService.AddComment(c.Request.Context(), userID, postID, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrPostNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// GetComments возвращает комментарии видимого поста
func GetComments(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	comments, err := commentService.GetComments(c.Request.Context(), userID, postID, queryInt(c, "limit", 100))
	if err != nil {
		if errors.Is(err, services.ErrPostNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get comments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// DeleteComment удаляет комментарий
func DeleteComment(c *gin.Context) {
	commentID, ok := paramID(c, "comment_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := commentService.DeleteComment(c.Request.Context(), userID, commentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// ToggleLike ставит или снимает лайк
func ToggleLike(c *gin.Context) {
	postID, ok := paramID(c, "post_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	liked, err := likeService.ToggleLike(c.Request.Context(), userID, postID)
	if err != nil {
		if errors.Is(err, services.ErrPostNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle like"})
		return
	}

	count, _ := likeService.CountLikes(c.Request.Context(), postID)
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes": count})
}
