package handlers

import (
	"errors"
	"net/http"

	"socialgraph/services"

	"github.com/gin-gonic/gin"
)

// SendMessage отправляет сообщение пользователю
func SendMessage(c *gin.Context) {
	var req struct {
		ToUserID int64  `json:"to_user_id" binding:"required"`
		Text     string `json:"text" binding:"required"`
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

	message, err := messageService.SendMessage(c.Request.Context(), userID, req.ToUserID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnblockToSend), errors.Is(err, services.ErrRecipientBlocked):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrSelfTarget):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}
	c.JSON(http.StatusCreated, message)
}

// GetDialog возвращает переписку с пользователем
func GetDialog(c *gin.Context) {
	otherID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	messages, err := messageService.GetDialog(c.Request.Context(), userID, otherID,
		queryInt64(c, "last_id", 0), queryInt(c, "limit", 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dialog"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetConversations возвращает список диалогов пользователя
func GetConversations(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conversations, err := messageService.GetConversations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// MarkDialogRead помечает входящие сообщения от пользователя прочитанными
func MarkDialogRead(c *gin.Context) {
	otherID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := messageService.MarkDialogRead(c.Request.Context(), userID, otherID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark dialog read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// GetCounters возвращает счетчики непрочитанного
func GetCounters(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"unread_messages": counterService.Get(ctx, userID, services.CounterUnreadMessages),
		"friend_requests": counterService.Get(ctx, userID, services.CounterFriendRequests),
		"notifications":   counterService.Get(ctx, userID, services.CounterNotifications),
	})
}
