package handlers

import (
	"errors"
	"net/http"
	"time"

	"socialgraph/models"
	"socialgraph/services"

	"github.com/gin-gonic/gin"
)

// CreateEvent создает мероприятие
func CreateEvent(c *gin.Context) {
	var req struct {
		Title       string    `json:"title" binding:"required"`
		Description string    `json:"description"`
		Location    string    `json:"location"`
		StartsAt    time.Time `json:"starts_at" binding:"required"`
		Privacy     string    `json:"privacy"`
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

	event, err := eventService.CreateEvent(c.Request.Context(), userID,
		req.Title, req.Description, req.Location, req.StartsAt, models.Privacy(req.Privacy))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, event)
}

// JoinEvent добавляет пользователя в участники
func JoinEvent(c *gin.Context) {
	eventID, ok := paramID(c, "event_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := eventService.JoinEvent(c.Request.Context(), userID, eventID); err != nil {
		if errors.Is(err, services.ErrEventNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined event"})
}

// LeaveEvent убирает пользователя из участников
func LeaveEvent(c *gin.Context) {
	eventID, ok := paramID(c, "event_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := eventService.LeaveEvent(c.Request.Context(), userID, eventID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left event"})
}

// ListEvents возвращает предстоящие видимые мероприятия
func ListEvents(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	events, err := eventService.ListVisibleEvents(c.Request.Context(), userID, queryInt(c, "limit", 20))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEventMembers возвращает участников мероприятия
func GetEventMembers(c *gin.Context) {
	eventID, ok := paramID(c, "event_id")
	if !ok {
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	members, err := eventService.GetEventMembers(c.Request.Context(), userID, eventID)
	if err != nil {
		if errors.Is(err, services.ErrEventNotVisible) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
