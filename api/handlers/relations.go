package handlers

import (
	"errors"
	"net/http"

	"socialgraph/models"
	"socialgraph/services"

	"github.com/gin-gonic/gin"
)

type relationRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// RelationAction - обработчик действий над связью: add, accept, reject,
// cancel, unfriend, block, unblock. Актор берется из аутентификации,
// целевой пользователь - из тела запроса.
func RelationAction(c *gin.Context) {
	actorID := c.GetInt64("user_id")
	if actorID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	action, err := models.ParseRelationAction(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
		return
	}

	var req relationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rel, err := relationService.Apply(c.Request.Context(), actorID, req.UserID, action)
	if err != nil {
		c.JSON(relationErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"message": "ok"}
	if rel != nil {
		resp["relationship"] = rel
	}
	c.JSON(http.StatusOK, resp)
}

// relationErrorStatus переводит доменную ошибку в HTTP-статус
func relationErrorStatus(err error) int {
	switch {
	case services.IsInvalidTransition(err):
		return http.StatusConflict
	case errors.Is(err, services.ErrSelfTarget):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTransient):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetRelation возвращает текущее состояние связи с пользователем
func GetRelation(c *gin.Context) {
	actorID := c.GetInt64("user_id")
	if actorID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	otherID, ok := paramID(c, "id")
	if !ok {
		return
	}

	rel, err := relationService.Get(c.Request.Context(), actorID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rel == nil {
		c.JSON(http.StatusOK, gin.H{"state": "none"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": rel.State, "relationship": rel})
}

// GetFriends - список друзей
func GetFriends(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	friends, err := relationService.GetFriends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

// GetPendingRequests - входящие заявки в друзья
func GetPendingRequests(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requests, err := relationService.GetPendingRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetOutgoingRequests - исходящие заявки в друзья
func GetOutgoingRequests(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requests, err := relationService.GetOutgoingRequests(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// GetBlockedUsers - список заблокированных пользователей
func GetBlockedUsers(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	blocked, err := relationService.GetBlockedUsers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": blocked})
}
