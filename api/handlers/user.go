package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type UserInfo struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	Firstname string `json:"first_name"`
	Lastname  string `json:"last_name"`
	City      string `json:"city,omitempty"`
}

// UserSearch ищет пользователей по имени и фамилии.
// Заблокировавшие ищущего в выдачу не попадают.
func UserSearch(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	firstName := c.Query("first_name")
	lastName := c.Query("last_name")
	if firstName == "" && lastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one search parameter (first_name or last_name) is required"})
		return
	}

	users, err := userService.Search(c.Request.Context(), userID, firstName, lastName,
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No users found"})
		return
	}

	var userInfos []UserInfo
	for _, user := range users {
		userInfos = append(userInfos, UserInfo{
			ID:        user.ID,
			Nickname:  user.Nickname,
			Firstname: user.FirstName,
			Lastname:  user.LastName,
			City:      user.City,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": userInfos})
}

// UserGet возвращает профиль пользователя
func UserGet(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := userService.GetUser(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": UserInfo{
		ID:        user.ID,
		Nickname:  user.Nickname,
		Firstname: user.FirstName,
		Lastname:  user.LastName,
		City:      user.City,
	}})
}
