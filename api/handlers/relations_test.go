package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"socialgraph/api/middleware"
	"socialgraph/db"
	"socialgraph/models"
	"socialgraph/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB инициализирует тестовую базу данных SQLite в памяти
func setupTestDB(t *testing.T) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = database.AutoMigrate(
		&models.User{}, &models.UserTokens{}, &models.Relationship{},
		&models.Post{}, &models.Comment{}, &models.Like{},
		&models.Message{}, &models.Event{}, &models.EventMember{}, &models.Notification{},
	)
	require.NoError(t, err)

	db.ORM = database
	services.RedisClient = nil
	services.QueueServiceInstance = nil
}

// setupRouter собирает роутер с тестовой аутентификацией по заголовку X-User-ID
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	setupTestDB(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api/v1/")
	api.Use(middleware.TestAuthMiddleware())
	{
		api.POST("relations/:action", RelationAction)
		api.GET("relations/with/:id", GetRelation)
		api.GET("friends/list", GetFriends)
		api.GET("friends/requests", GetPendingRequests)
		api.POST("messages", SendMessage)
		api.GET("dialogs/:id", GetDialog)
	}
	return r
}

func createUser(t *testing.T, nickname string) int64 {
	t.Helper()
	user := models.User{Nickname: nickname, FirstName: "Test", LastName: "User", Password: "x", Sex: models.MALE}
	require.NoError(t, db.ORM.Create(&user).Error)
	return user.ID
}

func doJSON(t *testing.T, r *gin.Engine, asUserID int64, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", fmt.Sprintf("%d", asUserID))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRelationActionEndpoint(t *testing.T) {
	r := setupRouter(t)

	aliceID := createUser(t, "alice")
	bobID := createUser(t, "bob")

	w := doJSON(t, r, aliceID, "POST", "/api/v1/relations/add", gin.H{"user_id": bobID})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Relationship models.Relationship `json:"relationship"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, models.RelationPending, resp.Relationship.State)

	w = doJSON(t, r, bobID, "POST", "/api/v1/relations/accept", gin.H{"user_id": aliceID})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRelationActionRejections(t *testing.T) {
	r := setupRouter(t)

	aliceID := createUser(t, "alice")
	bobID := createUser(t, "bob")

	// Неизвестное действие
	w := doJSON(t, r, aliceID, "POST", "/api/v1/relations/befriend", gin.H{"user_id": bobID})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Действие над собой
	w = doJSON(t, r, aliceID, "POST", "/api/v1/relations/add", gin.H{"user_id": aliceID})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Несуществующий пользователь
	w = doJSON(t, r, aliceID, "POST", "/api/v1/relations/add", gin.H{"user_id": 99999})
	require.Equal(t, http.StatusNotFound, w.Code)

	// Недопустимый переход: accept без заявки
	w = doJSON(t, r, aliceID, "POST", "/api/v1/relations/accept", gin.H{"user_id": bobID})
	require.Equal(t, http.StatusConflict, w.Code)

	// Дубликат заявки
	w = doJSON(t, r, aliceID, "POST", "/api/v1/relations/add", gin.H{"user_id": bobID})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, aliceID, "POST", "/api/v1/relations/add", gin.H{"user_id": bobID})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestRelationActionRequiresAuth(t *testing.T) {
	r := setupRouter(t)

	req, err := http.NewRequest("POST", "/api/v1/relations/add", bytes.NewBufferString(`{"user_id":1}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetRelationEndpoint(t *testing.T) {
	r := setupRouter(t)

	aliceID := createUser(t, "alice")
	bobID := createUser(t, "bob")

	w := doJSON(t, r, aliceID, "GET", fmt.Sprintf("/api/v1/relations/with/%d", bobID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "none", resp["state"])

	doJSON(t, r, aliceID, "POST", "/api/v1/relations/add", gin.H{"user_id": bobID})

	w = doJSON(t, r, bobID, "GET", fmt.Sprintf("/api/v1/relations/with/%d", aliceID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "pending", resp["state"])
}

func TestFriendsListEndpoint(t *testing.T) {
	r := setupRouter(t)

	aliceID := createUser(t, "alice")
	bobID := createUser(t, "bob")

	doJSON(t, r, aliceID, "POST", "/api/v1/relations/add", gin.H{"user_id": bobID})

	w := doJSON(t, r, bobID, "GET", "/api/v1/friends/requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reqResp struct {
		Requests []models.User `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reqResp))
	require.Len(t, reqResp.Requests, 1)
	require.Equal(t, aliceID, reqResp.Requests[0].ID)

	doJSON(t, r, bobID, "POST", "/api/v1/relations/accept", gin.H{"user_id": aliceID})

	w = doJSON(t, r, aliceID, "GET", "/api/v1/friends/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var friendsResp struct {
		Friends []models.User `json:"friends"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &friendsResp))
	require.Len(t, friendsResp.Friends, 1)
	require.Equal(t, bobID, friendsResp.Friends[0].ID)
}

func TestBlockedMessagingOverAPI(t *testing.T) {
	r := setupRouter(t)

	aliceID := createUser(t, "alice")
	bobID := createUser(t, "bob")

	w := doJSON(t, r, aliceID, "POST", "/api/v1/messages", gin.H{"to_user_id": bobID, "text": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, aliceID, "POST", "/api/v1/relations/block", gin.H{"user_id": bobID})
	require.Equal(t, http.StatusOK, w.Code)

	// Блокировка вычистила переписку
	w = doJSON(t, r, aliceID, "GET", fmt.Sprintf("/api/v1/dialogs/%d", bobID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dialogResp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dialogResp))
	require.Empty(t, dialogResp.Messages)

	// И запретила отправку в обе стороны
	w = doJSON(t, r, aliceID, "POST", "/api/v1/messages", gin.H{"to_user_id": bobID, "text": "still there?"})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, r, bobID, "POST", "/api/v1/messages", gin.H{"to_user_id": aliceID, "text": "hello?"})
	require.Equal(t, http.StatusForbidden, w.Code)
}
