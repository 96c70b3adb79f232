package services

import (
	"testing"

	"socialgraph/db"
	"socialgraph/models"

	"github.com/brianvoe/gofakeit/v7"
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
	// В юнит-тестах Redis и RabbitMQ не поднимаются, сервисы работают в fallback-режиме
	RedisClient = nil
	QueueServiceInstance = nil
}

// createTestUser создает пользователя со случайным профилем
func createTestUser(t *testing.T, nickname string) int64 {
	t.Helper()

	user := models.User{
		Nickname:  nickname,
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Password:  "testpassword",
		City:      gofakeit.City(),
		Sex:       models.MALE,
	}
	err := db.ORM.Create(&user).Error
	require.NoError(t, err)
	return user.ID
}

// dbCreate вставляет запись напрямую, минуя сервисный слой
func dbCreate(value interface{}) error {
	return db.ORM.Create(value).Error
}

// newTestRelationService собирает полный стек сервисов поверх тестовой БД
func newTestRelationService() *RelationService {
	counters := NewCounterService()
	notifications := NewNotificationService(counters)
	visibility := NewVisibilityService()
	messages := NewMessageService(visibility, counters)
	dispatcher := NewEffectDispatcher(notifications, messages, counters)
	return NewRelationService(dispatcher)
}
