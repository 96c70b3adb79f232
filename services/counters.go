package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CounterType тип счетчика
type CounterType string

const (
	CounterFriendRequests      CounterType = "friend_requests"
	CounterNotifications       CounterType = "notifications"
	CounterUnreadMessages      CounterType = "unread_messages"
	counterKeyPrefix                       = "counter:"
	counterTTL                             = 7 * 24 * time.Hour
)

// CounterService - быстрые счетчики непрочитанного в Redis.
// Счетчики best-effort: при недоступном Redis точное значение
// всегда можно получить запросом в БД.
type CounterService struct{}

func NewCounterService() *CounterService {
	return &CounterService{}
}

func counterKey(userID int64, counterType CounterType) string {
	return fmt.Sprintf("%s%d:%s", counterKeyPrefix, userID, counterType)
}

// Incr изменяет счетчик на delta, отрицательные значения обрезаются до нуля
func (cs *CounterService) Incr(ctx context.Context, userID int64, counterType CounterType, delta int64) {
	if RedisClient == nil {
		return
	}
	key := counterKey(userID, counterType)
	val, err := RedisClient.IncrBy(ctx, key, delta).Result()
	if err != nil {
		log.Printf("ERROR: failed to update counter %s: %v", key, err)
		return
	}
	if val < 0 {
		RedisClient.Set(ctx, key, 0, counterTTL)
		return
	}
	RedisClient.Expire(ctx, key, counterTTL)
}

// Get возвращает текущее значение счетчика (0 при недоступном Redis)
func (cs *CounterService) Get(ctx context.Context, userID int64, counterType CounterType) int64 {
	if RedisClient == nil {
		return 0
	}
	val, err := RedisClient.Get(ctx, counterKey(userID, counterType)).Int64()
	if err != nil {
		return 0
	}
	return val
}

// Reset сбрасывает счетчик в ноль
func (cs *CounterService) Reset(ctx context.Context, userID int64, counterType CounterType) {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Del(ctx, counterKey(userID, counterType)).Err(); err != nil {
		log.Printf("ERROR: failed to reset counter for user %d: %v", userID, err)
	}
}
