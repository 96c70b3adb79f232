package services

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WSConnManager - реестр живых сокетов для push-уведомлений.
// У пользователя может быть несколько вкладок, каждая со своим сокетом;
// при logout все его сокеты закрываются вместе с отзывом токена.
type WSConnManager struct {
	mu    sync.RWMutex
	users map[int64]map[*websocket.Conn]struct{}
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64]map[*websocket.Conn]struct{}),
	}
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users[userID] == nil {
		m.users[userID] = make(map[*websocket.Conn]struct{})
	}
	m.users[userID][conn] = struct{}{}
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users[userID], conn)
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

// Send доставляет сообщение во все сокеты пользователя, best-effort
func (m *WSConnManager) Send(userID int64, message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for conn := range m.users[userID] {
		_ = conn.WriteMessage(websocket.TextMessage, message)
	}
}

// CloseAll закрывает и снимает с учета все сокеты пользователя
func (m *WSConnManager) CloseAll(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for conn := range m.users[userID] {
		_ = conn.Close()
	}
	delete(m.users, userID)
}

var GlobalWSConnManager = NewWSConnManager()
