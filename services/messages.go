package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"socialgraph/db"
	"socialgraph/models"
)

// Ошибки доставки сообщений при блокировке.
// Заблокировавшему говорим прямо, заблокированному отвечаем нейтрально,
// не раскрывая факт блокировки.
var (
	ErrUnblockToSend    = errors.New("you have blocked this user, unblock them to send messages")
	ErrRecipientBlocked = errors.New("unable to send message to this user")
)

// MessageService - диалоги между пользователями.
// Перед каждой отправкой выполняется проверка блокировки в обоих
// направлениях; при блокировке переписка пары вычищается диспетчером эффектов.
type MessageService struct {
	visibility *VisibilityService
	counters   *CounterService
}

func NewMessageService(visibility *VisibilityService, counters *CounterService) *MessageService {
	return &MessageService{
		visibility: visibility,
		counters:   counters,
	}
}

// SendMessage отправляет сообщение с проверкой блокировки
func (ms *MessageService) SendMessage(ctx context.Context, fromID, toID int64, text string) (*models.Message, error) {
	if fromID == toID {
		return nil, ErrSelfTarget
	}
	if text == "" {
		return nil, errors.New("message text cannot be empty")
	}

	var exists int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("id = ?", toID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("failed to check recipient: %w", err)
	}
	if exists == 0 {
		return nil, ErrUserNotFound
	}

	// Доставка запрещена при блокировке в любом направлении
	block, err := ms.visibility.BlockBetween(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if block != nil {
		if block.InitiatorID == fromID {
			return nil, ErrUnblockToSend
		}
		return nil, ErrRecipientBlocked
	}

	message := &models.Message{
		FromUserID: fromID,
		ToUserID:   toID,
		Text:       text,
		CreatedAt:  time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(message).Error; err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	ms.counters.Incr(ctx, toID, CounterUnreadMessages, 1)
	ms.pushMessage(message)

	return message, nil
}

// GetDialog возвращает переписку пары с пагинацией по id
func (ms *MessageService) GetDialog(ctx context.Context, userID, otherID int64, lastID int64, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := db.GetReadOnlyDB(ctx).
		Scopes(models.DialogBetween(userID, otherID)).
		Order("id DESC").
		Limit(limit)
	if lastID > 0 {
		query = query.Where("id < ?", lastID)
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get dialog: %w", err)
	}
	return messages, nil
}

// Conversation - собеседник с последним сообщением и числом непрочитанных
type Conversation struct {
	UserID      int64          `json:"user_id"`
	Nickname    string         `json:"nickname"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	LastMessage models.Message `json:"last_message"`
	UnreadCount int64          `json:"unread_count"`
}

// GetConversations возвращает диалоги пользователя, свежие первыми.
// Последнее сообщение каждой пары берется группировкой по нормализованной
// паре, непрочитанные считаются одним запросом по всем собеседникам.
func (ms *MessageService) GetConversations(ctx context.Context, userID int64) ([]Conversation, error) {
	conn := db.GetReadOnlyDB(ctx)

	lastIDs := conn.Model(&models.Message{}).
		Select("MAX(id)").
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Group("CASE WHEN from_user_id < to_user_id THEN from_user_id ELSE to_user_id END").
		Group("CASE WHEN from_user_id < to_user_id THEN to_user_id ELSE from_user_id END")

	var lastMessages []models.Message
	if err := conn.Where("id IN (?)", lastIDs).Order("id DESC").Find(&lastMessages).Error; err != nil {
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	}
	if len(lastMessages) == 0 {
		return []Conversation{}, nil
	}

	peerIDs := make([]int64, 0, len(lastMessages))
	for _, m := range lastMessages {
		if m.FromUserID == userID {
			peerIDs = append(peerIDs, m.ToUserID)
		} else {
			peerIDs = append(peerIDs, m.FromUserID)
		}
	}

	var peers []models.User
	err := conn.Where("id IN ?", peerIDs).
		Select("id, nickname, first_name, last_name").
		Find(&peers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation peers: %w", err)
	}
	peerByID := make(map[int64]models.User, len(peers))
	for _, u := range peers {
		peerByID[u.ID] = u
	}

	type unreadRow struct {
		FromUserID int64
		Total      int64
	}
	var unread []unreadRow
	err = conn.Model(&models.Message{}).
		Select("from_user_id, COUNT(*) as total").
		Where("to_user_id = ? AND is_read = ?", userID, false).
		Group("from_user_id").
		Scan(&unread).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	unreadByPeer := make(map[int64]int64, len(unread))
	for _, row := range unread {
		unreadByPeer[row.FromUserID] = row.Total
	}

	conversations := make([]Conversation, 0, len(lastMessages))
	for _, m := range lastMessages {
		peerID := m.FromUserID
		if peerID == userID {
			peerID = m.ToUserID
		}
		peer := peerByID[peerID]
		conversations = append(conversations, Conversation{
			UserID:      peerID,
			Nickname:    peer.Nickname,
			FirstName:   peer.FirstName,
			LastName:    peer.LastName,
			LastMessage: m,
			UnreadCount: unreadByPeer[peerID],
		})
	}
	return conversations, nil
}

// MarkDialogRead помечает входящие сообщения от otherID прочитанными
func (ms *MessageService) MarkDialogRead(ctx context.Context, userID, otherID int64) error {
	res := db.GetWriteDB(ctx).
		Model(&models.Message{}).
		Where("to_user_id = ? AND from_user_id = ? AND is_read = ?", userID, otherID, false).
		Update("is_read", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark dialog read: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		ms.counters.Incr(ctx, userID, CounterUnreadMessages, -res.RowsAffected)
	}
	return nil
}

// PurgeTranscript удаляет переписку пары в обоих направлениях.
// Вызывается диспетчером эффектов при блокировке.
func (ms *MessageService) PurgeTranscript(ctx context.Context, a, b int64) error {
	err := db.GetWriteDB(ctx).
		Scopes(models.DialogBetween(a, b)).
		Delete(&models.Message{}).Error
	if err != nil {
		return fmt.Errorf("failed to purge transcript: %w", err)
	}
	return nil
}

// pushMessage отправляет живое уведомление получателю, best-effort
func (ms *MessageService) pushMessage(message *models.Message) {
	pushMsg := struct {
		Event     string    `json:"event"`
		MessageID int64     `json:"message_id"`
		FromID    int64     `json:"from_id"`
		Text      string    `json:"text"`
		CreatedAt time.Time `json:"created_at"`
	}{
		Event:     "message",
		MessageID: message.ID,
		FromID:    message.FromUserID,
		Text:      message.Text,
		CreatedAt: message.CreatedAt,
	}
	data, err := json.Marshal(pushMsg)
	if err != nil {
		log.Printf("ERROR: failed to marshal message push: %v", err)
		return
	}
	GlobalWSConnManager.Send(message.ToUserID, data)
}
