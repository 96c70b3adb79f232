package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"socialgraph/db"
	"socialgraph/models"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid nickname or password")
)

// UserService - регистрация, вход и поиск пользователей
type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

// Register создает пользователя с хешированным паролем
func (us *UserService) Register(ctx context.Context, user *models.User) (int64, error) {
	if user.Nickname == "" || user.Password == "" {
		return 0, errors.New("nickname and password are required")
	}

	var alreadyExists int64
	err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("nickname = ?", user.Nickname).Count(&alreadyExists).Error
	if err != nil {
		return 0, fmt.Errorf("failed to check nickname: %w", err)
	}
	if alreadyExists > 0 {
		return 0, ErrUserExists
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return 0, err
	}
	hash := argon2.IDKey([]byte(user.Password), salt, 1, 64*1024, 4, 32)
	user.Password = hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash)

	if err := db.GetWriteDB(ctx).Create(user).Error; err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return user.ID, nil
}

// Login проверяет пароль и выдает новый токен
func (us *UserService) Login(ctx context.Context, nickname, password string) (string, int64, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).Where("nickname = ?", nickname).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", 0, ErrInvalidCredentials
	}
	if err != nil {
		return "", 0, err
	}

	parts := strings.Split(user.Password, "$")
	if len(parts) != 2 {
		return "", 0, errors.New("invalid password format")
	}
	storedSalt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", 0, err
	}
	hash := argon2.IDKey([]byte(password), storedSalt, 1, 64*1024, 4, 32)
	if hex.EncodeToString(hash) != parts[1] {
		return "", 0, ErrInvalidCredentials
	}

	// Старые токены отзываются при каждом входе
	_ = db.GetWriteDB(ctx).Where("user_id = ?", user.ID).Delete(&models.UserTokens{}).Error

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", 0, err
	}
	token := hex.EncodeToString(tokenBytes)

	err = db.GetWriteDB(ctx).Create(&models.UserTokens{
		UserID: user.ID,
		Token:  token,
	}).Error
	if err != nil {
		return "", 0, fmt.Errorf("failed to store token: %w", err)
	}
	return token, user.ID, nil
}

// Logout удаляет токен пользователя
func (us *UserService) Logout(ctx context.Context, userID int64, token string) error {
	if token == "" {
		return errors.New("token is empty")
	}
	res := db.GetWriteDB(ctx).Where("user_id = ? AND token = ?", userID, token).Delete(&models.UserTokens{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Authenticate возвращает пользователя по токену
func (us *UserService) Authenticate(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, errors.New("token is empty")
	}
	var userToken models.UserTokens
	err := db.GetReadOnlyDB(ctx).Where("token = ?", token).First(&userToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errors.New("invalid token")
	}
	if err != nil {
		return 0, err
	}
	return userToken.UserID, nil
}

// GetUser возвращает профиль пользователя
func (us *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Search ищет пользователей по префиксам имени и фамилии.
// Пользователи, заблокировавшие ищущего, в выдачу не попадают.
func (us *UserService) Search(ctx context.Context, searcherID int64, firstName, lastName string, limit, offset int) ([]models.User, error) {
	if firstName == "" && lastName == "" {
		return nil, errors.New("at least one search parameter is required")
	}
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	query := db.GetReadOnlyDB(ctx).Model(&models.User{})
	if firstName != "" {
		query = query.Where("first_name LIKE ?", firstName+"%")
	}
	if lastName != "" {
		query = query.Where("last_name LIKE ?", lastName+"%")
	}
	query = query.Where(
		"NOT EXISTS (SELECT 1 FROM relationships r WHERE r.initiator_id = users.id AND r.counterpart_id = ? AND r.state = ?)",
		searcherID, models.RelationBlocked,
	)

	var users []models.User
	err := query.
		Select("id, nickname, first_name, last_name, city, created_at").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
