// Package auth содержит регистрацию, вход и удаление аккаунта.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/aahar/internal/entitlement"
	"github.com/magabrotheeeer/aahar/internal/lib/jwt"
	"github.com/magabrotheeeer/aahar/internal/lib/password"
	"github.com/magabrotheeeer/aahar/internal/lib/sl"
	"github.com/magabrotheeeer/aahar/internal/models"
	"github.com/magabrotheeeer/aahar/internal/storage"
)

// ErrInvalidCredentials неверный email или пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// RegisterUser сохраняет нового пользователя и возвращает его ID.
	RegisterUser(ctx context.Context, user models.User) (int64, error)
	// GetUserByEmail возвращает пользователя или storage.ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// DeleteUser удаляет пользователя.
	DeleteUser(ctx context.Context, email string) error
}

// EntitlementClearer удаляет статус подписки.
type EntitlementClearer interface {
	Clear(ctx context.Context, email string) error
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	users        UserRepository
	entitlements EntitlementClearer
	jwtMaker     jwt.Maker
	log          *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, entitlements EntitlementClearer, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:        users,
		entitlements: entitlements,
		jwtMaker:     jwtMaker,
		log:          log,
	}
}

// Register создает пользователя с хэшированным паролем.
func (s *AuthService) Register(ctx context.Context, email, name, rawPassword string) (int64, error) {
	const op = "auth.Register"
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Email:        entitlement.NormalizeEmail(email),
		Name:         name,
		PasswordHash: hashed,
	}
	id, err := s.users.RegisterUser(ctx, user)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Login проверяет пароль и выпускает JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, entitlement.NormalizeEmail(email))
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token, err := s.jwtMaker.GenerateToken(user.Email, user.Name)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// ValidateToken проверяет JWT и возвращает сессию пользователя.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.CurrentUserSession, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return &models.CurrentUserSession{
		Email:           claims.Email,
		Name:            claims.Name,
		IsAuthenticated: true,
	}, nil
}

// DeleteAccount удаляет пользователя и его статус подписки.
// Ошибка очистки статуса логируется и возвращается, пользователь к этому
// моменту уже удалён.
func (s *AuthService) DeleteAccount(ctx context.Context, email string) error {
	const op = "auth.DeleteAccount"
	email = entitlement.NormalizeEmail(email)
	if err := s.users.DeleteUser(ctx, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.entitlements.Clear(ctx, email); err != nil {
		s.log.Error("failed to clear subscription of deleted account", sl.Email(email), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account deleted", sl.Email(email))
	return nil
}
