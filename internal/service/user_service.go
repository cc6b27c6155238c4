package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/apperr"
	"github.com/Freeeeeet/tutor_scheduler/internal/authz"
	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo UserStore
	logger   *zap.Logger
}

func NewUserService(userRepo UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// RegisterUser регистрирует или обновляет пользователя Telegram
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	// Проверяем существует ли пользователь
	existingUser, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	// Если пользователь уже существует, обновляем данные профиля (роль не трогаем)
	if existingUser != nil {
		if existingUser.Username == username && existingUser.FirstName == firstName && existingUser.LastName == lastName {
			return existingUser, nil
		}

		existingUser.Username = username
		existingUser.FirstName = firstName
		existingUser.LastName = lastName

		if err := s.userRepo.Update(ctx, existingUser); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}

		s.logger.Info("User updated",
			zap.Int64("telegram_id", telegramID),
			zap.String("username", username),
		)

		return existingUser, nil
	}

	// Создаём нового пользователя, по умолчанию ученик без учителя
	tgID := telegramID
	user := &model.User{
		TelegramID: &tgID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		Role:       model.RoleStudent,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("New user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("username", username),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.GetByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Names имена пользователей для отображения, по ID
func (s *UserService) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName()
	}
	return names, nil
}

// SetRole меняет роль пользователя. Только администратор; снять роль
// администратора с самого себя нельзя.
func (s *UserService) SetRole(ctx context.Context, id authz.Identity, userID int64, role model.Role) error {
	if err := authz.RequireRole(id, model.RoleAdmin).Err(id, "change role"); err != nil {
		return err
	}
	if _, ok := model.ParseRole(string(role)); !ok {
		return apperr.NewValidation("role", "unknown role")
	}
	if userID == id.UserID && role != model.RoleAdmin {
		return apperr.NewValidation("role", "cannot remove own admin role")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}
	if user.Role == role {
		return nil
	}

	if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	s.logger.Info("User role changed",
		zap.Int64("user_id", userID),
		zap.String("from", string(user.Role)),
		zap.String("to", string(role)),
		zap.Int64("by", id.UserID),
	)

	return nil
}
