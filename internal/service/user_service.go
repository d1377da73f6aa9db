package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/domain/repository"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

const maxLeaderboardLimit = 100

// UserService предоставляет методы для работы с пользователями, лидербордом и сериями
type UserService struct {
	userRepo   repository.UserRepository
	streakRepo repository.StreakRepository
	logger     *zap.Logger
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository, streakRepo repository.StreakRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo:   userRepo,
		streakRepo: streakRepo,
		logger:     logging.OrNop(logger),
	}
}

// Register создает пользователя с нулевой статистикой
func (s *UserService) Register(ctx context.Context, userID, displayName string) (*entity.User, error) {
	userID = strings.TrimSpace(userID)
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = userID
	}
	return s.userRepo.Create(ctx, entity.User{
		UserID:      userID,
		DisplayName: displayName,
	})
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]entity.User, error) {
	return s.userRepo.List(ctx)
}

// Rename меняет отображаемое имя; запись лидерборда обновляется в том же коммите
func (s *UserService) Rename(ctx context.Context, userID, displayName string) (*entity.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, fmt.Errorf("%w: display_name is required", apperrors.ErrValidation)
	}
	return s.userRepo.Update(ctx, entity.UserUpdate{UserID: userID, DisplayName: &displayName}, nil, nil)
}

// DeleteUser удаляет пользователя, его запись лидерборда и серию
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	if err := s.streakRepo.Delete(ctx, userID); err != nil {
		s.logger.Warn("failed to delete streak of removed user", zap.String("user_id", userID), zap.Error(err))
	}
	return nil
}

// GetLeaderboard возвращает не более limit лучших записей (1..100, по умолчанию 100)
func (s *UserService) GetLeaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return s.userRepo.GetLeaderboard(ctx, limit)
}

// GetStreak возвращает текущую серию. Отсутствие серии не ошибка: возвращается nil.
func (s *UserService) GetStreak(ctx context.Context, userID string) (*entity.Streak, error) {
	streak, err := s.streakRepo.Get(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	return streak, err
}

// RebuildLeaderboard восстанавливает индекс лидерборда (обслуживание)
func (s *UserService) RebuildLeaderboard(ctx context.Context) (int, error) {
	return s.userRepo.RebuildLeaderboard(ctx)
}

// SweepExpiredStreaks удаляет истекшие серии (обслуживание)
func (s *UserService) SweepExpiredStreaks(ctx context.Context) (int, error) {
	return s.streakRepo.SweepExpired(ctx)
}
