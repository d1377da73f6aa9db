package repository

import (
	"context"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями и лидербордом
type UserRepository interface {
	Create(ctx context.Context, user entity.User) (*entity.User, error)
	GetByID(ctx context.Context, userID string) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
	// Update сливает частичное обновление и в том же коммите переносит запись лидерборда
	Update(ctx context.Context, update entity.UserUpdate, category *string, isCorrect *bool) (*entity.User, error)
	Delete(ctx context.Context, userID string) error
	// GetLeaderboard возвращает записи по убыванию счета, не более limit
	GetLeaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
	// RebuildLeaderboard приводит индекс лидерборда в соответствие с пользователями
	RebuildLeaderboard(ctx context.Context) (int, error)
}
