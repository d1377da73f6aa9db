package repository

import (
	"context"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// StreakRepository определяет методы серии активности с ленивым истечением
type StreakRepository interface {
	Get(ctx context.Context, userID string) (*entity.Streak, error)
	Update(ctx context.Context, userID string) (*entity.Streak, error)
	Delete(ctx context.Context, userID string) error
	SweepExpired(ctx context.Context) (int, error)
}
