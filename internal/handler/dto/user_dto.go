package dto

import (
	"time"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// CreateUserRequest - регистрация игрока
type CreateUserRequest struct {
	UserID      string `json:"user_id" binding:"required,max=128"`
	DisplayName string `json:"display_name" binding:"omitempty,max=64"`
}

// RenameUserRequest - смена отображаемого имени
type RenameUserRequest struct {
	DisplayName string `json:"display_name" binding:"required,max=64"`
}

// CategoryStatsDTO - статистика по категории
type CategoryStatsDTO struct {
	QuestionsAnswered int `json:"questions_answered"`
	QuestionsCorrect  int `json:"questions_correct"`
}

// UserStatsDTO - статистика игрока
type UserStatsDTO struct {
	QuestionsAnswered int                         `json:"questions_answered"`
	QuestionsCorrect  int                         `json:"questions_correct"`
	Categories        map[string]CategoryStatsDTO `json:"categories"`
}

// UserResponse - профиль игрока
type UserResponse struct {
	UserID      string       `json:"user_id"`
	DisplayName string       `json:"display_name"`
	CreatedAt   time.Time    `json:"created_at"`
	Stats       UserStatsDTO `json:"stats"`
}

// LeaderboardEntryDTO - строка лидерборда
type LeaderboardEntryDTO struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"user_id"`
	DisplayName      string `json:"display_name"`
	QuestionsCorrect int    `json:"questions_correct"`
}

// LeaderboardResponse - лидерборд целиком
type LeaderboardResponse struct {
	Users []LeaderboardEntryDTO `json:"users"`
}

// StreakResponse - серия активности игрока
type StreakResponse struct {
	Days         int       `json:"days"`
	StartDate    time.Time `json:"start_date"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresOn    time.Time `json:"expires_on"`
	Expired      bool      `json:"expired"`
}

// NewUserStatsDTO создает DTO статистики
func NewUserStatsDTO(stats entity.UserStats) UserStatsDTO {
	categories := make(map[string]CategoryStatsDTO, len(stats.Categories))
	for name, c := range stats.Categories {
		categories[name] = CategoryStatsDTO{QuestionsAnswered: c.QuestionsAnswered, QuestionsCorrect: c.QuestionsCorrect}
	}
	return UserStatsDTO{
		QuestionsAnswered: stats.QuestionsAnswered,
		QuestionsCorrect:  stats.QuestionsCorrect,
		Categories:        categories,
	}
}

// NewUserResponse создает DTO пользователя
func NewUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		UserID:      u.UserID,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
		Stats:       NewUserStatsDTO(u.Stats),
	}
}

// NewLeaderboardResponse нумерует записи лидерборда начиная с 1.
// Игроки с одинаковым счетом делят место.
func NewLeaderboardResponse(entries []entity.LeaderboardEntry) LeaderboardResponse {
	users := make([]LeaderboardEntryDTO, 0, len(entries))
	rank := 0
	for i, e := range entries {
		if i == 0 || e.QuestionsCorrect != entries[i-1].QuestionsCorrect {
			rank = i + 1
		}
		users = append(users, LeaderboardEntryDTO{
			Rank:             rank,
			UserID:           e.UserID,
			DisplayName:      e.DisplayName,
			QuestionsCorrect: e.QuestionsCorrect,
		})
	}
	return LeaderboardResponse{Users: users}
}

// NewStreakResponse создает DTO серии
func NewStreakResponse(s *entity.Streak, now time.Time) StreakResponse {
	return StreakResponse{
		Days:         s.Days,
		StartDate:    s.StartDate,
		LastActivity: s.LastActivity,
		ExpiresOn:    s.ExpiresOn,
		Expired:      s.IsExpired(now),
	}
}
