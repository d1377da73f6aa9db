package entity

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// CategoryStats - статистика ответов по одной категории
type CategoryStats struct {
	QuestionsAnswered int `json:"questions_answered"`
	QuestionsCorrect  int `json:"questions_correct"`
}

// UserStats - агрегированная статистика пользователя
type UserStats struct {
	QuestionsAnswered int                      `json:"questions_answered"`
	QuestionsCorrect  int                      `json:"questions_correct"`
	Categories        map[string]CategoryStats `json:"categories"`
}

// User представляет пользователя квиза
type User struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	Stats       UserStats `json:"stats"`
}

// StatsDelta - приращения статистики. Значения прибавляются к текущим счетчикам,
// категории создаются при первом упоминании.
type StatsDelta struct {
	QuestionsAnswered int                      `json:"questions_answered"`
	QuestionsCorrect  int                      `json:"questions_correct"`
	Categories        map[string]CategoryStats `json:"categories,omitempty"`
}

// UserUpdate - частичное обновление пользователя
type UserUpdate struct {
	UserID      string      `json:"user_id"`
	DisplayName *string     `json:"display_name,omitempty"`
	Stats       *StatsDelta `json:"stats,omitempty"`
}

// LeaderboardEntry - денормализованная запись лидерборда
type LeaderboardEntry struct {
	UserID           string `json:"user_id"`
	DisplayName      string `json:"display_name"`
	QuestionsCorrect int    `json:"questions_correct"`
}

// Validate проверяет данные нового пользователя
func (u *User) Validate() error {
	if strings.TrimSpace(u.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", apperrors.ErrValidation)
	}
	if strings.ContainsAny(u.UserID, ":*?[]\\") {
		return fmt.Errorf("%w: user_id contains reserved characters", apperrors.ErrValidation)
	}
	return u.Stats.Validate()
}

// Validate проверяет инварианты статистики: 0 <= correct <= answered
// на верхнем уровне и в каждой категории.
func (s *UserStats) Validate() error {
	if err := validateCounts("stats", s.QuestionsAnswered, s.QuestionsCorrect); err != nil {
		return err
	}
	for name, c := range s.Categories {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: category name is empty", apperrors.ErrValidation)
		}
		if err := validateCounts("category "+name, c.QuestionsAnswered, c.QuestionsCorrect); err != nil {
			return err
		}
	}
	return nil
}

func validateCounts(scope string, answered, correct int) error {
	if answered < 0 || correct < 0 {
		return fmt.Errorf("%w: %s counts must not be negative", apperrors.ErrValidation, scope)
	}
	if correct > answered {
		return fmt.Errorf("%w: %s questions_correct (%d) exceeds questions_answered (%d)", apperrors.ErrValidation, scope, correct, answered)
	}
	return nil
}

func (s *UserStats) addCategory(name string, delta CategoryStats) {
	if s.Categories == nil {
		s.Categories = make(map[string]CategoryStats)
	}
	current := s.Categories[name]
	current.QuestionsAnswered += delta.QuestionsAnswered
	current.QuestionsCorrect += delta.QuestionsCorrect
	s.Categories[name] = current
}

// ApplyUpdate сливает частичное обновление в пользователя.
// category/isCorrect - неявное приращение категории на один ответ, дополнительно
// к явному payload. Вызывающий код не должен использовать оба механизма для одного события.
func (u *User) ApplyUpdate(update UserUpdate, category *string, isCorrect *bool) error {
	if update.DisplayName != nil {
		u.DisplayName = *update.DisplayName
	}

	if update.Stats != nil {
		u.Stats.QuestionsAnswered += update.Stats.QuestionsAnswered
		u.Stats.QuestionsCorrect += update.Stats.QuestionsCorrect
		for name, delta := range update.Stats.Categories {
			u.Stats.addCategory(name, delta)
		}
	}

	if category != nil && strings.TrimSpace(*category) != "" {
		delta := CategoryStats{QuestionsAnswered: 1}
		if isCorrect != nil && *isCorrect {
			delta.QuestionsCorrect = 1
		}
		u.Stats.addCategory(*category, delta)
	}

	return u.Stats.Validate()
}

// LeaderboardEntry возвращает запись лидерборда для текущего состояния пользователя
func (u *User) LeaderboardEntry() LeaderboardEntry {
	return LeaderboardEntry{
		UserID:           u.UserID,
		DisplayName:      u.DisplayName,
		QuestionsCorrect: u.Stats.QuestionsCorrect,
	}
}
