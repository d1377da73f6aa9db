package entity

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// Границы количества вариантов ответа
const (
	MinChoices = 2
	MaxChoices = 6
)

// Question представляет вопрос викторины.
// ID и ContentHash выводятся из текста вопроса и не задаются вызывающим кодом.
type Question struct {
	ID            string    `json:"id"`
	ContentHash   string    `json:"content_hash"`
	CreatedAt     time.Time `json:"created_at"`
	QuestionText  string    `json:"question_text"`
	Choices       []string  `json:"choices"`
	CorrectAnswer int       `json:"correct_answer"`
	Explanation   string    `json:"explanation"`
	Category      string    `json:"category"`
}

// QuestionDraft - данные нового вопроса до вычисления идентичности
type QuestionDraft struct {
	QuestionText  string   `json:"question_text"`
	Choices       []string `json:"choices"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Category      string   `json:"category"`
}

// Validate проверяет черновик вопроса
func (d *QuestionDraft) Validate() error {
	if strings.TrimSpace(d.QuestionText) == "" {
		return fmt.Errorf("%w: question_text is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(d.Category) == "" {
		return fmt.Errorf("%w: category is required", apperrors.ErrValidation)
	}
	if len(d.Choices) < MinChoices || len(d.Choices) > MaxChoices {
		return fmt.Errorf("%w: choices must contain %d-%d items, got %d", apperrors.ErrValidation, MinChoices, MaxChoices, len(d.Choices))
	}
	for i, choice := range d.Choices {
		if strings.TrimSpace(choice) == "" {
			return fmt.Errorf("%w: choice %d is empty", apperrors.ErrValidation, i)
		}
	}
	if d.CorrectAnswer < 0 || d.CorrectAnswer >= len(d.Choices) {
		return fmt.Errorf("%w: correct_answer %d is out of range", apperrors.ErrValidation, d.CorrectAnswer)
	}
	return nil
}

// NewQuestion создает вопрос из черновика, вычисляя хеш содержимого и ID
func NewQuestion(draft QuestionDraft, createdAt time.Time) Question {
	id, hash := DeriveQuestionID(draft.QuestionText)
	return Question{
		ID:            id,
		ContentHash:   hash,
		CreatedAt:     createdAt,
		QuestionText:  draft.QuestionText,
		Choices:       append([]string(nil), draft.Choices...),
		CorrectAnswer: draft.CorrectAnswer,
		Explanation:   draft.Explanation,
		Category:      draft.Category,
	}
}

// Draft возвращает изменяемую часть вопроса
func (q *Question) Draft() QuestionDraft {
	return QuestionDraft{
		QuestionText:  q.QuestionText,
		Choices:       q.Choices,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Category:      q.Category,
	}
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(selectedChoice int) bool {
	return selectedChoice == q.CorrectAnswer
}

// ChoicesCount возвращает количество вариантов ответа
func (q *Question) ChoicesCount() int {
	return len(q.Choices)
}

// IsValidChoice проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidChoice(selectedChoice int) bool {
	return selectedChoice >= 0 && selectedChoice < len(q.Choices)
}
