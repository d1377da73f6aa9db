package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

func validDraft() QuestionDraft {
	return QuestionDraft{
		QuestionText:  "Какой язык используется в Go?",
		Choices:       []string{"Python", "Go", "Java", "Rust"},
		CorrectAnswer: 1,
		Explanation:   "Go - это и есть язык",
		Category:      "Programming",
	}
}

func TestQuestion_IsCorrect(t *testing.T) {
	// Arrange
	question := NewQuestion(validDraft(), time.Now())

	// Act & Assert
	assert.True(t, question.IsCorrect(1), "IsCorrect должен вернуть true для правильного ответа")
	assert.False(t, question.IsCorrect(0), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, question.IsCorrect(3), "IsCorrect должен вернуть false для неправильного ответа")
}

func TestQuestion_IsValidChoice(t *testing.T) {
	// Arrange
	question := NewQuestion(validDraft(), time.Now())

	// Act & Assert: валидные варианты
	for i := 0; i < 4; i++ {
		assert.True(t, question.IsValidChoice(i), "Индекс %d должен быть валидным", i)
	}

	// Assert: невалидные варианты
	assert.False(t, question.IsValidChoice(-1), "Отрицательный индекс должен быть невалидным")
	assert.False(t, question.IsValidChoice(4), "Индекс вне диапазона должен быть невалидным")
	assert.Equal(t, 4, question.ChoicesCount())
}

func TestQuestionDraft_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *QuestionDraft)
	}{
		{"пустой текст", func(d *QuestionDraft) { d.QuestionText = "   " }},
		{"пустая категория", func(d *QuestionDraft) { d.Category = "" }},
		{"один вариант", func(d *QuestionDraft) { d.Choices = []string{"A"} }},
		{"семь вариантов", func(d *QuestionDraft) { d.Choices = []string{"1", "2", "3", "4", "5", "6", "7"} }},
		{"пустой вариант", func(d *QuestionDraft) { d.Choices[2] = "" }},
		{"отрицательный ответ", func(d *QuestionDraft) { d.CorrectAnswer = -1 }},
		{"ответ вне диапазона", func(d *QuestionDraft) { d.CorrectAnswer = 4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			draft := validDraft()
			tt.mutate(&draft)

			// Act
			err := draft.Validate()

			// Assert
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}

	valid := validDraft()
	require.NoError(t, valid.Validate())
}

func TestNewQuestion_DerivesIdentityFromText(t *testing.T) {
	// Arrange
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	draft := validDraft()

	// Act
	question := NewQuestion(draft, created)
	draft.Choices[0] = "changed"

	// Assert
	id, hash := DeriveQuestionID(draft.QuestionText)
	assert.Equal(t, id, question.ID)
	assert.Equal(t, hash, question.ContentHash)
	assert.Equal(t, created, question.CreatedAt)
	assert.Equal(t, "Python", question.Choices[0], "Вопрос не должен делить срез с черновиком")
	assert.Equal(t, "Programming", question.Draft().Category)
}
