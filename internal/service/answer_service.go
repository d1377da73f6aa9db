package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/domain/repository"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// AnswerResult - итог ответа пользователя на вопрос
type AnswerResult struct {
	QuestionID    string
	IsCorrect     bool
	CorrectAnswer int
	Explanation   string
	User          *entity.User
	// Streak может быть nil, если серию не удалось обновить
	Streak *entity.Streak
}

// AnswerService засчитывает ответы: статистика пользователя, лидерборд и серия
type AnswerService struct {
	questionRepo repository.QuestionRepository
	userRepo     repository.UserRepository
	streakRepo   repository.StreakRepository
	logger       *zap.Logger
}

// NewAnswerService создает сервис ответов
func NewAnswerService(
	questionRepo repository.QuestionRepository,
	userRepo repository.UserRepository,
	streakRepo repository.StreakRepository,
	logger *zap.Logger,
) *AnswerService {
	return &AnswerService{
		questionRepo: questionRepo,
		userRepo:     userRepo,
		streakRepo:   streakRepo,
		logger:       logging.OrNop(logger),
	}
}

// SubmitAnswer проверяет ответ и обновляет статистику.
// Верхнеуровневые счетчики меняются через дельту, категория - через неявное приращение,
// поэтому один ответ учитывается ровно один раз на каждом уровне.
func (s *AnswerService) SubmitAnswer(ctx context.Context, userID, questionID string, selectedChoice int) (*AnswerResult, error) {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if !question.IsValidChoice(selectedChoice) {
		return nil, fmt.Errorf("%w: choice %d is out of range", apperrors.ErrValidation, selectedChoice)
	}

	correct := question.IsCorrect(selectedChoice)
	delta := entity.StatsDelta{QuestionsAnswered: 1}
	if correct {
		delta.QuestionsCorrect = 1
	}

	category := question.Category
	user, err := s.userRepo.Update(ctx, entity.UserUpdate{UserID: userID, Stats: &delta}, &category, &correct)
	if err != nil {
		return nil, err
	}

	// Серия вторична по отношению к статистике: ошибка не отменяет ответ
	streak, err := s.streakRepo.Update(ctx, userID)
	if err != nil {
		s.logger.Error("failed to update streak", zap.String("user_id", userID), zap.Error(err))
		streak = nil
	}

	s.logger.Debug("answer recorded",
		zap.String("user_id", userID),
		zap.String("question_id", questionID),
		zap.Bool("correct", correct))

	return &AnswerResult{
		QuestionID:    question.ID,
		IsCorrect:     correct,
		CorrectAnswer: question.CorrectAnswer,
		Explanation:   question.Explanation,
		User:          user,
		Streak:        streak,
	}, nil
}
