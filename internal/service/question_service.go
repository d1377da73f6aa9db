package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/domain/repository"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
)

// QuestionService предоставляет методы для работы с вопросами и жалобами
type QuestionService struct {
	questionRepo repository.QuestionRepository
	notifier     ReportNotifier
	logger       *zap.Logger
}

// NewQuestionService создает новый сервис вопросов. notifier может быть nil.
func NewQuestionService(questionRepo repository.QuestionRepository, notifier ReportNotifier, logger *zap.Logger) *QuestionService {
	logger = logging.OrNop(logger)
	if notifier == nil {
		notifier = NewNoopReportNotifier(logger)
	}
	return &QuestionService{
		questionRepo: questionRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

// CreateQuestion добавляет вопрос. Дубликат по тексту возвращает ErrAlreadyExists.
func (s *QuestionService) CreateQuestion(ctx context.Context, draft entity.QuestionDraft) (*entity.Question, error) {
	return s.questionRepo.Add(ctx, trimDraft(draft))
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*entity.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// GetRandomQuestion возвращает случайный вопрос; пустая категория - из всех вопросов
func (s *QuestionService) GetRandomQuestion(ctx context.Context, category string) (*entity.Question, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return s.questionRepo.GetRandom(ctx)
	}
	return s.questionRepo.GetRandomByCategory(ctx, category)
}

func (s *QuestionService) ListQuestions(ctx context.Context, category string) ([]entity.Question, error) {
	return s.questionRepo.List(ctx, strings.TrimSpace(category))
}

func (s *QuestionService) CountQuestions(ctx context.Context, category string) (int, error) {
	return s.questionRepo.Size(ctx, strings.TrimSpace(category))
}

// UpdateQuestion заменяет изменяемые поля вопроса. Если изменился текст,
// возвращенный вопрос имеет новый ID.
func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, draft entity.QuestionDraft) (*entity.Question, error) {
	draft = trimDraft(draft)
	updated := entity.Question{
		ID:            id,
		QuestionText:  draft.QuestionText,
		Choices:       draft.Choices,
		CorrectAnswer: draft.CorrectAnswer,
		Explanation:   draft.Explanation,
		Category:      draft.Category,
	}
	question, err := s.questionRepo.Replace(ctx, updated)
	if err != nil {
		return nil, err
	}
	if question.ID != id {
		s.logger.Info("question id changed after edit", zap.String("old_id", id), zap.String("new_id", question.ID))
	}
	return question, nil
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, id string) error {
	return s.questionRepo.Delete(ctx, id)
}

// ReportQuestion сохраняет жалобу и уведомляет администратора.
// Ошибка уведомления только логируется.
func (s *QuestionService) ReportQuestion(ctx context.Context, questionID string, thumbs entity.Thumbs, reason string, userID *string) (*entity.QuestionReport, error) {
	report, err := s.questionRepo.ReportQuestion(ctx, questionID, thumbs, reason, userID)
	if err != nil {
		return nil, err
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		s.logger.Warn("reported question disappeared before notification",
			zap.String("question_id", questionID), zap.Error(err))
		return report, nil
	}
	if err := s.notifier.NotifyReport(ctx, *question, *report); err != nil {
		s.logger.Error("failed to send report notification",
			zap.String("question_id", questionID),
			zap.String("report_id", report.ReportID),
			zap.Error(err))
	}
	return report, nil
}

func (s *QuestionService) ListReports(ctx context.Context, questionID string) ([]entity.QuestionReport, error) {
	return s.questionRepo.ListReports(ctx, questionID)
}

func (s *QuestionService) ResolveReport(ctx context.Context, questionID, reportID string) (*entity.QuestionReport, error) {
	return s.questionRepo.ResolveReport(ctx, questionID, reportID)
}

func trimDraft(draft entity.QuestionDraft) entity.QuestionDraft {
	draft.QuestionText = strings.TrimSpace(draft.QuestionText)
	draft.Category = strings.TrimSpace(draft.Category)
	draft.Explanation = strings.TrimSpace(draft.Explanation)
	choices := make([]string, len(draft.Choices))
	for i, choice := range draft.Choices {
		choices[i] = strings.TrimSpace(choice)
	}
	draft.Choices = choices
	return draft
}
