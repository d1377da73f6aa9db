package repository

import (
	"context"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// QuestionRepository определяет методы хранилища вопросов с идентичностью по содержимому
type QuestionRepository interface {
	Add(ctx context.Context, draft entity.QuestionDraft) (*entity.Question, error)
	GetByID(ctx context.Context, id string) (*entity.Question, error)
	GetRandom(ctx context.Context) (*entity.Question, error)
	GetRandomByCategory(ctx context.Context, category string) (*entity.Question, error)
	// List возвращает все вопросы или вопросы категории, если category не пуста
	List(ctx context.Context, category string) ([]entity.Question, error)
	Size(ctx context.Context, category string) (int, error)
	// Replace обновляет вопрос; при изменении текста ID меняется, жалобы переносятся
	Replace(ctx context.Context, updated entity.Question) (*entity.Question, error)
	Delete(ctx context.Context, id string) error

	ReportQuestion(ctx context.Context, questionID string, thumbs entity.Thumbs, reason string, userID *string) (*entity.QuestionReport, error)
	// ListReports возвращает жалобы от новых к старым; пустой questionID - все жалобы
	ListReports(ctx context.Context, questionID string) ([]entity.QuestionReport, error)
	ResolveReport(ctx context.Context, questionID, reportID string) (*entity.QuestionReport, error)
}
