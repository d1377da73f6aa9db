package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository поверх KVStore.
// ID вопроса - функция его текста; смена текста означает новый ID и перенос жалоб.
type QuestionRepo struct {
	kv       *KVStore
	opts     Options
	reportID func() (string, error)
}

// NewQuestionRepo создает хранилище вопросов
func NewQuestionRepo(kv *KVStore, opts Options) *QuestionRepo {
	return &QuestionRepo{
		kv:       kv,
		opts:     opts.withDefaults(),
		reportID: newReportID,
	}
}

func newReportID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// Add сохраняет новый вопрос. Дубликат определяется по выведенному ID:
// если запись с таким ID уже есть, возвращается ErrAlreadyExists.
func (r *QuestionRepo) Add(ctx context.Context, draft entity.QuestionDraft) (*entity.Question, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	question := entity.NewQuestion(draft, r.opts.now())
	raw, err := json.Marshal(question)
	if err != nil {
		return nil, fmt.Errorf("failed to encode question: %w", err)
	}

	key := questionKey(question.ID)
	err = r.kv.Commit(ctx,
		[]Check{{Key: key}},
		[]Mutation{SetMutation(key, raw, 0)},
	)
	if errors.Is(err, apperrors.ErrConflict) {
		return nil, fmt.Errorf("question %s: %w", question.ID, apperrors.ErrAlreadyExists)
	}
	if err != nil {
		return nil, err
	}

	r.opts.Logger.Info("question added",
		zap.String("question_id", question.ID),
		zap.String("category", question.Category))
	return &question, nil
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(ctx context.Context, id string) (*entity.Question, error) {
	if !entity.IsValidQuestionID(id) {
		return nil, fmt.Errorf("question %q: %w", id, apperrors.ErrNotFound)
	}
	var question entity.Question
	if _, err := r.kv.getJSON(ctx, questionKey(id), &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// List возвращает все вопросы, либо вопросы указанной категории. Порядок не гарантируется.
func (r *QuestionRepo) List(ctx context.Context, category string) ([]entity.Question, error) {
	entries, err := r.kv.Scan(ctx, questionPrefix, ScanOptions{})
	if err != nil {
		return nil, err
	}

	questions := make([]entity.Question, 0, len(entries))
	for _, entry := range entries {
		var question entity.Question
		if err := json.Unmarshal(entry.Value, &question); err != nil {
			r.opts.Logger.Warn("skipping undecodable question", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		if category != "" && question.Category != category {
			continue
		}
		questions = append(questions, question)
	}
	return questions, nil
}

// Size возвращает количество вопросов (всего или в категории)
func (r *QuestionRepo) Size(ctx context.Context, category string) (int, error) {
	questions, err := r.List(ctx, category)
	if err != nil {
		return 0, err
	}
	return len(questions), nil
}

// GetRandom возвращает равновероятно выбранный вопрос
func (r *QuestionRepo) GetRandom(ctx context.Context) (*entity.Question, error) {
	return r.GetRandomByCategory(ctx, "")
}

// GetRandomByCategory возвращает случайный вопрос категории или ErrNotFound, если их нет
func (r *QuestionRepo) GetRandomByCategory(ctx context.Context, category string) (*entity.Question, error) {
	questions, err := r.List(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in category %q: %w", category, apperrors.ErrNotFound)
	}
	question := questions[rand.IntN(len(questions))]
	return &question, nil
}

// Replace обновляет вопрос.
// Если хеш текста не изменился, запись перезаписывается на месте (ID, хеш и дата создания сохраняются).
// Иначе вопрос получает новый ID: в одном коммите создается новая запись, удаляется старая
// и все жалобы переписываются под новый ID.
func (r *QuestionRepo) Replace(ctx context.Context, updated entity.Question) (*entity.Question, error) {
	draft := updated.Draft()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if !entity.IsValidQuestionID(updated.ID) {
		return nil, fmt.Errorf("question %q: %w", updated.ID, apperrors.ErrNotFound)
	}

	var result *entity.Question
	err := RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		var current entity.Question
		version, err := r.kv.getJSON(ctx, questionKey(updated.ID), &current)
		if err != nil {
			return err
		}

		// Дата создания сохраняется: новая запись - смысловой преемник того же вопроса
		next := entity.NewQuestion(draft, current.CreatedAt)
		if next.ContentHash == current.ContentHash {
			next.ID = current.ID
			raw, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("failed to encode question: %w", err)
			}
			key := questionKey(current.ID)
			if err := r.kv.Commit(ctx,
				[]Check{{Key: key, Version: version}},
				[]Mutation{SetMutation(key, raw, 0)},
			); err != nil {
				return err
			}
			result = &next
			return nil
		}

		if err := r.migrate(ctx, current, version, next); err != nil {
			return err
		}
		result = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// migrate переносит вопрос под новый ID вместе со всеми жалобами одним коммитом
func (r *QuestionRepo) migrate(ctx context.Context, current entity.Question, version string, next entity.Question) error {
	oldKey, newKey := questionKey(current.ID), questionKey(next.ID)

	taken, err := r.kv.versionOrAbsent(ctx, newKey)
	if err != nil {
		return err
	}
	if taken != "" {
		return fmt.Errorf("question %s: %w", next.ID, apperrors.ErrAlreadyExists)
	}

	oldRevKey := questionReportRevKey(current.ID)
	revEntry, err := r.kv.Get(ctx, oldRevKey)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	reports, err := r.kv.Scan(ctx, questionReportsPrefix(current.ID), ScanOptions{})
	if err != nil {
		return err
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode question: %w", err)
	}

	checks := []Check{
		{Key: oldKey, Version: version},
		{Key: newKey},
		{Key: oldRevKey, Version: revEntry.Version},
	}
	mutations := []Mutation{
		SetMutation(newKey, raw, 0),
		DeleteMutation(oldKey),
	}
	if revEntry.Version != "" {
		mutations = append(mutations,
			DeleteMutation(oldRevKey),
			SetMutation(questionReportRevKey(next.ID), revEntry.Value, 0),
		)
	}

	for _, entry := range reports {
		var report entity.QuestionReport
		if err := json.Unmarshal(entry.Value, &report); err != nil {
			return fmt.Errorf("failed to decode report %s: %w", entry.Key, err)
		}
		report.QuestionID = next.ID
		reportRaw, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		checks = append(checks, Check{Key: entry.Key, Version: entry.Version})
		mutations = append(mutations,
			DeleteMutation(entry.Key),
			SetMutation(questionReportKey(next.ID, report.ReportID), reportRaw, 0),
		)
	}

	if err := r.kv.Commit(ctx, checks, mutations); err != nil {
		return err
	}

	r.opts.Logger.Info("question re-keyed after text change",
		zap.String("old_id", current.ID),
		zap.String("new_id", next.ID),
		zap.Int("reports_migrated", len(reports)))
	return nil
}

// Delete удаляет вопрос. Жалобы остаются как исторические записи.
func (r *QuestionRepo) Delete(ctx context.Context, id string) error {
	if !entity.IsValidQuestionID(id) {
		return fmt.Errorf("question %q: %w", id, apperrors.ErrNotFound)
	}
	return RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		entry, err := r.kv.Get(ctx, questionKey(id))
		if err != nil {
			return err
		}
		if err := r.kv.Commit(ctx,
			[]Check{{Key: entry.Key, Version: entry.Version}},
			[]Mutation{DeleteMutation(entry.Key), DeleteMutation(questionReportRevKey(id))},
		); err != nil {
			return err
		}
		r.opts.Logger.Info("question deleted", zap.String("question_id", id))
		return nil
	})
}

// ReportQuestion сохраняет отзыв о существующем вопросе
func (r *QuestionRepo) ReportQuestion(ctx context.Context, questionID string, thumbs entity.Thumbs, reason string, userID *string) (*entity.QuestionReport, error) {
	if !thumbs.IsValid() {
		return nil, fmt.Errorf("%w: thumbs must be %q or %q", apperrors.ErrValidation, entity.ThumbsUp, entity.ThumbsDown)
	}
	if !entity.IsValidQuestionID(questionID) {
		return nil, fmt.Errorf("question %q: %w", questionID, apperrors.ErrNotFound)
	}

	reportID, err := r.reportID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report id: %w", err)
	}

	var result *entity.QuestionReport
	err = RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		question, err := r.kv.Get(ctx, questionKey(questionID))
		if err != nil {
			return err
		}

		report := entity.QuestionReport{
			QuestionID: questionID,
			ReportID:   reportID,
			Thumbs:     thumbs,
			Reason:     strings.TrimSpace(reason),
			ReportedAt: r.opts.now(),
			UserID:     userID,
		}
		raw, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}

		key := questionReportKey(questionID, reportID)
		if err := r.kv.Commit(ctx,
			[]Check{
				{Key: question.Key, Version: question.Version},
				{Key: key},
			},
			[]Mutation{
				SetMutation(key, raw, 0),
				SetMutation(questionReportRevKey(questionID), []byte(reportID), 0),
			},
		); err != nil {
			return err
		}
		result = &report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListReports возвращает жалобы от новых к старым, опционально только по одному вопросу
func (r *QuestionRepo) ListReports(ctx context.Context, questionID string) ([]entity.QuestionReport, error) {
	prefix := questionReportPrefix
	if questionID != "" {
		prefix = questionReportsPrefix(questionID)
	}

	entries, err := r.kv.Scan(ctx, prefix, ScanOptions{})
	if err != nil {
		return nil, err
	}

	reports := make([]entity.QuestionReport, 0, len(entries))
	for _, entry := range entries {
		var report entity.QuestionReport
		if err := json.Unmarshal(entry.Value, &report); err != nil {
			r.opts.Logger.Warn("skipping undecodable report", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].ReportedAt.Equal(reports[j].ReportedAt) {
			return reports[i].ReportID > reports[j].ReportID
		}
		return reports[i].ReportedAt.After(reports[j].ReportedAt)
	})
	return reports, nil
}

// ResolveReport отмечает жалобу обработанной. Повторный вызов перезаписывает время.
func (r *QuestionRepo) ResolveReport(ctx context.Context, questionID, reportID string) (*entity.QuestionReport, error) {
	key := questionReportKey(questionID, reportID)

	var result *entity.QuestionReport
	err := RetryOnConflict(ctx, r.opts.MaxCommitAttempts, func(ctx context.Context) error {
		var report entity.QuestionReport
		version, err := r.kv.getJSON(ctx, key, &report)
		if err != nil {
			return err
		}

		resolvedAt := r.opts.now()
		report.ResolvedAt = &resolvedAt
		raw, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := r.kv.Commit(ctx,
			[]Check{{Key: key, Version: version}},
			[]Mutation{SetMutation(key, raw, 0)},
		); err != nil {
			return err
		}
		result = &report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
