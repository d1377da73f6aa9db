package dto

import (
	"time"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
	"github.com/briansimoni/weewoo.study-sub000/internal/handler/helper"
	"github.com/briansimoni/weewoo.study-sub000/internal/service"
)

// QuestionRequest - тело запроса на создание или замену вопроса
type QuestionRequest struct {
	QuestionText  string   `json:"question_text" binding:"required,max=1000"`
	Choices       []string `json:"choices" binding:"required,min=2,max=6,dive,required,max=300"`
	CorrectAnswer *int     `json:"correct_answer" binding:"required,min=0"`
	Explanation   string   `json:"explanation" binding:"omitempty,max=2000"`
	Category      string   `json:"category" binding:"required,max=100"`
}

// ToDraft преобразует запрос в черновик вопроса
func (r *QuestionRequest) ToDraft() entity.QuestionDraft {
	draft := entity.QuestionDraft{
		QuestionText: r.QuestionText,
		Choices:      r.Choices,
		Explanation:  r.Explanation,
		Category:     r.Category,
	}
	if r.CorrectAnswer != nil {
		draft.CorrectAnswer = *r.CorrectAnswer
	}
	return draft
}

// QuestionResponse - вопрос для игрока, без правильного ответа
type QuestionResponse struct {
	ID           string                  `json:"id"`
	QuestionText string                  `json:"question_text"`
	Options      []helper.QuestionOption `json:"options"`
	Category     string                  `json:"category"`
	CreatedAt    time.Time               `json:"created_at"`
}

// AdminQuestionResponse - полный вопрос для администратора
type AdminQuestionResponse struct {
	QuestionResponse
	ContentHash   string `json:"content_hash"`
	CorrectAnswer int    `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// QuestionListResponse - список вопросов с общим количеством
type QuestionListResponse struct {
	Questions []QuestionResponse `json:"questions"`
	Total     int                `json:"total"`
}

// NewQuestionResponse создает DTO вопроса для игрока
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	return QuestionResponse{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      helper.ConvertChoicesToOptions(q.Choices),
		Category:     q.Category,
		CreatedAt:    q.CreatedAt,
	}
}

// NewAdminQuestionResponse создает DTO вопроса с правильным ответом
func NewAdminQuestionResponse(q *entity.Question) AdminQuestionResponse {
	return AdminQuestionResponse{
		QuestionResponse: NewQuestionResponse(q),
		ContentHash:      q.ContentHash,
		CorrectAnswer:    q.CorrectAnswer,
		Explanation:      q.Explanation,
	}
}

// NewQuestionListResponse создает DTO списка вопросов
func NewQuestionListResponse(questions []entity.Question) QuestionListResponse {
	items := make([]QuestionResponse, 0, len(questions))
	for i := range questions {
		items = append(items, NewQuestionResponse(&questions[i]))
	}
	return QuestionListResponse{Questions: items, Total: len(items)}
}

// ReportRequest - жалоба или оценка вопроса
type ReportRequest struct {
	Thumbs string  `json:"thumbs" binding:"required,oneof=up down"`
	Reason string  `json:"reason" binding:"omitempty,max=1000"`
	UserID *string `json:"user_id" binding:"omitempty,max=128"`
}

// ReportResponse - жалоба в ответе API
type ReportResponse struct {
	QuestionID string     `json:"question_id"`
	ReportID   string     `json:"report_id"`
	Thumbs     string     `json:"thumbs"`
	Reason     string     `json:"reason"`
	ReportedAt time.Time  `json:"reported_at"`
	UserID     *string    `json:"user_id,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// NewReportResponse создает DTO жалобы
func NewReportResponse(r *entity.QuestionReport) ReportResponse {
	return ReportResponse{
		QuestionID: r.QuestionID,
		ReportID:   r.ReportID,
		Thumbs:     string(r.Thumbs),
		Reason:     r.Reason,
		ReportedAt: r.ReportedAt,
		UserID:     r.UserID,
		ResolvedAt: r.ResolvedAt,
	}
}

// NewReportListResponse создает DTO списка жалоб
func NewReportListResponse(reports []entity.QuestionReport) []ReportResponse {
	items := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, NewReportResponse(&reports[i]))
	}
	return items
}

// AnswerRequest - ответ игрока на вопрос
type AnswerRequest struct {
	UserID string `json:"user_id" binding:"required,max=128"`
	Choice *int   `json:"choice" binding:"required,min=0"`
}

// AnswerResponse - результат ответа
type AnswerResponse struct {
	QuestionID    string          `json:"question_id"`
	IsCorrect     bool            `json:"is_correct"`
	CorrectAnswer int             `json:"correct_answer"`
	Explanation   string          `json:"explanation,omitempty"`
	Stats         UserStatsDTO    `json:"stats"`
	Streak        *StreakResponse `json:"streak,omitempty"`
}

// NewAnswerResponse создает DTO результата ответа
func NewAnswerResponse(result *service.AnswerResult, now time.Time) AnswerResponse {
	resp := AnswerResponse{
		QuestionID:    result.QuestionID,
		IsCorrect:     result.IsCorrect,
		CorrectAnswer: result.CorrectAnswer,
		Explanation:   result.Explanation,
	}
	if result.User != nil {
		resp.Stats = NewUserStatsDTO(result.User.Stats)
	}
	if result.Streak != nil {
		streak := NewStreakResponse(result.Streak, now)
		resp.Streak = &streak
	}
	return resp
}
