package entity

import (
	"time"
)

// Thumbs - оценка вопроса в жалобе
type Thumbs string

const (
	ThumbsUp   Thumbs = "up"
	ThumbsDown Thumbs = "down"
)

// IsValid проверяет значение оценки
func (t Thumbs) IsValid() bool {
	return t == ThumbsUp || t == ThumbsDown
}

// QuestionReport - отзыв пользователя о вопросе.
// QuestionID - ссылка по значению, целостность не проверяется хранилищем,
// но при смене ID вопроса жалобы переносятся вместе с ним.
type QuestionReport struct {
	QuestionID string     `json:"question_id"`
	ReportID   string     `json:"report_id"`
	Thumbs     Thumbs     `json:"thumbs"`
	Reason     string     `json:"reason"`
	ReportedAt time.Time  `json:"reported_at"`
	UserID     *string    `json:"user_id,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// IsResolved возвращает true, если жалоба обработана
func (r *QuestionReport) IsResolved() bool {
	return r.ResolvedAt != nil
}
