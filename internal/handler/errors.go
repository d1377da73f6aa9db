package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/briansimoni/weewoo.study-sub000/internal/pkg/errors"
)

// statusForError сопоставляет ошибки приложения HTTP-статусам
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// handleError отправляет ответ с ошибкой. Внутренние ошибки логируются,
// а клиенту уходит обобщенное сообщение.
func handleError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusForError(err)
	switch status {
	case http.StatusInternalServerError:
		logger.Error("internal server error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
	case http.StatusServiceUnavailable:
		logger.Warn("storage unavailable",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Service temporarily unavailable"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}
