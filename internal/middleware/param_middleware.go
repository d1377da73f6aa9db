package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// ExtractQuestionID создает middleware для извлечения и валидации ID вопроса из URL.
// paramName - имя параметра в URL (например, "id").
// contextKey - ключ, под которым значение будет сохранено в контексте Gin.
func ExtractQuestionID(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.ToLower(strings.TrimSpace(c.Param(paramName)))
		if !entity.IsValidQuestionID(id) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, id)
		c.Next()
	}
}

// ExtractStringParam сохраняет непустой параметр пути в контексте.
// Используется для идентификаторов пользователей и вариантов товара.
func ExtractStringParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := strings.TrimSpace(c.Param(paramName))
		if value == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, value)
		c.Next()
	}
}
