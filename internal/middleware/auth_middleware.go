package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	"github.com/briansimoni/weewoo.study-sub000/pkg/auth"
)

// Ключи контекста Gin, которые заполняет AuthMiddleware
const (
	ContextKeySubject = "auth_subject"
	ContextKeyRole    = "auth_role"
)

// AuthMiddleware проверяет Bearer-токены административного API
type AuthMiddleware struct {
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewAuthMiddleware создает middleware аутентификации
func NewAuthMiddleware(jwtService *auth.JWTService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		logger:     logging.OrNop(logger),
	}
}

// RequireAdmin пропускает только запросы с валидным токеном роли admin
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := m.jwtService.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			message := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				message = "token expired"
			}
			m.logger.Debug("admin token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		if claims.Role != auth.RoleAdmin {
			m.logger.Warn("non-admin token on admin route",
				zap.String("subject", claims.Subject),
				zap.String("role", claims.Role),
				zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}

		c.Set(ContextKeySubject, claims.Subject)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}
