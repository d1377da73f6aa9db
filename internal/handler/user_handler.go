package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/handler/dto"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	"github.com/briansimoni/weewoo.study-sub000/internal/service"
)

// UserHandler обрабатывает запросы, связанные с пользователями
type UserHandler struct {
	userService *service.UserService
	logger      *zap.Logger
	now         func() time.Time
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logging.OrNop(logger),
		now:         time.Now,
	}
}

// CreateUser регистрирует игрока
// POST /api/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.UserID, req.DisplayName)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewUserResponse(user))
}

// GetUser возвращает профиль игрока
// GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// RenameUser меняет отображаемое имя; запись лидерборда обновляется вместе с пользователем
// PATCH /api/users/:id
func (h *UserHandler) RenameUser(c *gin.Context) {
	var req dto.RenameUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Rename(c.Request.Context(), c.GetString("userID"), req.DisplayName)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// DeleteUser удаляет игрока, его запись лидерборда и серию
// DELETE /api/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.DeleteUser(c.Request.Context(), c.GetString("userID")); err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// GetStreak возвращает текущую серию игрока. Отсутствие серии - не ошибка.
// GET /api/users/:id/streak
func (h *UserHandler) GetStreak(c *gin.Context) {
	streak, err := h.userService.GetStreak(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	if streak == nil {
		c.JSON(http.StatusOK, gin.H{"streak": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": dto.NewStreakResponse(streak, h.now())})
}

// GetLeaderboard обрабатывает запрос на получение лидерборда
// GET /api/leaderboard?limit=
func (h *UserHandler) GetLeaderboard(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.userService.GetLeaderboard(c.Request.Context(), limit)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewLeaderboardResponse(entries))
}
