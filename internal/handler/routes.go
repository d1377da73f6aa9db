package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/briansimoni/weewoo.study-sub000/internal/middleware"
)

// Routes собирает обработчики и middleware для регистрации маршрутов
type Routes struct {
	Questions *QuestionHandler
	Users     *UserHandler
	Products  *ProductHandler

	Auth *middleware.AuthMiddleware
	// RateLimiter может быть nil: тогда лимиты не применяются
	RateLimiter *middleware.RateLimiter
	ReportLimit middleware.RateLimitConfig
	AnswerLimit middleware.RateLimitConfig
}

func (r Routes) limit(cfg middleware.RateLimitConfig) gin.HandlerFunc {
	if r.RateLimiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return r.RateLimiter.Limit(cfg)
}

// Register настраивает маршруты API
func (r Routes) Register(router *gin.Engine) {
	questionID := middleware.ExtractQuestionID("id", "questionID")
	userID := middleware.ExtractStringParam("id", "userID")
	variantID := middleware.ExtractStringParam("id", "variantID")
	providerID := middleware.ExtractStringParam("providerId", "providerID")
	requireAdmin := r.Auth.RequireAdmin()

	api := router.Group("/api")
	{
		// Вопросы: чтение, жалобы и ответы доступны всем
		questions := api.Group("/questions")
		{
			questions.GET("", r.Questions.ListQuestions)
			questions.GET("/random", r.Questions.GetRandomQuestion)
			questions.GET("/:id", questionID, r.Questions.GetQuestion)
			questions.POST("/:id/reports", r.limit(r.ReportLimit), questionID, r.Questions.ReportQuestion)
			questions.POST("/:id/answer", r.limit(r.AnswerLimit), questionID, r.Questions.SubmitAnswer)

			questions.GET("/export", requireAdmin, r.Questions.ExportQuestions)
			questions.POST("", requireAdmin, r.Questions.CreateQuestion)
			questions.PUT("/:id", requireAdmin, questionID, r.Questions.UpdateQuestion)
			questions.DELETE("/:id", requireAdmin, questionID, r.Questions.DeleteQuestion)
			questions.PUT("/:id/reports/:reportId/resolve", requireAdmin, questionID, r.Questions.ResolveReport)
		}
		api.GET("/reports", requireAdmin, r.Questions.ListReports)

		users := api.Group("/users")
		{
			users.POST("", r.Users.CreateUser)
			users.GET("/:id", userID, r.Users.GetUser)
			users.GET("/:id/streak", userID, r.Users.GetStreak)
			users.PATCH("/:id", requireAdmin, userID, r.Users.RenameUser)
			users.DELETE("/:id", requireAdmin, userID, r.Users.DeleteUser)
		}
		api.GET("/leaderboard", r.Users.GetLeaderboard)

		variants := api.Group("/products/variants")
		{
			variants.GET("", r.Products.ListVariants)
			variants.GET("/by-provider/:providerId", providerID, r.Products.GetVariantByProvider)
			variants.GET("/:id", variantID, r.Products.GetVariant)
			variants.PUT("", requireAdmin, r.Products.SaveVariant)
			variants.DELETE("/:id", requireAdmin, variantID, r.Products.DeleteVariant)
		}
	}
}
