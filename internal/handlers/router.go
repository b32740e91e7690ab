package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/auth"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	rankingHandler *RankingHandler
	authenticator  auth.Authenticator
	users          auth.UserSyncer
	logger         utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authenticator auth.Authenticator,
	logger utils.Logger,
	production bool,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), logger, production),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger, production),
		rankingHandler: NewRankingHandler(serviceManager.Ranking(), serviceManager.Export(), logger, production),
		authenticator:  authenticator,
		users:          serviceManager.User(),
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	authors := auth.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	students := auth.RequireRoles(models.RoleStudent)
	admins := auth.RequireRoles(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(auth.Middleware(hm.authenticator, hm.users, hm.logger))
	{
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", authors, hm.quizHandler.CreateQuiz)
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", authors, hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", authors, hm.quizHandler.DeleteQuiz)

			// Student flow
			quizzes.POST("/:id/enroll", students, hm.quizHandler.EnrollQuiz)
			quizzes.POST("/:id/start", students, hm.attemptHandler.StartQuiz)
			quizzes.POST("/:id/answers", students, hm.attemptHandler.SubmitAnswer)
			quizzes.GET("/:id/progress", students, hm.attemptHandler.GetProgress)

			// Leaderboard and prizes
			quizzes.GET("/:id/rankings", hm.rankingHandler.GetRankings)
			quizzes.GET("/:id/rankings/export", authors, hm.rankingHandler.ExportRankings)
			quizzes.GET("/:id/prizes", hm.rankingHandler.PreviewPrizes)
			quizzes.POST("/:id/winners", authors, hm.rankingHandler.DeclareWinners)
		}

		admin := v1.Group("/admin", admins)
		{
			admin.POST("/quizzes", hm.quizHandler.AdminCreateQuiz)
			admin.PUT("/quizzes/:id", hm.quizHandler.AdminUpdateQuiz)
			admin.DELETE("/quizzes/:id", hm.quizHandler.DeleteQuiz)
			admin.GET("/quizzes/:id/attempts", hm.rankingHandler.GetAttempts)
		}
	}
}

// HealthCheck reports liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "quiz-service",
	})
}
