package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HandlerManager struct {
	attemptHandler   *AttemptHandler
	guestHandler     *GuestHandler
	analyticsHandler *AnalyticsHandler
	health           Pinger
	logger           *slog.Logger
}

func NewHandlerManager(serviceManager *services.ServiceManager, health Pinger, validator *validator.Validator, logger *slog.Logger) *HandlerManager {
	return &HandlerManager{
		attemptHandler:   NewAttemptHandler(serviceManager.Attempt, validator, logger),
		guestHandler:     NewGuestHandler(serviceManager.Guest, validator, logger),
		analyticsHandler: NewAnalyticsHandler(serviceManager.Analytics, logger),
		health:           health,
		logger:           logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(utils.ContextLogger(hm.logger), utils.LoggerMiddleware(hm.logger), IdentityMiddleware())

	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.POST("/:id/answers", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/complete", hm.attemptHandler.CompleteAttempt)
		}

		analytics := v1.Group("/analytics")
		{
			analytics.GET("/quizzes/:quiz_id", hm.analyticsHandler.GetQuizMetrics)
			analytics.GET("/classes/:class_id", hm.analyticsHandler.GetClassMetrics)
			analytics.GET("/classes/:class_id/at-risk", hm.analyticsHandler.GetAtRiskStudents)
			analytics.GET("/classes/:class_id/students/:student_id/progress", hm.analyticsHandler.GetStudentProgress)
		}

		guest := v1.Group("/guest")
		{
			guest.POST("/quizzes/:quiz_id/start", hm.guestHandler.StartSession)
			guest.POST("/sessions/:id/answers", hm.guestHandler.SubmitAnswer)
			guest.POST("/sessions/:id/complete", hm.guestHandler.CompleteSession)
			guest.DELETE("/sessions/:id", hm.guestHandler.AbandonSession)
		}
	}
}

func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if hm.health != nil {
		if err := hm.health.Ping(ctx); err != nil {
			hm.logger.Warn("Health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "quiz-engine",
				"error":   err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "quiz-engine",
	})
}
