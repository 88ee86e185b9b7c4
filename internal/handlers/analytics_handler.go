package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
	}
}

// GetQuizMetrics returns completion, score and per-question statistics for a quiz
// @Summary Quiz analytics
// @Tags analytics
// @Produce json
// @Param quiz_id path uint true "Quiz ID"
// @Success 200 {object} SuccessResponse{data=analytics.QuizMetrics}
// @Failure 404 {object} ErrorResponse
// @Router /analytics/quizzes/{quiz_id} [get]
func (h *AnalyticsHandler) GetQuizMetrics(c *gin.Context) {
	quizID, ok := h.parseIDParam(c, "quiz_id")
	if !ok {
		return
	}

	metrics, err := h.analyticsService.QuizMetrics(c.Request.Context(), quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Quiz metrics retrieved", metrics)
}

func (h *AnalyticsHandler) GetClassMetrics(c *gin.Context) {
	classID, ok := h.parseIDParam(c, "class_id")
	if !ok {
		return
	}

	metrics, err := h.analyticsService.ClassMetrics(c.Request.Context(), classID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Class metrics retrieved", metrics)
}

// GetAtRiskStudents accepts an optional ?threshold= overriding the configured one
func (h *AnalyticsHandler) GetAtRiskStudents(c *gin.Context) {
	classID, ok := h.parseIDParam(c, "class_id")
	if !ok {
		return
	}

	var threshold *float64
	if raw, present := c.GetQuery("threshold"); present {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.RespondWithError(c, http.StatusBadRequest, "INVALID_THRESHOLD", "Invalid threshold", err, err.Error())
			return
		}
		threshold = &value
	}

	students, err := h.analyticsService.AtRiskStudents(c.Request.Context(), classID, threshold)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "At-risk students retrieved", students)
}

func (h *AnalyticsHandler) GetStudentProgress(c *gin.Context) {
	classID, ok := h.parseIDParam(c, "class_id")
	if !ok {
		return
	}
	studentID, ok := h.parseStringParam(c, "student_id")
	if !ok {
		return
	}

	progress, err := h.analyticsService.StudentProgress(c.Request.Context(), classID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Student progress retrieved", progress)
}
