package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
}

func NewAttemptHandler(attemptService services.AttemptService, validator *validator.Validator, logger *slog.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
	}
}

// StartAttempt starts the single adaptive attempt a student gets for a quiz
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param request body services.StartAttemptRequest true "Quiz to attempt"
// @Success 201 {object} SuccessResponse{data=services.AttemptResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/start [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var req services.StartAttemptRequest
	if !h.bind(c, &req) {
		return
	}

	h.LogRequest(c, "Starting attempt", "quiz_id", req.QuizID)

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Attempt started", attempt)
}

// SubmitAnswer grades one answer and returns the next question or the final result
// @Summary Submit answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param request body services.SubmitAnswerRequest true "Answer"
// @Success 200 {object} SuccessResponse{data=services.SubmitAnswerResponse}
// @Router /attempts/{id}/answers [post]
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	attemptID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if !h.bind(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting answer", "attempt_id", attemptID, "question_id", req.QuestionID)

	resp, err := h.attemptService.SubmitAnswer(c.Request.Context(), attemptID, &req, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	message := "Answer recorded"
	if resp.Completed {
		message = "Attempt completed"
	}
	h.RespondWithSuccess(c, http.StatusOK, message, resp)
}

func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	attemptID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Completing attempt", "attempt_id", attemptID)

	result, err := h.attemptService.Complete(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempt completed", result)
}

func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	studentID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	attemptID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), attemptID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Attempt retrieved", attempt)
}

// bind decodes and validates the JSON body, answering 400 on failure.
func (h *AttemptHandler) bind(c *gin.Context, req interface{}) bool {
	return bindJSON(&h.BaseHandler, h.validator, c, req)
}

func bindJSON(h *BaseHandler, v *validator.Validator, c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "Invalid request payload", err, err.Error())
		return false
	}
	if err := v.Validate(req); err != nil {
		h.handleServiceError(c, err)
		return false
	}
	return true
}
