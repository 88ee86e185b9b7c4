package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/gin-gonic/gin"
)

// GuestHandler serves the anonymous flow; it needs no identity header.
type GuestHandler struct {
	BaseHandler
	guestService services.GuestQuizService
	validator    *validator.Validator
}

func NewGuestHandler(guestService services.GuestQuizService, validator *validator.Validator, logger *slog.Logger) *GuestHandler {
	return &GuestHandler{
		BaseHandler:  NewBaseHandler(logger),
		guestService: guestService,
		validator:    validator,
	}
}

func (h *GuestHandler) StartSession(c *gin.Context) {
	quizID, ok := h.parseIDParam(c, "quiz_id")
	if !ok {
		return
	}

	h.LogRequest(c, "Starting guest session", "quiz_id", quizID)

	session, err := h.guestService.Start(c.Request.Context(), quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Guest session started", session)
}

func (h *GuestHandler) SubmitAnswer(c *gin.Context) {
	sessionID, ok := h.parseStringParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAnswerRequest
	if !bindJSON(&h.BaseHandler, h.validator, c, &req) {
		return
	}

	resp, err := h.guestService.SubmitAnswer(c.Request.Context(), sessionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Answer recorded", resp)
}

func (h *GuestHandler) CompleteSession(c *gin.Context) {
	sessionID, ok := h.parseStringParam(c, "id")
	if !ok {
		return
	}

	result, err := h.guestService.Complete(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Guest session completed", result)
}

func (h *GuestHandler) AbandonSession(c *gin.Context) {
	sessionID, ok := h.parseStringParam(c, "id")
	if !ok {
		return
	}

	if err := h.guestService.Abandon(c.Request.Context(), sessionID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Guest session abandoned", nil)
}
