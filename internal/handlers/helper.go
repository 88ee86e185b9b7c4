package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey    = "user_id"
	userIDHeader = "X-User-ID"
)

// IdentityMiddleware lifts the gateway-supplied student id into the gin context.
// No authentication happens here.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(userIDHeader)); userID != "" {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

// requireUserID writes a 401 and returns false when no identity was supplied.
func (h *BaseHandler) requireUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDKey)
	if userID == "" {
		h.RespondWithError(c, http.StatusUnauthorized, "IDENTITY_REQUIRED", "User not authenticated", nil,
			"missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		details := "ID must be a positive integer"
		if err != nil {
			details = err.Error()
		}
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param, nil, details)
		return 0, false
	}
	return uint(id), true
}

func (h *BaseHandler) parseStringParam(c *gin.Context, param string) (string, bool) {
	value := strings.TrimSpace(c.Param(param))
	if value == "" {
		h.RespondWithError(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param, nil, "ID cannot be empty")
		return "", false
	}
	return value, true
}

func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed", err, validationErrors)
		return
	}

	var already *services.AlreadyAttemptedError
	if errors.As(err, &already) {
		h.RespondWithError(c, http.StatusConflict, "ALREADY_ATTEMPTED", "Quiz already attempted", err, gin.H{
			"attempt_id": already.AttemptID,
			"quiz_id":    already.QuizID,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "ACCESS_DENIED", "Access denied", err, gin.H{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuestionNotCurrent):
		h.RespondWithError(c, http.StatusBadRequest, "QUESTION_NOT_CURRENT", err.Error(), err)
	case errors.Is(err, services.ErrAttemptAlreadyCompleted):
		h.RespondWithError(c, http.StatusConflict, "ATTEMPT_COMPLETED", err.Error(), err)
	case errors.Is(err, services.ErrQuestionAlreadyAnswered):
		h.RespondWithError(c, http.StatusConflict, "QUESTION_ALREADY_ANSWERED", err.Error(), err)
	case errors.Is(err, services.ErrAttemptTimeExpired):
		h.RespondWithError(c, http.StatusConflict, "ATTEMPT_TIME_EXPIRED", err.Error(), err)
	case errors.Is(err, services.ErrSessionCompleted):
		h.RespondWithError(c, http.StatusConflict, "SESSION_COMPLETED", err.Error(), err)
	case errors.Is(err, services.ErrQuizHasNoQuestions):
		h.RespondWithError(c, http.StatusConflict, "QUIZ_HAS_NO_QUESTIONS", err.Error(), err)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "NOT_FOUND", notFoundMessage(err), err)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), err)
	case services.IsForbidden(err):
		h.RespondWithError(c, http.StatusForbidden, "ACCESS_DENIED", "Access denied", err)
	case services.IsUnavailable(err):
		h.RespondWithError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Service temporarily unavailable", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

func notFoundMessage(err error) string {
	for _, target := range []error{
		services.ErrQuizNotFound,
		services.ErrAttemptNotFound,
		services.ErrQuestionNotFound,
		services.ErrSessionNotFound,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "resource not found"
}
