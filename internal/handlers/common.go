package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...any) {
	fields := h.requestFields(c)
	fields = append(fields, additionalFields...)
	h.logger.DebugContext(c.Request.Context(), message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...any) {
	fields := h.requestFields(c)
	fields = append(fields, "error", err.Error())
	fields = append(fields, additionalFields...)
	h.logger.ErrorContext(c.Request.Context(), message, fields...)
}

func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...any) {
	fields := h.requestFields(c)
	fields = append(fields, additionalFields...)
	h.logger.WarnContext(c.Request.Context(), message, fields...)
}

func (h *BaseHandler) requestFields(c *gin.Context) []any {
	return []any{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", c.GetString(userIDKey),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
}

// RespondWithError sends a consistent error response. Server errors are logged as errors,
// client errors as warnings.
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, code, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
		Code:    code,
	}
	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	switch {
	case statusCode >= 500 && err != nil:
		h.LogError(c, err, message, "status_code", statusCode, "code", code)
	case err != nil:
		h.LogWarn(c, message, "status_code", statusCode, "code", code, "error", err.Error())
	default:
		h.LogWarn(c, message, "status_code", statusCode, "code", code)
	}

	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, SuccessResponse{
		Message: message,
		Data:    data,
	})
}
