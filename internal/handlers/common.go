package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/auth"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging and error mapping for all handlers
type BaseHandler struct {
	logger utils.Logger
	// showDetails exposes error details to clients outside production
	showDetails bool
}

func NewBaseHandler(logger utils.Logger, production bool) BaseHandler {
	return BaseHandler{
		logger:      logger,
		showDetails: !production,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
	}
	fields = append(fields, additionalFields...)

	utils.GetLoggerFromContext(c, h.logger).Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)

	utils.GetLoggerFromContext(c, h.logger).LogError(err, message, fields...)
}

func (h *BaseHandler) extractUserID(c *gin.Context) string {
	id, _ := auth.UserIDFrom(c)
	return id
}

// actor returns the authenticated caller or writes a 401.
func (h *BaseHandler) actor(c *gin.Context) (services.Actor, bool) {
	id, ok := auth.UserIDFrom(c)
	role, roleOK := auth.RoleFrom(c)
	if !ok || !roleOK {
		h.respondError(c, http.StatusUnauthorized, "User not authenticated", nil)
		return services.Actor{}, false
	}
	return services.Actor{UserID: id, Role: role}, true
}

func (h *BaseHandler) respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (h *BaseHandler) respondError(c *gin.Context, status int, message string, details interface{}) {
	resp := ErrorResponse{Message: message}
	if h.showDetails {
		resp.Details = details
	}
	c.JSON(status, resp)
}

// handleServiceError maps service errors onto status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.respondError(c, http.StatusBadRequest, "Validation failed", validationErrors)
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.respondError(c, http.StatusForbidden, "Access denied", map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.respondError(c, http.StatusUnprocessableEntity, businessRuleError.Message, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		h.respondError(c, http.StatusNotFound, "Quiz not found", nil)
	case errors.Is(err, services.ErrAttemptNotFound):
		h.respondError(c, http.StatusNotFound, "Attempt not found", nil)
	case services.IsNotFound(err):
		h.respondError(c, http.StatusNotFound, "Resource not found", nil)

	case errors.Is(err, services.ErrQuizActive):
		h.respondError(c, http.StatusConflict, "Quiz cannot be deleted while it is active", nil)
	case errors.Is(err, services.ErrQuizFull):
		h.respondError(c, http.StatusConflict, "Quiz has reached its participant limit", nil)
	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		h.respondError(c, http.StatusConflict, "Quiz has already been submitted", nil)
	case errors.Is(err, services.ErrWinnersAlreadyDeclared):
		h.respondError(c, http.StatusConflict, "Winners have already been declared", nil)
	case services.IsConflict(err):
		h.respondError(c, http.StatusConflict, "Resource conflict", err.Error())

	case errors.Is(err, services.ErrQuizEnded):
		h.respondError(c, http.StatusUnprocessableEntity, "Quiz has ended", nil)
	case errors.Is(err, services.ErrQuizNotStarted):
		h.respondError(c, http.StatusUnprocessableEntity, "Quiz has not started yet", nil)
	case errors.Is(err, services.ErrQuizNotEnded):
		h.respondError(c, http.StatusUnprocessableEntity, "Quiz has not ended yet", nil)
	case errors.Is(err, services.ErrQuizScheduleInvalid):
		h.respondError(c, http.StatusUnprocessableEntity, "Quiz schedule is invalid", nil)

	case services.IsValidation(err):
		h.respondError(c, http.StatusBadRequest, "Validation failed", err.Error())
	case services.IsUnauthorized(err):
		h.respondError(c, http.StatusForbidden, "Access denied", nil)

	default:
		h.LogError(c, err, "Unhandled service error")
		h.respondError(c, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}
