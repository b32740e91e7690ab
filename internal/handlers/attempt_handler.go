package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger, production bool) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger, production),
		attemptService: attemptService,
	}
}

// StartQuiz starts the caller's attempt or returns the existing one.
// @Router /quizzes/{id}/start [post]
func (h *AttemptHandler) StartQuiz(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "Quiz started", attempt)
}

// SubmitAnswer records one answer and reports whether the quiz is complete.
// @Router /quizzes/{id}/answers [post]
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req services.SubmitAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.attemptService.SubmitAnswer(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "Answer recorded", result)
}

// GetProgress returns the caller's attempt with its answers.
// @Router /quizzes/{id}/progress [get]
func (h *AttemptHandler) GetProgress(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	progress, err := h.attemptService.GetProgress(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "", progress)
}
