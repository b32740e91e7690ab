package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger, production bool) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger, production),
		quizService: quizService,
	}
}

// CreateQuiz creates a quiz for the calling teacher. Every question must
// carry a timeLimit.
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	h.create(c, services.TimeLimitStrict)
}

// AdminCreateQuiz creates a quiz on the admin surface, where a missing
// timeLimit defaults to 30 seconds.
// @Router /admin/quizzes [post]
func (h *QuizHandler) AdminCreateQuiz(c *gin.Context) {
	h.create(c, services.TimeLimitLenient)
}

func (h *QuizHandler) create(c *gin.Context, policy services.TimeLimitPolicy) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req services.CreateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating quiz", "title", req.Title, "questions", len(req.Questions))

	quiz, err := h.quizService.Create(c.Request.Context(), actor, &req, policy)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusCreated, "Quiz created", quiz)
}

// GetQuiz returns one quiz with its derived phase.
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "", quiz)
}

// ListQuizzes lists quizzes filtered by creator and phase.
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req services.ListQuizzesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	list, err := h.quizService.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "", list)
}

// UpdateQuiz applies a partial update on behalf of the owner.
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	h.update(c, services.TimeLimitStrict)
}

// AdminUpdateQuiz applies a partial update on the admin surface.
// @Router /admin/quizzes/{id} [put]
func (h *QuizHandler) AdminUpdateQuiz(c *gin.Context) {
	h.update(c, services.TimeLimitLenient)
}

func (h *QuizHandler) update(c *gin.Context, policy services.TimeLimitPolicy) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating quiz", "quiz_id", id)

	quiz, err := h.quizService.Update(c.Request.Context(), actor, id, &req, policy)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "Quiz updated", quiz)
}

// DeleteQuiz removes a quiz that is not running.
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting quiz", "quiz_id", id)

	if err := h.quizService.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, "Quiz deleted", nil)
}

// EnrollQuiz enrolls the calling student. Repeating it is harmless.
// @Router /quizzes/{id}/enroll [post]
func (h *QuizHandler) EnrollQuiz(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.quizService.Enroll(c.Request.Context(), actor, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if enrollment.AlreadyExists {
		h.respondSuccess(c, http.StatusOK, "Already enrolled", enrollment)
		return
	}
	h.respondSuccess(c, http.StatusCreated, "Enrolled", enrollment)
}
